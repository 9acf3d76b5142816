package trace

import "context"

// ctxState is what a context carries for tracing: the tracer and the span
// that new spans nest under.
type ctxState struct {
	tracer Tracer
	span   uint64
}

type ctxKey struct{}

func stateOf(ctx context.Context) ctxState {
	if ctx != nil {
		if st, ok := ctx.Value(ctxKey{}).(ctxState); ok {
			return st
		}
	}
	return ctxState{tracer: Nop}
}

// WithTracer returns ctx carrying t. A nil t stores Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	st := stateOf(ctx)
	st.tracer = t
	return context.WithValue(ctx, ctxKey{}, st)
}

// FromContext returns the tracer stored in ctx, or Nop.
func FromContext(ctx context.Context) Tracer { return stateOf(ctx).tracer }

// WithSpan makes span the parent of spans begun under the returned context.
func WithSpan(ctx context.Context, span *Span) context.Context {
	st := stateOf(ctx)
	st.span = span.ID()
	return context.WithValue(ctx, ctxKey{}, st)
}

// CurrentSpan is the ID of the span set by WithSpan, or 0.
func CurrentSpan(ctx context.Context) uint64 { return stateOf(ctx).span }
