package trace

import (
	"errors"
	"io"
	"sync"
)

// leveled carries the level every sink filters on.
type leveled struct{ level Level }

func (l leveled) Level() Level  { return l.level }
func (l leveled) Enabled() bool { return l.level > LevelOff }

type nopTracer struct{ leveled }

func (nopTracer) Emit(*Event)  {}
func (nopTracer) Flush() error { return nil }
func (nopTracer) Close() error { return nil }

// Nop is the disabled tracer.
var Nop Tracer = nopTracer{}

// StreamTracer formats each event as it arrives and writes it out under a
// lock, stamping the sequence number. Write errors are dropped; tracing never
// fails a compile.
type StreamTracer struct {
	leveled
	format Format

	mu  sync.Mutex
	out io.Writer
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{leveled: leveled{level}, out: w, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev == nil || !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	ev.Seq = NextSeq()
	_, _ = t.out.Write(FormatEvent(ev, t.format))
	t.mu.Unlock()
}

// Flush forwards to the writer when it buffers (bufio.Writer and friends).
func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes, then closes the writer if it is an io.Closer.
func (t *StreamTracer) Close() error {
	err := t.Flush()
	if c, ok := t.out.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

// MultiTracer hands every event to several tracers. Each gets its own copy,
// since sinks stamp Seq on the event they receive.
type MultiTracer struct {
	leveled
	sinks []Tracer
}

func NewMultiTracer(level Level, sinks ...Tracer) *MultiTracer {
	return &MultiTracer{leveled: leveled{level}, sinks: sinks}
}

func (t *MultiTracer) Emit(ev *Event) {
	if ev == nil {
		return
	}
	for _, s := range t.sinks {
		own := *ev
		s.Emit(&own)
	}
}

func (t *MultiTracer) Flush() error { return t.all(Tracer.Flush) }
func (t *MultiTracer) Close() error { return t.all(Tracer.Close) }

func (t *MultiTracer) all(op func(Tracer) error) error {
	errs := make([]error, len(t.sinks))
	for i, s := range t.sinks {
		errs[i] = op(s)
	}
	return errors.Join(errs...)
}

// RingOf returns the ring behind t: t itself, or the first ring a
// MultiTracer feeds. It is nil when t keeps no ring.
func RingOf(t Tracer) *RingTracer {
	switch tr := t.(type) {
	case *RingTracer:
		return tr
	case *MultiTracer:
		for _, s := range tr.sinks {
			if r := RingOf(s); r != nil {
				return r
			}
		}
	}
	return nil
}
