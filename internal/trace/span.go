package trace

import (
	"strconv"
	"sync/atomic"
	"time"
)

var seqCounter, spanCounter atomic.Uint64

// NextSeq returns the next event sequence number. Sinks stamp it on write so
// interleaved output from parallel files can be put back in order.
func NextSeq() uint64 { return seqCounter.Add(1) }

// NextSpanID returns a process-unique span ID; 0 is never returned.
func NextSpanID() uint64 { return spanCounter.Add(1) }

// Span is an operation between Begin and End. A span whose scope the tracer
// filters out is inert: End and WithExtra are no-ops and ID is 0.
type Span struct {
	t       Tracer
	begin   Event
	extra   map[string]string
	started time.Time
	ended   bool
}

// Begin emits the begin event of a span under parent (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if !wants(t, scope) {
		return &Span{}
	}
	s := &Span{
		t:       t,
		started: time.Now(),
		begin: Event{
			Kind:     KindSpanBegin,
			Scope:    scope,
			SpanID:   NextSpanID(),
			ParentID: parent,
			Name:     name,
		},
	}
	ev := s.begin
	ev.Time = s.started
	t.Emit(&ev)
	return s
}

// WithExtra attaches a key/value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s.t == nil {
		return s
	}
	if s.extra == nil {
		s.extra = map[string]string{}
	}
	s.extra[key] = value
	return s
}

// End emits the end event once and returns the span's duration.
func (s *Span) End(detail string) time.Duration {
	if s.t == nil || s.ended {
		return 0
	}
	s.ended = true
	now := time.Now()
	ev := s.begin
	ev.Time, ev.Kind, ev.Detail, ev.Extra = now, KindSpanEnd, detail, s.extra
	s.t.Emit(&ev)
	return now.Sub(s.started)
}

func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.begin.SpanID
}

// Point emits an instant event.
func Point(t Tracer, scope Scope, name, detail string) {
	if wants(t, scope) {
		t.Emit(&Event{Time: time.Now(), Kind: KindPoint, Scope: scope, Name: name, Detail: detail})
	}
}

// Node emits the event the emitter produces per tree node at LevelDebug.
// Detail is the node's source line, or "-" when it has none.
func Node(t Tracer, kind string, line, depth int) {
	if !wants(t, ScopeNode) {
		return
	}
	detail := "-"
	if line > 0 {
		detail = strconv.Itoa(line)
	}
	t.Emit(&Event{Time: time.Now(), Kind: KindPoint, Scope: ScopeNode, Depth: depth, Name: kind, Detail: detail})
}

func wants(t Tracer, scope Scope) bool {
	return t != nil && t.Enabled() && t.Level().ShouldEmit(scope)
}
