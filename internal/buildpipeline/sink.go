package buildpipeline

import (
	"slices"
	"sync"
)

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

// ToChannel returns a sink that sends every event on ch. The send blocks, so
// the reader must keep draining ch until the compile returns.
func ToChannel(ch chan<- Event) ProgressSink {
	return SinkFunc(func(evt Event) { ch <- evt })
}

// Tee returns a sink that forwards to each non-nil sink in order, or nil if
// none are left.
func Tee(sinks ...ProgressSink) ProgressSink {
	sinks = slices.DeleteFunc(slices.Clone(sinks), func(s ProgressSink) bool { return s == nil })
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	}
	return SinkFunc(func(evt Event) {
		for _, s := range sinks {
			s.OnEvent(evt)
		}
	})
}

// Recorder keeps every event it sees. Tests and the timing report use it.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) OnEvent(evt Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// For returns the events of one file in arrival order.
func (r *Recorder) For(file string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, evt := range r.events {
		if evt.File == file {
			out = append(out, evt)
		}
	}
	return out
}
