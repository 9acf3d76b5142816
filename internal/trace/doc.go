// Package trace is the tracing (logging) subsystem of treecomp.
//
// # Usage
//
//	treecomp compile --trace=- --trace-level=debug app.json
//
// # Tracers
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to a file or stderr
//   - RingTracer: circular buffer kept in memory; RingOf finds it behind a
//     MultiTracer
//   - MultiTracer: fan-out to several tracers
//
// # Levels and scopes
//
//   - LevelError: file-level events kept in a ring, printed only when the
//     run fails
//   - LevelPhase: driver and pass boundaries (load, lower, emit, write)
//   - LevelDetail: per-file events
//   - LevelDebug: everything, including one event per tree node
//
// Node events carry the node depth; text output indents them by it, which
// gives a readable outline of the tree the emitter walked.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "emit", parentID)
//	defer span.End("")
package trace
