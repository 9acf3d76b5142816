// Package emit turns a typed tree into JavaScript source text.
//
// Every node is written in three phases: an opening fragment chosen by the
// node kind (and, for expressions, by the parent kind), its children with the
// separators and markers implied by the parent/child kind pair, and a closing
// fragment. Per-node problems (unknown loop type, unresolved operator, missing
// attribute, unknown tag) are reported through a diag.Reporter and the walk
// continues; only a tree deeper than Options.MaxDepth aborts the call.
//
// The emitter keeps no state between calls and never mutates the tree, so it
// may run concurrently on the same or different trees as long as the
// Reporter passed in is safe for that.
package emit
