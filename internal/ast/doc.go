// Package ast is the typed view of an upstream tree.
//
// Every node kind the emitter understands has its own Go type carrying only the
// attributes that kind uses; everything else lowers to *Unknown. The emitter
// switches on the concrete type, so adding a kind means adding a type and a case,
// not another string comparison.
//
// Lower converts a tree.Node into this form with an explicit stack. It refuses
// shared or cyclic references and trees deeper than Limits.MaxDepth.
package ast
