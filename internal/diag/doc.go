// Package diag holds the diagnostics shared by lowering, the emitter and the
// batch driver.
//
// A Diagnostic carries a Severity (info, warning, error), a numeric Code with
// a stable ID such as EMT1002, a one-line Message, the Primary location (file,
// line, node kind) and optional Notes.
//
// Producers report through a Reporter and keep going: a bad node degrades the
// output but never aborts the compile. Only structural limits abort, and
// those arrive as errors, not diagnostics.
//
// A *Bag is itself a Reporter. It keeps up to its limit and counts the rest.
// The driver keeps one Bag per input file and stores it in the cache next to
// the emitted text. FormatShortDiagnostics and WriteColored render bags for
// golden files and the terminal.
package diag
