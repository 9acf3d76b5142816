package driver

import (
	"treecomp/internal/buildpipeline"
	"treecomp/internal/observ"
	"treecomp/internal/optable"
	"treecomp/internal/tree"
)

// OutputMode selects what happens to emitted text.
type OutputMode uint8

const (
	// ModeWrite writes <name>.js next to the input or under OutDir.
	ModeWrite OutputMode = iota
	// ModeStdout keeps the text in the result for the caller to print.
	ModeStdout
	// ModeCheck compares against the existing output file and writes nothing.
	ModeCheck
)

// Options configures CompileFiles.
type Options struct {
	Formatted      bool
	MaxDepth       int
	MaxDiagnostics int
	// Operators resolves operator names; the built-in table when nil.
	Operators *optable.Table
	// Format forces a decoder; FormatAuto picks one by extension.
	Format  tree.Format
	Jobs    int
	Mode    OutputMode
	OutDir  string
	BaseDir string
	// Verify runs the testkit output invariants on every emitted text.
	Verify bool

	Cache         *Cache
	Progress      buildpipeline.ProgressSink
	Metrics       *observ.Metrics
	EnableTimings bool
}
