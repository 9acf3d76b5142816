package emit

import (
	"errors"

	"treecomp/internal/ast"
	"treecomp/internal/diag"
	"treecomp/internal/tree"
)

// DefaultMaxDiagnostics caps the bag when Compile is given a non-positive limit.
const DefaultMaxDiagnostics = 100

// Result is the outcome of compiling one raw tree.
type Result struct {
	Text        string
	Diagnostics *diag.Bag
	// Nodes is the number of typed nodes the emitter walked.
	Nodes int
}

// Compile lowers root and emits it, collecting diagnostics into a fresh Bag
// capped at maxDiagnostics (DefaultMaxDiagnostics when not positive).
// Duplicate diagnostics are reported once.
// opt.Reporter, when set, also receives every unique diagnostic.
//
// A StructureError is returned as the error and also recorded in the bag as
// EmitStructure; Text is empty in that case.
func Compile(root *tree.Node, opt Options, maxDiagnostics int) (Result, error) {
	if maxDiagnostics <= 0 {
		maxDiagnostics = DefaultMaxDiagnostics
	}
	bag := diag.NewBag(maxDiagnostics)
	var sink diag.Reporter = bag
	if opt.Reporter != nil {
		sink = teeReporter{sink, opt.Reporter}
	}
	opt.Reporter = diag.NewDedupReporter(sink)
	res := Result{Diagnostics: bag}

	node, err := ast.Lower(root, ast.Limits{MaxDepth: opt.MaxDepth})
	if err == nil {
		res.Nodes = ast.Count(node)
		res.Text, err = Emit(node, opt)
	}
	if err != nil {
		var se *StructureError
		if errors.As(err, &se) {
			diag.ReportError(opt.Reporter, diag.EmitStructure,
				diag.Location{File: opt.File, Line: se.Line, Kind: se.Type}, se.Error()).Emit()
		}
		res.Text = ""
		return res, err
	}
	return res, nil
}

type teeReporter []diag.Reporter

func (t teeReporter) Report(d diag.Diagnostic) {
	for _, r := range t {
		r.Report(d)
	}
}
