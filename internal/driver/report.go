package driver

import (
	"treecomp/internal/buildpipeline"
	"treecomp/internal/diag"
	"treecomp/internal/observ"
)

// Report is the JSON form of a Run (`treecomp compile --format json`).
type Report struct {
	RunID     string       `json:"run_id"`
	ElapsedMS float64      `json:"elapsed_ms"`
	Files     []FileReport `json:"files"`
}

type FileReport struct {
	Path        string                `json:"path"`
	Output      string                `json:"output,omitempty"`
	Outcome     Outcome               `json:"outcome"`
	Cached      bool                  `json:"cached,omitempty"`
	Nodes       int                   `json:"nodes"`
	Text        string                `json:"text,omitempty"`
	Diff        string                `json:"diff,omitempty"`
	Error       string                `json:"error,omitempty"`
	Diagnostics []DiagnosticReport    `json:"diagnostics,omitempty"`
	StageMS     buildpipeline.Timings `json:"stage_ms"`
	Timings     *observ.Report        `json:"timings,omitempty"`
}

type DiagnosticReport struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// Report converts the run; the emitted text is included only in stdout mode.
func (r *Run) Report() Report {
	out := Report{
		RunID:     r.ID,
		ElapsedMS: float64(r.Elapsed.Microseconds()) / 1000,
		Files:     make([]FileReport, 0, len(r.Files)),
	}
	for i := range r.Files {
		f := &r.Files[i]
		fr := FileReport{
			Path:    f.Display,
			Output:  f.Output,
			Outcome: f.Outcome,
			Cached:  f.Cached,
			Nodes:   f.Nodes,
			Diff:    f.Diff,
			StageMS: f.Timings,
			Timings: f.Timing,
		}
		if f.Outcome == OutcomeStdout {
			fr.Text = f.Text
		}
		if f.Err != nil {
			fr.Error = f.Err.Error()
		}
		if f.Bag != nil {
			for _, d := range f.Bag.Items() {
				fr.Diagnostics = append(fr.Diagnostics, diagnosticReport(d))
			}
		}
		out.Files = append(out.Files, fr)
	}
	return out
}

func diagnosticReport(d diag.Diagnostic) DiagnosticReport {
	return DiagnosticReport{
		Severity: d.Severity.String(),
		Code:     d.Code.ID(),
		Message:  d.Message,
		File:     d.Primary.File,
		Line:     d.Primary.Line,
		Kind:     d.Primary.Kind,
	}
}

// Diagnostics gathers every file's diagnostics into one sorted bag.
func (r *Run) Diagnostics() *diag.Bag {
	total := 0
	for i := range r.Files {
		if r.Files[i].Bag != nil {
			total += r.Files[i].Bag.Len()
		}
	}
	all := diag.NewBag(total)
	for i := range r.Files {
		all.Merge(r.Files[i].Bag)
	}
	all.Sort()
	return all
}
