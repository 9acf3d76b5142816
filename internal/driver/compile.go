package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"treecomp/internal/ast"
	"treecomp/internal/buildpipeline"
	"treecomp/internal/diag"
	"treecomp/internal/emit"
	"treecomp/internal/observ"
	"treecomp/internal/optable"
	"treecomp/internal/testkit"
	"treecomp/internal/trace"
	"treecomp/internal/tree"
)

// Outcome is what happened to one file.
type Outcome string

const (
	OutcomeWritten   Outcome = "written"
	OutcomeStdout    Outcome = "stdout"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeChanged   Outcome = "changed"
	OutcomeFailed    Outcome = "failed"
)

// FileResult is the result of compiling one tree file.
type FileResult struct {
	Path string
	// Display is Path relative to the base dir, as shown in progress and reports.
	Display string
	// Output is the path written or compared; empty in stdout mode.
	Output  string
	Text    string
	Bag     *diag.Bag
	Outcome Outcome
	Cached  bool
	Diff    string
	Nodes   int
	Err     error
	Timings buildpipeline.Timings
	Timing  *observ.Report
}

// Run collects the results of one CompileFiles call in input order.
type Run struct {
	ID      string
	Files   []FileResult
	Elapsed time.Duration
}

// HasErrors reports whether any file failed or has error diagnostics.
func (r *Run) HasErrors() bool {
	for i := range r.Files {
		f := &r.Files[i]
		if f.Err != nil || f.Outcome == OutcomeFailed || (f.Bag != nil && f.Bag.HasErrors()) {
			return true
		}
	}
	return false
}

// Changed counts files whose existing output differs in check mode.
func (r *Run) Changed() int {
	n := 0
	for i := range r.Files {
		if r.Files[i].Outcome == OutcomeChanged {
			n++
		}
	}
	return n
}

// CompileFiles compiles every tree file under paths in parallel. Per-file
// failures are recorded in the file's result; the returned error is reserved
// for listing failures and cancellation.
func CompileFiles(ctx context.Context, paths []string, opts Options) (*Run, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	files, err := ListTreeFiles(paths, opts.Format)
	if err != nil {
		return nil, err
	}

	run := &Run{ID: uuid.NewString(), Files: make([]FileResult, len(files))}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "compile", trace.CurrentSpan(ctx)).
		WithExtra("run", run.ID).
		WithExtra("files", strconv.Itoa(len(files)))
	ctx = trace.WithSpan(ctx, span)

	if len(files) == 0 {
		span.End("no tree files")
		return run, nil
	}

	base := opts.BaseDir
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}
	display := make([]string, len(files))
	for i, path := range files {
		display[i] = buildpipeline.DisplayPath(path, base)
	}
	buildpipeline.Queue(opts.Progress, display)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	c := newCompiler(opts, tracer)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// indexes are unique per goroutine, no mutex needed
			run.Files[i] = c.compileFile(gctx, path, display[i], func() ([]byte, error) {
				return os.ReadFile(path)
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End("cancelled")
		return run, err
	}

	run.Elapsed = time.Since(started)
	span.End(fmt.Sprintf("%d files in %s", len(files), run.Elapsed.Round(time.Microsecond)))
	return run, nil
}

// CompileData compiles one tree already read into memory, such as stdin.
// name stands in for the path in diagnostics and reports. The text is kept in
// the result whatever opts.Mode says; nothing is written.
func CompileData(ctx context.Context, name string, data []byte, opts Options) *Run {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	opts.Mode = ModeStdout
	run := &Run{ID: uuid.NewString(), Files: make([]FileResult, 1)}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "compile", trace.CurrentSpan(ctx)).
		WithExtra("run", run.ID).
		WithExtra("files", "1")
	ctx = trace.WithSpan(ctx, span)

	buildpipeline.Queue(opts.Progress, []string{name})
	c := newCompiler(opts, tracer)
	run.Files[0] = c.compileFile(ctx, name, name, func() ([]byte, error) { return data, nil })
	run.Elapsed = time.Since(started)
	span.End("1 file in " + run.Elapsed.Round(time.Microsecond).String())
	return run
}

type compiler struct {
	opts        Options
	fingerprint string
	tracer      trace.Tracer
}

func newCompiler(opts Options, tracer trace.Tracer) *compiler {
	if opts.Operators == nil {
		opts.Operators = optable.Default()
	}
	fingerprint := opts.Operators.Fingerprint()
	if opts.Verify {
		// verification adds diagnostics, so it is part of the cache key
		fingerprint += "+verify"
	}
	return &compiler{opts: opts, fingerprint: fingerprint, tracer: tracer}
}

func (c *compiler) compileFile(ctx context.Context, path, display string, read func() ([]byte, error)) (res FileResult) {
	res = FileResult{Path: path, Display: display, Bag: diag.NewBag(c.maxDiagnostics())}
	span := trace.Begin(c.tracer, trace.ScopeFile, display, trace.CurrentSpan(ctx))
	var timer *observ.Timer
	if c.opts.EnableTimings {
		timer = observ.NewTimer()
	}
	var emitDur time.Duration
	defer func() {
		if timer != nil {
			report := timer.Report()
			res.Timing = &report
			recordTimings(res.Bag, display, report)
		}
		c.opts.Metrics.FileDone(string(res.Outcome), res.Nodes, len(res.Text), emitDur)
		for _, d := range res.Bag.Items() {
			c.opts.Metrics.Diagnostic(d.Code.ID())
		}
		span.WithExtra("outcome", string(res.Outcome)).End(strconv.Itoa(res.Nodes) + " nodes")
	}()

	// load
	parent := span.ID()
	stage := c.begin(&res, timer, buildpipeline.StageLoad, parent)
	format := c.opts.Format
	if format == tree.FormatAuto {
		format, _ = tree.FormatFromPath(path)
	}
	data, err := read()
	if err != nil {
		c.fail(&res, stage, diag.IOLoadFileError, err)
		return res
	}
	key := CacheInputs{
		Data:      data,
		Format:    format,
		Formatted: c.opts.Formatted,
		MaxDepth:  c.opts.MaxDepth,
		Operators: c.fingerprint,
	}.Key()
	var cached CachedOutput
	if hit, err := c.opts.Cache.Load(key, &cached); err != nil {
		trace.Point(c.tracer, trace.ScopeFile, "cache", fmt.Sprintf("%s: %v", display, err))
	} else if hit {
		res.Cached = true
		res.Text = cached.Text
		res.Nodes = cached.Nodes
		for _, d := range cached.Diagnostics {
			res.Bag.Add(locate(d, display))
		}
		stage.done(buildpipeline.StatusCached)
		return c.write(&res, timer, parent)
	}
	root, err := tree.DecodeLimit(data, format, max(c.opts.MaxDepth, tree.DefaultMaxDepth))
	if err != nil {
		var de *tree.DepthError
		if errors.As(err, &de) {
			c.structureFail(&res, stage, &ast.StructureError{Reason: "tree too deep", Depth: de.Depth, Limit: de.Limit})
			return res
		}
		c.fail(&res, stage, diag.IODecodeTreeError, fmt.Errorf("%s: %w", path, err))
		return res
	}
	stage.done(buildpipeline.StatusDone)

	// lower
	limits := ast.Limits{MaxDepth: c.opts.MaxDepth}
	stage = c.begin(&res, timer, buildpipeline.StageLower, parent)
	node, err := ast.Lower(root, limits)
	if err != nil {
		c.structureFail(&res, stage, err)
		return res
	}
	res.Nodes = ast.Count(node)
	stage.done(buildpipeline.StatusDone)

	// emit
	stage = c.begin(&res, timer, buildpipeline.StageEmit, parent)
	// the emitter reports without a file name and uncapped; the bag gets a
	// located copy while the cache keeps the list as reported
	var reported []diag.Diagnostic
	reporter := diag.NewDedupReporter(diag.ReporterFunc(func(d diag.Diagnostic) {
		reported = append(reported, d)
		res.Bag.Add(locate(d, display))
	}))
	text, err := emit.Emit(node, emit.Options{
		Formatted: c.opts.Formatted,
		MaxDepth:  c.opts.MaxDepth,
		Operators: c.opts.Operators,
		Reporter:  reporter,
		Tracer:    c.tracer,
	})
	if err != nil {
		c.structureFail(&res, stage, err)
		return res
	}
	res.Text = text
	if c.opts.Verify {
		if err := testkit.CheckOutputInvariants(text); err != nil {
			diag.ReportWarning(reporter, diag.EmitInvariant, diag.Location{}, err.Error()).Emit()
		}
	}
	emitDur = stage.done(buildpipeline.StatusDone)

	if err := c.opts.Cache.Store(key, CachedOutput{Text: text, Nodes: res.Nodes, Diagnostics: reported}); err != nil {
		trace.Point(c.tracer, trace.ScopeFile, "cache", fmt.Sprintf("%s: %v", display, err))
	}
	return c.write(&res, timer, parent)
}

func (c *compiler) write(res *FileResult, timer *observ.Timer, parent uint64) FileResult {
	stage := c.begin(res, timer, buildpipeline.StageWrite, parent)
	switch c.opts.Mode {
	case ModeStdout:
		res.Outcome = OutcomeStdout
	case ModeCheck:
		res.Output = OutputPath(res.Path, c.opts.OutDir, c.opts.BaseDir)
		existing, err := os.ReadFile(res.Output)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			c.fail(res, stage, diag.IOLoadFileError, err)
			return *res
		}
		if string(existing) == res.Text {
			res.Outcome = OutcomeUnchanged
		} else {
			res.Outcome = OutcomeChanged
			res.Diff = LineDiff(res.Output, string(existing), res.Text)
		}
	default:
		res.Output = OutputPath(res.Path, c.opts.OutDir, c.opts.BaseDir)
		if err := writeOutput(res.Output, res.Text); err != nil {
			c.fail(res, stage, diag.IOWriteFileError, err)
			return *res
		}
		res.Outcome = OutcomeWritten
	}
	stage.done(buildpipeline.StatusDone)
	return *res
}

func writeOutput(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func (c *compiler) maxDiagnostics() int {
	if c.opts.MaxDiagnostics <= 0 {
		return emit.DefaultMaxDiagnostics
	}
	return c.opts.MaxDiagnostics
}

func (c *compiler) fail(res *FileResult, stage stageRun, code diag.Code, err error) {
	res.Err = err
	res.Outcome = OutcomeFailed
	diag.ReportError(res.Bag, code, diag.Location{File: res.Display}, err.Error()).Emit()
	stage.fail(err)
}

func (c *compiler) structureFail(res *FileResult, stage stageRun, err error) {
	var se *ast.StructureError
	if !errors.As(err, &se) {
		c.fail(res, stage, diag.EmitStructure, err)
		return
	}
	res.Err = err
	res.Outcome = OutcomeFailed
	res.Text = ""
	diag.ReportError(res.Bag, diag.EmitStructure,
		diag.Location{File: res.Display, Line: se.Line, Kind: se.Type}, se.Error()).Emit()
	stage.fail(err)
}

// stageRun ties one stage's progress events, timer phase and trace span together.
type stageRun struct {
	c       *compiler
	res     *FileResult
	timer   *observ.Timer
	stage   buildpipeline.Stage
	idx     int
	started time.Time
	span    *trace.Span
}

func (c *compiler) begin(res *FileResult, timer *observ.Timer, stage buildpipeline.Stage, parent uint64) stageRun {
	buildpipeline.Report(c.opts.Progress, res.Display, stage, buildpipeline.StatusWorking, nil, 0)
	return stageRun{
		c:       c,
		res:     res,
		timer:   timer,
		stage:   stage,
		idx:     timer.Begin(stage.String()),
		started: time.Now(),
		span:    trace.Begin(c.tracer, trace.ScopePass, stage.String(), parent),
	}
}

func (s stageRun) done(status buildpipeline.Status) time.Duration {
	return s.finish(status, nil)
}

func (s stageRun) fail(err error) {
	s.finish(buildpipeline.StatusError, err)
}

func (s stageRun) finish(status buildpipeline.Status, err error) time.Duration {
	elapsed := time.Since(s.started)
	note := ""
	if status == buildpipeline.StatusCached {
		note = "cached"
	}
	s.timer.End(s.idx, note)
	s.res.Timings.Set(s.stage, elapsed)
	s.span.WithExtra("file", s.res.Display).End(status.String())
	buildpipeline.Report(s.c.opts.Progress, s.res.Display, s.stage, status, err, elapsed)
	return elapsed
}
