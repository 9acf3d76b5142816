package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"treecomp/internal/buildpipeline"
	"treecomp/internal/diag"
	"treecomp/internal/driver"
	"treecomp/internal/observ"
	"treecomp/internal/trace"
	"treecomp/internal/tree"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <path|-> [path...]",
	Short: "Compile tree files into JavaScript",
	Long: `Compile tree files (or every tree file under the given directories) into
JavaScript. Each <name>.json|yaml|yml|msgpack|mp|xml is written as <name>.js next
to it, or under --out-dir. A single "-" reads one tree from stdin and prints its text; --input-format
is required then and --check is not accepted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().Bool("formatted", false, "add a newline after ';' and list separators")
	compileCmd.Flags().Int("max-depth", 0, "deepest tree accepted (default from config, 4096)")
	compileCmd.Flags().String("out-dir", "", "write outputs under this directory")
	compileCmd.Flags().Int("jobs", 0, "files compiled in parallel (0 = GOMAXPROCS)")
	compileCmd.Flags().Bool("stdout", false, "print the emitted text instead of writing files")
	compileCmd.Flags().Bool("check", false, "compare with existing outputs and print a diff; write nothing")
	compileCmd.Flags().String("format", "text", "result format (text|json)")
	compileCmd.Flags().String("input-format", "auto", "tree file format (auto|json|yaml|msgpack|xml)")
	compileCmd.Flags().Bool("no-cache", false, "do not read or write the output cache")
	compileCmd.Flags().Bool("clear-cache", false, "drop the output cache before compiling")
	compileCmd.Flags().Bool("verify", false, "check emitted text for balanced delimiters")
	compileCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file")
	compileCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	compileCmd.Flags().String("fail-on", "error", "exit non-zero on diagnostics of this severity or worse (info|warning|error)")
}

func runCompile(cmd *cobra.Command, args []string) (err error) {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	finishTrace, err := setupTracing(cmd)
	if err != nil {
		return report(cmd, err)
	}
	defer func() { finishTrace(err != nil) }()

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return report(cmd, err)
	}
	defer stopProfiling()

	return report(cmd, compile(cmd, args))
}

// report prints err to stderr the way every command does and returns it.
func report(cmd *cobra.Command, err error) error {
	if err != nil && !errors.Is(err, errSilent) {
		fmt.Fprintf(cmd.ErrOrStderr(), "compile: %v\n", err)
	}
	return err
}

// errSilent marks failures that were already reported through diagnostics.
var errSilent = errors.New("compile failed")

func compile(cmd *cobra.Command, args []string) error {
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	var timer *observ.Timer
	if timings {
		timer = observ.NewTimer()
	}

	phase := timer.Begin("config")
	loaded, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	settings := loaded.cfg.Compile
	if err := applyCompileFlags(cmd, &settings); err != nil {
		return err
	}
	operators, err := loaded.operators()
	if err != nil {
		return err
	}
	inputFormatFlag, err := cmd.Flags().GetString("input-format")
	if err != nil {
		return err
	}
	inputFormat, err := tree.ParseFormat(inputFormatFlag)
	if err != nil {
		return err
	}
	failOnFlag, err := cmd.Flags().GetString("fail-on")
	if err != nil {
		return err
	}
	failOn, err := diag.ParseSeverity(failOnFlag)
	if err != nil {
		return fmt.Errorf("--fail-on: %w", err)
	}
	timer.End(phase, loaded.path)

	stdin := len(args) == 1 && args[0] == "-"
	toStdout, _ := cmd.Flags().GetBool("stdout")
	check, _ := cmd.Flags().GetBool("check")
	verify, _ := cmd.Flags().GetBool("verify")
	outputFormat, _ := cmd.Flags().GetString("format")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	clearCache, _ := cmd.Flags().GetBool("clear-cache")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	uiFlag, _ := cmd.Flags().GetString("ui")

	if toStdout && check {
		return fmt.Errorf("--stdout cannot be used with --check")
	}
	if stdin {
		if check {
			return fmt.Errorf("--check cannot be used when reading stdin")
		}
		if inputFormat == tree.FormatAuto {
			return fmt.Errorf("reading from stdin requires --input-format")
		}
		toStdout = true
	}
	switch outputFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported result format %q (expected text|json)", outputFormat)
	}
	uiMode, err := parseAutoSwitch("ui", uiFlag)
	if err != nil {
		return err
	}

	opts := driver.Options{
		Formatted:      settings.Formatted,
		MaxDepth:       settings.MaxDepth,
		MaxDiagnostics: settings.MaxDiagnostics,
		Operators:      operators,
		Format:         inputFormat,
		Jobs:           settings.Jobs,
		OutDir:         settings.OutDir,
		BaseDir:        baseDirFor(args),
		Verify:         verify,
		EnableTimings:  timings,
	}
	switch {
	case toStdout:
		opts.Mode = driver.ModeStdout
	case check:
		opts.Mode = driver.ModeCheck
	}
	if settings.Cache {
		cache, err := driver.OpenCache("treecomp")
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "compile: cache disabled: %v\n", err)
		} else {
			if clearCache {
				if err := cache.Clear(); err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				if !quiet {
					fmt.Fprintln(cmd.ErrOrStderr(), "cleared", cache.Dir())
				}
			}
			opts.Cache = cache
		}
	}
	if metricsFile != "" {
		opts.Metrics = observ.NewMetrics()
	}

	phase = timer.Begin("compile")
	var run *driver.Run
	switch {
	case stdin:
		data, readErr := io.ReadAll(cmd.InOrStdin())
		if readErr != nil {
			return readErr
		}
		run = driver.CompileData(cmd.Context(), "<stdin>", data, opts)
	case uiMode.enabled(os.Stdout) && !toStdout && outputFormat == "text":
		files, listErr := driver.ListTreeFiles(args, inputFormat)
		if listErr != nil {
			return listErr
		}
		run, err = runCompileWithUI(cmd.Context(), "compiling", buildpipeline.DisplayFiles(files, opts.BaseDir), args, opts)
	default:
		run, err = driver.CompileFiles(cmd.Context(), args, opts)
	}
	if err != nil {
		return err
	}
	timer.End(phase, fmt.Sprintf("%d files", len(run.Files)))
	trace.Point(trace.FromContext(cmd.Context()), trace.ScopeDriver, "run", run.ID)

	if metricsFile != "" {
		if err := opts.Metrics.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	phase = timer.Begin("output")
	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run.Report()); err != nil {
			return err
		}
	} else {
		renderRunText(out, cmd.ErrOrStderr(), run, opts.Mode, quiet)
		if err := writeDiagnostics(cmd.ErrOrStderr(), run.Diagnostics(), quiet); err != nil {
			return err
		}
	}
	timer.End(phase, "")
	printTimings(cmd, timer)

	if run.HasErrors() || failsOn(run.Diagnostics(), failOn) {
		return errSilent
	}
	if check && run.Changed() > 0 {
		return fmt.Errorf("%d output(s) out of date", run.Changed())
	}
	return nil
}

func renderRunText(out, errOut io.Writer, run *driver.Run, mode driver.OutputMode, quiet bool) {
	for _, f := range run.Files {
		switch f.Outcome {
		case driver.OutcomeStdout:
			fmt.Fprintln(out, f.Text)
		case driver.OutcomeChanged:
			if !quiet {
				fmt.Fprint(out, f.Diff)
			}
		case driver.OutcomeWritten:
			if !quiet {
				note := ""
				if f.Cached {
					note = " (cached)"
				}
				fmt.Fprintf(errOut, "wrote %s%s\n", f.Output, note)
			}
		}
	}
	if mode == driver.ModeCheck && !quiet && run.Changed() == 0 && !run.HasErrors() {
		fmt.Fprintf(errOut, "%d output(s) up to date\n", len(run.Files))
	}
}

// writeDiagnostics prints the bag to w followed by a one-line summary. In
// quiet mode only errors are printed and the summary is skipped.
func writeDiagnostics(w io.Writer, bag *diag.Bag, quiet bool) error {
	items := bag.Items()
	if quiet {
		items = slices.DeleteFunc(slices.Clone(items), func(d diag.Diagnostic) bool {
			return d.Severity < diag.SevError
		})
	}
	if len(items) > 0 {
		if err := diag.WriteColored(w, items, true); err != nil {
			return err
		}
	}
	if quiet || (bag.Len() == 0 && bag.Dropped() == 0) {
		return nil
	}
	_, err := fmt.Fprintln(w, diagnosticSummary(bag))
	return err
}

// diagnosticSummary reads like "1 error, 2 warnings (3 more not shown)".
func diagnosticSummary(bag *diag.Bag) string {
	counts := bag.Counts()
	var parts []string
	for _, sev := range []diag.Severity{diag.SevError, diag.SevWarning, diag.SevInfo} {
		if n := counts[sev]; n > 0 {
			parts = append(parts, plural(n, sev.String()))
		}
	}
	summary := strings.Join(parts, ", ")
	if n := bag.Dropped(); n > 0 {
		summary += fmt.Sprintf(" (%d more not shown, raise --max-diagnostics)", n)
	}
	return strings.TrimSpace(summary)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// failsOn reports whether bag holds a diagnostic at or above threshold.
// Timing reports never count.
func failsOn(bag *diag.Bag, threshold diag.Severity) bool {
	return slices.ContainsFunc(bag.Items(), func(d diag.Diagnostic) bool {
		return d.Code != diag.ObsTimings && d.Severity >= threshold
	})
}

func printTimings(cmd *cobra.Command, timer *observ.Timer) {
	if timer == nil {
		return
	}
	fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
}

// baseDirFor picks the directory outputs are mirrored from under --out-dir:
// the single directory argument, or the working directory.
func baseDirFor(args []string) string {
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			return args[0]
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}
