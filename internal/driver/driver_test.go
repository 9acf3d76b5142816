package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"treecomp/internal/buildpipeline"
	"treecomp/internal/diag"
	"treecomp/internal/observ"
	"treecomp/internal/trace"
	"treecomp/internal/tree"
)

const defineX = `{"type":"definition","attributes":{"identifier":"x","line":1},"children":[
	{"type":"assignment","children":[{"type":"constant","attributes":{"constantType":"number","value":"1"}}]}]}`

const ifTrue = `type: loop
attributes: {loopType: IF}
children:
  - type: expression
    children: [{type: constant, attributes: {value: "true"}}]
  - type: block
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestCompileFilesWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), defineX)
	writeFile(t, filepath.Join(dir, "sub", "b.yaml"), ifTrue)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	var mp bytes.Buffer
	if err := tree.Encode(&mp, tree.New("call", nil), tree.FormatMsgpack); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "c.mp"), mp.String())

	rec := &buildpipeline.Recorder{}
	metrics := observ.NewMetrics()
	run, err := CompileFiles(context.Background(), []string{dir}, Options{
		BaseDir:       dir,
		Jobs:          2,
		Progress:      rec,
		Metrics:       metrics,
		EnableTimings: true,
	})
	if err != nil {
		t.Fatalf("CompileFiles: %v", err)
	}
	if run.ID == "" || len(run.Files) != 3 || run.HasErrors() {
		t.Fatalf("unexpected run: %+v", run)
	}

	want := map[string]string{
		filepath.Join(dir, "a.js"):        "var x=1",
		filepath.Join(dir, "c.js"):        "()",
		filepath.Join(dir, "sub", "b.js"): "if(true){}",
	}
	for path, text := range want {
		if got := readFile(t, path); got != text {
			t.Fatalf("%s\nwant %q\ngot  %q", path, text, got)
		}
	}
	for _, f := range run.Files {
		if f.Outcome != OutcomeWritten || f.Timing == nil {
			t.Fatalf("unexpected result for %s: %+v", f.Display, f)
		}
	}

	done := 0
	for _, ev := range rec.Events() {
		if ev.Stage == buildpipeline.StageWrite && ev.Status == buildpipeline.StatusDone {
			done++
		}
	}
	if done != 3 {
		t.Fatalf("expected 3 write events, got %d", done)
	}
}

func TestCompileFilesOutDirAndStdout(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeFile(t, filepath.Join(dir, "nested", "a.json"), defineX)

	if _, err := CompileFiles(context.Background(), []string{dir}, Options{BaseDir: dir, OutDir: out}); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, filepath.Join(out, "nested", "a.js")); got != "var x=1" {
		t.Fatalf("unexpected output %q", got)
	}

	run, err := CompileFiles(context.Background(), []string{filepath.Join(dir, "nested", "a.json")}, Options{Mode: ModeStdout})
	if err != nil {
		t.Fatal(err)
	}
	f := run.Files[0]
	if f.Outcome != OutcomeStdout || f.Text != "var x=1" || f.Output != "" {
		t.Fatalf("unexpected stdout result %+v", f)
	}
	if report := run.Report(); report.Files[0].Text != "var x=1" {
		t.Fatalf("stdout report should carry the text: %+v", report.Files[0])
	}
}

func TestCompileFilesCacheGivesSameOutput(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	src := `{"type":"operation","attributes":{"operator":"FROB"},"children":[
		{"type":"first","children":[{"type":"identifier","attributes":{"name":"a"}}]},
		{"type":"second","children":[{"type":"identifier","attributes":{"name":"b"}}]}]}`
	writeFile(t, filepath.Join(dir, "op.json"), src)

	opts := Options{Mode: ModeStdout, Cache: cache}
	first, err := CompileFiles(context.Background(), []string{dir}, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := CompileFiles(context.Background(), []string{dir}, opts)
	if err != nil {
		t.Fatal(err)
	}
	uncached, err := CompileFiles(context.Background(), []string{dir}, Options{Mode: ModeStdout})
	if err != nil {
		t.Fatal(err)
	}

	a, b, c := first.Files[0], second.Files[0], uncached.Files[0]
	if a.Cached || !b.Cached || c.Cached {
		t.Fatalf("cache flags: %v %v %v", a.Cached, b.Cached, c.Cached)
	}
	if a.Text != "ab" || b.Text != a.Text || c.Text != a.Text {
		t.Fatalf("outputs differ: %q %q %q", a.Text, b.Text, c.Text)
	}
	if b.Nodes != a.Nodes || b.Bag.Len() != 1 || b.Bag.Items()[0].Code != diag.EmitUnresolvedOperator {
		t.Fatalf("cached diagnostics not restored: %+v", b.Bag.Items())
	}

	formatted, err := CompileFiles(context.Background(), []string{dir}, Options{Mode: ModeStdout, Cache: cache, Formatted: true})
	if err != nil {
		t.Fatal(err)
	}
	if formatted.Files[0].Cached {
		t.Fatalf("formatting flag must be part of the cache key")
	}

	if err := cache.Clear(); err != nil {
		t.Fatal(err)
	}
	var out CachedOutput
	if hit, err := cache.Load(CacheInputs{Data: []byte(src), Format: tree.FormatJSON}.Key(), &out); hit || err != nil {
		t.Fatalf("cache not dropped: hit=%v err=%v", hit, err)
	}
}

const unknownLoop = `{"type":"loop","attributes":{"loopType":"FOR"},"children":[{"type":"block"}]}`

func TestCachedDiagnosticsNameTheCompiledFile(t *testing.T) {
	cache, err := OpenCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")
	writeFile(t, first, unknownLoop)
	writeFile(t, second, unknownLoop)

	opts := Options{Mode: ModeStdout, Cache: cache, BaseDir: dir}
	a, err := CompileFiles(context.Background(), []string{first}, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := CompileFiles(context.Background(), []string{second}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if a.Files[0].Cached || !b.Files[0].Cached {
		t.Fatalf("cache flags: %v %v", a.Files[0].Cached, b.Files[0].Cached)
	}
	for _, f := range []FileResult{a.Files[0], b.Files[0]} {
		items := f.Bag.Items()
		if len(items) == 0 {
			t.Fatalf("%s: no diagnostics", f.Display)
		}
		for _, d := range items {
			if d.Primary.File != f.Display {
				t.Fatalf("%s: diagnostic names %q", f.Display, d.Primary.File)
			}
		}
	}
}

func TestCachedDiagnosticsIgnoreEarlierCap(t *testing.T) {
	cache, err := OpenCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	operation := func(op, first, second string) string {
		return `{"type":"operation","attributes":{"operator":"` + op + `"},"children":[` +
			`{"type":"first","children":[` + first + `]},{"type":"second","children":[` + second + `]}]}`
	}
	ident := func(name string) string {
		return `{"type":"identifier","attributes":{"name":"` + name + `"}}`
	}
	src := operation("FROB", operation("BLIP", ident("a"), ident("b")), operation("ZORP", ident("c"), ident("d")))
	writeFile(t, filepath.Join(dir, "ops.json"), src)

	capped, err := CompileFiles(context.Background(), []string{dir}, Options{Mode: ModeStdout, Cache: cache, MaxDiagnostics: 1})
	if err != nil {
		t.Fatal(err)
	}
	if f := capped.Files[0]; f.Cached || f.Bag.Len() != 1 || f.Bag.Dropped() != 2 {
		t.Fatalf("capped run: cached=%v len=%d dropped=%d", f.Cached, f.Bag.Len(), f.Bag.Dropped())
	}

	full, err := CompileFiles(context.Background(), []string{dir}, Options{Mode: ModeStdout, Cache: cache, MaxDiagnostics: 100})
	if err != nil {
		t.Fatal(err)
	}
	f := full.Files[0]
	if !f.Cached || f.Bag.Len() != 3 || f.Bag.Dropped() != 0 {
		t.Fatalf("full run: cached=%v len=%d dropped=%d", f.Cached, f.Bag.Len(), f.Bag.Dropped())
	}
	for _, d := range f.Bag.Items() {
		if d.Code != diag.EmitUnresolvedOperator {
			t.Fatalf("unexpected diagnostic %+v", d)
		}
	}

	again, err := CompileFiles(context.Background(), []string{dir}, Options{Mode: ModeStdout, Cache: cache, MaxDiagnostics: 1})
	if err != nil {
		t.Fatal(err)
	}
	if f := again.Files[0]; !f.Cached || f.Bag.Len() != 1 || f.Bag.Dropped() != 2 {
		t.Fatalf("capped hit: cached=%v len=%d dropped=%d", f.Cached, f.Bag.Len(), f.Bag.Dropped())
	}
}

func TestStageSpansNestUnderFileSpan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), defineX)
	writeFile(t, filepath.Join(dir, "b.yaml"), ifTrue)

	ring := trace.NewRingTracer(1024, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), ring)
	if _, err := CompileFiles(ctx, []string{dir}, Options{Mode: ModeStdout}); err != nil {
		t.Fatal(err)
	}

	fileSpans := map[uint64]bool{}
	var stages []trace.Event
	for _, ev := range ring.Snapshot() {
		if ev.Kind != trace.KindSpanBegin {
			continue
		}
		switch ev.Scope {
		case trace.ScopeFile:
			fileSpans[ev.SpanID] = true
		case trace.ScopePass:
			stages = append(stages, ev)
		}
	}
	if len(fileSpans) != 2 || len(stages) == 0 {
		t.Fatalf("want 2 file spans and some stage spans, got %d and %d", len(fileSpans), len(stages))
	}
	for _, ev := range stages {
		if !fileSpans[ev.ParentID] {
			t.Fatalf("stage %s has parent %d, not a file span", ev.Name, ev.ParentID)
		}
	}
}

func TestCheckModeReportsDiff(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), defineX)
	writeFile(t, filepath.Join(dir, "a.js"), "var x=2")

	run, err := CompileFiles(context.Background(), []string{dir}, Options{Mode: ModeCheck})
	if err != nil {
		t.Fatal(err)
	}
	f := run.Files[0]
	if f.Outcome != OutcomeChanged || run.Changed() != 1 {
		t.Fatalf("expected a change, got %+v", f)
	}
	if !strings.Contains(f.Diff, "-var x=2\n") || !strings.Contains(f.Diff, "+var x=1\n") {
		t.Fatalf("unexpected diff:\n%s", f.Diff)
	}
	if got := readFile(t, filepath.Join(dir, "a.js")); got != "var x=2" {
		t.Fatalf("check mode must not write, file now %q", got)
	}

	writeFile(t, filepath.Join(dir, "a.js"), "var x=1")
	run, err = CompileFiles(context.Background(), []string{dir}, Options{Mode: ModeCheck})
	if err != nil {
		t.Fatal(err)
	}
	if run.Files[0].Outcome != OutcomeUnchanged || run.Files[0].Diff != "" {
		t.Fatalf("expected unchanged, got %+v", run.Files[0])
	}
}

func TestBadFileDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.json"), `{"type":`)
	writeFile(t, filepath.Join(dir, "good.json"), defineX)
	deep := strings.Repeat(`{"type":"block","children":[`, 20) + `{"type":"block"}` + strings.Repeat(`]}`, 20)
	writeFile(t, filepath.Join(dir, "deep.json"), deep)

	run, err := CompileFiles(context.Background(), []string{dir}, Options{Mode: ModeStdout, MaxDepth: 10, BaseDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if !run.HasErrors() {
		t.Fatalf("expected errors")
	}
	byName := map[string]FileResult{}
	for _, f := range run.Files {
		byName[f.Display] = f
	}
	if f := byName["bad.json"]; f.Outcome != OutcomeFailed || f.Bag.Items()[0].Code != diag.IODecodeTreeError {
		t.Fatalf("bad.json: %+v", f)
	}
	if f := byName["deep.json"]; f.Outcome != OutcomeFailed || f.Text != "" || f.Bag.Items()[0].Code != diag.EmitStructure {
		t.Fatalf("deep.json: %+v", f)
	}
	if f := byName["good.json"]; f.Outcome != OutcomeStdout || f.Text != "var x=1" {
		t.Fatalf("good.json: %+v", f)
	}

	all := run.Diagnostics()
	if all.Len() != 2 || !all.HasErrors() {
		t.Fatalf("unexpected merged diagnostics: %+v", all.Items())
	}

	data, err := json.Marshal(run.Report())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"code":"IO4002"`)) || !bytes.Contains(data, []byte(`"outcome":"failed"`)) {
		t.Fatalf("report missing failure details: %s", data)
	}
}

func TestTooDeepToDecodeFailsOnlyThatFile(t *testing.T) {
	dir := t.TempDir()
	levels := 3 * tree.DefaultMaxDepth
	deep := strings.Repeat("<block>", levels) + strings.Repeat("</block>", levels)
	writeFile(t, filepath.Join(dir, "deep.xml"), deep)
	writeFile(t, filepath.Join(dir, "good.json"), defineX)

	run, err := CompileFiles(context.Background(), []string{dir}, Options{Mode: ModeStdout, BaseDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range run.Files {
		switch f.Display {
		case "deep.xml":
			items := f.Bag.Items()
			if f.Outcome != OutcomeFailed || len(items) != 1 || items[0].Code != diag.EmitStructure {
				t.Fatalf("deep.xml: outcome %s, diagnostics %+v", f.Outcome, items)
			}
		case "good.json":
			if f.Outcome != OutcomeStdout || f.Text != "var x=1" {
				t.Fatalf("good.json: %+v", f)
			}
		}
	}
}

func TestCompileDataKeepsTextAndVerifies(t *testing.T) {
	src := `{"type":"keyvalue","attributes":{"key":"a("},"children":[{"type":"constant","attributes":{"value":"1"}}]}`
	run := CompileData(context.Background(), "<stdin>", []byte(src), Options{Mode: ModeCheck, Format: tree.FormatJSON, Verify: true})
	f := run.Files[0]
	if f.Outcome != OutcomeStdout || f.Output != "" || !strings.HasPrefix(f.Text, "a(:") {
		t.Fatalf("unexpected result %+v", f)
	}
	items := f.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.EmitInvariant || items[0].Primary.File != "<stdin>" {
		t.Fatalf("expected an invariant warning on <stdin>, got %+v", items)
	}

	bad := CompileData(context.Background(), "<stdin>", []byte(`{"type":`), Options{Format: tree.FormatJSON})
	if !bad.HasErrors() || bad.Files[0].Bag.Items()[0].Code != diag.IODecodeTreeError {
		t.Fatalf("expected a decode failure, got %+v", bad.Files[0])
	}
}

func TestVerifyReportsInvariantViolations(t *testing.T) {
	dir := t.TempDir()
	// a keyvalue key carrying an opening bracket leaves the output unbalanced
	writeFile(t, filepath.Join(dir, "kv.json"), `{"type":"keyvalue","attributes":{"key":"a("},"children":[{"type":"constant","attributes":{"value":"1"}}]}`)

	run, err := CompileFiles(context.Background(), []string{dir}, Options{Mode: ModeStdout, Verify: true})
	if err != nil {
		t.Fatal(err)
	}
	items := run.Files[0].Bag.Items()
	if len(items) != 1 || items[0].Code != diag.EmitInvariant || items[0].Severity != diag.SevWarning {
		t.Fatalf("expected an invariant warning, got %+v", items)
	}
}

func TestListTreeFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.yml"), ifTrue)
	writeFile(t, filepath.Join(dir, "a.xml"), `<call/>`)
	writeFile(t, filepath.Join(dir, "skip.md"), "")
	writeFile(t, filepath.Join(dir, "tree.dat"), defineX)

	files, err := ListTreeFiles([]string{dir, filepath.Join(dir, "a.xml")}, tree.FormatAuto)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.xml"), filepath.Join(dir, "b.yml")}
	if len(files) != len(want) || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("want %v, got %v", want, files)
	}

	if _, err := ListTreeFiles([]string{filepath.Join(dir, "tree.dat")}, tree.FormatAuto); err == nil {
		t.Fatalf("expected unknown format error")
	}
	files, err = ListTreeFiles([]string{filepath.Join(dir, "tree.dat")}, tree.FormatJSON)
	if err != nil || len(files) != 1 {
		t.Fatalf("forced format: %v %v", files, err)
	}
	run, err := CompileFiles(context.Background(), files, Options{Mode: ModeStdout, Format: tree.FormatJSON})
	if err != nil || run.Files[0].Text != "var x=1" {
		t.Fatalf("forced format compile: %+v %v", run, err)
	}
}

func TestOutputPath(t *testing.T) {
	cases := []struct {
		path, outDir, base, want string
	}{
		{"src/a.json", "", "", "src/a.js"},
		{"src/x/a.tree.yaml", "out", "src", "out/x/a.tree.js"},
		{"other/a.json", "out", "src", "out/a.js"},
	}
	for _, tc := range cases {
		got := filepath.ToSlash(OutputPath(filepath.FromSlash(tc.path), filepath.FromSlash(tc.outDir), filepath.FromSlash(tc.base)))
		if got != tc.want {
			t.Fatalf("OutputPath(%q, %q, %q)\nwant %q\ngot  %q", tc.path, tc.outDir, tc.base, tc.want, got)
		}
	}
}

func TestLineDiff(t *testing.T) {
	got := LineDiff("a.js", "{a:1,\nb:2}", "{a:1,\nb:3}")
	want := "--- a.js\n+++ a.js (emitted)\n {a:1,\n-b:2}\n+b:3}\n"
	if got != want {
		t.Fatalf("unexpected diff\nwant %q\ngot  %q", want, got)
	}
	if LineDiff("a.js", "x", "x") != "" {
		t.Fatalf("identical texts should have no diff")
	}
}
