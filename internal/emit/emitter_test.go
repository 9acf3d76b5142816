package emit

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"treecomp/internal/ast"
	"treecomp/internal/diag"
	"treecomp/internal/optable"
	"treecomp/internal/trace"
	"treecomp/internal/tree"
)

func n(typ string, attrs []string, children ...*tree.Node) *tree.Node {
	return tree.New(typ, attrs, children...)
}

func ident(name string) *tree.Node {
	return n("identifier", []string{"name", name})
}

func num(v string) *tree.Node {
	return n("constant", []string{"constantType", "number", "value", v})
}

func lower(t *testing.T, root *tree.Node) ast.Node {
	t.Helper()
	node, err := ast.Lower(root, ast.Limits{})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return node
}

func emitTree(t *testing.T, root *tree.Node, formatted bool) (string, []diag.Diagnostic) {
	t.Helper()
	res, err := Compile(root, Options{Formatted: formatted, File: "t.json"}, 0)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return res.Text, res.Diagnostics.Items()
}

func TestEmitScenarios(t *testing.T) {
	cases := []struct {
		name string
		root *tree.Node
		want string
	}{
		{
			name: "definition",
			root: n("definition", []string{"identifier", "x"}, n("assignment", nil, num("1"))),
			want: "var x=1",
		},
		{
			name: "if loop",
			root: n("loop", []string{"loopType", "IF"},
				n("expression", nil, n("constant", []string{"constantType", "boolean", "value", "true"})),
				n("block", nil)),
			want: "if(true){}",
		},
		{
			name: "while loop",
			root: n("loop", []string{"loopType", "WHILE"},
				n("expression", nil, ident("go")),
				n("block", nil, n("call", nil, n("variable", nil, ident("step"))))),
			want: "while(go){step()}",
		},
		{
			name: "single quoted string",
			root: n("constant", []string{"constantType", "string", "detail", "singlequotes", "value", "hi"}),
			want: "'hi'",
		},
		{
			name: "double quoted string",
			root: n("constant", []string{"constantType", "string", "value", "hi"}),
			want: `"hi"`,
		},
		{
			name: "string with other detail",
			root: n("constant", []string{"constantType", "string", "detail", "doublequotes", "value", "hi"}),
			want: `"hi"`,
		},
		{
			name: "accessor",
			root: n("accessor", nil, ident("base"), n("key", nil, num("0"))),
			want: "base[0]",
		},
		{
			name: "property chain",
			root: n("variable", nil, ident("qx"), ident("core"), ident("Init")),
			want: "qx.core.Init",
		},
		{
			name: "call without params",
			root: n("call", nil),
			want: "()",
		},
		{
			name: "call with params",
			root: n("call", nil, n("variable", nil, ident("f")), n("params", nil, num("1"), num("2"))),
			want: "f(1,2)",
		},
		{
			name: "function with body only",
			root: n("function", nil, n("body", nil, n("block", nil, n("return", nil, num("1"))))),
			want: "function(){return 1}",
		},
		{
			name: "function with params",
			root: n("function", nil, n("params", nil, ident("a")), n("body", nil, n("block", nil))),
			want: "function(a){}",
		},
		{
			name: "function without children",
			root: n("function", nil),
			want: "function()",
		},
		{
			name: "map",
			root: n("map", nil,
				n("keyvalue", []string{"key", "a"}, num("1")),
				n("keyvalue", []string{"key", "b"}, num("2"))),
			want: "{a:1,b:2}",
		},
		{
			name: "assignment",
			root: n("assignment", nil, n("left", nil, ident("x")), n("right", nil, num("2"))),
			want: "x=2",
		},
		{
			name: "infix operation",
			root: n("operation", []string{"operator", "ADD"}, n("first", nil, ident("a")), n("second", nil, ident("b"))),
			want: "a+b",
		},
		{
			name: "infix with left false",
			root: n("operation", []string{"operator", "SHEQ", "left", "false"}, n("first", nil, ident("a")), n("second", nil, ident("b"))),
			want: "a===b",
		},
		{
			name: "prefix typeof",
			root: n("operation", []string{"operator", "TYPEOF", "left", "true"}, n("first", nil, ident("a"))),
			want: "typeof a",
		},
		{
			name: "prefix not",
			root: n("operation", []string{"operator", "NOT", "left", "true"}, n("first", nil, ident("a"))),
			want: "!a",
		},
		{
			name: "expression outside loop",
			root: n("expression", nil, ident("a")),
			want: "a",
		},
		{
			name: "statements",
			root: n("block", nil,
				n("definition", []string{"identifier", "x"}, n("assignment", nil, num("1"))),
				n("call", nil, n("variable", nil, ident("f"))),
				n("return", nil, ident("x"))),
			want: "{var x=1;f();return x}",
		},
		{
			name: "roles and file are transparent",
			root: n("file", nil, n("statement", nil, ident("a")), n("third", nil, ident("b"))),
			want: "ab",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, diags := emitTree(t, tc.root, false)
			if got != tc.want {
				t.Fatalf("unexpected output\nwant %q\ngot  %q", tc.want, got)
			}
			if len(diags) != 0 {
				t.Fatalf("unexpected diagnostics:\n%s", diag.FormatShortDiagnostics(diags, true))
			}
		})
	}
}

func TestFormattedSeparators(t *testing.T) {
	root := n("block", nil,
		n("definition", []string{"identifier", "m"}, n("assignment", nil,
			n("map", nil,
				n("keyvalue", []string{"key", "a"}, num("1")),
				n("keyvalue", []string{"key", "b"}, num("2")),
				n("keyvalue", []string{"key", "c"}, num("3"))))),
		n("call", nil, n("variable", nil, ident("f")), n("params", nil, ident("x"), ident("y"))))

	got, _ := emitTree(t, root, true)
	want := "{var m={a:1,\nb:2,\nc:3};\nf(x,\ny)}"
	if got != want {
		t.Fatalf("unexpected formatted output\nwant %q\ngot  %q", want, got)
	}

	compact, _ := emitTree(t, root, false)
	if strings.ReplaceAll(got, "\n", "") != compact {
		t.Fatalf("formatted output should only add newlines\ncompact   %q\nformatted %q", compact, got)
	}
}

func TestParamsCommaCount(t *testing.T) {
	for count := 2; count <= 6; count++ {
		children := make([]*tree.Node, count)
		for i := range children {
			children[i] = ident("p")
		}
		got, _ := emitTree(t, n("params", nil, children...), true)
		if c := strings.Count(got, ",\n"); c != count-1 {
			t.Fatalf("params with %d children: %d separators in %q", count, c, got)
		}
		if c := strings.Count(got, ","); c != count-1 {
			t.Fatalf("params with %d children: %d commas in %q", count, c, got)
		}
	}
}

func TestDiagnosticsContinue(t *testing.T) {
	cases := []struct {
		name string
		root *tree.Node
		want string
		code diag.Code
		sev  diag.Severity
	}{
		{
			name: "unknown loop type",
			root: n("loop", []string{"loopType", "FOR", "line", "4"}, n("expression", nil, ident("x")), n("block", nil)),
			want: "(x){}",
			code: diag.EmitUnknownLoopKind,
			sev:  diag.SevWarning,
		},
		{
			name: "unresolved infix operator",
			root: n("operation", []string{"operator", "FROB"}, n("first", nil, ident("a")), n("second", nil, ident("b"))),
			want: "ab",
			code: diag.EmitUnresolvedOperator,
			sev:  diag.SevWarning,
		},
		{
			name: "unresolved prefix operator",
			root: n("operation", []string{"operator", "FROB", "left", "true"}, n("first", nil, ident("a"))),
			want: "a",
			code: diag.EmitUnresolvedOperator,
			sev:  diag.SevWarning,
		},
		{
			name: "identifier without name",
			root: n("identifier", nil),
			want: "",
			code: diag.EmitMissingAttribute,
			sev:  diag.SevWarning,
		},
		{
			name: "definition without identifier",
			root: n("definition", nil, n("assignment", nil, num("1"))),
			want: "var =1",
			code: diag.EmitMissingAttribute,
			sev:  diag.SevWarning,
		},
		{
			name: "keyvalue without key",
			root: n("keyvalue", nil, num("1")),
			want: ":1",
			code: diag.EmitMissingAttribute,
			sev:  diag.SevWarning,
		},
		{
			name: "unknown node type",
			root: n("frobnicate", nil, ident("a"), ident("b")),
			want: "ab",
			code: diag.EmitUnknownNodeType,
			sev:  diag.SevWarning,
		},
		{
			name: "duplicate assignment",
			root: n("definition", []string{"identifier", "x"}, n("assignment", nil, num("1")), n("assignment", nil, num("2"))),
			want: "var x=1=2",
			code: diag.EmitDuplicateAssign,
			sev:  diag.SevInfo,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, diags := emitTree(t, tc.root, false)
			if got != tc.want {
				t.Fatalf("unexpected output\nwant %q\ngot  %q", tc.want, got)
			}
			if len(diags) != 1 {
				t.Fatalf("expected one diagnostic, got:\n%s", diag.FormatShortDiagnostics(diags, true))
			}
			if diags[0].Code != tc.code || diags[0].Severity != tc.sev {
				t.Fatalf("unexpected diagnostic %s %s: %s", diags[0].Severity, diags[0].Code.ID(), diags[0].Message)
			}
			if diags[0].Primary.File != "t.json" {
				t.Fatalf("diagnostic location missing file: %+v", diags[0].Primary)
			}
		})
	}
}

func TestGeneratorTagsPassThroughQuietly(t *testing.T) {
	for _, tag := range []string{"group", "array", "instantiation", "switch", "comment"} {
		got, diags := emitTree(t, n(tag, nil, ident("a"), ident("b")), false)
		if got != "ab" || len(diags) != 0 {
			t.Fatalf("%s: got %q with diagnostics:\n%s", tag, got, diag.FormatShortDiagnostics(diags, true))
		}
	}
	_, diags := emitTree(t, n("group", nil, n("mystery", nil, ident("a"))), false)
	if len(diags) != 1 || diags[0].Code != diag.EmitUnknownNodeType || !strings.Contains(diags[0].Message, `"mystery"`) {
		t.Fatalf("expected only the nested unknown tag to be reported, got %+v", diags)
	}
}

func TestUnknownLoopLocation(t *testing.T) {
	_, diags := emitTree(t, n("loop", []string{"loopType", "FOR", "line", "4"}), false)
	if len(diags) != 1 || diags[0].Primary.Line != 4 || !strings.Contains(diags[0].Message, `"FOR"`) {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
}

func TestRepeatedOperatorReportedOnce(t *testing.T) {
	root := n("operation", []string{"operator", "FROB", "left", "true"},
		n("first", nil, ident("a")), n("second", nil, ident("b")))
	_, diags := emitTree(t, root, false)
	if len(diags) != 1 {
		t.Fatalf("expected the duplicate report to collapse, got %d", len(diags))
	}
}

func TestCustomOperatorTable(t *testing.T) {
	ops := optable.New()
	ops.Set("CONCAT", "..")
	root := lower(t, n("operation", []string{"operator", "CONCAT"}, n("first", nil, ident("a")), n("second", nil, ident("b"))))
	got, err := Emit(root, Options{Operators: ops})
	if err != nil {
		t.Fatal(err)
	}
	if got != "a..b" {
		t.Fatalf("want %q, got %q", "a..b", got)
	}
}

func TestTypeofDoesNotNeedTable(t *testing.T) {
	root := lower(t, n("operation", []string{"operator", "TYPEOF", "left", "true"}, n("first", nil, ident("a"))))
	bag := diag.NewBag(10)
	got, err := Emit(root, Options{Operators: optable.New(), Reporter: bag})
	if err != nil {
		t.Fatal(err)
	}
	if got != "typeof a" || bag.Len() != 0 {
		t.Fatalf("got %q with %d diagnostics", got, bag.Len())
	}
}

func TestDepthLimit(t *testing.T) {
	root := ident("leaf")
	for range 10 {
		root = n("block", nil, root)
	}

	res, err := Compile(root, Options{MaxDepth: 5}, 0)
	var se *StructureError
	if !errors.As(err, &se) {
		t.Fatalf("expected StructureError, got %v", err)
	}
	if res.Text != "" {
		t.Fatalf("partial output returned: %q", res.Text)
	}
	if !res.Diagnostics.HasErrors() || res.Diagnostics.Items()[0].Code != diag.EmitStructure {
		t.Fatalf("structure error not recorded: %+v", res.Diagnostics.Items())
	}

	typed := lower(t, root)
	text, err := Emit(typed, Options{MaxDepth: 3})
	if !errors.As(err, &se) || text != "" {
		t.Fatalf("emit past depth limit: text %q err %v", text, err)
	}
	if se.Limit != 3 || se.Depth != 4 {
		t.Fatalf("unexpected error fields: %+v", se)
	}

	if _, err := Emit(typed, Options{MaxDepth: 10}); err != nil {
		t.Fatalf("depth exactly at the limit should pass: %v", err)
	}
}

func TestEmitAtUsesParent(t *testing.T) {
	expr := lower(t, n("expression", nil, ident("a")))
	got, err := EmitAt(expr, Context{Depth: 1, Parent: ast.KindLoop}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got != "(a)" {
		t.Fatalf("want %q, got %q", "(a)", got)
	}
}

func TestStepThreadsState(t *testing.T) {
	fn := lower(t, n("function", nil, n("body", nil, n("block", nil)), n("body", nil, n("block", nil))))
	e := &emitter{opt: Options{}.withDefaults()}
	e.w = NewWriter(false, 0)

	var st childState
	children := fn.Children()
	for i, c := range children {
		var err error
		st, err = e.step(fn, Context{}, st, c, i == len(children)-1)
		if err != nil {
			t.Fatal(err)
		}
		if !st.paramsSeen || st.prev != ast.KindBody {
			t.Fatalf("state after child %d: %+v", i, st)
		}
	}
	if got := e.w.String(); got != "(){}{}" {
		t.Fatalf("params marker written more than once: %q", got)
	}
}

func TestIdempotentAndConcurrent(t *testing.T) {
	root := lower(t, n("block", nil,
		n("definition", []string{"identifier", "x"}, n("assignment", nil,
			n("function", nil, n("params", nil, ident("a"), ident("b")), n("body", nil,
				n("block", nil, n("return", nil,
					n("operation", []string{"operator", "ADD"}, n("first", nil, ident("a")), n("second", nil, ident("b")))))))))),
		n("call", nil, n("variable", nil, ident("x")), n("params", nil, num("1"), num("2")))))

	want, err := Emit(root, Options{Formatted: true})
	if err != nil {
		t.Fatal(err)
	}
	const expected = "{var x=function(a,\nb){return a+b};\nx(1,\n2)}"
	if want != expected {
		t.Fatalf("unexpected output\nwant %q\ngot  %q", expected, want)
	}

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Emit(root, Options{Formatted: true})
		}(i)
	}
	wg.Wait()
	for i, got := range results {
		if got != want {
			t.Fatalf("run %d differs\nwant %q\ngot  %q", i, want, got)
		}
	}
}

func TestNodeTrace(t *testing.T) {
	root := lower(t, n("loop", []string{"loopType", "IF", "line", "3"},
		n("expression", nil, ident("x")), n("block", nil)))
	ring := trace.NewRingTracer(64, trace.LevelDebug)
	if _, err := Emit(root, Options{Tracer: ring}); err != nil {
		t.Fatal(err)
	}
	events := ring.Snapshot()
	if len(events) != ast.Count(root) {
		t.Fatalf("want %d node events, got %d", ast.Count(root), len(events))
	}
	first := events[0]
	if first.Name != "loop" || first.Detail != "3" || first.Depth != 0 || first.Scope != trace.ScopeNode {
		t.Fatalf("unexpected first event %+v", first)
	}
	if events[2].Name != "identifier" || events[2].Depth != 2 || events[2].Detail != "-" {
		t.Fatalf("unexpected nested event %+v", events[2])
	}

	quiet := trace.NewRingTracer(64, trace.LevelDetail)
	if _, err := Emit(root, Options{Tracer: quiet}); err != nil {
		t.Fatal(err)
	}
	if len(quiet.Snapshot()) != 0 {
		t.Fatalf("node events below debug level")
	}
}
