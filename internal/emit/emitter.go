package emit

import (
	"fmt"
	"sync"

	"treecomp/internal/ast"
	"treecomp/internal/diag"
	"treecomp/internal/optable"
	"treecomp/internal/trace"
)

// StructureError aborts a compile; it is the same type Lower returns.
type StructureError = ast.StructureError

// Options control a single Emit call.
type Options struct {
	// Formatted adds a newline after statement, map and params separators.
	Formatted bool
	// MaxDepth bounds the nesting depth; ast.DefaultMaxDepth when zero.
	MaxDepth int
	// Operators resolves operator names; the built-in table when nil.
	Operators optable.Resolver
	// Reporter receives per-node diagnostics; dropped when nil.
	Reporter diag.Reporter
	// Tracer receives one node event per visited node at trace.LevelDebug.
	Tracer trace.Tracer
	// File names the tree in diagnostic locations.
	File string
}

// Context is what a node's emission depends on besides the node itself.
type Context struct {
	Depth  int
	Parent ast.Kind
}

var defaultOperators = sync.OnceValue(func() optable.Resolver {
	return optable.Default()
})

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = ast.DefaultMaxDepth
	}
	if o.Operators == nil {
		o.Operators = defaultOperators()
	}
	if o.Reporter == nil {
		o.Reporter = diag.Discard
	}
	return o
}

// Emit writes the source text for node at depth 0 with no parent.
func Emit(node ast.Node, opt Options) (string, error) {
	return EmitAt(node, Context{Parent: ast.KindUnknown}, opt)
}

// EmitAt writes the source text for node as if it were reached at ctx. On a
// StructureError no partial text is returned.
func EmitAt(node ast.Node, ctx Context, opt Options) (string, error) {
	if node == nil {
		return "", nil
	}
	e := &emitter{opt: opt.withDefaults()}
	e.w = NewWriter(e.opt.Formatted, 256)
	if err := e.emit(node, ctx); err != nil {
		return "", err
	}
	return e.w.String(), nil
}

type emitter struct {
	opt Options
	w   *Writer
}

// childState is threaded through step while a node's children are written.
type childState struct {
	prev       ast.Kind
	hasPrev    bool
	paramsSeen bool
	assigns    int
}

func (e *emitter) emit(n ast.Node, ctx Context) error {
	if ctx.Depth > e.opt.MaxDepth {
		return &StructureError{
			Reason: "tree too deep",
			Depth:  ctx.Depth,
			Limit:  e.opt.MaxDepth,
			Line:   n.Line(),
			Type:   kindName(n),
		}
	}
	trace.Node(e.opt.Tracer, kindName(n), n.Line(), ctx.Depth)

	e.open(n, ctx)
	var st childState
	children := n.Children()
	for i, child := range children {
		var err error
		st, err = e.step(n, ctx, st, child, i == len(children)-1)
		if err != nil {
			return err
		}
	}
	e.close(n, ctx, st)
	return nil
}

// passThrough holds tags the qooxdoo tree generator uses that have no text of
// their own here. Like any unknown tag only their children are written, but
// they are expected and not reported.
var passThrough = map[string]bool{
	"array":          true,
	"break":          true,
	"case":           true,
	"catch":          true,
	"comment":        true,
	"commentsAfter":  true,
	"commentsBefore": true,
	"continue":       true,
	"default":        true,
	"elseStatement":  true,
	"finally":        true,
	"group":          true,
	"instantiation":  true,
	"label":          true,
	"switch":         true,
	"throw":          true,
}

func (e *emitter) open(n ast.Node, ctx Context) {
	switch n := n.(type) {
	case *ast.Map, *ast.Block:
		e.w.WriteString("{")
	case *ast.Params:
		e.w.WriteString("(")
	case *ast.Expression:
		if ctx.Parent == ast.KindLoop {
			e.w.WriteString("(")
		}
	case *ast.Loop:
		switch n.Type {
		case ast.LoopIf:
			e.w.WriteString("if")
		case ast.LoopWhile:
			e.w.WriteString("while")
		default:
			msg := "loop without loopType"
			if raw, ok := n.Raw.Get(); ok {
				msg = fmt.Sprintf("unknown loop type %q", raw)
			}
			diag.ReportWarning(e.opt.Reporter, diag.EmitUnknownLoopKind, e.at(n), msg).Emit()
		}
	case *ast.Function:
		e.w.WriteString("function")
	case *ast.Identifier:
		if name, ok := n.Name.Get(); ok {
			e.w.WriteString(name)
		} else {
			e.missing(n, "name")
		}
	case *ast.Definition:
		e.w.WriteString("var ")
		if id, ok := n.Identifier.Get(); ok {
			e.w.WriteString(id)
		} else {
			e.missing(n, "identifier")
		}
	case *ast.Constant:
		value, ok := n.Value.Get()
		if !ok {
			e.missing(n, "value")
		}
		if n.IsString() {
			q := n.Quote.Char()
			_ = e.w.WriteByte(q)
			e.w.WriteString(value)
			_ = e.w.WriteByte(q)
		} else {
			e.w.WriteString(value)
		}
	case *ast.KeyValue:
		if key, ok := n.Key.Get(); ok {
			e.w.WriteString(key)
		} else {
			e.missing(n, "key")
		}
		e.w.WriteString(":")
	case *ast.Return:
		e.w.WriteString("return ")
	case *ast.Unknown:
		if !passThrough[n.Tag] {
			diag.ReportWarning(e.opt.Reporter, diag.EmitUnknownNodeType, e.at(n),
				fmt.Sprintf("unknown node type %q", n.Tag)).Emit()
		}
	case *ast.Call, *ast.Operation, *ast.Assignment, *ast.Accessor, *ast.Variable, *ast.Role:
	}
}

// step writes one child of n together with the separators, markers and
// operator tokens around it, and returns the state for the next child.
func (e *emitter) step(n ast.Node, ctx Context, st childState, child ast.Node, last bool) (childState, error) {
	kind, ck := n.Kind(), child.Kind()

	if st.hasPrev && st.prev.IsStatement() && ck.IsStatement() {
		e.w.Separator(";")
	}

	switch kind {
	case ast.KindCall:
		if ck == ast.KindParams {
			st.paramsSeen = true
		}
	case ast.KindFunction:
		switch ck {
		case ast.KindParams:
			st.paramsSeen = true
		case ast.KindBody:
			if !st.paramsSeen {
				e.w.WriteString("()")
				st.paramsSeen = true
			}
		}
	case ast.KindDefinition:
		if ck == ast.KindAssignment {
			st.assigns++
			if st.assigns == 2 {
				diag.ReportInfo(e.opt.Reporter, diag.EmitDuplicateAssign, e.at(n),
					"definition has more than one assignment").
					Note(e.at(child), "second assignment").Emit()
			}
			e.w.WriteString("=")
		}
	case ast.KindAccessor:
		if ck == ast.KindKey {
			e.w.WriteString("[")
		}
	case ast.KindOperation:
		if op := n.(*ast.Operation); op.Prefix {
			e.prefixOperator(op)
		}
	}

	if err := e.emit(child, Context{Depth: ctx.Depth + 1, Parent: kind}); err != nil {
		return st, err
	}

	switch kind {
	case ast.KindOperation:
		if op := n.(*ast.Operation); ck == ast.KindFirst && !op.Prefix {
			e.w.WriteString(e.operatorToken(op))
		}
	case ast.KindAssignment:
		if ck == ast.KindLeft {
			e.w.WriteString("=")
		}
	case ast.KindAccessor:
		if ck == ast.KindKey {
			e.w.WriteString("]")
		}
	}

	if !last {
		switch kind {
		case ast.KindVariable:
			e.w.WriteString(".")
		case ast.KindMap, ast.KindParams:
			e.w.Separator(",")
		}
	}

	st.prev, st.hasPrev = ck, true
	return st, nil
}

func (e *emitter) close(n ast.Node, ctx Context, st childState) {
	switch n.Kind() {
	case ast.KindMap, ast.KindBlock:
		e.w.WriteString("}")
	case ast.KindParams:
		e.w.WriteString(")")
	case ast.KindExpression:
		if ctx.Parent == ast.KindLoop {
			e.w.WriteString(")")
		}
	case ast.KindCall, ast.KindFunction:
		if !st.paramsSeen {
			e.w.WriteString("()")
		}
	}
}

const typeofName = "TYPEOF"

func (e *emitter) prefixOperator(op *ast.Operation) {
	if name, _ := op.Operator.Get(); name == typeofName {
		e.w.WriteString("typeof ")
		return
	}
	e.w.WriteString(e.operatorToken(op))
}

// operatorToken resolves the operator name, reporting and returning "" when
// it cannot.
func (e *emitter) operatorToken(op *ast.Operation) string {
	name, ok := op.Operator.Get()
	if !ok {
		e.missing(op, "operator")
		return ""
	}
	tok, ok := e.opt.Operators.Resolve(name)
	if !ok {
		diag.ReportWarning(e.opt.Reporter, diag.EmitUnresolvedOperator, e.at(op),
			fmt.Sprintf("operator %q has no token", name)).Emit()
		return ""
	}
	return tok
}

func (e *emitter) missing(n ast.Node, attr string) {
	diag.ReportWarning(e.opt.Reporter, diag.EmitMissingAttribute, e.at(n),
		fmt.Sprintf("%s node without %q attribute", kindName(n), attr)).Emit()
}

func (e *emitter) at(n ast.Node) diag.Location {
	return diag.Location{File: e.opt.File, Line: n.Line(), Kind: kindName(n)}
}

func kindName(n ast.Node) string {
	if u, ok := n.(*ast.Unknown); ok {
		return u.Tag
	}
	return n.Kind().String()
}
