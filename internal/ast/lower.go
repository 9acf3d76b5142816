package ast

import (
	"fmt"

	"treecomp/internal/tree"
)

// DefaultMaxDepth bounds tree depth when Limits.MaxDepth is zero.
const DefaultMaxDepth = tree.DefaultMaxDepth

// Limits bound the size of the tree accepted by Lower and the emitter.
type Limits struct {
	MaxDepth int
}

func (l Limits) withDefaults() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	return l
}

// StructureError reports a tree that cannot be compiled at all: too deep, or
// not a tree (shared or cyclic nodes). Unlike per-node diagnostics it aborts
// the whole compile.
type StructureError struct {
	Reason string
	Depth  int
	Limit  int
	Line   int
	Type   string
}

func (e *StructureError) Error() string {
	msg := "structure error: " + e.Reason
	if e.Limit > 0 {
		msg += fmt.Sprintf(" (depth %d, limit %d)", e.Depth, e.Limit)
	}
	if e.Type != "" {
		msg += " at " + e.Type
		if e.Line > 0 {
			msg += fmt.Sprintf(" line %d", e.Line)
		}
	}
	return msg
}

type lowerFrame struct {
	raw   *tree.Node
	slot  *Node
	depth int
}

// Lower converts a raw tree into typed nodes. Nil children are dropped.
func Lower(root *tree.Node, limits Limits) (Node, error) {
	if root == nil {
		return nil, &StructureError{Reason: "nil tree"}
	}
	limits = limits.withDefaults()

	var out Node
	seen := make(map[*tree.Node]struct{})
	stack := []lowerFrame{{raw: root, slot: &out}}
	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fr.depth > limits.MaxDepth {
			return nil, &StructureError{
				Reason: "tree too deep",
				Depth:  fr.depth,
				Limit:  limits.MaxDepth,
				Line:   fr.raw.Line(),
				Type:   fr.raw.Type,
			}
		}
		if _, dup := seen[fr.raw]; dup {
			return nil, &StructureError{
				Reason: "node referenced more than once",
				Line:   fr.raw.Line(),
				Type:   fr.raw.Type,
			}
		}
		seen[fr.raw] = struct{}{}

		n := lowerOne(fr.raw)
		*fr.slot = n

		count := 0
		for _, c := range fr.raw.Children {
			if c != nil {
				count++
			}
		}
		if count == 0 {
			continue
		}
		b := n.base()
		b.children = make([]Node, count)
		idx := count - 1
		for i := len(fr.raw.Children) - 1; i >= 0; i-- {
			c := fr.raw.Children[i]
			if c == nil {
				continue
			}
			stack = append(stack, lowerFrame{raw: c, slot: &b.children[idx], depth: fr.depth + 1})
			idx--
		}
	}
	return out, nil
}

func lowerOne(raw *tree.Node) Node {
	line := raw.Line()
	attr := func(key string) Attr {
		if v, ok := raw.Get(key); ok {
			return Some(v)
		}
		return Attr{}
	}

	kind, ok := KindOf(raw.Type)
	if !ok {
		return &Unknown{nodeBase: nodeBase{line: line}, Tag: raw.Type}
	}
	b := nodeBase{line: line}
	switch kind {
	case KindMap:
		return &Map{b}
	case KindBlock:
		return &Block{b}
	case KindParams:
		return &Params{b}
	case KindExpression:
		return &Expression{b}
	case KindFunction:
		return &Function{b}
	case KindCall:
		return &Call{b}
	case KindReturn:
		return &Return{b}
	case KindAssignment:
		return &Assignment{b}
	case KindAccessor:
		return &Accessor{b}
	case KindVariable:
		return &Variable{b}
	case KindLoop:
		loopType := attr("loopType")
		lt := LoopOther
		switch loopType.Value {
		case "IF":
			lt = LoopIf
		case "WHILE":
			lt = LoopWhile
		}
		return &Loop{nodeBase: b, Type: lt, Raw: loopType}
	case KindIdentifier:
		return &Identifier{nodeBase: b, Name: attr("name")}
	case KindDefinition:
		return &Definition{nodeBase: b, Identifier: attr("identifier")}
	case KindConstant:
		ct, _ := raw.Get("constantType")
		q := QuoteDouble
		if d, _ := raw.Get("detail"); d == "singlequotes" {
			q = QuoteSingle
		}
		return &Constant{nodeBase: b, ConstantType: ct, Quote: q, Value: attr("value")}
	case KindKeyValue:
		return &KeyValue{nodeBase: b, Key: attr("key")}
	case KindOperation:
		left, _ := raw.Get("left")
		return &Operation{nodeBase: b, Operator: attr("operator"), Prefix: left == "true"}
	default:
		// only role kinds remain
		return &Role{nodeBase: b, kind: kind}
	}
}

// Count returns the number of nodes under and including n.
func Count(n Node) int {
	if n == nil {
		return 0
	}
	total := 0
	stack := []Node{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total++
		stack = append(stack, top.Children()...)
	}
	return total
}
