package tree

import (
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Node is one entry of the upstream tree.
type Node struct {
	Type       string  `json:"type" yaml:"type" msgpack:"type"`
	Attributes Attrs   `json:"attributes,omitempty" yaml:"attributes,omitempty" msgpack:"attributes,omitempty"`
	Children   []*Node `json:"children,omitempty" yaml:"children,omitempty" msgpack:"children,omitempty"`
}

// New builds a node; attrs alternates keys and values.
func New(typ string, attrs []string, children ...*Node) *Node {
	n := &Node{Type: typ, Children: children}
	if len(attrs) > 0 {
		n.Attributes = make(Attrs, len(attrs)/2)
		for i := 0; i+1 < len(attrs); i += 2 {
			n.Attributes[attrs[i]] = attrs[i+1]
		}
	}
	return n
}

// Get returns the attribute value and whether it is present.
func (n *Node) Get(key string) (string, bool) {
	if n == nil || n.Attributes == nil {
		return "", false
	}
	v, ok := n.Attributes[key]
	return v, ok
}

// Line returns the upstream "line" attribute, or 0 when absent or malformed.
func (n *Node) Line() int {
	raw, ok := n.Get("line")
	if !ok {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	line, err := safecast.Conv[int](v)
	if err != nil || line < 0 {
		return 0
	}
	return line
}

func (n *Node) HasChildren() bool {
	return n != nil && len(n.Children) > 0
}

// Walk visits n and its descendants in pre-order until fn returns false.
// It uses an explicit stack, so deep trees do not grow the goroutine stack.
func Walk(n *Node, fn func(n *Node, depth int) bool) {
	if n == nil {
		return
	}
	type frame struct {
		node  *Node
		depth int
	}
	stack := []frame{{node: n}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.node == nil {
			continue
		}
		if !fn(top.node, top.depth) {
			return
		}
		for i := len(top.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: top.node.Children[i], depth: top.depth + 1})
		}
	}
}
