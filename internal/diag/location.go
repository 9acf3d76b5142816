package diag

import "strconv"

// Location points at a tree node. Trees carry no byte offsets, only the
// upstream parser's line attribute, so Line is 0 when the node had none.
type Location struct {
	File string `json:"file,omitempty" msgpack:"file,omitempty"`
	Line int    `json:"line,omitempty" msgpack:"line,omitempty"`
	Kind string `json:"kind,omitempty" msgpack:"kind,omitempty"`
}

func (l Location) String() string {
	out := l.File
	if out == "" {
		out = "<tree>"
	}
	if l.Line > 0 {
		out += ":" + strconv.Itoa(l.Line)
	}
	if l.Kind != "" {
		out += " (" + l.Kind + ")"
	}
	return out
}
