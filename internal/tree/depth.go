package tree

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml/lexer"
	"github.com/goccy/go-yaml/token"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// DefaultMaxDepth is the nesting limit Decode applies. Decoding is recursive
// in the underlying codecs, so every format is checked against the limit first.
const DefaultMaxDepth = 4096

// DepthError reports a tree file nested deeper than the decoder accepts. It
// is returned before any recursive decoding starts, so hostile input cannot
// exhaust the stack.
type DepthError struct {
	Depth int // first node depth past the limit; the root is depth 0
	Limit int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("tree nested deeper than %d levels", e.Limit)
}

// containerLimit converts a node depth limit into the number of nested
// containers a serialized tree may open: every level is a node object plus its
// children list, and the deepest node may still hold an attribute object.
func containerLimit(maxDepth int) int { return 2*maxDepth + 2 }

func depthErr(containers, maxDepth int) error {
	return &DepthError{Depth: max((containers-1)/2, maxDepth+1), Limit: maxDepth}
}

// checkJSONDepth scans JSON for '{' and '[' nesting, skipping strings.
func checkJSONDepth(data []byte, maxDepth int) error {
	limit := containerLimit(maxDepth)
	depth := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '"':
			for i++; i < len(data) && data[i] != '"'; i++ {
				if data[i] == '\\' {
					i++
				}
			}
		case '{', '[':
			if depth++; depth > limit {
				return depthErr(depth, maxDepth)
			}
		case '}', ']':
			depth = max(depth-1, 0)
		}
	}
	return nil
}

// checkYAMLDepth bounds YAML nesting from the token stream. Flow collections
// are counted by their brackets; block collections need one more column per
// level, so the widest column seen outside flow context bounds their depth.
func checkYAMLDepth(data []byte, maxDepth int) error {
	limit := containerLimit(maxDepth)
	flow, block := 0, 0
	for _, tk := range lexer.Tokenize(string(data)) {
		switch tk.Type {
		case token.CommentType:
			continue
		case token.SequenceEndType, token.MappingEndType:
			flow = max(flow-1, 0)
			continue
		}
		if flow == 0 && tk.Position != nil {
			block = max(block, tk.Position.Column)
		}
		if tk.Type == token.SequenceStartType || tk.Type == token.MappingStartType {
			flow++
		}
		if block+flow > limit {
			return depthErr(block+flow, maxDepth)
		}
	}
	return nil
}

// checkMsgpackDepth walks a msgpack stream with an explicit stack of open
// maps and arrays. Scalars are skipped without decoding them.
func checkMsgpackDepth(data []byte, maxDepth int) error {
	limit := containerLimit(maxDepth)
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	var open []int // values still expected by each open container
	for {
		for len(open) > 0 && open[len(open)-1] == 0 {
			open = open[:len(open)-1]
		}
		if len(open) > 0 {
			open[len(open)-1]--
		}
		c, err := dec.PeekCode()
		if errors.Is(err, io.EOF) && len(open) == 0 {
			return nil
		}
		if err != nil {
			return err
		}
		var n int
		switch {
		case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
			if n, err = dec.DecodeMapLen(); err == nil {
				n *= 2
			}
		case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
			n, err = dec.DecodeArrayLen()
		default:
			err = dec.Skip()
		}
		if err != nil {
			return err
		}
		if n > 0 {
			open = append(open, n)
			if len(open) > limit {
				return depthErr(len(open), maxDepth)
			}
		}
		if len(open) == 0 {
			// a complete top-level value; trailing bytes are the decoder's business
			return nil
		}
	}
}
