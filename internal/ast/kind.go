package ast

// Kind enumerates the node variants.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindMap
	KindBlock
	KindParams
	KindExpression
	KindLoop
	KindFunction
	KindIdentifier
	KindCall
	KindDefinition
	KindConstant
	KindKeyValue
	KindReturn
	KindOperation
	KindAssignment
	KindAccessor
	KindVariable

	// structural roles: no text of their own, they only position children
	KindBody
	KindLeft
	KindRight
	KindKey
	KindFirst
	KindSecond
	KindThird
	KindFile
	KindStatement

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:    "unknown",
	KindMap:        "map",
	KindBlock:      "block",
	KindParams:     "params",
	KindExpression: "expression",
	KindLoop:       "loop",
	KindFunction:   "function",
	KindIdentifier: "identifier",
	KindCall:       "call",
	KindDefinition: "definition",
	KindConstant:   "constant",
	KindKeyValue:   "keyvalue",
	KindReturn:     "return",
	KindOperation:  "operation",
	KindAssignment: "assignment",
	KindAccessor:   "accessor",
	KindVariable:   "variable",
	KindBody:       "body",
	KindLeft:       "left",
	KindRight:      "right",
	KindKey:        "key",
	KindFirst:      "first",
	KindSecond:     "second",
	KindThird:      "third",
	KindFile:       "file",
	KindStatement:  "statement",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, kindCount)
	for k := KindUnknown + 1; k < kindCount; k++ {
		m[kindNames[k]] = k
	}
	return m
}()

func (k Kind) String() string {
	if k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// KindOf maps an upstream type tag to its Kind.
func KindOf(tag string) (Kind, bool) {
	k, ok := kindByName[tag]
	return k, ok
}

// IsStatement reports membership in the statement-separator set: two adjacent
// siblings of these kinds belong to different statements.
func (k Kind) IsStatement() bool {
	switch k {
	case KindAssignment, KindCall, KindDefinition, KindReturn:
		return true
	}
	return false
}

// IsRole reports whether k is a positional role wrapper.
func (k Kind) IsRole() bool {
	return k >= KindBody && k < kindCount
}
