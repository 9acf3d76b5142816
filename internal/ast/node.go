package ast

// Attr is an optional attribute value.
type Attr struct {
	Value   string
	Present bool
}

func Some(v string) Attr { return Attr{Value: v, Present: true} }

func (a Attr) Get() (string, bool) { return a.Value, a.Present }

// Node is implemented only by the variants in this package.
type Node interface {
	Kind() Kind
	// Line is the upstream "line" attribute, 0 when absent.
	Line() int
	Children() []Node
	base() *nodeBase
}

type nodeBase struct {
	line     int
	children []Node
}

func (b *nodeBase) Line() int        { return b.line }
func (b *nodeBase) Children() []Node { return b.children }
func (b *nodeBase) base() *nodeBase  { return b }

type (
	Map        struct{ nodeBase }
	Block      struct{ nodeBase }
	Params     struct{ nodeBase }
	Expression struct{ nodeBase }
	Function   struct{ nodeBase }
	Call       struct{ nodeBase }
	Return     struct{ nodeBase }
	Assignment struct{ nodeBase }
	Accessor   struct{ nodeBase }
	Variable   struct{ nodeBase }
)

func (*Map) Kind() Kind        { return KindMap }
func (*Block) Kind() Kind      { return KindBlock }
func (*Params) Kind() Kind     { return KindParams }
func (*Expression) Kind() Kind { return KindExpression }
func (*Function) Kind() Kind   { return KindFunction }
func (*Call) Kind() Kind       { return KindCall }
func (*Return) Kind() Kind     { return KindReturn }
func (*Assignment) Kind() Kind { return KindAssignment }
func (*Accessor) Kind() Kind   { return KindAccessor }
func (*Variable) Kind() Kind   { return KindVariable }

// LoopType is the loopType attribute of a loop node.
type LoopType uint8

const (
	LoopOther LoopType = iota
	LoopIf
	LoopWhile
)

type Loop struct {
	nodeBase
	Type LoopType
	// Raw is the loopType text as given, kept for diagnostics.
	Raw Attr
}

func (*Loop) Kind() Kind { return KindLoop }

type Identifier struct {
	nodeBase
	Name Attr
}

func (*Identifier) Kind() Kind { return KindIdentifier }

type Definition struct {
	nodeBase
	Identifier Attr
}

func (*Definition) Kind() Kind { return KindDefinition }

// Quote is the quoting style of a string constant.
type Quote uint8

const (
	QuoteDouble Quote = iota
	QuoteSingle
)

func (q Quote) Char() byte {
	if q == QuoteSingle {
		return '\''
	}
	return '"'
}

type Constant struct {
	nodeBase
	ConstantType string
	Quote        Quote
	Value        Attr
}

func (*Constant) Kind() Kind { return KindConstant }

// IsString reports whether the constant is written as a quoted literal.
func (c *Constant) IsString() bool { return c.ConstantType == "string" }

type KeyValue struct {
	nodeBase
	Key Attr
}

func (*KeyValue) Kind() Kind { return KindKeyValue }

type Operation struct {
	nodeBase
	Operator Attr
	// Prefix is set when the upstream "left" attribute is "true": the operator
	// is written before the operand instead of after the first one.
	Prefix bool
}

func (*Operation) Kind() Kind { return KindOperation }

// Role is a positional wrapper (body, left, key, first, ...).
type Role struct {
	nodeBase
	kind Kind
}

func (r *Role) Kind() Kind { return r.kind }

// Unknown holds a node whose tag is not in the vocabulary.
type Unknown struct {
	nodeBase
	Tag string
}

func (*Unknown) Kind() Kind { return KindUnknown }
