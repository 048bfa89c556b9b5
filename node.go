package vgtpl

// Node is a parsed construct in a Document's tree (spec.md ยง3).
type Node interface {
	node()
}

// Literal is verbatim output.
type Literal struct {
	Bytes string
}

func (Literal) node() {}

// FilterKind names one of the post-substitution string filters.
type FilterKind uint8

const (
	FilterFlatten FilterKind = iota
	FilterDetab
	FilterTrim
	FilterTrimStart
	FilterTrimEnd
	FilterUpper
	FilterLower
	FilterReplace
	FilterMarkdown
)

// Filter is one post-substitution transformation applied to a
// variable's rendered value. Replace carries its two string-literal
// arguments; every other kind ignores From/To.
type Filter struct {
	Kind FilterKind
	From string
	To   string
}

// VariableRef is a qualified dotted name reference, with optional
// nullability and a left-to-right filter pipeline.
type VariableRef struct {
	NamePath string
	Nullable bool
	Filters  []Filter
	Source   string // the exact "{{ ... }}" source text, for passthrough on miss
}

func (VariableRef) node() {}

// Block defines a named content region whose rendered body becomes a
// Text binding in the enclosing scope. It emits nothing at its own
// definition site.
type Block struct {
	Name string
	Body []Node
}

func (Block) node() {}

// Condition is the predicate of an If node.
type Condition struct {
	Negative  bool // true for "!NAME" / "NAME not empty"
	Emptiness bool // false = existence test, true = emptiness test
	NamePath  string
}

// If is a conditional with a then-branch and an optional else-branch.
type If struct {
	Cond Condition
	Then []Node
	Else []Node
}

func (If) node() {}

// SortKey names a for-loop directory ordering.
type SortKey uint8

const (
	SortName SortKey = iota
	SortCreated
	SortModified
)

// PathFragment is one piece of a path expression: either literal text
// or a variable reference resolved at the moment the enclosing
// directive is evaluated (spec.md ยง4.2, ยง4.5 meta-paths).
type PathFragment struct {
	Literal  string
	VarPath  string // non-empty for a VariableRefFragment
	IsVarRef bool
}

// For is a directory- or file-driven loop.
type For struct {
	LoopVar  string
	PathExpr []PathFragment
	SortBy   SortKey
	Reverse  bool
	Body     []Node
	Else     []Node
}

func (For) node() {}

// IncludeMode names how an included file's content is spliced in.
type IncludeMode uint8

const (
	IncludeParsed IncludeMode = iota
	IncludeRaw
	IncludeMarkdown
)

// Include splices another file's content into the current document.
type Include struct {
	PathExpr []PathFragment
	Mode     IncludeMode
	Alias    string // non-empty for "as <alias>"
}

func (Include) node() {}

// Extends is permitted only as the first non-whitespace, non-comment
// node of a document.
type Extends struct {
	PathExpr []PathFragment
}

func (Extends) node() {}

// Ignore is permitted only as the first non-whitespace, non-comment
// node; it signals "skip this file" (spec.md ยง3, ยง4.5, ยง7).
type Ignore struct{}

func (Ignore) node() {}

// PreludeKind classifies how a Document begins.
type PreludeKind uint8

const (
	PreludeNormal PreludeKind = iota
	PreludeExtending
	PreludeIgnored
)

// Document is a parsed, immutable file: its canonical source path, its
// node list, and its detected prelude kind.
type Document struct {
	Path        string
	Nodes       []Node
	Prelude     PreludeKind
	ExtendsPath []PathFragment // valid when Prelude == PreludeExtending
}
