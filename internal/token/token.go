// Package token defines the lexical tokens produced by the lexer and the
// source locations attached to every token and AST node.
package token

import "fmt"

// Location is a 4-tuple pinning a token or node to its origin source: the
// full source text (for snippet rendering), the path, and a 0-based
// line/column pair.
type Location struct {
	Source string
	Path   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line+1, l.Column+1)
}

// Strictness is the angle-bracket type annotation modifier: `<Foo>` (Normal),
// `<!Foo>` (Strict, no subtype coercion), `<~Foo>` (Loose, convertible
// types accepted).
type Strictness int

const (
	Normal Strictness = iota
	Strict
	Loose
)

// Kind enumerates every leaf and nesting token kind recognized by the lexer.
type Kind int

const (
	Invalid Kind = iota
	Boolean
	Number
	String
	Symbol
	Pattern  // prefix-bearing name: 'foo or #foo
	TypeName // capitalized identifier
	Type     // angle-bracketed type reference
	Operator
	Define     // ':'
	Let        // 'let'
	Struct     // 'struct'
	Use        // '#use' (reserved)
	Load       // '#load' (reserved)
	Arrow      // '=>'
	Separator  // ','
	VoidSymbol // '_'
	Tuple      // nesting: '(' ... ')'
	Block      // nesting: '{' ... '}'
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "Boolean"
	case Number:
		return "Number"
	case String:
		return "String"
	case Symbol:
		return "Symbol"
	case Pattern:
		return "Pattern"
	case TypeName:
		return "TypeName"
	case Type:
		return "Type"
	case Operator:
		return "Operator"
	case Define:
		return "Define"
	case Let:
		return "Let"
	case Struct:
		return "Struct"
	case Use:
		return "Use"
	case Load:
		return "Load"
	case Arrow:
		return "Arrow"
	case Separator:
		return "Separator"
	case VoidSymbol:
		return "VoidSymbol"
	case Tuple:
		return "Tuple"
	case Block:
		return "Block"
	default:
		return "Invalid"
	}
}

// Op is the closed set of operators PatPat recognizes.
type Op int

const (
	OpInvalid Op = iota
	OpInterpretation
	OpMemberAccessor
	OpPartialApplication
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpEQ
	OpNEQ
	OpNot
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

// printedForms lists operators so that every two-character operator comes
// before any one-character operator that is its prefix; the lexer's
// first-match prefix scan (lexer.matchOperator) therefore never misreads a
// longer operator as a shorter one.
var printedForms = []struct {
	op   Op
	text string
}{
	{OpInterpretation, "->"},
	{OpMemberAccessor, "."},
	{OpPartialApplication, "~"},
	{OpGTE, ">="},
	{OpLTE, "<="},
	{OpEQ, "=="},
	{OpNEQ, "!="},
	{OpAnd, "&&"},
	{OpOr, "||"},
	{OpGT, ">"},
	{OpLT, "<"},
	{OpNot, "!"},
	{OpAdd, "+"},
	{OpSub, "-"},
	{OpMul, "*"},
	{OpDiv, "/"},
	{OpMod, "%"},
}

// Operators returns the full printed-form table, in printedForms order.
func Operators() []struct {
	Op   Op
	Text string
} {
	out := make([]struct {
		Op   Op
		Text string
	}, len(printedForms))
	for i, p := range printedForms {
		out[i] = struct {
			Op   Op
			Text string
		}{p.op, p.text}
	}
	return out
}

func (o Op) String() string {
	for _, p := range printedForms {
		if p.op == o {
			return p.text
		}
	}
	return "<invalid-op>"
}

// IsUnary reports whether op may appear as a unary prefix operator. '!' is
// the sole unary operator in PatPat.
func (o Op) IsUnary() bool { return o == OpNot }

// Token is a tagged union of every lexical leaf plus the two nesting node
// kinds (Tuple, Block), which embed their already-built child trees.
type Token struct {
	Kind Kind

	// Leaf payloads; exactly one is meaningful depending on Kind.
	Bool   bool
	Num    float64
	Text   string // String, Symbol, Pattern, TypeName, TypeName-in-Type
	OpVal  Op
	Strict Strictness // meaningful when Kind == Type

	// Nesting payload; meaningful when Kind == Tuple or Kind == Block.
	Children *Tree
}

// Tree is an ordered sequence of (token, location) pairs together with a
// kind tag describing the bracket that opened it (or Root for the whole
// file). Tuple and Block trees are embedded as Children of their own Tuple/
// Block token in the parent tree — bracket matching is fully resolved by
// the time the tree is handed to the AST constructor.
type Tree struct {
	Kind  TreeKind
	Nodes []Node
}

// Node pairs a Token with the Location it was scanned at.
type Node struct {
	Tok Token
	Loc Location
}

// TreeKind distinguishes the root tree from nested tuple/block trees.
type TreeKind int

const (
	Root TreeKind = iota
	TupleTree
	BlockTree
)

func NewTree(kind TreeKind) *Tree { return &Tree{Kind: kind} }

func (t *Tree) Push(tok Token, loc Location) {
	t.Nodes = append(t.Nodes, Node{Tok: tok, Loc: loc})
}
