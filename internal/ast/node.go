// Package ast implements PatPat's AST constructor: a shift-style recognizer
// that walks a token tree and produces an annotated AST with no operator
// precedence and per-context term validity.
//
// Every node carries its defining token/location, over a single flat Node
// interface rather than a Statement/Expression/Visitor split: the
// constructor produces exactly one pass, with no separate typecheck/
// format/lsp visitors consuming the tree afterward.
package ast

import "github.com/patpat-lang/patpat/internal/token"

// Kind parameterizes term validity: which node kinds are
// legal instructions directly inside this AST.
type Kind int

const (
	KindFile Kind = iota
	KindBlock
	KindTuple
	KindArgTuple
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "File"
	case KindBlock:
		return "Block"
	case KindTuple:
		return "Tuple"
	case KindArgTuple:
		return "ArgTuple"
	case KindStruct:
		return "Struct"
	default:
		return "?"
	}
}

// Node is any AST element: every concrete node knows its own location.
type Node interface {
	Loc() token.Location
}

// Instr pairs a parsed Node with its source location (redundant with
// Node.Loc for most nodes, but kept explicit to mirror the token tree's own
// (token, location) pairing and to simplify instruction-separation checks).
type Instr struct {
	Node Node
	Loc  token.Location
}

// AST is an ordered sequence of instructions together with the Kind that
// parameterized which recognizers and term-validity rules produced it.
type AST struct {
	Kind         Kind
	Instructions []Instr
}
