// Package errs implements PatPat's multi-info compile/runtime diagnostics:
// one numeric code, a primary message and location, and zero
// or more secondary "Info" locations rendered as a caret-annotated source
// snippet, adapted to Go's error-value idiom (construct-and-return rather
// than print-and-exit).
package errs

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/patpat-lang/patpat/internal/token"
)

// Stable error codes referenced by tests.
const (
	CodeGeneric               = 1
	CodeUnrecognizedTerm      = 3
	CodeUnclosedBracketEOF    = 5
	CodeInvalidNumberLiteral  = 6
	CodeMissingTermAfterOp    = 8
	CodeUnexpectedBinaryOp    = 9
	CodeInvalidExpressionTerm = 10
	CodeKindTermMismatchLo    = 11
	CodeKindTermMismatchHi    = 15
	CodeDeclTermLo            = 16
	CodeCastRequiresTypeName  = 18
	CodeDeclTermHi            = 22
	CodeStrayRParen           = 101
	CodeStrayRBrace           = 102
	CodeStringLiteralError    = 103
	CodeDuplicateFlag         = 104
	CodeSelfNewOutsidePattern = 105
	CodeDuplicateLhs          = 106
	CodeOperatorMix           = 107
	CodeComplexDefineError    = 108
	CodeReservedOperator      = 205
	CodeUnknownVariable       = 151
	CodeUnknownPattern        = 152
	CodeUnknownStruct         = 153
	CodeMissingWithRef        = 154
	CodeMixedTypes            = 201
	CodeInvalidOperator       = 202
	CodeArity                 = 203
	CodeNonTypeInCast         = 204
	CodeFunctionFellOutOfScope = 206
)

// LocKind selects how a location renders: a caret under one column, a whole
// line, or a closed range of lines.
type LocKind int

const (
	LocNone LocKind = iota
	LocChar
	LocLine
	LocSpan
)

// Loc is a renderable location: either a char position (with caret), a bare
// line, a line span, or no location at all.
type Loc struct {
	Kind   LocKind
	Source string
	Path   string
	Line   int // 0-based
	Col    int // 0-based, meaningful for LocChar
	Span   int // number of lines, meaningful for LocSpan
}

// FromLocation converts a token.Location into a caret-rendering Loc.
func FromLocation(l token.Location) Loc {
	return Loc{Kind: LocChar, Source: l.Source, Path: l.Path, Line: l.Line, Col: l.Column}
}

// Info is one secondary annotation attached to an Error.
type Info struct {
	Message string
	Loc     Loc
}

// Error is PatPat's single diagnostic type: a numeric exit code, a primary
// message/location, and any number of secondary Info entries.
type Error struct {
	Code    int
	Message string
	Loc     Loc
	Infos   []Info
}

func New(code int, msg string, loc Loc) *Error {
	return &Error{Code: code, Message: msg, Loc: loc}
}

// WithInfo appends a secondary annotation and returns the same *Error, so
// call sites can chain construction the way the original's CompError::append
// does.
func (e *Error) WithInfo(msg string, loc Loc) *Error {
	e.Infos = append(e.Infos, Info{Message: msg, Loc: loc})
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compile error: %s", e.Message)
	return b.String()
}

// Render produces the full box-and-caret diagnostic.
func (e *Error) Render() string {
	var b strings.Builder
	gray := color.New(color.FgHiBlack)
	bold := color.New(color.Bold)

	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", bold.Sprint("Compile error:"), e.Message)
	renderLoc(&b, gray, e.Loc, "┌──", "│", "")
	for _, info := range e.Infos {
		fmt.Fprintf(&b, "%s %s %s\n", gray.Sprint("├──"), bold.Sprint("Info:"), info.Message)
		renderLoc(&b, gray, info.Loc, "│", "│", "  ")
	}
	return b.String()
}

func renderLoc(b *strings.Builder, gray *color.Color, loc Loc, headPrefix, linePrefix, indent string) {
	lines := strings.Split(loc.Source, "\n")
	switch loc.Kind {
	case LocChar:
		fmt.Fprintf(b, "%s %s(at line %d, char %d)\n", gray.Sprint(headPrefix), indent, loc.Line+1, loc.Col+1)
		if loc.Line >= 0 && loc.Line < len(lines) {
			fmt.Fprintf(b, "%s %s%s\n", gray.Sprint(linePrefix), indent, lines[loc.Line])
		}
		fmt.Fprintf(b, "%s %s%s^\n", gray.Sprint(linePrefix), indent, strings.Repeat(" ", loc.Col))
	case LocLine:
		fmt.Fprintf(b, "%s %s(at line %d)\n", gray.Sprint(headPrefix), indent, loc.Line+1)
		if loc.Line >= 0 && loc.Line < len(lines) {
			fmt.Fprintf(b, "%s %s%s\n", gray.Sprint(linePrefix), indent, lines[loc.Line])
		}
	case LocSpan:
		fmt.Fprintf(b, "%s %s(from line %d to line %d)\n", gray.Sprint(headPrefix), indent, loc.Line+1, loc.Line+loc.Span)
		for i := loc.Line; i < loc.Line+loc.Span && i < len(lines); i++ {
			fmt.Fprintf(b, "%s %s%s\n", gray.Sprint(linePrefix), indent, lines[i])
		}
	default:
		fmt.Fprintf(b, "%s\n", gray.Sprint("╷"))
	}
}
