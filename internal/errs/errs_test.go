package errs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patpat-lang/patpat/internal/token"
)

func TestNewAndError(t *testing.T) {
	loc := FromLocation(token.Location{Path: "a.pp", Line: 2, Column: 4, Source: "x\ny\nz"})
	e := New(CodeArity, "wrong arity", loc)
	require.NotNil(t, e)
	assert.Equal(t, CodeArity, e.Code)
	assert.Contains(t, e.Error(), "wrong arity")
}

func TestWithInfoChains(t *testing.T) {
	e := New(CodeGeneric, "primary", Loc{})
	ret := e.WithInfo("secondary", Loc{})
	assert.Same(t, e, ret)
	require.Len(t, e.Infos, 1)
	assert.Equal(t, "secondary", e.Infos[0].Message)
}

func TestRenderIncludesMessageAndCaret(t *testing.T) {
	src := "let x: 1\nlet y: x +\n"
	loc := FromLocation(token.Location{Path: "f.pp", Source: src, Line: 1, Column: 10})
	e := New(CodeMissingTermAfterOp, "missing term after operator", loc)
	out := e.Render()
	assert.True(t, strings.Contains(out, "missing term after operator"))
	assert.True(t, strings.Contains(out, "line 2"))
	assert.True(t, strings.Contains(out, "^"))
}

func TestRenderWithInfoAddsSecondaryBlock(t *testing.T) {
	e := New(CodeUnknownVariable, "unknown variable \"x\"", Loc{Kind: LocLine, Source: "a\nb", Line: 0})
	e.WithInfo("declared here", Loc{Kind: LocLine, Source: "a\nb", Line: 1})
	out := e.Render()
	assert.True(t, strings.Contains(out, "Info:"))
	assert.True(t, strings.Contains(out, "declared here"))
}

func TestFromLocationPreservesPosition(t *testing.T) {
	loc := FromLocation(token.Location{Path: "p", Source: "s", Line: 3, Column: 7})
	assert.Equal(t, LocChar, loc.Kind)
	assert.Equal(t, 3, loc.Line)
	assert.Equal(t, 7, loc.Col)
}
