package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patpat-lang/patpat/internal/ast"
	"github.com/patpat-lang/patpat/internal/errs"
)

func fileOf(nodes ...ast.Node) *ast.AST {
	instrs := make([]ast.Instr, len(nodes))
	for i, n := range nodes {
		instrs[i] = ast.Instr{Node: n}
	}
	return &ast.AST{Kind: ast.KindFile, Instructions: instrs}
}

func TestResolveVariableDeclAndUse(t *testing.T) {
	decl := &ast.VariableInit{Name: "x", Expr: &ast.NumberLit{Value: 4}}
	use := &ast.Variable{Name: "x"}
	table, err := Resolve(fileOf(decl, use))
	require.NoError(t, err)
	ref, ok := table.Refs[use]
	require.True(t, ok)
	assert.Equal(t, RefSymbol, ref.Kind)
	assert.Equal(t, 0, ref.Depth)
}

func TestResolveUnknownVariableFails(t *testing.T) {
	use := &ast.Variable{Name: "missing"}
	_, err := Resolve(fileOf(use))
	require.Error(t, err)
	e, ok := err.(*errs.Error)
	require.True(t, ok)
	assert.Equal(t, errs.CodeUnknownVariable, e.Code)
}

func TestResolveUnknownPatternFails(t *testing.T) {
	call := &ast.PatternCall{Name: "'missing", Args: &ast.TupleNode{Body: &ast.AST{Kind: ast.KindArgTuple}}}
	_, err := Resolve(fileOf(call))
	require.Error(t, err)
	e, ok := err.(*errs.Error)
	require.True(t, ok)
	assert.Equal(t, errs.CodeUnknownPattern, e.Code)
}

func TestResolveBuiltinPatternNeedsNoDeclaration(t *testing.T) {
	call := &ast.PatternCall{Name: "#println", Args: &ast.TupleNode{Body: &ast.AST{Kind: ast.KindArgTuple}}}
	_, err := Resolve(fileOf(call))
	assert.NoError(t, err)
}

// TestShadowingWithinOneScopeRejected exercises the decision:
// shadowing a name within one scope is rejected rather than guessed at.
func TestShadowingWithinOneScopeRejected(t *testing.T) {
	first := &ast.VariableInit{Name: "x", Expr: &ast.NumberLit{Value: 1}}
	second := &ast.VariableInit{Name: "x", Expr: &ast.NumberLit{Value: 2}}
	_, err := Resolve(fileOf(first, second))
	require.Error(t, err)
	e, ok := err.(*errs.Error)
	require.True(t, ok)
	assert.Equal(t, errs.CodeDeclTermLo, e.Code)
	require.Len(t, e.Infos, 1)
}

func TestResolvePatternDeclHoistedForForwardReference(t *testing.T) {
	caller := &ast.PatternDecl{
		Name:     "'a",
		Function: &ast.Function{Body: &ast.AST{Kind: ast.KindBlock, Instructions: []ast.Instr{{Node: &ast.PatternCall{Name: "'b", Args: &ast.TupleNode{Body: &ast.AST{Kind: ast.KindArgTuple}}}}}}},
	}
	callee := &ast.PatternDecl{Name: "'b", Function: &ast.Function{Body: &ast.AST{Kind: ast.KindBlock}}}
	_, err := Resolve(fileOf(caller, callee))
	assert.NoError(t, err)
}

// TestFunctionBodyWithoutWithOrRefFailsWithError154 exercises
// scenario 9's first half: referencing an outer symbol without #with/#ref
// fails at resolution, not at call time.
func TestFunctionBodyWithoutWithOrRefFailsWithError154(t *testing.T) {
	decl := &ast.VariableInit{Name: "x", Expr: &ast.NumberLit{Value: 1}}
	fn := &ast.Function{Body: &ast.AST{Kind: ast.KindBlock, Instructions: []ast.Instr{{Node: &ast.Variable{Name: "x"}}}}}
	_, err := Resolve(fileOf(decl, fn))
	require.Error(t, err)
	e, ok := err.(*errs.Error)
	require.True(t, ok)
	assert.Equal(t, errs.CodeMissingWithRef, e.Code)
}

// TestFunctionBodyWithRefPermitsOuterReadAndRecordsRequiredCtx exercises
// invariant 3: #ref(x) both permits the read and records requiredCtx so the
// evaluator's dangling-closure guard has something to check at call time.
func TestFunctionBodyWithRefPermitsOuterReadAndRecordsRequiredCtx(t *testing.T) {
	decl := &ast.VariableInit{Name: "x", Expr: &ast.NumberLit{Value: 1}}
	fn := &ast.Function{
		RefNames: []string{"x"},
		Body:     &ast.AST{Kind: ast.KindBlock, Instructions: []ast.Instr{{Node: &ast.Variable{Name: "x"}}}},
	}
	table, err := Resolve(fileOf(decl, fn))
	require.NoError(t, err)
	req := table.FuncReq[fn]
	require.NotNil(t, req)
	assert.Equal(t, "x", req.Name)
	assert.Equal(t, 0, req.Depth)
}

func TestFunctionArgsDoNotRequireWithOrRef(t *testing.T) {
	fn := &ast.Function{
		Args: []ast.FunctionArg{{Name: "x"}},
		Body: &ast.AST{Kind: ast.KindBlock, Instructions: []ast.Instr{{Node: &ast.Variable{Name: "x"}}}},
	}
	table, err := Resolve(fileOf(fn))
	require.NoError(t, err)
	assert.Nil(t, table.FuncReq[fn])
}

func TestResolveStructDeclAndTypeNameRef(t *testing.T) {
	sd := &ast.StructDecl{Name: "Point", Body: &ast.AST{Kind: ast.KindBlock}}
	ref := &ast.TypeNameRef{Name: "Point"}
	table, err := Resolve(fileOf(sd, ref))
	require.NoError(t, err)
	r, ok := table.Refs[ref]
	require.True(t, ok)
	assert.Equal(t, RefStruct, r.Kind)
}
