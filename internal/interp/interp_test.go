package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patpat-lang/patpat/internal/ast"
	"github.com/patpat-lang/patpat/internal/errs"
	"github.com/patpat-lang/patpat/internal/resolve"
	"github.com/patpat-lang/patpat/internal/token"
	"github.com/patpat-lang/patpat/internal/value"
)

// recordingHost captures #println/#test_log output for assertions instead
// of writing to a real stream ("encapsulate global state in an
// injected host" design note).
type recordingHost struct {
	printed []string
	logged  []string
}

func (h *recordingHost) Println(s string) { h.printed = append(h.printed, s) }
func (h *recordingHost) TestLog(s string)  { h.logged = append(h.logged, s) }

func newTestInterp() (*Interp, *recordingHost) {
	host := &recordingHost{}
	table := &resolve.Table{FuncReq: map[*ast.Function]*resolve.Ref{}, FuncScope: map[*ast.Function]*resolve.FuncScope{}}
	return New(table, host), host
}

func num(v float64) *ast.NumberLit    { return &ast.NumberLit{Value: v} }
func boolean(v bool) *ast.BooleanLit  { return &ast.BooleanLit{Value: v} }
func str(v string) *ast.StringLit    { return &ast.StringLit{Value: v} }

func block(nodes ...ast.Node) *ast.AST {
	instrs := make([]ast.Instr, len(nodes))
	for i, n := range nodes {
		instrs[i] = ast.Instr{Node: n}
	}
	return &ast.AST{Kind: ast.KindBlock, Instructions: instrs}
}

func fileOf(nodes ...ast.Node) *ast.AST {
	instrs := make([]ast.Instr, len(nodes))
	for i, n := range nodes {
		instrs[i] = ast.Instr{Node: n}
	}
	return &ast.AST{Kind: ast.KindFile, Instructions: instrs}
}

func argTuple(nodes ...ast.Node) *ast.TupleNode {
	instrs := make([]ast.Instr, len(nodes))
	for i, n := range nodes {
		instrs[i] = ast.Instr{Node: n}
	}
	return &ast.TupleNode{Body: &ast.AST{Kind: ast.KindArgTuple, Instructions: instrs}}
}

func call(name string, args *ast.TupleNode) *ast.PatternCall {
	return &ast.PatternCall{Name: name, Args: args}
}

func zeroArgFn(body *ast.AST) *ast.Function {
	return &ast.Function{Body: body}
}

func TestIfTrueCallsFunctionAction(t *testing.T) {
	ip, _ := newTestInterp()
	file := fileOf(call("#if", argTuple(boolean(true), zeroArgFn(block(num(1))))))
	v, err := ip.Run(file)
	require.NoError(t, err)
	assert.Equal(t, value.Number{Value: 1}, v)
}

func TestIfFalseReturnsBail(t *testing.T) {
	ip, _ := newTestInterp()
	file := fileOf(call("#if", argTuple(boolean(false), zeroArgFn(block(num(1))))))
	v, err := ip.Run(file)
	require.NoError(t, err)
	assert.True(t, value.HasBailed(v))
}

func TestIfWithNonFunctionActionReturnedAsIs(t *testing.T) {
	ip, _ := newTestInterp()
	file := fileOf(call("#if", argTuple(boolean(true), num(42))))
	v, err := ip.Run(file)
	require.NoError(t, err)
	assert.Equal(t, value.Number{Value: 42}, v)
}

func TestElseFiresOnlyWhenPreviousBailed(t *testing.T) {
	ip, _ := newTestInterp()
	file := fileOf(
		call("#if", argTuple(boolean(false), zeroArgFn(block(num(1))))),
		call("#else", argTuple(zeroArgFn(block(num(2))))),
	)
	v, err := ip.Run(file)
	require.NoError(t, err)
	assert.Equal(t, value.Number{Value: 2}, v)
}

func TestElsePassesThroughWhenNotBailed(t *testing.T) {
	ip, _ := newTestInterp()
	file := fileOf(
		call("#if", argTuple(boolean(true), zeroArgFn(block(num(1))))),
		call("#else", argTuple(zeroArgFn(block(num(2))))),
	)
	v, err := ip.Run(file)
	require.NoError(t, err)
	assert.Equal(t, value.Number{Value: 1}, v)
}

func TestElseifGatesOnBothBailedAndCond(t *testing.T) {
	ip, _ := newTestInterp()
	file := fileOf(
		call("#if", argTuple(boolean(false), zeroArgFn(block(num(1))))),
		call("#elseif", argTuple(boolean(true), zeroArgFn(block(num(3))))),
	)
	v, err := ip.Run(file)
	require.NoError(t, err)
	assert.Equal(t, value.Number{Value: 3}, v)
}

func TestElseifStaysBailedWhenCondFalse(t *testing.T) {
	ip, _ := newTestInterp()
	file := fileOf(
		call("#if", argTuple(boolean(false), zeroArgFn(block(num(1))))),
		call("#elseif", argTuple(boolean(false), zeroArgFn(block(num(3))))),
		call("#else", argTuple(zeroArgFn(block(num(4))))),
	)
	v, err := ip.Run(file)
	require.NoError(t, err)
	assert.Equal(t, value.Number{Value: 4}, v)
}

func TestBailZeroAndMultiArgs(t *testing.T) {
	ip, _ := newTestInterp()
	v, err := ip.Run(fileOf(call("#bail", argTuple())))
	require.NoError(t, err)
	assert.Equal(t, value.BailValue, v)

	v, err = ip.Run(fileOf(call("#bail", argTuple(num(1), str("x")))))
	require.NoError(t, err)
	tup, ok := v.(value.Tuple)
	require.True(t, ok)
	require.Len(t, tup.Elems, 3)
	assert.Equal(t, value.BailValue, tup.Elems[0])
	assert.Equal(t, value.Number{Value: 1}, tup.Elems[1])
	assert.Equal(t, value.String{Value: "x"}, tup.Elems[2])
}

func TestUnbailStripsLeadingBail(t *testing.T) {
	ip, _ := newTestInterp()
	file := fileOf(call("#unbail", argTuple(call("#bail", argTuple(num(9))))))
	v, err := ip.Run(file)
	require.NoError(t, err)
	tup, ok := v.(value.Tuple)
	require.True(t, ok)
	require.Len(t, tup.Elems, 1)
	assert.Equal(t, value.Number{Value: 9}, tup.Elems[0])
}

func TestUnbailOnNonBailedReturnsNil(t *testing.T) {
	ip, _ := newTestInterp()
	v, err := ip.Run(fileOf(call("#unbail", argTuple(num(5)))))
	require.NoError(t, err)
	assert.Equal(t, value.NilValue, v)
}

func TestForReturnsLastValueOfInclusiveRange(t *testing.T) {
	ip, _ := newTestInterp()
	// #for(1, 3, (i) => { i }) returns the last iteration's value, 3: this
	// test exercises the inclusive upper bound and the per-iteration call,
	// not accumulation.
	body := &ast.Function{
		Args: []ast.FunctionArg{{Name: "i"}},
		Body: block(&ast.Variable{Name: "i"}),
	}
	file := fileOf(call("#for", argTuple(num(1), num(3), body)))
	v, err := ip.Run(file)
	require.NoError(t, err)
	assert.Equal(t, value.Number{Value: 3}, v)
}

func TestForPropagatesBailImmediately(t *testing.T) {
	ip, _ := newTestInterp()
	body := &ast.Function{
		Args: []ast.FunctionArg{{Name: "i"}},
		Body: block(call("#bail", argTuple(&ast.Variable{Name: "i"}))),
	}
	file := fileOf(call("#for", argTuple(num(1), num(10), body)))
	v, err := ip.Run(file)
	require.NoError(t, err)
	tup, ok := v.(value.Tuple)
	require.True(t, ok)
	assert.Equal(t, value.Number{Value: 1}, tup.Elems[1])
}

func TestDoAlwaysReturnsNil(t *testing.T) {
	ip, _ := newTestInterp()
	file := fileOf(call("#do", argTuple(zeroArgFn(block(num(1))))))
	v, err := ip.Run(file)
	require.NoError(t, err)
	assert.Equal(t, value.NilValue, v)
}

func TestPushAppendsElement(t *testing.T) {
	ip, _ := newTestInterp()
	tupleLit := &ast.TupleNode{Body: &ast.AST{Kind: ast.KindTuple, Instructions: []ast.Instr{{Node: num(1)}, {Node: num(2)}}}}
	file := fileOf(call("#push", argTuple(tupleLit, num(3))))
	v, err := ip.Run(file)
	require.NoError(t, err)
	tup, ok := v.(value.Tuple)
	require.True(t, ok)
	require.Len(t, tup.Elems, 3)
	assert.Equal(t, value.Number{Value: 3}, tup.Elems[2])
}

func TestPopReturnsLastThenRest(t *testing.T) {
	ip, _ := newTestInterp()
	tupleLit := &ast.TupleNode{Body: &ast.AST{Kind: ast.KindTuple, Instructions: []ast.Instr{
		{Node: num(1)}, {Node: num(2)}, {Node: num(3)},
	}}}
	file := fileOf(call("#pop", argTuple(tupleLit)))
	v, err := ip.Run(file)
	require.NoError(t, err)
	tup, ok := v.(value.Tuple)
	require.True(t, ok)
	require.Len(t, tup.Elems, 2)
	assert.Equal(t, value.Number{Value: 3}, tup.Elems[0])
	rest, ok := tup.Elems[1].(value.Tuple)
	require.True(t, ok)
	require.Len(t, rest.Elems, 2)
	assert.Equal(t, value.Number{Value: 1}, rest.Elems[0])
	assert.Equal(t, value.Number{Value: 2}, rest.Elems[1])
}

func TestPrintlnJoinsWithCommaSpace(t *testing.T) {
	ip, host := newTestInterp()
	file := fileOf(call("#println", argTuple(num(1), str("two"))))
	_, err := ip.Run(file)
	require.NoError(t, err)
	require.Len(t, host.printed, 1)
	assert.Equal(t, "1, two", host.printed[0])
}

// TestShortCircuitAndSkipsRightOperand exercises short-circuit evaluation:
// `false && sideeffect()` must not invoke sideeffect.
func TestShortCircuitAndSkipsRightOperand(t *testing.T) {
	ip, host := newTestInterp()
	expr := &ast.Expression{Terms: []ast.Term{
		{Push: boolean(false)},
		{IsOp: true, Op: token.OpAnd},
		{Push: call("#println", argTuple(str("should not print")))},
	}}
	v, err := ip.Run(fileOf(expr))
	require.NoError(t, err)
	assert.Equal(t, value.Boolean{Value: false}, v)
	assert.Empty(t, host.printed)
}

func TestShortCircuitOrSkipsRightOperand(t *testing.T) {
	ip, host := newTestInterp()
	expr := &ast.Expression{Terms: []ast.Term{
		{Push: boolean(true)},
		{IsOp: true, Op: token.OpOr},
		{Push: call("#println", argTuple(str("should not print")))},
	}}
	v, err := ip.Run(fileOf(expr))
	require.NoError(t, err)
	assert.Equal(t, value.Boolean{Value: true}, v)
	assert.Empty(t, host.printed)
}

// TestLeftAssociativeArithmeticChain exercises left-associative chaining:
// 1 + 2 + 3 + 4 + 7 = 17.
func TestLeftAssociativeArithmeticChain(t *testing.T) {
	ip, _ := newTestInterp()
	expr := &ast.Expression{Terms: []ast.Term{
		{Push: num(1)},
		{IsOp: true, Op: token.OpAdd}, {Push: num(2)},
		{IsOp: true, Op: token.OpAdd}, {Push: num(3)},
		{IsOp: true, Op: token.OpAdd}, {Push: num(4)},
		{IsOp: true, Op: token.OpAdd}, {Push: num(7)},
	}}
	v, err := ip.Run(fileOf(expr))
	require.NoError(t, err)
	assert.Equal(t, value.Number{Value: 17}, v)
}

func TestPartialApplicationIsReservedError(t *testing.T) {
	ip, _ := newTestInterp()
	file := fileOf(&ast.PartialApply{Value: num(1)})
	_, err := ip.Run(file)
	require.Error(t, err)
	e, ok := err.(*errs.Error)
	require.True(t, ok)
	assert.Equal(t, errs.CodeReservedOperator, e.Code)
}

// TestDanglingClosureGuard exercises the dangling-closure guard: a
// function that escapes its required context fails at call with error 206.
func TestDanglingClosureGuard(t *testing.T) {
	ip, _ := newTestInterp()
	def := &ast.Function{Body: block(num(1))}
	fn := ip.makeFunction(def)
	// Simulate a requiredCtx pointing at a frame that is no longer live:
	// the guard must reject the call even though nothing else changed.
	fn.ReqCtx = &resolve.Ref{Kind: resolve.RefSymbol, Name: "x", Depth: 5}

	_, err := ip.callFunction(fn, nil, nil, value.NilValue, token.Location{})
	require.Error(t, err)
	e, ok := err.(*errs.Error)
	require.True(t, ok)
	assert.Equal(t, errs.CodeFunctionFellOutOfScope, e.Code)
}

func TestCallArityMismatch(t *testing.T) {
	ip, _ := newTestInterp()
	def := &ast.Function{Args: []ast.FunctionArg{{Name: "x"}}, Body: block(&ast.Variable{Name: "x"})}
	fn := ip.makeFunction(def)
	_, err := ip.callFunction(fn, nil, nil, value.NilValue, token.Location{})
	require.Error(t, err)
	e, ok := err.(*errs.Error)
	require.True(t, ok)
	assert.Equal(t, errs.CodeArity, e.Code)
}

// TestCompositeAndShortCircuitsAtCallTime exercises the
// composite-function rewrite: when both `&&` operands are function-valued,
// the expression itself becomes a callable that defers its short-circuit
// decision to invocation time.
func TestCompositeAndShortCircuitsAtCallTime(t *testing.T) {
	ip, host := newTestInterp()
	left := &ast.Function{Body: block(boolean(false))}
	right := &ast.Function{Body: block(call("#println", argTuple(str("right ran"))))}

	expr := &ast.Expression{Terms: []ast.Term{
		{Push: left},
		{IsOp: true, Op: token.OpAnd},
		{Push: right},
	}}
	// Call the composite through ip.Run (rather than a bare ip.eval +
	// ip.callFunction) so callComposite's own ip.top().LastVal lookup has
	// a live frame to read, matching how it is always reached in practice.
	file := fileOf(&ast.DirectCall{Target: expr})
	result, err := ip.Run(file)
	require.NoError(t, err)
	assert.Equal(t, value.Boolean{Value: false}, result)
	assert.Empty(t, host.printed, "right side must not run once the left side decides the chain")
}

func TestClosureCapturesValueAtMaterialization(t *testing.T) {
	ip, _ := newTestInterp()
	// Materialize a function with a #with-style closure binding capturing
	// a literal value: the binding is evaluated
	// once, at makeFunction time, not re-read later.
	def := &ast.Function{
		Closure: []ast.ClosureBinding{{Name: "x", Value: num(10)}},
		Body:    block(&ast.Variable{Name: "x"}),
	}
	fn := ip.makeFunction(def)
	v, err := ip.callFunction(fn, nil, nil, value.NilValue, token.Location{})
	require.NoError(t, err)
	assert.Equal(t, value.Number{Value: 10}, v)
}
