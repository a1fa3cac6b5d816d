package interp

import (
	"math"
	"strings"

	"github.com/patpat-lang/patpat/internal/ast"
	"github.com/patpat-lang/patpat/internal/token"
	"github.com/patpat-lang/patpat/internal/value"
)

// callBuiltin dispatches one of the built-in control-flow patterns
// Installed as if in a root scope that is the ultimate
// parent of the user program's file scope; PatPat folds them directly into
// the evaluator as native Go functions instead of materializing them as
// RFunction values in that root scope, since nothing ever needs to take a
// first-class reference to a builtin pattern — see DESIGN.md.
func (ip *Interp) callBuiltin(n *ast.PatternCall) (value.Value, error) {
	args, err := ip.evalArgs(n.Args)
	if err != nil {
		return nil, err
	}
	switch n.Name {
	case "#println":
		return ip.doPrintln(args)
	case "#test_log":
		return ip.doTestLog(args)
	case "#bail":
		return doBail(args), nil
	case "#unbail":
		return doUnbail(n, args)
	case "#if":
		return ip.doIf(n, args)
	case "#else":
		return ip.doElse(n, args)
	case "#elseif":
		return ip.doElseif(n, args)
	case "#for":
		return ip.doFor(n, args)
	case "#loop":
		return ip.doLoop(n, args)
	case "#do":
		return ip.doDo(n, args)
	case "#push":
		return doPush(n, args)
	case "#pop":
		return doPop(n, args)
	case "#first":
		return doFirst(n, args)
	case "#last":
		return doLast(n, args)
	default:
		return nil, runtimeErr(n.Location, "unknown builtin pattern %q", n.Name)
	}
}

// callOrReturn implements the "if action is a function value, called with
// zero args; otherwise returned as is" rule shared by #if/#else/#elseif.
func (ip *Interp) callOrReturn(action value.Value, loc token.Location) (value.Value, error) {
	fn, ok := action.(*value.Function)
	if !ok {
		return action, nil
	}
	return ip.callFunction(fn, nil, nil, ip.top().LastVal, loc)
}

func (ip *Interp) doPrintln(args []value.Value) (value.Value, error) {
	ip.Host.Println(joinDisplay(args))
	return value.NilValue, nil
}

func (ip *Interp) doTestLog(args []value.Value) (value.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Debug()
	}
	ip.Host.TestLog(strings.Join(parts, ", "))
	return value.NilValue, nil
}

func joinDisplay(args []value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Display()
	}
	return strings.Join(parts, ", ")
}

// doBail implements #bail(...args): zero args yields a bare Bail, more
// yields Tuple([Bail, ...args]).
func doBail(args []value.Value) value.Value {
	if len(args) == 0 {
		return value.BailValue
	}
	elems := append([]value.Value{value.BailValue}, args...)
	return value.Tuple{Elems: elems}
}

// doUnbail implements #unbail(x): x must itself be a bailed Tuple (a bare
// Bail doesn't qualify) to strip its leading Bail and return what remains.
func doUnbail(n *ast.PatternCall, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, runtimeErr(n.Location, "#unbail requires exactly one argument")
	}
	x := args[0]
	tup, ok := x.(value.Tuple)
	if !ok || len(tup.Elems) == 0 {
		return value.NilValue, nil
	}
	if _, ok := tup.Elems[0].(value.Bail); !ok {
		return value.NilValue, nil
	}
	return value.Tuple{Elems: tup.Elems[1:]}, nil
}

func (ip *Interp) doIf(n *ast.PatternCall, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, runtimeErr(n.Location, "#if requires a condition and an action")
	}
	if value.Truthy(args[0]) {
		return ip.callOrReturn(args[1], n.Location)
	}
	return value.BailValue, nil
}

func (ip *Interp) doElse(n *ast.PatternCall, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, runtimeErr(n.Location, "#else requires an action")
	}
	prev := ip.top().LastVal
	if value.HasBailed(prev) {
		return ip.callOrReturn(args[0], n.Location)
	}
	return prev, nil
}

func (ip *Interp) doElseif(n *ast.PatternCall, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, runtimeErr(n.Location, "#elseif requires a condition and an action")
	}
	prev := ip.top().LastVal
	if !value.HasBailed(prev) {
		return prev, nil
	}
	if value.Truthy(args[0]) {
		return ip.callOrReturn(args[1], n.Location)
	}
	return value.BailValue, nil
}

// doFor implements #for(from, to, body): inclusive integer iteration,
// calling body(i) each time. A bailed iteration short-circuits and
// propagates that bailed value unchanged (not unwrapped); with no
// iterations at all (from > to) there is no "last iteration's value", so
// this returns Nil.
func (ip *Interp) doFor(n *ast.PatternCall, args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return nil, runtimeErr(n.Location, "#for requires from, to, and a body")
	}
	from, ok := args[0].(value.Number)
	if !ok {
		return nil, runtimeErr(n.Location, "#for requires numeric bounds")
	}
	to, ok := args[1].(value.Number)
	if !ok {
		return nil, runtimeErr(n.Location, "#for requires numeric bounds")
	}
	fn, ok := args[2].(*value.Function)
	if !ok {
		return nil, runtimeErr(n.Location, "#for requires a function body")
	}

	result := value.Value(value.NilValue)
	for i := math.Floor(from.Value); i <= math.Floor(to.Value); i++ {
		res, err := ip.callFunction(fn, []value.Value{value.Number{Value: i}}, nil, ip.top().LastVal, n.Location)
		if err != nil {
			return nil, err
		}
		if value.HasBailed(res) {
			return res, nil
		}
		result = res
	}
	return result, nil
}

// doLoop implements #loop(body): calls body() until it bails, then
// propagates that bailed value unchanged.
func (ip *Interp) doLoop(n *ast.PatternCall, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, runtimeErr(n.Location, "#loop requires a body")
	}
	fn, ok := args[0].(*value.Function)
	if !ok {
		return nil, runtimeErr(n.Location, "#loop requires a function body")
	}
	for {
		res, err := ip.callFunction(fn, nil, nil, ip.top().LastVal, n.Location)
		if err != nil {
			return nil, err
		}
		if value.HasBailed(res) {
			return res, nil
		}
	}
}

func (ip *Interp) doDo(n *ast.PatternCall, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, runtimeErr(n.Location, "#do requires a body")
	}
	fn, ok := args[0].(*value.Function)
	if !ok {
		return nil, runtimeErr(n.Location, "#do requires a function body")
	}
	if _, err := ip.callFunction(fn, nil, nil, ip.top().LastVal, n.Location); err != nil {
		return nil, err
	}
	return value.NilValue, nil
}

func doPush(n *ast.PatternCall, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, runtimeErr(n.Location, "#push requires a tuple and a value")
	}
	tup, ok := args[0].(value.Tuple)
	if !ok {
		return nil, runtimeErr(n.Location, "#push requires a tuple")
	}
	elems := append(append([]value.Value{}, tup.Elems...), args[1])
	return value.Tuple{Elems: elems}, nil
}

// doPop implements #pop(tuple): returns Tuple([last, rest]).
func doPop(n *ast.PatternCall, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, runtimeErr(n.Location, "#pop requires a tuple")
	}
	tup, ok := args[0].(value.Tuple)
	if !ok || len(tup.Elems) == 0 {
		return nil, runtimeErr(n.Location, "#pop requires a non-empty tuple")
	}
	last := tup.Elems[len(tup.Elems)-1]
	rest := append([]value.Value{}, tup.Elems[:len(tup.Elems)-1]...)
	return value.Tuple{Elems: []value.Value{last, value.Tuple{Elems: rest}}}, nil
}

func doFirst(n *ast.PatternCall, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, runtimeErr(n.Location, "#first requires a tuple")
	}
	tup, ok := args[0].(value.Tuple)
	if !ok || len(tup.Elems) == 0 {
		return value.NilValue, nil
	}
	return tup.Elems[0], nil
}

func doLast(n *ast.PatternCall, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, runtimeErr(n.Location, "#last requires a tuple")
	}
	tup, ok := args[0].(value.Tuple)
	if !ok || len(tup.Elems) == 0 {
		return value.NilValue, nil
	}
	return tup.Elems[len(tup.Elems)-1], nil
}
