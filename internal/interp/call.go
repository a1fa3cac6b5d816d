package interp

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/patpat-lang/patpat/internal/ast"
	"github.com/patpat-lang/patpat/internal/errs"
	"github.com/patpat-lang/patpat/internal/token"
	"github.com/patpat-lang/patpat/internal/value"
)

// callFunction invokes fn with positional args: arity is
// checked, the dangling-closure guard (invariant 4) is checked against the
// live call-site stack, a fresh prologue frame is populated with closure
// values, positional arguments, and self/lhs as the definition requires,
// then the body runs in that very frame.
func (ip *Interp) callFunction(fn *value.Function, args []value.Value, self value.Value, lhs value.Value, loc token.Location) (value.Value, error) {
	if fn.Def == nil {
		if len(fn.CompositeFns) == 2 {
			return ip.callComposite(fn, args, loc)
		}
		return nil, runtimeErr(loc, "value is not callable")
	}
	def := fn.Def

	if len(args) != len(def.Args) {
		return nil, errs.New(errs.CodeArity,
			fmt.Sprintf("`%s` expects %d argument(s), got %d", patternLabel(def), len(def.Args), len(args)),
			errs.FromLocation(loc))
	}

	if fn.ReqCtx != nil {
		d := fn.ReqCtx.Depth
		if d >= len(ip.Stack) || ip.Stack[d].ID != fn.ReqFrameID {
			return nil, errs.New(errs.CodeFunctionFellOutOfScope,
				"`"+fn.ReqCtx.Name+"` is no longer in scope: its enclosing call has already returned",
				errs.FromLocation(loc))
		}
	}

	depth := len(ip.Stack)
	f := newFrame(depth)

	for name, v := range fn.Closure {
		f.Vars[name] = &cell{id: uuid.New(), val: v}
	}
	for i, a := range def.Args {
		f.Vars[a.Name] = &cell{id: uuid.New(), val: args[i]}
	}

	var selfVal value.Value
	if def.HasNew {
		t, ok := self.(*value.Type)
		if !ok {
			return nil, runtimeErr(loc, "constructor requires a type target")
		}
		selfVal = value.NewInstance(t.Struct)
		f.Vars["self"] = &cell{id: uuid.New(), val: selfVal}
	} else if def.HasSelf {
		if self == nil {
			self = value.NilValue
		}
		selfVal = self
		f.Vars["self"] = &cell{id: uuid.New(), val: selfVal}
	}
	if def.HasLhs {
		if lhs == nil {
			lhs = value.NilValue
		}
		f.Vars["lhs"] = &cell{id: uuid.New(), val: lhs}
	}

	ip.Stack = append(ip.Stack, f)
	result, err := ip.runBodyInFrame(def.Body, f)
	ip.pop()
	if err != nil {
		return nil, err
	}
	if def.HasNew {
		return selfVal, nil
	}
	return result, nil
}

// callComposite invokes a `&&`/`||` composite-function value:
// calls the left function, short-circuits per the usual truthiness rule,
// otherwise calls the right function with the same arguments.
func (ip *Interp) callComposite(fn *value.Function, args []value.Value, loc token.Location) (value.Value, error) {
	left, right := fn.CompositeFns[0], fn.CompositeFns[1]
	lv, err := ip.callFunction(left, args, nil, ip.top().LastVal, loc)
	if err != nil {
		return nil, err
	}
	decided := (fn.CompositeOp == token.OpAnd && !value.Truthy(lv)) ||
		(fn.CompositeOp == token.OpOr && value.Truthy(lv))
	if decided {
		return lv, nil
	}
	return ip.callFunction(right, args, nil, ip.top().LastVal, loc)
}

func patternLabel(def *ast.Function) string {
	if def.IsPattern {
		return "pattern"
	}
	return "function"
}
