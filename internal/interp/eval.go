package interp

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/patpat-lang/patpat/internal/ast"
	"github.com/patpat-lang/patpat/internal/errs"
	"github.com/patpat-lang/patpat/internal/token"
	"github.com/patpat-lang/patpat/internal/value"
)

// eval dispatches a single AST node to its runtime value.
func (ip *Interp) eval(n ast.Node) (value.Value, error) {
	switch t := n.(type) {
	case *ast.BooleanLit:
		return value.Boolean{Value: t.Value}, nil
	case *ast.NumberLit:
		return value.Number{Value: t.Value}, nil
	case *ast.StringLit:
		return value.String{Value: t.Value}, nil
	case *ast.NilNode:
		return value.NilValue, nil
	case *ast.VoidSymbolNode:
		return value.NilValue, nil

	case *ast.Variable:
		c, ok := ip.lookupVar(t.Name)
		if !ok {
			return nil, runtimeErr(t.Location, "unknown variable %q", t.Name)
		}
		return c.val, nil
	case *ast.TypedVariable:
		c, ok := ip.lookupVar(t.Name)
		if !ok {
			return nil, runtimeErr(t.Location, "unknown variable %q", t.Name)
		}
		return c.val, nil
	case *ast.TypeNameRef:
		s, ok := ip.lookupStruct(t.Name)
		if !ok {
			return nil, runtimeErr(t.Location, "unknown type %q", t.Name)
		}
		return &value.Type{Struct: s}, nil
	case *ast.PatternRef:
		fn, ok := ip.lookupPattern(t.Name)
		if !ok {
			return nil, runtimeErr(t.Location, "unknown pattern %q", t.Name)
		}
		return fn, nil

	case *ast.VariableDecl:
		ip.top().Vars[t.Name] = &cell{id: uuid.New(), val: value.NilValue}
		return value.NilValue, nil
	case *ast.VariableInit:
		v, err := ip.eval(t.Expr)
		if err != nil {
			return nil, err
		}
		ip.top().Vars[t.Name] = &cell{id: uuid.New(), val: v}
		return v, nil
	case *ast.VariableDef:
		c, ok := ip.lookupVar(t.Name)
		if !ok {
			return nil, runtimeErr(t.Location, "unknown variable %q", t.Name)
		}
		v, err := ip.eval(t.Expr)
		if err != nil {
			return nil, err
		}
		prev := c.val
		c.val = v
		return prev, nil

	case *ast.ComplexDef:
		return ip.evalComplexDef(t)
	case *ast.Member:
		return ip.evalMember(t)

	case *ast.Expression:
		return ip.evalExpression(t)

	case *ast.TupleNode:
		return ip.evalBody(t.Body, len(ip.Stack))
	case *ast.BlockNode:
		return ip.evalBody(t.Body, len(ip.Stack))

	case *ast.Function:
		return ip.makeFunction(t), nil
	case *ast.PatternDecl:
		return value.NilValue, nil
	case *ast.Interpretation:
		return value.NilValue, nil
	case *ast.StructDecl:
		s, ok := ip.lookupStruct(t.Name)
		if !ok {
			return nil, runtimeErr(t.Location, "unknown type %q", t.Name)
		}
		return &value.Type{Struct: s}, nil

	case *ast.Cast:
		return ip.evalCast(t)
	case *ast.PartialApply:
		// `~` is tokenized but its semantics were never wired into the
		// evaluator: reserved until defined.
		return nil, errs.New(errs.CodeReservedOperator, "`~` (partial application) is reserved and not yet implemented", errs.FromLocation(t.Location))

	case *ast.PatternCall:
		if strings.HasPrefix(t.Name, "#") {
			return ip.callBuiltin(t)
		}
		fn, ok := ip.lookupPattern(t.Name)
		if !ok {
			return nil, runtimeErr(t.Location, "unknown pattern %q", t.Name)
		}
		args, err := ip.evalArgs(t.Args)
		if err != nil {
			return nil, err
		}
		lhs := ip.top().LastVal
		return ip.callFunction(fn, args, nil, lhs, t.Location)

	case *ast.MethodCall:
		return ip.evalMethodCall(t)
	case *ast.DirectCall:
		target, err := ip.eval(t.Target)
		if err != nil {
			return nil, err
		}
		fn, ok := target.(*value.Function)
		if !ok {
			return nil, runtimeErr(t.Location, "`.(...)` requires a function value")
		}
		args, err := ip.evalArgs(t.Args)
		if err != nil {
			return nil, err
		}
		lhs := ip.top().LastVal
		return ip.callFunction(fn, args, nil, lhs, t.Location)

	default:
		return nil, runtimeErr(n.Loc(), "unsupported node %T", n)
	}
}

func (ip *Interp) evalComplexDef(t *ast.ComplexDef) (value.Value, error) {
	tv, err := ip.eval(t.Target)
	if err != nil {
		return nil, err
	}
	inst, ok := tv.(*value.Instance)
	if !ok {
		return nil, runtimeErr(t.Location, "`.name:` assignment requires a struct instance target")
	}
	val, err := ip.eval(t.Value)
	if err != nil {
		return nil, err
	}
	var key string
	switch t.Member.Kind {
	case ast.DefineMember:
		key = t.Member.Name
	case ast.DefineIndex:
		key = strconv.FormatFloat(t.Member.Index, 'g', -1, 64)
	default:
		return nil, runtimeErr(t.Location, "tuple-destructuring field assignment is not supported")
	}
	prev, ok := inst.Fields[key]
	if !ok {
		prev = value.NilValue
	}
	inst.Fields[key] = val
	return prev, nil
}

func (ip *Interp) evalMember(t *ast.Member) (value.Value, error) {
	tv, err := ip.eval(t.Target)
	if err != nil {
		return nil, err
	}
	inst, ok := tv.(*value.Instance)
	if !ok {
		return nil, runtimeErr(t.Location, "`.` field access requires a struct instance")
	}
	key := t.Name
	if t.IsIndex {
		key = strconv.FormatFloat(t.Index, 'g', -1, 64)
	}
	if v, ok := inst.Fields[key]; ok {
		return v, nil
	}
	return value.NilValue, nil
}

func (ip *Interp) evalMethodCall(t *ast.MethodCall) (value.Value, error) {
	target, err := ip.eval(t.Target)
	if err != nil {
		return nil, err
	}
	args, err := ip.evalArgs(t.Args)
	if err != nil {
		return nil, err
	}
	lhs := ip.top().LastVal
	switch tv := target.(type) {
	case *value.Instance:
		m, ok := tv.Struct.GetMethod(t.Name)
		if !ok {
			return nil, runtimeErr(t.Location, "unknown method %q on %s", t.Name, tv.Struct.Name)
		}
		return ip.callFunction(m, args, tv, lhs, t.Location)
	case *value.Type:
		m, ok := tv.Struct.GetMethod(t.Name)
		if !ok {
			return nil, runtimeErr(t.Location, "unknown method %q on type %s", t.Name, tv.Struct.Name)
		}
		return ip.callFunction(m, args, tv, lhs, t.Location)
	default:
		return nil, runtimeErr(t.Location, "`.%s(...)` requires a struct instance or type", t.Name)
	}
}

func (ip *Interp) evalCast(t *ast.Cast) (value.Value, error) {
	v, err := ip.eval(t.Value)
	if err != nil {
		return nil, err
	}
	inst, ok := v.(*value.Instance)
	if !ok {
		return nil, runtimeErr(t.Location, "`->` requires a struct instance on the left")
	}
	to, ok := ip.lookupStruct(t.Type)
	if !ok {
		return nil, runtimeErr(t.Location, "unknown type %q", t.Type)
	}
	interp, ok := inst.Struct.FindInterpretation(to)
	if !ok {
		return nil, runtimeErr(t.Location, "no interpretation from `%s` to `%s`", inst.Struct.Name, to.Name)
	}
	toInst := value.NewInstance(to)
	depth := len(ip.Stack)
	f := newFrame(depth)
	f.Vars["from"] = &cell{id: uuid.New(), val: inst}
	f.Vars["to"] = &cell{id: uuid.New(), val: toInst}
	ip.Stack = append(ip.Stack, f)
	_, err = ip.runBodyInFrame(interp.Body, f)
	ip.pop()
	if err != nil {
		return nil, err
	}
	return toInst, nil
}

// evalArgs evaluates a call's argument tuple to a positional value list by
// running its body as an ordinary tuple scope and unpacking the result.
func (ip *Interp) evalArgs(t *ast.TupleNode) ([]value.Value, error) {
	if t == nil {
		return nil, nil
	}
	v, err := ip.evalBody(t.Body, len(ip.Stack))
	if err != nil {
		return nil, err
	}
	if tup, ok := v.(value.Tuple); ok {
		return tup.Elems, nil
	}
	if len(t.Body.Instructions) == 0 {
		return nil, nil
	}
	return []value.Value{v}, nil
}

// nextOperand reads the Push term at i and any immediately-following unary
// `!` terms, returning the node, the not-count, and the index past them.
func nextOperand(terms []ast.Term, i int) (ast.Node, int, int) {
	node := terms[i].Push
	i++
	nots := 0
	for i < len(terms) && terms[i].IsOp && terms[i].Op == token.OpNot {
		nots++
		i++
	}
	return node, nots, i
}

// evalExpression runs an Expression's flat push/pop tape:
// since same-level operators are guaranteed uniform, this reduces to a
// left fold rather than a general operator-precedence stack machine.
func (ip *Interp) evalExpression(expr *ast.Expression) (value.Value, error) {
	terms := expr.Terms
	if len(terms) == 0 {
		return value.NilValue, nil
	}

	node, nots, i := nextOperand(terms, 0)
	acc, err := ip.eval(node)
	if err != nil {
		return nil, err
	}
	for k := 0; k < nots; k++ {
		if acc, err = applyUnaryNot(acc, expr.Location); err != nil {
			return nil, err
		}
	}

	for i < len(terms) {
		op := terms[i].Op
		i++

		if fn, ok := acc.(*value.Function); ok && (op == token.OpAnd || op == token.OpOr) {
			return ip.buildComposite(op, fn, terms, i, expr.Location)
		}
		if (op == token.OpAnd && !value.Truthy(acc)) || (op == token.OpOr && value.Truthy(acc)) {
			_, _, next := nextOperand(terms, i)
			i = next
			continue
		}

		rnode, rnots, next := nextOperand(terms, i)
		i = next
		rhs, err := ip.eval(rnode)
		if err != nil {
			return nil, err
		}
		for k := 0; k < rnots; k++ {
			if rhs, err = applyUnaryNot(rhs, expr.Location); err != nil {
				return nil, err
			}
		}
		acc, err = ip.applyBinaryOp(op, acc, rhs, expr.Location)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// buildComposite implements the `&&`/`||` composite-function rewrite
// when an operand chain is function-valued rather than
// boolean-valued, the whole expression becomes itself a deferred callable
// that short-circuits at call time instead of at expression-evaluation time.
func (ip *Interp) buildComposite(op token.Op, left *value.Function, terms []ast.Term, i int, loc token.Location) (value.Value, error) {
	acc := left
	for {
		rnode, rnots, next := nextOperand(terms, i)
		i = next
		rv, err := ip.eval(rnode)
		if err != nil {
			return nil, err
		}
		for k := 0; k < rnots; k++ {
			if rv, err = applyUnaryNot(rv, loc); err != nil {
				return nil, err
			}
		}
		rf, ok := rv.(*value.Function)
		if !ok {
			return nil, runtimeErr(loc, "cannot combine a function with a non-function operand via `%s`", op.String())
		}
		acc = &value.Function{CompositeOp: op, CompositeFns: []*value.Function{acc, rf}}
		if i >= len(terms) {
			return acc, nil
		}
		op = terms[i].Op
		i++
	}
}
