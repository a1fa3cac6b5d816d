package interp

import (
	"math"

	"github.com/patpat-lang/patpat/internal/errs"
	"github.com/patpat-lang/patpat/internal/token"
	"github.com/patpat-lang/patpat/internal/value"
)

// applyUnaryNot implements `!`: logical negation on a
// Boolean, bitwise-not-as-u32 on a Number.
func applyUnaryNot(v value.Value, loc token.Location) (value.Value, error) {
	switch t := v.(type) {
	case value.Boolean:
		return value.Boolean{Value: !t.Value}, nil
	case value.Number:
		return value.Number{Value: float64(^uint32(int64(t.Value)))}, nil
	default:
		return nil, errs.New(errs.CodeInvalidOperator,
			"`!` requires a boolean or number operand", errs.FromLocation(loc))
	}
}

// applyBinaryOp implements the rest of PatPat's operator table:
// structural equality for any pair of values, numeric arithmetic and
// comparisons, string concatenation and ordering, and element-wise lifting
// over equal-length tuples.
func (ip *Interp) applyBinaryOp(op token.Op, a, b value.Value, loc token.Location) (value.Value, error) {
	switch op {
	case token.OpAnd, token.OpOr:
		// Reached only when the left operand didn't already decide the
		// chain: standard truthiness semantics return the right operand.
		return b, nil
	case token.OpEQ:
		return value.Boolean{Value: value.Equal(a, b)}, nil
	case token.OpNEQ:
		return value.Boolean{Value: !value.Equal(a, b)}, nil
	}

	if at, ok := a.(value.Tuple); ok {
		bt, ok := b.(value.Tuple)
		if !ok || len(bt.Elems) != len(at.Elems) {
			return nil, errs.New(errs.CodeMixedTypes,
				"tuples must have matching length to apply `"+op.String()+"`", errs.FromLocation(loc))
		}
		elems := make([]value.Value, len(at.Elems))
		for idx := range at.Elems {
			r, err := ip.applyBinaryOp(op, at.Elems[idx], bt.Elems[idx], loc)
			if err != nil {
				return nil, err
			}
			elems[idx] = r
		}
		return value.Tuple{Elems: elems}, nil
	}

	switch av := a.(type) {
	case value.Number:
		bn, ok := b.(value.Number)
		if !ok {
			return nil, errs.New(errs.CodeMixedTypes,
				"cannot apply `"+op.String()+"` between a number and a "+kindName(b), errs.FromLocation(loc))
		}
		return numberOp(op, av.Value, bn.Value, loc)
	case value.String:
		switch op {
		case token.OpAdd:
			return value.String{Value: av.Value + b.Display()}, nil
		case token.OpGT, token.OpGTE, token.OpLT, token.OpLTE:
			bs, ok := b.(value.String)
			if !ok {
				return nil, errs.New(errs.CodeMixedTypes,
					"cannot compare a string with a "+kindName(b), errs.FromLocation(loc))
			}
			return stringCompare(op, av.Value, bs.Value), nil
		default:
			return nil, errs.New(errs.CodeInvalidOperator,
				"`"+op.String()+"` is not defined on strings", errs.FromLocation(loc))
		}
	default:
		return nil, errs.New(errs.CodeInvalidOperator,
			"`"+op.String()+"` is not defined on "+kindName(a), errs.FromLocation(loc))
	}
}

func numberOp(op token.Op, x, y float64, loc token.Location) (value.Value, error) {
	switch op {
	case token.OpAdd:
		return value.Number{Value: x + y}, nil
	case token.OpSub:
		return value.Number{Value: x - y}, nil
	case token.OpMul:
		return value.Number{Value: x * y}, nil
	case token.OpDiv:
		if y == 0 {
			return nil, errs.New(errs.CodeGeneric, "division by zero", errs.FromLocation(loc))
		}
		return value.Number{Value: x / y}, nil
	case token.OpMod:
		if y == 0 {
			return nil, errs.New(errs.CodeGeneric, "division by zero", errs.FromLocation(loc))
		}
		return value.Number{Value: math.Mod(x, y)}, nil
	case token.OpGT:
		return value.Boolean{Value: x > y}, nil
	case token.OpGTE:
		return value.Boolean{Value: x >= y}, nil
	case token.OpLT:
		return value.Boolean{Value: x < y}, nil
	case token.OpLTE:
		return value.Boolean{Value: x <= y}, nil
	default:
		return nil, errs.New(errs.CodeInvalidOperator,
			"`"+op.String()+"` is not defined on numbers", errs.FromLocation(loc))
	}
}

func stringCompare(op token.Op, x, y string) value.Value {
	switch op {
	case token.OpGT:
		return value.Boolean{Value: x > y}
	case token.OpGTE:
		return value.Boolean{Value: x >= y}
	case token.OpLT:
		return value.Boolean{Value: x < y}
	default:
		return value.Boolean{Value: x <= y}
	}
}

func kindName(v value.Value) string {
	return v.Kind().String()
}
