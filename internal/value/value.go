// Package value implements PatPat's runtime value model: a tagged union
// with per-type operator semantics, tuple lifting, and the "never equal"
// idiosyncrasy for instances and functions, over a closed set of concrete
// structs: String/Number/Boolean/Nil/Bail/Tuple/Function/Type/Instance.
package value

import (
	"strconv"
	"strings"
)

// Kind tags a Value's dynamic type.
type Kind int

const (
	KindNil Kind = iota
	KindString
	KindNumber
	KindBoolean
	KindBail
	KindTuple
	KindFunction
	KindType
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "Nil"
	case KindString:
		return "String"
	case KindNumber:
		return "Number"
	case KindBoolean:
		return "Boolean"
	case KindBail:
		return "Bail"
	case KindTuple:
		return "Tuple"
	case KindFunction:
		return "Function"
	case KindType:
		return "Type"
	case KindInstance:
		return "Instance"
	default:
		return "?"
	}
}

// Value is any runtime value. Display is the human-facing form used by
// #println; Debug is the richer form used by #test_log.
type Value interface {
	Kind() Kind
	Display() string
	Debug() string
}

// Nil is PatPat's unit/absent value.
type Nil struct{}

func (Nil) Kind() Kind      { return KindNil }
func (Nil) Display() string { return "nil" }
func (Nil) Debug() string   { return "Nil" }

// NilValue is the single shared Nil instance.
var NilValue Value = Nil{}

type String struct{ Value string }

func (s String) Kind() Kind      { return KindString }
func (s String) Display() string { return s.Value }
func (s String) Debug() string   { return strconv.Quote(s.Value) }

type Number struct{ Value float64 }

func (n Number) Kind() Kind { return KindNumber }
func (n Number) Display() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}
func (n Number) Debug() string { return n.Display() }

type Boolean struct{ Value bool }

func (b Boolean) Kind() Kind      { return KindBoolean }
func (b Boolean) Display() string { return strconv.FormatBool(b.Value) }
func (b Boolean) Debug() string   { return b.Display() }

// Bail is the control-flow sentinel #if/#bail/#loop produce and propagate.
type Bail struct{}

func (Bail) Kind() Kind      { return KindBail }
func (Bail) Display() string { return "<bail>" }
func (Bail) Debug() string   { return "Bail" }

// BailValue is the single shared Bail instance.
var BailValue Value = Bail{}

type Tuple struct{ Elems []Value }

func (t Tuple) Kind() Kind { return KindTuple }
func (t Tuple) Display() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.Display()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t Tuple) Debug() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.Debug()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// HasBailed reports whether v is Bail, or a Tuple whose first element is
// Bail (the "has-bailed" rule).
func HasBailed(v Value) bool {
	if _, ok := v.(Bail); ok {
		return true
	}
	if t, ok := v.(Tuple); ok && len(t.Elems) > 0 {
		_, ok := t.Elems[0].(Bail)
		return ok
	}
	return false
}

// Truthy implements PatPat's truthiness rule.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case Number:
		return x.Value != 0
	case Boolean:
		return x.Value
	case String:
		return len(x.Value) > 0
	case Nil:
		return false
	default:
		return true
	}
}

// Equal implements structural equality: primitives and tuples compare
// structurally; instances and functions never compare equal, even to
// themselves.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case String:
		y, ok := b.(String)
		return ok && x.Value == y.Value
	case Number:
		y, ok := b.(Number)
		return ok && x.Value == y.Value
	case Boolean:
		y, ok := b.(Boolean)
		return ok && x.Value == y.Value
	case Bail:
		_, ok := b.(Bail)
		return ok
	case Tuple:
		y, ok := b.(Tuple)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !Equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case *Type:
		y, ok := b.(*Type)
		return ok && equalTypes(x, y)
	default:
		return false
	}
}

// equalTypes compares two Type values by struct identity (a
// struct's `==` compares its ID, unlike Instance/Function which never
// compare equal).
func equalTypes(a, b *Type) bool {
	return a.Struct.ID == b.Struct.ID
}
