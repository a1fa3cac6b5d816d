package value

import (
	"github.com/google/uuid"

	"github.com/patpat-lang/patpat/internal/ast"
	"github.com/patpat-lang/patpat/internal/resolve"
	"github.com/patpat-lang/patpat/internal/token"
)

// Struct is PatPat's RStruct: an identity (compared by ID, not
// structure), its declared methods, its declared variable names (for the
// subtype/convertible relations), and its user-defined interpretations
// keyed by target struct name.
type Struct struct {
	ID              uuid.UUID
	Name            string
	Methods         map[string]*Function
	VarNames        []string
	Interpretations map[string]*Interpretation
}

// Interpretation is one `From -> To: { body }` conversion attached to the
// From struct.
type Interpretation struct {
	To   *Struct
	Body *ast.AST
}

// HasAllPatterns reports whether s declares every pattern name other declares.
func (s *Struct) HasAllPatterns(other *Struct) bool {
	for name := range other.Methods {
		if _, ok := s.Methods[name]; !ok {
			return false
		}
	}
	return true
}

// HasAllVars reports whether s declares every variable name other declares.
func (s *Struct) HasAllVars(other *Struct) bool {
	have := map[string]bool{}
	for _, n := range s.VarNames {
		have[n] = true
	}
	for _, n := range other.VarNames {
		if !have[n] {
			return false
		}
	}
	return true
}

// IsSubtypeOf reports whether s is a subtype of other: s has at least all
// of other's patterns and variables.
func (s *Struct) IsSubtypeOf(other *Struct) bool {
	return s.HasAllPatterns(other) && s.HasAllVars(other)
}

// IsConvertibleTo reports whether s has all of other's variable names.
func (s *Struct) IsConvertibleTo(other *Struct) bool {
	return s.HasAllVars(other)
}

// Type is a first-class reference to a Struct definition (the value a
// TypeName expression evaluates to).
type Type struct{ Struct *Struct }

func (t *Type) Kind() Kind      { return KindType }
func (t *Type) Display() string { return t.Struct.Name }
func (t *Type) Debug() string   { return "Type(" + t.Struct.Name + ")" }

// Instance is a live struct instance: a mutable, shared field map. It is a
// pointer value so that `obj.x: v` through any handle is visible through
// every other handle to the same instance.
type Instance struct {
	Struct *Struct
	Fields map[string]Value
}

func NewInstance(s *Struct) *Instance {
	return &Instance{Struct: s, Fields: map[string]Value{}}
}

func (i *Instance) Kind() Kind      { return KindInstance }
func (i *Instance) Display() string { return i.Struct.Name + " instance" }
func (i *Instance) Debug() string   { return i.Struct.Name + "{...}" }

// GetMethod looks a pattern name up among s's methods.
func (s *Struct) GetMethod(name string) (*Function, bool) {
	m, ok := s.Methods[name]
	return m, ok
}

// FindInterpretation locates the conversion from s to a struct matching to.
func (s *Struct) FindInterpretation(to *Struct) (*Interpretation, bool) {
	interp, ok := s.Interpretations[to.Name]
	if !ok || interp.To != to {
		return nil, false
	}
	return interp, true
}

// Function is a callable PatPat value: a resolved Function AST plus the
// already-materialized closure values it captured (invariant 3) and its
// computed requiredCtx (invariant 4), used by the evaluator's dangling-
// closure guard.
type Function struct {
	Def     *ast.Function
	ReqCtx  *resolve.Ref
	// ReqFrameID is the identity of the live scope activation at
	// ReqCtx.Depth when this Function value was materialized, used by the
	// evaluator's dangling-closure guard.
	ReqFrameID uuid.UUID
	Closure    map[string]Value

	// CompositeOp/CompositeFns represent a `&&`/`||` chain whose operands
	// are themselves functions (the composite-function rewrite):
	// calling it calls CompositeFns[0], then short-circuits or calls
	// CompositeFns[1] depending on CompositeOp. Def is nil for these.
	CompositeOp  token.Op
	CompositeFns []*Function
}

func (f *Function) Kind() Kind      { return KindFunction }
func (f *Function) Display() string { return "<function>" }
func (f *Function) Debug() string   { return "<function>" }
