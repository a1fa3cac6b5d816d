// Package resolve implements PatPat's name resolution pass: it turns the
// bare Symbol/Pattern/TypeName references the AST constructor left as
// strings into resolved references carrying a declaring-scope depth and a
// stable identity, and computes each Function's requiredCtx (the deepest
// enclosing-scope symbol its body depends on) so the evaluator can detect a
// dangling closure at call time instead of silently reading stale state.
//
// Scopes hoist declarations in a first pass, then resolve instruction
// bodies in a second, so forward/mutual references among patterns and
// structs declared at the same level resolve correctly. Identity is
// tracked with github.com/google/uuid rather than a true ULID.
package resolve

import (
	"github.com/google/uuid"

	"github.com/patpat-lang/patpat/internal/ast"
	"github.com/patpat-lang/patpat/internal/errs"
	"github.com/patpat-lang/patpat/internal/token"
)

// RefKind tags what a Ref points at.
type RefKind int

const (
	RefSymbol RefKind = iota
	RefPattern
	RefStruct
)

// Ref is a resolved reference: the kind of thing named, the depth of the
// scope that declared it, and a unique identity stable across the symbol's
// lifetime (RSymRef/RPatRef/RStructRef).
type Ref struct {
	Kind  RefKind
	Name  string
	Depth int
	ID    uuid.UUID
}

type binding struct {
	ref     Ref
	declLoc token.Location
}

// Scope is one lexical level: function bodies, blocks, tuples, structs and
// the file root each get one. Variables populate incrementally as `let`
// instructions are reached; patterns and structs are hoisted up front so
// mutual/forward reference among declarations at the same level works.
type Scope struct {
	parent   *Scope
	depth    int
	symbols  map[string]*binding
	patterns map[string]*binding
	structs  map[string]*binding
}

func newScope(parent *Scope) *Scope {
	d := 0
	if parent != nil {
		d = parent.depth + 1
	}
	return &Scope{
		parent:   parent,
		depth:    d,
		symbols:  map[string]*binding{},
		patterns: map[string]*binding{},
		structs:  map[string]*binding{},
	}
}

func (s *Scope) declareLocal(name string, loc token.Location) (*binding, error) {
	if existing, ok := s.symbols[name]; ok {
		return nil, errs.New(errs.CodeDeclTermLo, "`"+name+"` is already declared in this scope", errs.FromLocation(loc)).
			WithInfo("previously declared here", errs.FromLocation(existing.declLoc))
	}
	b := &binding{ref: Ref{Kind: RefSymbol, Name: name, Depth: s.depth, ID: uuid.New()}, declLoc: loc}
	s.symbols[name] = b
	return b, nil
}

func (s *Scope) declarePattern(name string, loc token.Location) (*binding, error) {
	if existing, ok := s.patterns[name]; ok {
		return nil, errs.New(errs.CodeDeclTermLo, "pattern `"+name+"` is already declared in this scope", errs.FromLocation(loc)).
			WithInfo("previously declared here", errs.FromLocation(existing.declLoc))
	}
	b := &binding{ref: Ref{Kind: RefPattern, Name: name, Depth: s.depth, ID: uuid.New()}, declLoc: loc}
	s.patterns[name] = b
	return b, nil
}

func (s *Scope) declareStruct(name string, loc token.Location) (*binding, error) {
	if existing, ok := s.structs[name]; ok {
		return nil, errs.New(errs.CodeDeclTermLo, "struct `"+name+"` is already declared in this scope", errs.FromLocation(loc)).
			WithInfo("previously declared here", errs.FromLocation(existing.declLoc))
	}
	b := &binding{ref: Ref{Kind: RefStruct, Name: name, Depth: s.depth, ID: uuid.New()}, declLoc: loc}
	s.structs[name] = b
	return b, nil
}

func (s *Scope) lookupSymbol(name string) (*binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.symbols[name]; ok {
			return b, true
		}
	}
	return nil, false
}

func (s *Scope) lookupPattern(name string) (*binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.patterns[name]; ok {
			return b, true
		}
	}
	return nil, false
}

func (s *Scope) lookupStruct(name string) (*binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.structs[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// FuncScope records the identities the evaluator needs to seed a
// Function's prologue frame: one Ref per formal argument (parallel to
// Def.Args), plus optional self/lhs bindings.
type FuncScope struct {
	ArgRefs []Ref
	SelfRef *Ref
	LhsRef  *Ref
	Depth   int
}

// Table is the resolver's output: every resolved reference, keyed by the
// identity of the AST node that made it, plus each Function's computed
// requiredCtx and prologue scope identities.
type Table struct {
	Refs      map[ast.Node]Ref
	FuncReq   map[*ast.Function]*Ref
	FuncScope map[*ast.Function]*FuncScope
}

func newTable() *Table {
	return &Table{
		Refs:      map[ast.Node]Ref{},
		FuncReq:   map[*ast.Function]*Ref{},
		FuncScope: map[*ast.Function]*FuncScope{},
	}
}

// Resolve walks a whole file's AST and produces its resolution Table.
func Resolve(file *ast.AST) (*Table, error) {
	t := newTable()
	global := newScope(nil)
	if err := resolveBody(file, global, t, nil); err != nil {
		return nil, err
	}
	return t, nil
}

// resolveBody hoists this level's pattern/struct declarations, then
// resolves every instruction in source order, letting `let` instructions
// grow the scope's variable set as they're reached. fn, when non-nil,
// is the innermost enclosing Function being resolved — used to record
// free-variable references for requiredCtx computation.
func resolveBody(body *ast.AST, scope *Scope, t *Table, fn *funcCtx) error {
	for _, instr := range body.Instructions {
		switch n := instr.Node.(type) {
		case *ast.PatternDecl:
			if _, err := scope.declarePattern(n.Name, instr.Loc); err != nil {
				return err
			}
		case *ast.StructDecl:
			if _, err := scope.declareStruct(n.Name, instr.Loc); err != nil {
				return err
			}
		}
	}
	for _, instr := range body.Instructions {
		if err := resolveNode(instr.Node, scope, t, fn); err != nil {
			return err
		}
	}
	return nil
}

// funcCtx tracks the innermost Function currently being resolved, so free
// references into its enclosing scopes can be collected for requiredCtx.
type funcCtx struct {
	fn         *ast.Function
	scopeDepth int // depth of the function's own prologue scope
	exempt     map[string]bool
	deepest    *Ref
}

// checkOuterRef enforces the rule that a function body may only reference a
// symbol from an enclosing scope if that name was declared local to the
// function (args, #with bindings — already excluded by the depth check) or
// explicitly permitted with #ref(name). Permitted outer references are
// tracked so requiredCtx can record the deepest one for the evaluator's
// dangling-closure guard (invariant 4).
func (fc *funcCtx) checkOuterRef(ref Ref, loc token.Location) error {
	if fc == nil {
		return nil
	}
	if ref.Depth >= fc.scopeDepth {
		return nil // local to the function
	}
	if !fc.exempt[ref.Name] {
		return errs.New(errs.CodeMissingWithRef,
			"`"+ref.Name+"` is declared in an outer scope; capture it with #with("+ref.Name+") or permit live access with #ref("+ref.Name+")",
			errs.FromLocation(loc))
	}
	if fc.deepest == nil || ref.Depth > fc.deepest.Depth {
		r := ref
		fc.deepest = &r
	}
	return nil
}

func resolveNode(n ast.Node, scope *Scope, t *Table, fn *funcCtx) error {
	switch v := n.(type) {
	case *ast.PatternDecl:
		return resolveFunction(v.Function, scope, t)
	case *ast.StructDecl:
		return resolveBody(v.Body, newScope(scope), t, nil)
	case *ast.Interpretation:
		return resolveBody(v.Body, newScope(scope), t, nil)
	case *ast.Function:
		return resolveFunction(v, scope, t)
	case *ast.PatternCall:
		// Pattern references are RPatRef, not RSymRef:
		// #with/#ref govern captured *variable* state, not lookup of a
		// named pattern, which the evaluator resolves the same way at
		// every depth regardless of which scope currently encloses it.
		b, ok := scope.lookupPattern(v.Name)
		if !ok && !isBuiltinPattern(v.Name) {
			return errs.New(errs.CodeUnknownPattern, "unknown pattern `"+v.Name+"`", errs.FromLocation(v.Location))
		}
		if ok {
			t.Refs[n] = b.ref
		}
		return resolveNode(v.Args, scope, t, fn)
	case *ast.MethodCall:
		if err := resolveNode(v.Target, scope, t, fn); err != nil {
			return err
		}
		return resolveNode(v.Args, scope, t, fn)
	case *ast.Member:
		return resolveNode(v.Target, scope, t, fn)
	case *ast.DirectCall:
		if err := resolveNode(v.Target, scope, t, fn); err != nil {
			return err
		}
		return resolveNode(v.Args, scope, t, fn)
	case *ast.PatternRef:
		b, ok := scope.lookupPattern(v.Name)
		if !ok && !isBuiltinPattern(v.Name) {
			return errs.New(errs.CodeUnknownPattern, "unknown pattern `"+v.Name+"`", errs.FromLocation(v.Location))
		}
		if ok {
			t.Refs[n] = b.ref
		}
		return nil
	case *ast.Variable:
		b, ok := scope.lookupSymbol(v.Name)
		if !ok {
			return errs.New(errs.CodeUnknownVariable, "unknown variable `"+v.Name+"`", errs.FromLocation(v.Location))
		}
		t.Refs[n] = b.ref
		return fn.checkOuterRef(b.ref, v.Location)
	case *ast.TypedVariable:
		b, ok := scope.lookupSymbol(v.Name)
		if !ok {
			return errs.New(errs.CodeUnknownVariable, "unknown variable `"+v.Name+"`", errs.FromLocation(v.Location))
		}
		t.Refs[n] = b.ref
		return fn.checkOuterRef(b.ref, v.Location)
	case *ast.TypeNameRef:
		if b, ok := scope.lookupStruct(v.Name); ok {
			t.Refs[n] = b.ref
		}
		return nil
	case *ast.VariableDecl:
		b, err := scope.declareLocal(v.Name, v.Location)
		if err != nil {
			return err
		}
		t.Refs[n] = b.ref
		return nil
	case *ast.VariableInit:
		if err := resolveNode(v.Expr, scope, t, fn); err != nil {
			return err
		}
		b, err := scope.declareLocal(v.Name, v.Location)
		if err != nil {
			return err
		}
		t.Refs[n] = b.ref
		return nil
	case *ast.VariableDef:
		b, ok := scope.lookupSymbol(v.Name)
		if !ok {
			return errs.New(errs.CodeUnknownVariable, "unknown variable `"+v.Name+"`", errs.FromLocation(v.Location))
		}
		t.Refs[n] = b.ref
		if err := fn.checkOuterRef(b.ref, v.Location); err != nil {
			return err
		}
		return resolveNode(v.Expr, scope, t, fn)
	case *ast.ComplexDef:
		if err := resolveNode(v.Target, scope, t, fn); err != nil {
			return err
		}
		if v.Member.Kind == ast.DefineTuple && v.Member.Node != nil {
			if err := resolveNode(v.Member.Node, scope, t, fn); err != nil {
				return err
			}
		}
		return resolveNode(v.Value, scope, t, fn)
	case *ast.Cast:
		return resolveNode(v.Value, scope, t, fn)
	case *ast.PartialApply:
		return resolveNode(v.Value, scope, t, fn)
	case *ast.TupleNode:
		return resolveBody(v.Body, newScope(scope), t, fn)
	case *ast.BlockNode:
		return resolveBody(v.Body, newScope(scope), t, fn)
	case *ast.Expression:
		for _, term := range v.Terms {
			if term.Push != nil {
				if err := resolveNode(term.Push, scope, t, fn); err != nil {
					return err
				}
			}
		}
		return nil
	case *ast.BooleanLit, *ast.NumberLit, *ast.StringLit, *ast.NilNode, *ast.VoidSymbolNode:
		return nil
	default:
		return nil
	}
}

// resolveFunction resolves a Function's own argument tuple and body in a
// fresh child scope, then computes its requiredCtx from the free
// references its body made into enclosing scopes.
func resolveFunction(f *ast.Function, outer *Scope, t *Table) error {
	fnScope := newScope(outer)
	exempt := map[string]bool{}
	for _, name := range f.RefNames {
		exempt[name] = true
	}

	fs := &FuncScope{Depth: fnScope.depth}

	for _, arg := range f.Args {
		b, err := fnScope.declareLocal(arg.Name, f.Location)
		if err != nil {
			return err
		}
		fs.ArgRefs = append(fs.ArgRefs, b.ref)
	}
	if f.HasSelf || f.HasNew {
		b, err := fnScope.declareLocal("self", f.Location)
		if err != nil {
			return err
		}
		fs.SelfRef = &b.ref
	}
	if f.HasLhs {
		b, err := fnScope.declareLocal("lhs", f.Location)
		if err != nil {
			return err
		}
		fs.LhsRef = &b.ref
	}
	for _, cb := range f.Closure {
		if cb.Value != nil {
			if err := resolveNode(cb.Value, outer, t, nil); err != nil {
				return err
			}
		}
		if _, err := fnScope.declareLocal(cb.Name, f.Location); err != nil {
			return err
		}
	}
	t.FuncScope[f] = fs

	fc := &funcCtx{fn: f, scopeDepth: fnScope.depth, exempt: exempt}
	if err := resolveBody(f.Body, fnScope, t, fc); err != nil {
		return err
	}
	t.FuncReq[f] = fc.deepest
	return nil
}

// isBuiltinPattern reports whether name is one of PatPat's native control-
// flow patterns, which are always in scope and never go through
// declarePattern.
func isBuiltinPattern(name string) bool {
	switch name {
	case "#if", "#else", "#elseif", "#for", "#loop", "#do", "#bail", "#unbail",
		"#push", "#pop", "#first", "#last", "#println", "#test_log":
		return true
	default:
		return false
	}
}
