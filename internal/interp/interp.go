// Package interp implements PatPat's tree-walk evaluator: a stack of
// Context frames, a push/pop expression machine, pattern/function call
// dispatch (including the dangling-closure guard over requiredCtx), and
// the built-in control-flow patterns.
//
// Pattern/struct declarations are hoisted in a scope's first pass and
// their bodies resolved in a second, mirrored here at evaluation time as
// well as at resolution time, over PatPat's flatter value model (no
// numeric tower, no type inference).
package interp

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/patpat-lang/patpat/internal/ast"
	"github.com/patpat-lang/patpat/internal/errs"
	"github.com/patpat-lang/patpat/internal/resolve"
	"github.com/patpat-lang/patpat/internal/token"
	"github.com/patpat-lang/patpat/internal/value"
)

// Host is the embedder seam for #println/#test_log output, kept separate
// from the Interp so a CLI and a test harness can each supply their own
// sink.
type Host interface {
	Println(s string)
	TestLog(s string)
}

type cell struct {
	id  uuid.UUID
	val value.Value
}

// Frame is PatPat's Context: one activation of a lexical
// scope. Its ID is fresh per activation so the dangling-closure guard can
// tell two activations of the same static scope apart.
type Frame struct {
	ID       uuid.UUID
	Depth    int
	Vars     map[string]*cell
	Patterns map[string]*value.Function
	Structs  map[string]*value.Struct
	LastVal  value.Value
}

func newFrame(depth int) *Frame {
	return &Frame{
		ID:       uuid.New(),
		Depth:    depth,
		Vars:     map[string]*cell{},
		Patterns: map[string]*value.Function{},
		Structs:  map[string]*value.Struct{},
		LastVal:  value.NilValue,
	}
}

// Interp is one evaluation session: a resolution table and a live stack of
// Frames. It is not safe for concurrent use (single-threaded by
// contract).
type Interp struct {
	Table *resolve.Table
	Host  Host
	Stack []*Frame
}

func New(t *resolve.Table, host Host) *Interp {
	return &Interp{Table: t, Host: host}
}

// Run evaluates a whole file's AST in a fresh global frame at depth 0.
func (ip *Interp) Run(file *ast.AST) (value.Value, error) {
	return ip.evalBody(file, 0)
}

func (ip *Interp) push(depth int) *Frame {
	f := newFrame(depth)
	ip.Stack = append(ip.Stack, f)
	return f
}

func (ip *Interp) pop() {
	ip.Stack = ip.Stack[:len(ip.Stack)-1]
}

func (ip *Interp) top() *Frame {
	return ip.Stack[len(ip.Stack)-1]
}

// lookupVar walks the live stack innermost-to-outermost, mirroring the
// resolver's own upward lookup. A function body may only
// read a #with-copied local or a #ref-permitted outer name; the latter
// resolves correctly here precisely because callFunction's dangling-closure
// guard (invariant 4) only lets the call proceed while that outer frame is
// still genuinely live on this same stack.
func (ip *Interp) lookupVar(name string) (*cell, bool) {
	for i := len(ip.Stack) - 1; i >= 0; i-- {
		if c, ok := ip.Stack[i].Vars[name]; ok {
			return c, true
		}
	}
	return nil, false
}

func (ip *Interp) lookupPattern(name string) (*value.Function, bool) {
	for i := len(ip.Stack) - 1; i >= 0; i-- {
		if f, ok := ip.Stack[i].Patterns[name]; ok {
			return f, true
		}
	}
	return nil, false
}

func (ip *Interp) lookupStruct(name string) (*value.Struct, bool) {
	for i := len(ip.Stack) - 1; i >= 0; i-- {
		if s, ok := ip.Stack[i].Structs[name]; ok {
			return s, true
		}
	}
	return nil, false
}

// evalBody runs one AST scope's two evaluation passes (materialize
// patterns/structs, then execute instructions in order) in a fresh frame
// at depth, and returns the scope's value: a Tuple of
// per-instruction results for Tuple/ArgTuple scopes, else the last value.
func (ip *Interp) evalBody(body *ast.AST, depth int) (value.Value, error) {
	f := ip.push(depth)
	defer ip.pop()
	return ip.runBodyInFrame(body, f)
}

// runBodyInFrame runs body's two evaluation passes (materialize
// patterns/structs/interpretations, then execute instructions in order) in
// an already-pushed frame. Split out from evalBody so callFunction and the
// `->` cast dispatch can pre-populate a frame's prologue bindings (args,
// closure, self, lhs) before its body runs in the very same scope.
func (ip *Interp) runBodyInFrame(body *ast.AST, f *Frame) (value.Value, error) {
	for _, instr := range body.Instructions {
		if sd, ok := instr.Node.(*ast.StructDecl); ok {
			s, err := ip.makeStruct(sd)
			if err != nil {
				return nil, err
			}
			f.Structs[sd.Name] = s
		}
	}
	for _, instr := range body.Instructions {
		switch n := instr.Node.(type) {
		case *ast.PatternDecl:
			f.Patterns[n.Name] = ip.makeFunction(n.Function)
		case *ast.Interpretation:
			if err := ip.attachInterpretation(n); err != nil {
				return nil, err
			}
		}
	}

	var results []value.Value
	for _, instr := range body.Instructions {
		v, err := ip.eval(instr.Node)
		if err != nil {
			return nil, err
		}
		f.LastVal = v
		if body.Kind == ast.KindTuple || body.Kind == ast.KindArgTuple {
			results = append(results, v)
		}
	}

	if body.Kind == ast.KindTuple || body.Kind == ast.KindArgTuple {
		return value.Tuple{Elems: results}, nil
	}
	return f.LastVal, nil
}

// attachInterpretation wires a `From -> To: { ... }` declaration into its
// From struct's interpretation table. Hoisted alongside
// patterns so a cast earlier in a scope's source order can still find an
// interpretation declared later in the same scope.
func (ip *Interp) attachInterpretation(n *ast.Interpretation) error {
	from, ok := ip.lookupStruct(n.From)
	if !ok {
		return runtimeErr(n.Location, "unknown struct %q in interpretation", n.From)
	}
	to, ok := ip.lookupStruct(n.To)
	if !ok {
		return runtimeErr(n.Location, "unknown struct %q in interpretation", n.To)
	}
	from.Interpretations[n.To] = &value.Interpretation{To: to, Body: n.Body}
	return nil
}

// makeFunction materializes a Function value: closure bindings are
// evaluated now (invariant 3), and if the definition has a requiredCtx,
// the currently-live frame at its static depth is recorded by identity so
// a later call can detect that scope having gone out of scope.
func (ip *Interp) makeFunction(def *ast.Function) *value.Function {
	fn := &value.Function{Def: def, Closure: map[string]value.Value{}}
	for _, cb := range def.Closure {
		if cb.Value != nil {
			v, err := ip.eval(cb.Value)
			if err != nil {
				v = value.NilValue
			}
			fn.Closure[cb.Name] = v
		} else if c, ok := ip.lookupVar(cb.Name); ok {
			fn.Closure[cb.Name] = c.val
		} else {
			fn.Closure[cb.Name] = value.NilValue
		}
	}
	if req := ip.Table.FuncReq[def]; req != nil {
		fn.ReqCtx = req
		if req.Depth < len(ip.Stack) {
			fn.ReqFrameID = ip.Stack[req.Depth].ID
		}
	}
	return fn
}

func (ip *Interp) makeStruct(decl *ast.StructDecl) (*value.Struct, error) {
	s := &value.Struct{
		ID:              uuid.New(),
		Name:            decl.Name,
		Methods:         map[string]*value.Function{},
		Interpretations: map[string]*value.Interpretation{},
	}
	for _, instr := range decl.Body.Instructions {
		switch n := instr.Node.(type) {
		case *ast.PatternDecl:
			s.Methods[n.Name] = ip.makeFunction(n.Function)
		case *ast.VariableDecl:
			s.VarNames = append(s.VarNames, n.Name)
		case *ast.VariableInit:
			s.VarNames = append(s.VarNames, n.Name)
		}
	}
	return s, nil
}

// runtimeErr reports an evaluation-time failure that has no dedicated error
// code (wrong builtin arguments, a failed cast, member access or method
// lookup, an uncallable value) as a generic code-1 diagnostic.
func runtimeErr(loc token.Location, format string, args ...interface{}) error {
	return errs.New(errs.CodeGeneric, fmt.Sprintf(format, args...), errs.FromLocation(loc))
}
