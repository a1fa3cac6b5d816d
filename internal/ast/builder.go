package ast

import (
	"github.com/patpat-lang/patpat/internal/errs"
	"github.com/patpat-lang/patpat/internal/token"
)

// Build constructs the AST for a whole file: the token tree's root becomes
// an AST of kind File.
func Build(tree *token.Tree) (*AST, error) {
	return buildFrom(tree.Nodes, KindFile)
}

type cursor struct {
	nodes []token.Node
	pos   int
}

func (c *cursor) atEnd() bool { return c.pos >= len(c.nodes) }

// peek returns the node `off` slots ahead of the cursor, or ok=false past
// the end.
func (c *cursor) peek(off int) (token.Node, bool) {
	i := c.pos + off
	if i < 0 || i >= len(c.nodes) {
		return token.Node{}, false
	}
	return c.nodes[i], true
}

func (c *cursor) advance() { c.pos++ }

func buildFrom(nodes []token.Node, kind Kind) (*AST, error) {
	c := &cursor{nodes: nodes}
	out := &AST{Kind: kind}
	for !c.atEnd() {
		startPos := c.pos
		node, loc, err := parseExpr(c)
		if err != nil {
			return nil, err
		}
		if c.pos == startPos {
			// Safety valve: a recognizer matched nothing and consumed
			// nothing. Should be unreachable given parseExpr's contract.
			return nil, errs.New(errs.CodeUnrecognizedTerm, "unrecognized term", errs.FromLocation(loc))
		}
		if err := validateTerm(kind, node); err != nil {
			return nil, err
		}
		out.Instructions = append(out.Instructions, Instr{Node: node, Loc: loc})

		if err := checkSeparation(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkSeparation implements the instruction-separation rule: the
// next token must either be a Separator, or be on a new source line; an
// explicit separator is always accepted and consumed.
func checkSeparation(c *cursor) error {
	if c.atEnd() {
		return nil
	}
	prev, _ := c.peek(-1)
	next, _ := c.peek(0)
	if next.Tok.Kind == token.Separator {
		c.advance()
		return nil
	}
	if next.Loc.Line != prev.Loc.Line {
		return nil
	}
	return errs.New(15, "expected a separator or a new line between instructions", errs.FromLocation(next.Loc))
}

// termClass classifies a Node (via classify) for the term-validity tables.
type termClass int

const (
	classExprTerm termClass = iota // valid wherever "expression term" is valid
	classDecl                      // PatternDecl, Interpretation, VariableDecl, VariableInit
	classStruct                    // StructDecl
)

func classify(n Node) termClass {
	switch n.(type) {
	case *PatternDecl, *Interpretation, *VariableDecl, *VariableInit:
		return classDecl
	case *StructDecl:
		return classStruct
	default:
		return classExprTerm
	}
}

// validateTerm enforces the per-kind term-validity table.
func validateTerm(kind Kind, n Node) error {
	c := classify(n)
	switch kind {
	case KindTuple:
		if c != classExprTerm {
			return errs.New(errs.CodeKindTermMismatchLo, "this term is not valid inside a tuple", errs.FromLocation(n.Loc()))
		}
	case KindArgTuple:
		switch n.(type) {
		case *Variable, *TypedVariable, *PatternCall, *VoidSymbolNode, *Expression:
		default:
			return errs.New(errs.CodeKindTermMismatchLo+1, "this term is not valid inside an argument tuple", errs.FromLocation(n.Loc()))
		}
	case KindBlock:
		if c == classStruct {
			return errs.New(errs.CodeKindTermMismatchLo+2, "a struct declaration cannot appear inside a block", errs.FromLocation(n.Loc()))
		}
	case KindFile:
		// expression term ∪ decl ∪ {Struct}: everything is permitted at
		// file scope.
	case KindStruct:
		if c != classDecl {
			return errs.New(errs.CodeKindTermMismatchLo+4, "only pattern and variable declarations are valid inside a struct body", errs.FromLocation(n.Loc()))
		}
	}
	return nil
}

// parseTerm recognizes a single non-expression term. It is the building
// block the expression constructor calls for each operand.
func parseTerm(c *cursor) (Node, token.Location, error) {
	// 2. Pattern declaration: Pattern Define Tuple Arrow Block
	if n, ok := tryPatternDecl(c); ok {
		return n, n.Loc(), nil
	}
	// 3. Pattern call: Pattern Tuple
	if n, ok := tryPatternCall(c); ok {
		return n, n.Loc(), nil
	}
	// 4. Standalone function: Tuple Arrow Block
	if n, ok := tryFunction(c); ok {
		return n, n.Loc(), nil
	}
	// 5. Standalone pattern reference
	if n, ok, err := tryPatternRef(c); err != nil {
		return nil, token.Location{}, err
	} else if ok {
		return n, n.Loc(), nil
	}
	// Interpretation definition: TypeName -> TypeName : Block (tried before
	// struct declaration; both start with a TypeName but diverge on the
	// second token).
	if n, ok, err := tryInterpretation(c); err != nil {
		return nil, token.Location{}, err
	} else if ok {
		return n, n.Loc(), nil
	}
	// 6. Struct declaration: TypeName Define Struct Block
	if n, ok, err := tryStructDecl(c); err != nil {
		return nil, token.Location{}, err
	} else if ok {
		return n, n.Loc(), nil
	}
	// 7. Variable definition: Symbol Define <expression>
	if n, ok, err := tryVariableDef(c); err != nil {
		return nil, token.Location{}, err
	} else if ok {
		return n, n.Loc(), nil
	}
	// 8. Variable read
	if n, ok := tryVariableRead(c); ok {
		return n, n.Loc(), nil
	}
	// 9. Variable declaration: let
	if n, ok, err := tryVariableDecl(c); err != nil {
		return nil, token.Location{}, err
	} else if ok {
		return n, n.Loc(), nil
	}
	// 10. Tuple
	if n, ok, err := tryTuple(c); err != nil {
		return nil, token.Location{}, err
	} else if ok {
		return n, n.Loc(), nil
	}
	// 11. Identifier leaves
	if n, ok := tryLeaf(c); ok {
		return n, n.Loc(), nil
	}
	// 12. Block
	if n, ok, err := tryBlock(c); err != nil {
		return nil, token.Location{}, err
	} else if ok {
		return n, n.Loc(), nil
	}

	loc := token.Location{}
	if cur, ok := c.peek(0); ok {
		loc = cur.Loc
	}
	return nil, token.Location{}, errs.New(errs.CodeInvalidExpressionTerm, "expected an expression term", errs.FromLocation(loc))
}

func tryPatternDecl(c *cursor) (*PatternDecl, bool) {
	one, ok1 := c.peek(0)
	two, ok2 := c.peek(1)
	three, ok3 := c.peek(2)
	four, ok4 := c.peek(3)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, false
	}
	if one.Tok.Kind != token.Pattern || two.Tok.Kind != token.Define || three.Tok.Kind != token.Tuple || four.Tok.Kind != token.Arrow {
		return nil, false
	}
	five, ok5 := c.peek(4)
	if !ok5 || five.Tok.Kind != token.Block {
		return nil, false
	}
	c.pos += 5
	fn, err := buildFunction(three.Tok, five.Tok, one.Loc, true)
	if err != nil {
		// A malformed function body after a committed PatternDecl shape is
		// always fatal, and returning false is wrong here since tokens were
		// already consumed. Raise it as a parseFatal panic, which parseExpr
		// recovers and returns as an ordinary error.
		panic(parseFatal{err})
	}
	return &PatternDecl{Location: one.Loc, Name: one.Tok.Text, Function: fn}, true
}

// parseFatal lets a deeply-committed recognizer (one that can no longer
// "decline" once it started consuming tokens) abort parsing with a proper
// *errs.Error instead of plumbing an error return through every try*
// helper's boolean contract.
type parseFatal struct{ err error }

func tryPatternCall(c *cursor) (*PatternCall, bool) {
	one, ok1 := c.peek(0)
	two, ok2 := c.peek(1)
	if !ok1 || !ok2 {
		return nil, false
	}
	if one.Tok.Kind != token.Pattern || two.Tok.Kind != token.Tuple {
		return nil, false
	}
	c.pos += 2
	args := buildTupleArgs(two.Tok, two.Loc)
	return &PatternCall{Location: one.Loc, Name: one.Tok.Text, Args: args}, true
}

func tryFunction(c *cursor) (*Function, bool) {
	one, ok1 := c.peek(0)
	two, ok2 := c.peek(1)
	three, ok3 := c.peek(2)
	if !ok1 || !ok2 || !ok3 {
		return nil, false
	}
	if one.Tok.Kind != token.Tuple || two.Tok.Kind != token.Arrow || three.Tok.Kind != token.Block {
		return nil, false
	}
	c.pos += 3
	fn, err := buildFunction(one.Tok, three.Tok, one.Loc, false)
	if err != nil {
		panic(parseFatal{err})
	}
	return fn, true
}

func tryPatternRef(c *cursor) (*PatternRef, bool, error) {
	one, ok1 := c.peek(0)
	if !ok1 || one.Tok.Kind != token.Pattern {
		return nil, false, nil
	}
	next, ok := c.peek(1)
	if ok {
		k := next.Tok.Kind
		if !(k == token.Separator || k == token.Operator) {
			return nil, false, errs.New(errs.CodeDeclTermHi, "a standalone pattern reference must be followed by a separator or an operator", errs.FromLocation(next.Loc))
		}
	}
	c.advance()
	return &PatternRef{Location: one.Loc, Name: one.Tok.Text}, true, nil
}

func tryStructDecl(c *cursor) (*StructDecl, bool, error) {
	one, ok1 := c.peek(0)
	two, ok2 := c.peek(1)
	three, ok3 := c.peek(2)
	if !ok1 || !ok2 || !ok3 {
		return nil, false, nil
	}
	if one.Tok.Kind != token.TypeName || two.Tok.Kind != token.Define || three.Tok.Kind != token.Struct {
		return nil, false, nil
	}
	four, ok4 := c.peek(3)
	if !ok4 || four.Tok.Kind != token.Block {
		return nil, false, nil
	}
	c.pos += 4
	body, err := buildFrom(four.Tok.Children.Nodes, KindStruct)
	if err != nil {
		return nil, false, err
	}
	return &StructDecl{Location: one.Loc, Name: one.Tok.Text, Body: body}, true, nil
}

func tryVariableDef(c *cursor) (*VariableDef, bool, error) {
	one, ok1 := c.peek(0)
	two, ok2 := c.peek(1)
	if !ok1 || !ok2 || one.Tok.Kind != token.Symbol || two.Tok.Kind != token.Define {
		return nil, false, nil
	}
	c.pos += 2
	expr, _, err := parseExpr(c)
	if err != nil {
		return nil, false, err
	}
	return &VariableDef{Location: one.Loc, Name: one.Tok.Text, Expr: expr}, true, nil
}

func tryVariableRead(c *cursor) (Node, bool) {
	one, ok1 := c.peek(0)
	if !ok1 || one.Tok.Kind != token.Symbol {
		return nil, false
	}
	two, ok2 := c.peek(1)
	if ok2 && two.Tok.Kind == token.Type {
		c.pos += 2
		return &TypedVariable{Location: one.Loc, Name: one.Tok.Text, Type: TypeRef{Name: two.Tok.Text, Strictness: two.Tok.Strict, Location: two.Loc}}, true
	}
	c.advance()
	return &Variable{Location: one.Loc, Name: one.Tok.Text}, true
}

func tryVariableDecl(c *cursor) (Node, bool, error) {
	one, ok1 := c.peek(0)
	if !ok1 || one.Tok.Kind != token.Let {
		return nil, false, nil
	}
	two, ok2 := c.peek(1)
	if !ok2 || two.Tok.Kind != token.Symbol {
		return nil, false, errs.New(16, "expected a symbol after `let`", errs.FromLocation(one.Loc))
	}
	three, ok3 := c.peek(2)
	if ok3 && three.Tok.Kind == token.Define {
		c.pos += 3
		expr, _, err := parseExpr(c)
		if err != nil {
			return nil, false, err
		}
		return &VariableInit{Location: one.Loc, Name: two.Tok.Text, Expr: expr}, true, nil
	}
	c.pos += 2
	return &VariableDecl{Location: one.Loc, Name: two.Tok.Text}, true, nil
}

func tryTuple(c *cursor) (Node, bool, error) {
	one, ok1 := c.peek(0)
	if !ok1 || one.Tok.Kind != token.Tuple {
		return nil, false, nil
	}
	c.advance()
	if len(one.Tok.Children.Nodes) == 0 {
		return &NilNode{Location: one.Loc}, true, nil
	}
	body, err := buildFrom(one.Tok.Children.Nodes, KindTuple)
	if err != nil {
		return nil, false, err
	}
	return &TupleNode{Location: one.Loc, Body: body}, true, nil
}

func tryLeaf(c *cursor) (Node, bool) {
	one, ok1 := c.peek(0)
	if !ok1 {
		return nil, false
	}
	switch one.Tok.Kind {
	case token.Boolean:
		c.advance()
		return &BooleanLit{Location: one.Loc, Value: one.Tok.Bool}, true
	case token.Number:
		c.advance()
		return &NumberLit{Location: one.Loc, Value: one.Tok.Num}, true
	case token.String:
		c.advance()
		return &StringLit{Location: one.Loc, Value: one.Tok.Text}, true
	case token.TypeName:
		c.advance()
		return &TypeNameRef{Location: one.Loc, Name: one.Tok.Text}, true
	case token.VoidSymbol:
		c.advance()
		return &VoidSymbolNode{Location: one.Loc}, true
	default:
		return nil, false
	}
}

func tryBlock(c *cursor) (Node, bool, error) {
	one, ok1 := c.peek(0)
	if !ok1 || one.Tok.Kind != token.Block {
		return nil, false, nil
	}
	c.advance()
	body, err := buildFrom(one.Tok.Children.Nodes, KindBlock)
	if err != nil {
		return nil, false, err
	}
	return &BlockNode{Location: one.Loc, Body: body}, true, nil
}

// buildTupleArgs parses a call's argument tuple as plain Tuple-kind terms
// (arguments are expressions, never argument declarations).
func buildTupleArgs(tok token.Token, loc token.Location) *TupleNode {
	if len(tok.Children.Nodes) == 0 {
		return &TupleNode{Location: loc, Body: &AST{Kind: KindTuple}}
	}
	body, err := buildFrom(tok.Children.Nodes, KindTuple)
	if err != nil {
		panic(parseFatal{err})
	}
	return &TupleNode{Location: loc, Body: body}
}

func buildFunction(tupleTok, blockTok token.Token, loc token.Location, isPattern bool) (*Function, error) {
	argsAST, err := buildFrom(tupleTok.Children.Nodes, KindArgTuple)
	if err != nil {
		return nil, err
	}
	body, err := buildFrom(blockTok.Children.Nodes, KindBlock)
	if err != nil {
		return nil, err
	}

	fn := &Function{Location: loc, Body: body, IsPattern: isPattern}
	seen := map[string]token.Location{}
	for _, instr := range argsAST.Instructions {
		switch n := instr.Node.(type) {
		case *Variable:
			fn.Args = append(fn.Args, FunctionArg{Name: n.Name})
		case *TypedVariable:
			t := n.Type
			fn.Args = append(fn.Args, FunctionArg{Name: n.Name, Type: &t})
		case *PatternCall:
			switch n.Name {
			case "#self":
				if loc2, dup := seen["#self"]; dup {
					return nil, dupFlagErr("#self", loc2, n.Location)
				}
				if !isPattern {
					return nil, errs.New(errs.CodeSelfNewOutsidePattern, "#self() can only be used as a pattern's argument", errs.FromLocation(n.Location))
				}
				fn.HasSelf = true
				seen["#self"] = n.Location
			case "#new":
				if loc2, dup := seen["#new"]; dup {
					return nil, dupFlagErr("#new", loc2, n.Location)
				}
				if !isPattern {
					return nil, errs.New(errs.CodeSelfNewOutsidePattern, "#new() can only be used as a pattern's argument", errs.FromLocation(n.Location))
				}
				fn.HasNew = true
				seen["#new"] = n.Location
			case "#lhs":
				if loc2, dup := seen["#lhs"]; dup {
					return nil, dupFlagErrCode(errs.CodeDuplicateLhs, "#lhs", loc2, n.Location)
				}
				fn.HasLhs = true
				seen["#lhs"] = n.Location
			case "#with":
				binding, err := parseWithBinding(n)
				if err != nil {
					return nil, err
				}
				fn.Closure = append(fn.Closure, binding)
			case "#ref":
				name, err := parseRefName(n)
				if err != nil {
					return nil, err
				}
				fn.RefNames = append(fn.RefNames, name)
			default:
				return nil, errs.New(12, "invalid argument in function definition: unrecognized pattern `"+n.Name+"`", errs.FromLocation(n.Location))
			}
		default:
			return nil, errs.New(12, "invalid argument in function definition", errs.FromLocation(instr.Loc))
		}
	}
	return fn, nil
}

func dupFlagErr(name string, first, second token.Location) error {
	return dupFlagErrCode(errs.CodeDuplicateFlag, name, first, second)
}

func dupFlagErrCode(code int, name string, first, second token.Location) error {
	return errs.New(code, "duplicate flag "+name+" in pattern declaration", errs.FromLocation(second)).
		WithInfo(name+" is used here", errs.FromLocation(first))
}

func parseWithBinding(n *PatternCall) (ClosureBinding, error) {
	instrs := n.Args.Body.Instructions
	if len(instrs) == 0 {
		return ClosureBinding{}, errs.New(12, "#with() requires a name", errs.FromLocation(n.Location))
	}
	nameNode, ok := instrs[0].Node.(*Variable)
	if !ok {
		return ClosureBinding{}, errs.New(12, "#with()'s first argument must be a bare name", errs.FromLocation(instrs[0].Loc))
	}
	b := ClosureBinding{Name: nameNode.Name}
	if len(instrs) > 1 {
		b.Value = instrs[1].Node
	}
	return b, nil
}

func parseRefName(n *PatternCall) (string, error) {
	instrs := n.Args.Body.Instructions
	if len(instrs) != 1 {
		return "", errs.New(12, "#ref() requires exactly one name", errs.FromLocation(n.Location))
	}
	nameNode, ok := instrs[0].Node.(*Variable)
	if !ok {
		return "", errs.New(12, "#ref()'s argument must be a bare name", errs.FromLocation(instrs[0].Loc))
	}
	return nameNode.Name, nil
}

// parseExpr is the entry point shared by top-level instruction parsing and
// every nested sub-expression: it implements the unary/binary shift-machine
// shift-style algorithm, falling back to the bare term when no operator
// participates.
func parseExpr(c *cursor) (n Node, loc token.Location, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pf, ok := r.(parseFatal); ok {
				err = pf.err
				return
			}
			panic(r)
		}
	}()
	return buildExpression(c)
}
