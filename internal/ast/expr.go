package ast

import (
	"github.com/patpat-lang/patpat/internal/errs"
	"github.com/patpat-lang/patpat/internal/token"
)

// buildExpression collects a leading unary-`!` run,
// parse one operand (a term plus any `.`/`->`/`~` postfixes), and if a
// binary operator follows, keep shifting same-kind operator/operand pairs
// onto a flat tape. Mixing two different operator kinds without
// parentheses is a hard error (107) — PatPat has no precedence table.
func buildExpression(c *cursor) (Node, token.Location, error) {
	loc0 := here(c)

	node, nots, err := parseOperand(c)
	if err != nil {
		return nil, loc0, err
	}
	if cd, ok := node.(*ComplexDef); ok {
		return cd, loc0, nil
	}

	one, hasNext := c.peek(0)
	moreOps := hasNext && one.Tok.Kind == token.Operator && !isPostfixOp(one.Tok.OpVal)
	if nots == 0 && !moreOps {
		return node, loc0, nil
	}

	expr := &Expression{Location: loc0}
	expr.Terms = append(expr.Terms, Term{Push: node, Loc: loc0})
	for i := 0; i < nots; i++ {
		expr.Terms = append(expr.Terms, Term{IsOp: true, Op: token.OpNot, Loc: loc0})
	}

	var lastOp token.Op
	haveOp := false
	for {
		opTok, ok := c.peek(0)
		if !ok || opTok.Tok.Kind != token.Operator || isPostfixOp(opTok.Tok.OpVal) {
			break
		}
		op := opTok.Tok.OpVal
		if haveOp && op != lastOp {
			return nil, loc0, errs.New(errs.CodeOperatorMix,
				"cannot mix `"+lastOp.String()+"` and `"+op.String()+"` in the same expression without parentheses",
				errs.FromLocation(opTok.Loc))
		}
		c.advance()
		haveOp = true
		lastOp = op

		if c.atEnd() {
			return nil, loc0, errs.New(errs.CodeMissingTermAfterOp,
				"expected a term after operator `"+op.String()+"`", errs.FromLocation(opTok.Loc))
		}
		rhsLoc := here(c)
		rhs, rhsNots, err := parseOperand(c)
		if err != nil {
			return nil, loc0, err
		}
		expr.Terms = append(expr.Terms, Term{IsOp: true, Op: op, Loc: opTok.Loc})
		expr.Terms = append(expr.Terms, Term{Push: rhs, Loc: rhsLoc})
		for i := 0; i < rhsNots; i++ {
			expr.Terms = append(expr.Terms, Term{IsOp: true, Op: token.OpNot, Loc: rhsLoc})
		}
	}
	return expr, loc0, nil
}

func here(c *cursor) token.Location {
	if n, ok := c.peek(0); ok {
		return n.Loc
	}
	if n, ok := c.peek(-1); ok {
		return n.Loc
	}
	return token.Location{}
}

// isPostfixOp reports whether op binds directly to the preceding operand
// (handled inside parseOperand's postfix chain) rather than chaining at
// expression level.
func isPostfixOp(op token.Op) bool {
	switch op {
	case token.OpMemberAccessor, token.OpInterpretation, token.OpPartialApplication:
		return true
	default:
		return false
	}
}

// parseOperand parses a leading `!` run, a single term, and any trailing
// `.`/`->`/`~` postfixes.
func parseOperand(c *cursor) (Node, int, error) {
	nots := 0
	for {
		one, ok := c.peek(0)
		if !ok || one.Tok.Kind != token.Operator || one.Tok.OpVal != token.OpNot {
			break
		}
		c.advance()
		nots++
	}
	node, _, err := parseTerm(c)
	if err != nil {
		return nil, 0, err
	}
	node, err = applyPostfix(c, node)
	if err != nil {
		return nil, 0, err
	}
	return node, nots, nil
}

// applyPostfix consumes a chain of `.member`, `.'pattern(args)`, `->Type`
// and `~` postfixes. A `.member` immediately followed by `:` is rewritten
// into a ComplexDef (field assignment) and returned directly, since nothing
// may follow an assignment within the same operand.
func applyPostfix(c *cursor, node Node) (Node, error) {
	for {
		one, ok := c.peek(0)
		if !ok || one.Tok.Kind != token.Operator {
			return node, nil
		}
		switch one.Tok.OpVal {
		case token.OpMemberAccessor:
			target := node
			c.advance()
			two, ok2 := c.peek(0)
			if !ok2 {
				return nil, errs.New(errs.CodeMissingTermAfterOp, "expected a member name after `.`", errs.FromLocation(one.Loc))
			}
			switch two.Tok.Kind {
			case token.Pattern:
				three, ok3 := c.peek(1)
				if !ok3 || three.Tok.Kind != token.Tuple {
					return nil, errs.New(errs.CodeInvalidExpressionTerm, "expected call arguments after `."+two.Tok.Text+"`", errs.FromLocation(two.Loc))
				}
				c.pos += 2
				args := buildTupleArgs(three.Tok, three.Loc)
				node = &MethodCall{Location: one.Loc, Target: target, Name: two.Tok.Text, Args: args}
			case token.Symbol:
				c.advance()
				if def, ok := c.peek(0); ok && def.Tok.Kind == token.Define {
					c.advance()
					value, _, err := parseExpr(c)
					if err != nil {
						return nil, err
					}
					return &ComplexDef{
						Location: one.Loc,
						Target:   target,
						Member:   DefineTarget{Kind: DefineMember, Name: two.Tok.Text},
						Value:    value,
					}, nil
				}
				node = &Member{Location: one.Loc, Target: target, Name: two.Tok.Text}
			case token.Number:
				c.advance()
				idx := two.Tok.Num
				if def, ok := c.peek(0); ok && def.Tok.Kind == token.Define {
					c.advance()
					value, _, err := parseExpr(c)
					if err != nil {
						return nil, err
					}
					return &ComplexDef{
						Location: one.Loc,
						Target:   target,
						Member:   DefineTarget{Kind: DefineIndex, Index: idx},
						Value:    value,
					}, nil
				}
				node = &Member{Location: one.Loc, Target: target, Index: idx, IsIndex: true}
			case token.Tuple:
				c.advance()
				args := buildTupleArgs(two.Tok, two.Loc)
				node = &DirectCall{Location: one.Loc, Target: target, Args: args}
			default:
				return nil, errs.New(errs.CodeInvalidExpressionTerm, "expected a member name or pattern call after `.`", errs.FromLocation(two.Loc))
			}
		case token.OpInterpretation:
			c.advance()
			two, ok2 := c.peek(0)
			if !ok2 || two.Tok.Kind != token.TypeName {
				loc := one.Loc
				if ok2 {
					loc = two.Loc
				}
				return nil, errs.New(errs.CodeCastRequiresTypeName, "the right-hand side of `->` must be a type name", errs.FromLocation(loc))
			}
			c.advance()
			node = &Cast{Location: one.Loc, Value: node, Type: two.Tok.Text}
		case token.OpPartialApplication:
			c.advance()
			node = &PartialApply{Location: one.Loc, Value: node}
		default:
			return node, nil
		}
	}
}

// tryInterpretation recognizes the interpretation-definition special form:
// `From -> To: { body }`. Tried ahead of tryStructDecl since both start
// with a TypeName, but diverge on the second token (`->` vs `:`).
func tryInterpretation(c *cursor) (*Interpretation, bool, error) {
	one, ok1 := c.peek(0)
	two, ok2 := c.peek(1)
	if !ok1 || !ok2 || one.Tok.Kind != token.TypeName {
		return nil, false, nil
	}
	if two.Tok.Kind != token.Operator || two.Tok.OpVal != token.OpInterpretation {
		return nil, false, nil
	}
	three, ok3 := c.peek(2)
	four, ok4 := c.peek(3)
	if !ok3 || !ok4 || three.Tok.Kind != token.TypeName || four.Tok.Kind != token.Define {
		return nil, false, nil
	}
	five, ok5 := c.peek(4)
	if !ok5 || five.Tok.Kind != token.Block {
		return nil, false, nil
	}
	c.pos += 5
	body, err := buildFrom(five.Tok.Children.Nodes, KindBlock)
	if err != nil {
		return nil, false, err
	}
	return &Interpretation{Location: one.Loc, From: one.Tok.Text, To: three.Tok.Text, Body: body}, true, nil
}
