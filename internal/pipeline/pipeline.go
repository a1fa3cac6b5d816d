// Package pipeline wires PatPat's four compile/run stages — lex, construct,
// resolve, evaluate — into a single ordered sequence of Processors over a
// shared Context, so cmd/patpat and tests can run (or stop short of) any
// prefix of it. The pipeline stops at the first stage that errors, since a
// PatPat compile error is a single value, not an accumulating list.
package pipeline

import (
	"github.com/patpat-lang/patpat/internal/ast"
	"github.com/patpat-lang/patpat/internal/interp"
	"github.com/patpat-lang/patpat/internal/lexer"
	"github.com/patpat-lang/patpat/internal/resolve"
	"github.com/patpat-lang/patpat/internal/token"
	"github.com/patpat-lang/patpat/internal/value"
)

// Context carries one source file through the pipeline's stages.
type Context struct {
	Path   string
	Source string

	Tree   *token.Tree
	Parsed *ast.AST
	Table  *resolve.Table
	Result value.Value
	Err    error
}

// Processor runs one pipeline stage over ctx, recording any failure in
// ctx.Err; Pipeline.Run skips the remaining processors once ctx.Err is set.
type Processor interface {
	Process(ctx *Context) *Context
}

type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes every stage in order, stopping as soon as one sets ctx.Err.
func (p *Pipeline) Run(initialCtx *Context) *Context {
	ctx := initialCtx
	for _, processor := range p.processors {
		if ctx.Err != nil {
			return ctx
		}
		ctx = processor.Process(ctx)
	}
	return ctx
}

// LexStage tokenizes Source into a token Tree.
type LexStage struct{}

func (LexStage) Process(ctx *Context) *Context {
	tree, err := lexer.Lex(ctx.Source, ctx.Path)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Tree = tree
	return ctx
}

// ConstructStage builds the AST from the token Tree.
type ConstructStage struct{}

func (ConstructStage) Process(ctx *Context) *Context {
	file, err := ast.Build(ctx.Tree)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Parsed = file
	return ctx
}

// ResolveStage runs name resolution over the constructed AST.
type ResolveStage struct{}

func (ResolveStage) Process(ctx *Context) *Context {
	table, err := resolve.Resolve(ctx.Parsed)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Table = table
	return ctx
}

// EvalStage tree-walks the resolved AST to a final value.
type EvalStage struct {
	Host interp.Host
}

func (e EvalStage) Process(ctx *Context) *Context {
	ip := interp.New(ctx.Table, e.Host)
	result, err := ip.Run(ctx.Parsed)
	if err != nil {
		ctx.Err = err
		return ctx
	}
	ctx.Result = result
	return ctx
}

// Full returns the standard lex->construct->resolve->eval pipeline.
func Full(host interp.Host) *Pipeline {
	return New(LexStage{}, ConstructStage{}, ResolveStage{}, EvalStage{Host: host})
}
