// Command patpat runs a PatPat source file: it lexes, constructs,
// resolves, and evaluates the input in sequence, printing a rendered
// diagnostic and exiting with the error's own code on failure.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"

	"github.com/patpat-lang/patpat/internal/config"
	"github.com/patpat-lang/patpat/internal/errs"
	"github.com/patpat-lang/patpat/internal/pipeline"
)

const usage = `usage: patpat <path> [--debug] [--dump-parsed] [--dump-constructed] [--dump-resolved]

Reads a PatPat source file (or stdin if <path> is omitted) and runs it.`

// logger is PatPat's stage-tracing sink, silent unless --debug is passed.
var logger = log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel})

// stdHost sends #println to stdout and #test_log to stderr, prefixed so a
// test harness piping both streams together can still tell them apart.
type stdHost struct{}

func (stdHost) Println(s string) { fmt.Fprintln(os.Stdout, s) }
func (stdHost) TestLog(s string) { fmt.Fprintln(os.Stderr, "[test] "+s) }

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			os.Exit(1)
		}
	}()

	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var path string
	var dumpParsed, dumpConstructed, dumpResolved bool

	for _, a := range args {
		switch a {
		case "--debug":
			logger.SetLevel(log.DebugLevel)
		case "--dump-parsed":
			dumpParsed = true
		case "--dump-constructed":
			dumpConstructed = true
		case "--dump-resolved":
			dumpResolved = true
		case "-h", "--help":
			fmt.Println(usage)
			return 0
		default:
			if strings.HasPrefix(a, "-") {
				fmt.Fprintf(os.Stderr, "unknown flag %q\n%s\n", a, usage)
				return 1
			}
			if path != "" {
				fmt.Fprintf(os.Stderr, "unexpected argument %q\n%s\n", a, usage)
				return 1
			}
			path = a
		}
	}

	source, err := readSource(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		return 7
	}
	if path == "" {
		path = "<stdin>"
	}
	logger.Debug("read source", "path", path, "bytes", len(source))

	ctx := &pipeline.Context{Path: path, Source: source}

	ctx = pipeline.New(pipeline.LexStage{}).Run(ctx)
	if ctx.Err != nil {
		return reportFailure(ctx.Err)
	}
	if dumpParsed {
		spew.Fdump(os.Stdout, ctx.Tree)
		if !dumpConstructed && !dumpResolved {
			return 0
		}
	}

	ctx = pipeline.New(pipeline.ConstructStage{}).Run(ctx)
	if ctx.Err != nil {
		return reportFailure(ctx.Err)
	}
	if dumpConstructed {
		spew.Fdump(os.Stdout, ctx.Parsed)
		if !dumpResolved {
			return 0
		}
	}

	ctx = pipeline.New(pipeline.ResolveStage{}).Run(ctx)
	if ctx.Err != nil {
		return reportFailure(ctx.Err)
	}
	if dumpResolved {
		spew.Fdump(os.Stdout, ctx.Table)
		return 0
	}

	ctx = pipeline.New(pipeline.EvalStage{Host: stdHost{}}).Run(ctx)
	if ctx.Err != nil {
		return reportFailure(ctx.Err)
	}

	logger.Debug("pipeline succeeded", "result", ctx.Result.Debug())
	if config.IsTestMode {
		fmt.Fprintln(os.Stderr, "[test] "+ctx.Result.Debug())
	}
	return 0
}

// reportFailure renders a pipeline error to stderr and returns its exit code.
func reportFailure(err error) int {
	if e, ok := err.(*errs.Error); ok {
		fmt.Fprint(os.Stderr, e.Render())
		logger.Debug("pipeline failed", "code", e.Code)
		return e.Code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func readSource(path string) (string, error) {
	if path == "" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return "", fmt.Errorf("no input file given and stdin is a terminal")
		}
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
