// Package engine runs surfnets solid scripts. A script is zygomys Lisp
// extended with solid primitives, booleans, placement and defpart; running
// it yields a graph.SceneGraph ready for validation and tessellation.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/surfnets/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError is a script fault reported back to the author: a read error,
// an unknown symbol or a bad builtin argument. Line is 0 when the
// interpreter gave no position.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine turns script source into scene graphs. Every run gets its own
// sandbox, so graphs never share nodes and anonymous IDs restart at
// form/1. Each graph carries the run number as its Version.
type Engine struct {
	// Timeout bounds a single run. Zero means DefaultTimeout.
	Timeout time.Duration

	guard runGuard
}

func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate is EvaluateContext without cancellation.
func (e *Engine) Evaluate(source string) (*graph.SceneGraph, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext runs source and returns its scene graph. Faults in the
// script come back as EvalErrors with a nil graph and nil error. The error
// return is kept for failures of the run itself: a panic, the timeout, ctx
// ending, or ErrSuperseded when a later call has already started.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*graph.SceneGraph, []EvalError, error) {
	gen := e.guard.next()
	limit := e.Timeout
	if limit <= 0 {
		limit = DefaultTimeout
	}

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("engine: panic in script: %v", r)}
			}
		}()
		g, evalErrs, err := run(source, gen)
		ch <- evalResult{graph: g, errors: evalErrs, err: err}
	}()

	return await(ctx, ch, gen, &e.guard, limit)
}

func run(source string, gen uint64) (*graph.SceneGraph, []EvalError, error) {
	g := graph.New()
	g.Version = gen

	if strings.TrimSpace(source) == "" {
		return g, nil, nil
	}

	// The sandbox has no file or system builtins.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder(g)
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	res, err := env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	b.finish(res)
	return g, nil, nil
}

// Zygomys reports positions as "Error on line N: ..." from the reader and
// "line N: ..." from a few runtime paths.
var linePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`),
	regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`),
}

// parseZygomysError turns an interpreter error into a single EvalError,
// keeping the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range linePatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
