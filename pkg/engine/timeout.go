package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/surfnets/pkg/graph"
)

// DefaultTimeout bounds one script run when the engine has no Timeout set.
const DefaultTimeout = 5 * time.Second

// ErrSuperseded is returned to a caller whose script finished after a later
// Evaluate call had already started.
var ErrSuperseded = errors.New("engine: evaluation superseded by newer request")

type evalResult struct {
	graph  *graph.SceneGraph
	errors []EvalError
	err    error
}

// runGuard tracks the newest evaluation so that late results are dropped.
type runGuard struct {
	mu  sync.Mutex
	gen uint64
}

func (r *runGuard) next() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	return r.gen
}

func (r *runGuard) current() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// await blocks until the interpreter goroutine reports, the deadline passes
// or ctx ends. A script that never terminates keeps its goroutine; the
// interpreter has no preemption hook.
func await(ctx context.Context, ch <-chan evalResult, gen uint64, guard *runGuard, limit time.Duration) (*graph.SceneGraph, []EvalError, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		if gen != guard.current() {
			return nil, nil, ErrSuperseded
		}
		return res.graph, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("engine: script timed out after %s", limit)
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("engine: %w", ctx.Err())
	}
}
