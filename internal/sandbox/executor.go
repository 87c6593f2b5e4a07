package sandbox

import (
	"context"
	"fmt"
	"time"

	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/adam-setup/server/internal/dataset"
	logx "github.com/adam-setup/server/pkg/logger"
)

// DefaultTimeout bounds one script run.
const DefaultTimeout = 30 * time.Second

// DefaultMaxSteps bounds interpreter work independently of wall time.
const DefaultMaxSteps = 50_000_000

// EntryFunction is the function every script must define.
const EntryFunction = "main"

// Executor runs analysis scripts against a snapshot. The interpreter
// namespace exposes only the three entity tables and the whitelisted
// math and json modules.
type Executor struct {
	Timeout  time.Duration
	MaxSteps uint64
}

// NewExecutor creates an Executor with the given wall-clock timeout.
// Zero picks DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{Timeout: timeout, MaxSteps: DefaultMaxSteps}
}

// scriptOptions enables the language features generated analysis code
// relies on: while loops, set literals, top-level control flow,
// reassignment and recursion.
var scriptOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Run executes code against the snapshot and normalizes its return
// value. Execution failures, a missing main and contract violations
// all come back as errors for the caller's retry policy.
func (e *Executor) Run(ctx context.Context, code string, snap *dataset.Snapshot) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	thread := &starlark.Thread{Name: "analysis"}
	if e.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(e.MaxSteps)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-runCtx.Done():
			thread.Cancel(runCtx.Err().Error())
		case <-done:
		}
	}()

	lineItems, err := tableToStarlark(snap.LineItems)
	if err != nil {
		return nil, fmt.Errorf("convert line items: %w", err)
	}
	campaigns, err := tableToStarlark(snap.Campaigns)
	if err != nil {
		return nil, fmt.Errorf("convert campaigns: %w", err)
	}
	insertionOrders, err := tableToStarlark(snap.InsertionOrders)
	if err != nil {
		return nil, fmt.Errorf("convert insertion orders: %w", err)
	}

	predeclared := starlark.StringDict{
		"math": starlarkmath.Module,
		"json": starlarkjson.Module,
	}

	start := time.Now()
	globals, err := starlark.ExecFileOptions(scriptOptions, thread, "analysis.star", code, predeclared)
	if err != nil {
		return nil, fmt.Errorf("script error: %w", evalError(err))
	}

	mainFn, ok := globals[EntryFunction]
	if !ok {
		return nil, fmt.Errorf("script error: function %q is not defined", EntryFunction)
	}
	callable, ok := mainFn.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("script error: %q is not callable", EntryFunction)
	}

	value, err := starlark.Call(thread, callable, starlark.Tuple{lineItems, campaigns, insertionOrders}, nil)
	if err != nil {
		return nil, fmt.Errorf("script error: %w", evalError(err))
	}

	result, err := convertResult(value)
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Dur("elapsed", time.Since(start)).
		Int("kind", int(result.Kind)).
		Msg("Script executed")
	return result, nil
}

// evalError keeps the script backtrace, which the regeneration prompt
// feeds back to the model.
func evalError(err error) error {
	if evalErr, ok := err.(*starlark.EvalError); ok {
		return fmt.Errorf("%s", evalErr.Backtrace())
	}
	return err
}
