package durable

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lyzr/flowrunner/common/sdk"
)

// Runner scopes memoized steps to a single execution. Re-running the same
// execution id replays completed steps from the store instead of executing
// their functions again.
type Runner struct {
	executionID string
	store       sdk.StepStore
	logger      sdk.Logger
	timeout     time.Duration
	retries     int
}

// Opts contains options for creating a durable runner
type Opts struct {
	ExecutionID string
	Store       sdk.StepStore
	Logger      sdk.Logger
	// Timeout bounds each step attempt. Zero means no per-step deadline.
	Timeout time.Duration
	// Retries is the number of re-attempts after a failed step function
	Retries int
}

// NewRunner creates a durable runner for one execution
func NewRunner(opts *Opts) *Runner {
	return &Runner{
		executionID: opts.ExecutionID,
		store:       opts.Store,
		logger:      opts.Logger,
		timeout:     opts.Timeout,
		retries:     opts.Retries,
	}
}

// ExecutionID returns the execution this runner is scoped to
func (r *Runner) ExecutionID() string {
	return r.executionID
}

// Step runs fn at most once per (execution, name). If a memoized result
// exists it is decoded and returned without calling fn. Otherwise fn runs,
// and on success its result is persisted before being returned. Failed
// attempts are never memoized, so a retried execution re-runs them.
func Step[T any](ctx context.Context, r *Runner, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	data, found, err := r.store.GetStep(ctx, r.executionID, name)
	if err != nil {
		return zero, fmt.Errorf("failed to read step %q: %w", name, err)
	}
	if found {
		var memoized T
		if err := json.Unmarshal(data, &memoized); err != nil {
			return zero, fmt.Errorf("failed to decode memoized step %q: %w", name, err)
		}
		r.logger.Debug("step replayed from store",
			"execution_id", r.executionID,
			"step", name)
		return memoized, nil
	}

	result, err := attempt(ctx, r, name, fn)
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("failed to encode step %q: %w", name, err)
	}
	if err := r.store.PutStep(ctx, r.executionID, name, encoded); err != nil {
		return zero, fmt.Errorf("failed to persist step %q: %w", name, err)
	}

	return result, nil
}

func attempt[T any](ctx context.Context, r *Runner, name string, run func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i <= r.retries; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		stepCtx := ctx
		cancel := func() {}
		if r.timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, r.timeout)
		}

		result, err := run(stepCtx)
		cancel()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if i < r.retries {
			r.logger.Warn("step attempt failed, retrying",
				"execution_id", r.executionID,
				"step", name,
				"attempt", i+1,
				"error", err)
		}
	}
	return zero, lastErr
}
