package toolpipeline

import (
	"context"
	"time"

	"github.com/stepflow/stepflow/pkg/core"
)

// timeoutResult carries the continuation's outcome across the race in
// TimeoutMiddleware.Handle.
type timeoutResult struct {
	value *core.ToolResult
	err   error
}

// TimeoutMiddleware races the pipeline continuation against a sleep of d;
// on elapse it cancels the continuation's context and fails with
// KindTimeout (spec.md §4.12.3), mirroring internal/step.Timeout's shape
// over the ToolMiddleware chain.
type TimeoutMiddleware struct {
	d time.Duration
}

// NewTimeoutMiddleware builds a TimeoutMiddleware with deadline d.
func NewTimeoutMiddleware(d time.Duration) *TimeoutMiddleware {
	return &TimeoutMiddleware{d: d}
}

// Handle implements core.ToolMiddleware.
func (m *TimeoutMiddleware) Handle(ctx context.Context, toolCtx *core.ToolContext, next core.ToolHandler) (*core.ToolResult, error) {
	innerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan timeoutResult, 1)
	go func() {
		v, err := next(innerCtx, toolCtx)
		done <- timeoutResult{value: v, err: err}
	}()

	timer := time.NewTimer(m.d)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.value, r.err
	case <-timer.C:
		cancel()
		return nil, core.Timeout(m.d)
	case <-ctx.Done():
		return nil, core.Cancelled()
	}
}
