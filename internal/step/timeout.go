package step

import (
	"context"
	"time"

	"github.com/stepflow/stepflow/pkg/core"
)

// timeoutResult carries the result of a racing inner run.
type timeoutResult[O any] struct {
	value O
	err   error
}

// Timeout races the inner Step against a sleep of d; on elapse it cancels
// the inner task's context and fails with KindTimeout carrying the elapsed
// duration (spec.md §4.7).
func Timeout[I, O any](inner Step[I, O], d time.Duration) Step[I, O] {
	return Func[I, O](func(ctx context.Context, input I) (O, error) {
		var zero O
		innerCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		done := make(chan timeoutResult[O], 1)
		go func() {
			v, err := inner.Run(innerCtx, input)
			done <- timeoutResult[O]{value: v, err: err}
		}()

		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case r := <-done:
			return r.value, r.err
		case <-timer.C:
			cancel()
			return zero, core.Timeout(d)
		case <-ctx.Done():
			return zero, core.Cancelled()
		}
	})
}
