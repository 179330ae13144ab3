package step

import (
	"context"
	"time"

	"github.com/stepflow/stepflow/pkg/core"
)

// RaceOption configures Race.
type RaceOption func(*raceConfig)

type raceConfig struct {
	timeout time.Duration
}

// WithTimeout bounds how long Race waits for a first success before
// failing with KindTimeout.
func WithTimeout(d time.Duration) RaceOption {
	return func(c *raceConfig) { c.timeout = d }
}

// raceResult carries either a success or failure from one child.
type raceResult[O any] struct {
	value O
	err   error
}

// Race starts every child concurrently on one input; the first child to
// return Ok wins and the rest are cancelled and dropped. Errors never win:
// they are collected, and if every child fails, Race returns the last
// observed error preserving its Kind. An empty slice yields
// no_successful_results; an elapsed timeout yields KindTimeout (spec.md
// §4.4). Grounded on the teacher's multi-transport connection racing in
// internal/mcp/client.go, generalized with explicit child cancellation.
func Race[I, O any](children []AnyStep[I, O], opts ...RaceOption) Step[I, O] {
	cfg := raceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return Func[I, O](func(ctx context.Context, input I) (O, error) {
		var zero O
		if len(children) == 0 {
			return zero, core.NoSuccessfulResults()
		}

		childCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		results := make(chan raceResult[O], len(children))
		for _, child := range children {
			child := child
			go func() {
				out, err := child.Run(childCtx, input)
				results <- raceResult[O]{value: out, err: err}
			}()
		}

		var timeoutCh <-chan time.Time
		if cfg.timeout > 0 {
			timer := time.NewTimer(cfg.timeout)
			defer timer.Stop()
			timeoutCh = timer.C
		}

		var lastErr error
		remaining := len(children)
		for remaining > 0 {
			select {
			case r := <-results:
				remaining--
				if r.err == nil {
					return r.value, nil
				}
				lastErr = r.err
			case <-timeoutCh:
				return zero, core.Timeout(cfg.timeout)
			case <-ctx.Done():
				return zero, core.Cancelled()
			}
		}

		if lastErr == nil {
			lastErr = core.NoSuccessfulResults()
		}
		return zero, lastErr
	})
}
