package step

import (
	"context"

	"github.com/stepflow/stepflow/pkg/core"
)

// LoopOption configures Loop.
type LoopOption[A any] func(*loopConfig[A])

type loopConfig[A any] struct {
	max   int
	until Step[A, bool]
}

// Bounded caps a Loop at n iterations (n >= 1). Exhausting n iterations
// without Until firing fails with KindConditionNotMet.
func Bounded[A any](n int) LoopOption[A] {
	return func(c *loopConfig[A]) { c.max = n }
}

// Until supplies the termination predicate: a Step from the body's output
// to bool. When it returns true the Loop returns the current value.
func Until[A any](pred Step[A, bool]) LoopOption[A] {
	return func(c *loopConfig[A]) { c.until = pred }
}

// Loop runs body repeatedly over A -> A. With Bounded(n) it runs at most n
// iterations; without it, it runs unbounded until Until fires or the task
// is cancelled. Each iteration checks external cancellation, runs body,
// then (if Until is set) evaluates it against the new value — true returns
// that value immediately, false continues the loop with it as the next
// input. There is no implicit delay; the body is expected to block or
// yield (spec.md §4.5). Grounded on the teacher's MaxSteps-bounded agentic
// loop in internal/session/loop.go.
func Loop[A any](body Step[A, A], opts ...LoopOption[A]) Step[A, A] {
	cfg := loopConfig[A]{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return Func[A, A](func(ctx context.Context, input A) (A, error) {
		current := input
		iterations := 0
		for {
			select {
			case <-ctx.Done():
				var zero A
				return zero, core.Cancelled()
			default:
			}

			if cfg.max > 0 && iterations >= cfg.max {
				var zero A
				return zero, core.ConditionNotMet(cfg.max)
			}

			out, err := body.Run(ctx, current)
			if err != nil {
				var zero A
				return zero, err
			}
			iterations++
			current = out

			if cfg.until != nil {
				done, err := cfg.until.Run(ctx, current)
				if err != nil {
					var zero A
					return zero, err
				}
				if done {
					return current, nil
				}
				continue
			}

			if cfg.max <= 0 {
				// Unbounded with no termination predicate never
				// terminates on its own; callers rely on ctx
				// cancellation. Guard against a silent infinite spin
				// by still checking cancellation every turn above.
				continue
			}
		}
	})
}
