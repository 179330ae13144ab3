package step

import (
	"context"
	"sync"

	"github.com/stepflow/stepflow/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Parallel executes a slice of AnyStep[I,O] concurrently on one input and
// collects successes. Grounded on the teacher's batch tool (errgroup-based
// parallel tool execution, internal/tool/batch.go): children start in
// declaration order; if any child fails and at least one succeeds, the
// successes are returned (completion order, not deterministic); if all
// fail, an aggregated error is returned; an empty slice yields no_results
// (spec.md §4.3).
func Parallel[I, O any](children []AnyStep[I, O]) Step[I, []O] {
	return Func[I, []O](func(ctx context.Context, input I) ([]O, error) {
		if len(children) == 0 {
			return nil, core.NoResults()
		}

		var mu sync.Mutex
		var successes []O
		var errs []error

		g, gctx := errgroup.WithContext(ctx)
		for _, child := range children {
			child := child
			g.Go(func() error {
				out, err := child.Run(gctx, input)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
				} else {
					successes = append(successes, out)
				}
				// Never propagate the error through errgroup: that would
				// cancel gctx and abort siblings still in flight, which
				// would turn "best effort" into "fail fast".
				return nil
			})
		}
		_ = g.Wait()

		if len(successes) == 0 {
			return nil, core.AllStepsFailed(errs)
		}
		return successes, nil
	})
}
