package step

import (
	"context"
	"time"
)

// MonitorHooks are callbacks invoked around a Step's execution. Callbacks
// never alter values or errors (spec.md §4.7): Monitor(s).Run(x) equals
// s.Run(x) modulo side-effects.
type MonitorHooks[I, O any] struct {
	BeforeInput func(I)
	AfterOutput func(O)
	OnError     func(error)
	OnComplete  func(duration time.Duration, err error)
}

// Monitor wraps inner with observation hooks that cannot affect the run.
func Monitor[I, O any](inner Step[I, O], hooks MonitorHooks[I, O]) Step[I, O] {
	return Func[I, O](func(ctx context.Context, input I) (O, error) {
		if hooks.BeforeInput != nil {
			hooks.BeforeInput(input)
		}
		start := time.Now()
		out, err := inner.Run(ctx, input)
		elapsed := time.Since(start)

		if err != nil {
			if hooks.OnError != nil {
				hooks.OnError(err)
			}
		} else if hooks.AfterOutput != nil {
			hooks.AfterOutput(out)
		}
		if hooks.OnComplete != nil {
			hooks.OnComplete(elapsed, err)
		}
		return out, err
	})
}
