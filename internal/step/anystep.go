package step

import "context"

// AnyStep is a uniform boxed Step used wherever a heterogeneous collection
// of Steps sharing only I,O must be stored (children of Parallel/Race). It
// owns the wrapped Step behind a thread-safe erased executor (spec.md §3).
type AnyStep[I, O any] struct {
	run func(ctx context.Context, input I) (O, error)
}

// Erase boxes a concrete Step into an AnyStep.
func Erase[I, O any](s Step[I, O]) AnyStep[I, O] {
	return AnyStep[I, O]{run: s.Run}
}

// Run implements Step.
func (a AnyStep[I, O]) Run(ctx context.Context, input I) (O, error) {
	return a.run(ctx, input)
}
