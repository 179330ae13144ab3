package step

import "context"

// Builder constructs a per-element Step given the element's zero-based
// index, used by Map.
type Builder[I, O any] func(index int, elem I) AnyStep[I, O]

// Map takes a []I input; for each element and its index it constructs a
// Step via build and runs it on the element. Execution is strictly
// sequential and fail-fast; order is preserved. Parallel mapping is
// expressed as Parallel over elements instead (spec.md §4.6).
func Map[I, O any](build Builder[I, O]) Step[[]I, []O] {
	return Func[[]I, []O](func(ctx context.Context, input []I) ([]O, error) {
		out := make([]O, 0, len(input))
		for i, elem := range input {
			s := build(i, elem)
			result, err := s.Run(ctx, elem)
			if err != nil {
				return nil, err
			}
			out = append(out, result)
		}
		return out, nil
	})
}

// Reduce folds a []I input sequentially into a single accumulator via a
// per-element Step from (accumulator, element) to the next accumulator.
// Like Map and Pipeline it is strictly sequential and fail-fast; it is not
// named in spec.md's table but composes naturally from the same primitives
// Map and Pipeline are built from, and session transcript folding
// (internal/session/loop.go's convertMessage-over-messages) is exactly
// this shape.
func Reduce[I, A any](initial A, step func(acc A, elem I) Step[I, A]) Step[[]I, A] {
	return Func[[]I, A](func(ctx context.Context, input []I) (A, error) {
		acc := initial
		for _, elem := range input {
			out, err := step(acc, elem).Run(ctx, elem)
			if err != nil {
				return acc, err
			}
			acc = out
		}
		return acc, nil
	})
}
