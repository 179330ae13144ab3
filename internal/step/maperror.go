package step

import "context"

// MapError translates any error through f; successes pass through
// unchanged (spec.md §4.7).
func MapError[I, O any](inner Step[I, O], f func(error) error) Step[I, O] {
	return Func[I, O](func(ctx context.Context, input I) (O, error) {
		out, err := inner.Run(ctx, input)
		if err != nil {
			return out, f(err)
		}
		return out, nil
	})
}
