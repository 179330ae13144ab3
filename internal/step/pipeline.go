package step

import "context"

// Pipeline is a user-defined composite whose Run is its body's Run; bodies
// are built by composing a sequence of Steps with matching adjacent types
// into a single Step. Execution is strictly sequential and fails fast: the
// first child error propagates and subsequent children are not invoked
// (spec.md §4.2).
//
// Go generics can't express a heterogeneous-arity builder the way the
// spec's declarative DSL does, so composition is expressed the idiomatic
// Go way: two-step chaining via Then, generalized through repeated use.
// Pipeline gives a variadic entry point for same-type chains, the shape the
// rest of the engine needs (tool pipelines, agent loops); chains whose types
// change between steps compose by nesting Then.

// Then sequences two Steps of matching adjacent types into one Step. It is
// the two-child primitive every other Pipeline arity is built from.
func Then[A, B, C any](first Step[A, B], second Step[B, C]) Step[A, C] {
	return Func[A, C](func(ctx context.Context, input A) (C, error) {
		mid, err := first.Run(ctx, input)
		if err != nil {
			var zero C
			return zero, err
		}
		return second.Run(ctx, mid)
	})
}

// Pipeline sequences any number of same-type Steps (A -> A -> ... -> A),
// the shape most agent bodies need: a chain of homogeneous stages over one
// value type. Fails fast on the first error, matching spec.md's Pipeline
// law: P(x) = Ok(y) iff every child succeeds in order.
func Pipeline[A any](steps ...Step[A, A]) Step[A, A] {
	return Func[A, A](func(ctx context.Context, input A) (A, error) {
		current := input
		for _, s := range steps {
			out, err := s.Run(ctx, current)
			if err != nil {
				var zero A
				return zero, err
			}
			current = out
		}
		return current, nil
	})
}
