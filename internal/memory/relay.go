package memory

// Relay is a pair of closures (get, set) projecting access to some value.
// It is the sole cross-Step sharing handle: not ownership, but a
// capability (spec.md §4.8). A Relay may be pointed directly at a Memory,
// or derived from another Relay via Map or ReadOnly.
type Relay[V any] struct {
	get func() V
	set func(V)
}

// Of builds a Relay from raw get/set closures, for projecting onto
// something other than a Memory (a struct field behind its own lock, a
// config value, and so on).
func Of[V any](get func() V, set func(V)) Relay[V] {
	return Relay[V]{get: get, set: set}
}

// Get reads the projected value.
func (r Relay[V]) Get() V { return r.get() }

// Set writes the projected value. A no-op setter (as produced by ReadOnly
// or Const) silently discards the write.
func (r Relay[V]) Set(v V) { r.set(v) }

// ReadOnly projects an immutable view of r: Get passes through, Set is a
// no-op.
func ReadOnly[V any](r Relay[V]) Relay[V] {
	return Relay[V]{get: r.get, set: func(V) {}}
}

// Const builds a Relay fixed at value whose setter is a no-op, for callers
// that need the Relay shape but not mutability.
func Const[V any](value V) Relay[V] {
	return Relay[V]{get: func() V { return value }, set: func(V) {}}
}

// Map projects a Relay[V] through a type A by translating on read (toA)
// and on write (fromA): Get applies toA to the backing value; Set applies
// fromA to produce a new backing value, combining it with the prior backing
// value so partial updates compose.
func Map[V, A any](r Relay[V], toA func(V) A, fromA func(V, A) V) Relay[A] {
	return Relay[A]{
		get: func() A { return toA(r.get()) },
		set: func(a A) { r.set(fromA(r.get(), a)) },
	}
}

// Append mutates a slice-shaped Relay by reading, appending elem, and
// writing back. The mutex (if any, on the backing Memory) is held only for
// the duration of the write, not across the read: concurrent Append calls
// can race and one may observe a stale read (spec.md §4.8's concurrency
// discipline). Callers needing atomicity across multiple operations must
// go through the backing Memory directly under one critical section.
func Append[T any](r Relay[[]T], elem T) {
	r.Set(append(append([]T(nil), r.Get()...), elem))
}

// Insert mutates a slice-shaped Relay by inserting elem at index.
func Insert[T any](r Relay[[]T], index int, elem T) {
	current := r.Get()
	out := make([]T, 0, len(current)+1)
	out = append(out, current[:index]...)
	out = append(out, elem)
	out = append(out, current[index:]...)
	r.Set(out)
}

// Remove mutates a slice-shaped Relay by deleting the element at index.
func Remove[T any](r Relay[[]T], index int) {
	current := r.Get()
	out := make([]T, 0, len(current)-1)
	out = append(out, current[:index]...)
	out = append(out, current[index+1:]...)
	r.Set(out)
}

// Increment mutates a numeric Relay by adding delta to its current value.
func Increment[N int | int32 | int64 | float32 | float64](r Relay[N], delta N) {
	r.Set(r.Get() + delta)
}
