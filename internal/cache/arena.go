package cache

// Arena is an append-only vector handing out dense, stable indices. It is
// the storage primitive behind every id kind in this package: ids are never
// invalidated because entries are only ever appended or, for slots that
// start empty (ImplBindingId), filled in place (spec.md §3 "Lifecycle",
// §5 "All mutation is additive").
//
// Arena is not safe for concurrent use; the whole front end is single
// threaded by design (spec.md §5).
type Arena[T any] struct {
	items []T
}

// Push appends an item and returns its dense index.
func (a *Arena[T]) Push(item T) int {
	a.items = append(a.items, item)
	return len(a.items) - 1
}

// Get returns a pointer to the item at i so callers can mutate in place
// (e.g. filling a DefinitionInfo's type scheme once inference completes).
func (a *Arena[T]) Get(i int) *T { return &a.items[i] }

// Len returns the number of entries pushed so far.
func (a *Arena[T]) Len() int { return len(a.items) }

// Slice exposes the backing storage for read-only iteration. Callers must
// not retain it across a Push, since append may reallocate.
func (a *Arena[T]) Slice() []T { return a.items }
