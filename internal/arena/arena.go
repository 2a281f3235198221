package arena

import "fmt"

// Index is a generation-checked handle into an Arena. The zero Index is
// never valid. An Index stays valid until its element is removed;
// resolving a stale or out-of-range Index is a detectable error rather
// than silent reuse.
type Index struct {
	slot       uint32
	generation uint32
}

func (i Index) String() string {
	return fmt.Sprintf("arena.Index(%d@%d)", i.slot, i.generation)
}

type entry[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Arena is a slot map with generational indices. The arena exclusively
// owns the stored elements; indices are weak references for lookup only.
type Arena[T any] struct {
	entries []entry[T]
	free    []uint32
	count   int
}

// New returns an empty arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Insert stores a value and returns its handle.
func (a *Arena[T]) Insert(v T) Index {
	a.count++
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		e := &a.entries[slot]
		e.value = v
		e.occupied = true
		return Index{slot: slot, generation: e.generation}
	}
	a.entries = append(a.entries, entry[T]{value: v, generation: 1, occupied: true})
	return Index{slot: uint32(len(a.entries) - 1), generation: 1}
}

// Get returns a pointer to the element for idx, or false if the handle
// is stale or out of range. The pointer is invalidated by Remove.
func (a *Arena[T]) Get(idx Index) (*T, bool) {
	if int(idx.slot) >= len(a.entries) {
		return nil, false
	}
	e := &a.entries[idx.slot]
	if !e.occupied || e.generation != idx.generation {
		return nil, false
	}
	return &e.value, true
}

// MustGet is Get for handles that are known valid by construction.
// A failed lookup is a programmer error and panics.
func (a *Arena[T]) MustGet(idx Index) *T {
	v, ok := a.Get(idx)
	if !ok {
		panic("arena: invalid index " + idx.String())
	}
	return v
}

// Remove deletes the element for idx and returns it. Further lookups
// with idx (or any handle to a prior occupant of the slot) fail.
func (a *Arena[T]) Remove(idx Index) (T, bool) {
	var zero T
	if _, ok := a.Get(idx); !ok {
		return zero, false
	}
	e := &a.entries[idx.slot]
	v := e.value
	e.value = zero
	e.occupied = false
	e.generation++
	a.free = append(a.free, idx.slot)
	a.count--
	return v, true
}

// Len returns the number of live elements.
func (a *Arena[T]) Len() int {
	return a.count
}

// Drain removes every element, calling fn for each in slot order, and
// leaves the arena empty.
func (a *Arena[T]) Drain(fn func(Index, T)) {
	for slot := range a.entries {
		e := &a.entries[slot]
		if !e.occupied {
			continue
		}
		idx := Index{slot: uint32(slot), generation: e.generation}
		v, _ := a.Remove(idx)
		fn(idx, v)
	}
}
