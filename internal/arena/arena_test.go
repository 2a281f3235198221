package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertGet(t *testing.T) {
	a := New[string]()
	i := a.Insert("hello")
	j := a.Insert("world")

	v, ok := a.Get(i)
	require.True(t, ok)
	assert.Equal(t, "hello", *v)

	w, ok := a.Get(j)
	require.True(t, ok)
	assert.Equal(t, "world", *w)
	assert.Equal(t, 2, a.Len())
}

func TestGet_MutableThroughPointer(t *testing.T) {
	a := New[int]()
	i := a.Insert(1)

	v, _ := a.Get(i)
	*v = 42

	got, _ := a.Get(i)
	assert.Equal(t, 42, *got)
}

func TestRemove_InvalidatesHandle(t *testing.T) {
	a := New[string]()
	i := a.Insert("gone")

	v, ok := a.Remove(i)
	require.True(t, ok)
	assert.Equal(t, "gone", v)
	assert.Equal(t, 0, a.Len())

	_, ok = a.Get(i)
	assert.False(t, ok)

	_, ok = a.Remove(i)
	assert.False(t, ok)
}

func TestRemove_SlotReuseBumpsGeneration(t *testing.T) {
	a := New[string]()
	old := a.Insert("first")
	a.Remove(old)

	fresh := a.Insert("second")

	// The stale handle must not resolve to the slot's new occupant.
	_, ok := a.Get(old)
	assert.False(t, ok)

	v, ok := a.Get(fresh)
	require.True(t, ok)
	assert.Equal(t, "second", *v)
}

func TestGet_ZeroIndex(t *testing.T) {
	a := New[int]()
	a.Insert(1)

	_, ok := a.Get(Index{})
	assert.False(t, ok)
}

func TestMustGet_PanicsOnStale(t *testing.T) {
	a := New[int]()
	i := a.Insert(1)
	a.Remove(i)

	assert.Panics(t, func() { a.MustGet(i) })
}

func TestDrain(t *testing.T) {
	a := New[int]()
	a.Insert(1)
	a.Insert(2)
	a.Insert(3)

	var got []int
	a.Drain(func(_ Index, v int) { got = append(got, v) })

	assert.ElementsMatch(t, []int{1, 2, 3}, got)
	assert.Equal(t, 0, a.Len())
}
