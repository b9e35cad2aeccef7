package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_PushReturnsDenseIndices(t *testing.T) {
	var a Arena[string]
	i0 := a.Push("zero")
	i1 := a.Push("one")
	i2 := a.Push("two")

	assert.Equal(t, 0, i0)
	assert.Equal(t, 1, i1)
	assert.Equal(t, 2, i2)
	require.Equal(t, 3, a.Len())
}

func TestArena_GetExposesAPointerForInPlaceMutation(t *testing.T) {
	var a Arena[DefinitionInfoId]
	idx := a.Push(DefinitionInfoId(7))

	*a.Get(idx) = DefinitionInfoId(42)

	assert.Equal(t, DefinitionInfoId(42), *a.Get(idx))
}

func TestArena_SliceReflectsPushOrder(t *testing.T) {
	var a Arena[int]
	a.Push(10)
	a.Push(20)
	a.Push(30)

	assert.Equal(t, []int{10, 20, 30}, a.Slice())
}

func TestArena_ZeroValueIsEmpty(t *testing.T) {
	var a Arena[int]
	assert.Equal(t, 0, a.Len())
	assert.Empty(t, a.Slice())
}
