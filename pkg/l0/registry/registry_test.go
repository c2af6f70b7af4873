package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddRemove(t *testing.T) {
	r := New[string, int](3)
	require.Equal(t, 3, r.Cap())
	require.Equal(t, 3, r.Free())
	require.NoError(t, r.Add("a", 1))
	require.NoError(t, r.Add("b", 2))
	require.NoError(t, r.Add("c", 3))
	require.Equal(t, ErrFull, r.Add("d", 4))
	require.Equal(t, 3, r.Len())
	require.Equal(t, 0, r.Free())

	require.Equal(t, 1, r.IndexOf("b"))
	require.Equal(t, -1, r.IndexOf("d"))

	require.NoError(t, r.Remove("a"))
	require.Equal(t, ErrNotFound, r.Remove("a"))
	require.Equal(t, 2, r.Len())
	k, v := r.At(0)
	require.Equal(t, "b", k)
	require.Equal(t, 2, v)
	k, v = r.At(1)
	require.Equal(t, "c", k)
	require.Equal(t, 3, v)
}

func TestAddReplaces(t *testing.T) {
	r := New[int, string](2)
	require.NoError(t, r.Add(1, "one"))
	require.NoError(t, r.Add(2, "two"))
	// full is checked before lookup.
	require.Equal(t, ErrFull, r.Add(1, "uno"))
	require.NoError(t, r.Remove(2))
	require.NoError(t, r.Add(1, "uno"))
	require.Equal(t, 1, r.Len())
	v, ok := r.Get(1)
	require.True(t, ok)
	require.Equal(t, "uno", v)
	_, ok = r.Get(2)
	require.False(t, ok)
}

func TestRemoveAt(t *testing.T) {
	r := New[int, int](4)
	for i := 0; i < 4; i++ {
		require.NoError(t, r.Add(i, i*10))
	}
	require.Equal(t, ErrNotFound, r.RemoveAt(4))
	require.Equal(t, ErrNotFound, r.RemoveAt(-1))
	require.NoError(t, r.RemoveAt(1))
	var keys []int
	for i := 0; i < r.Len(); i++ {
		k, _ := r.At(i)
		keys = append(keys, k)
	}
	require.Equal(t, []int{0, 2, 3}, keys)

	r.RemoveAll()
	require.Equal(t, 0, r.Len())
	require.Equal(t, 4, r.Free())
	require.Panics(t, func() { r.At(0) })
}

func TestZeroCapacity(t *testing.T) {
	var r Registry[int, int]
	require.Equal(t, ErrFull, r.Add(1, 1))
	require.Equal(t, ErrNotFound, r.Remove(1))
	r.Init(1)
	require.NoError(t, r.Add(1, 1))
}
