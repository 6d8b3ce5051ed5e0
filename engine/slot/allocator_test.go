package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type owner struct{ name string }

func TestAddAssignsDenseHandles(t *testing.T) {
	a := NewAllocator[*owner]()

	for i := 0; i < 3; i++ {
		h, err := a.Add(&owner{})
		require.NoError(t, err)
		assert.Equal(t, Handle(i), h)
	}
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, MinimumCapacity, a.Cap())
}

func TestAddRejectsNil(t *testing.T) {
	a := NewAllocator[*owner]()

	h, err := a.Add(nil)
	assert.ErrorIs(t, err, ErrNilOwner)
	assert.Equal(t, Invalid, h)
	assert.Equal(t, 0, a.Len())

	var iface = NewAllocator[any]()
	_, err = iface.Add(nil)
	assert.ErrorIs(t, err, ErrNilOwner)
}

func TestSlotReuse(t *testing.T) {
	a := NewAllocator[*owner]()
	oa, ob, oc := &owner{"a"}, &owner{"b"}, &owner{"c"}

	_, err := a.Add(oa)
	require.NoError(t, err)
	hb, err := a.Add(ob)
	require.NoError(t, err)

	removed, ok := a.Remove(hb)
	require.True(t, ok)
	assert.Same(t, ob, removed)

	hc, err := a.Add(oc)
	require.NoError(t, err)

	got, ok := a.Get(hc)
	require.True(t, ok)
	assert.Same(t, oc, got)
	assert.Equal(t, 2, a.Len())
}

func TestGrowthMonotonicity(t *testing.T) {
	a := NewAllocator[*owner](WithInitialCapacity(4))
	initial := a.Cap()

	seen := make(map[Handle]bool)
	for i := 0; i < 2*initial; i++ {
		h, err := a.Add(&owner{})
		require.NoError(t, err)
		require.False(t, seen[h], "duplicate live handle %d", h)
		seen[h] = true
	}
	assert.Equal(t, 2*initial, a.Len())
	assert.GreaterOrEqual(t, a.Cap(), 2*initial)
}

func TestGrowthClampsToMax(t *testing.T) {
	a := NewAllocator[*owner](WithMaxCapacity(40))
	require.Equal(t, MinimumCapacity, a.Cap())

	for i := 0; i <= MinimumCapacity; i++ {
		_, err := a.Add(&owner{})
		require.NoError(t, err)
	}
	assert.Equal(t, 40, a.Cap())
}

func TestInitialCapacityFloor(t *testing.T) {
	tests := []struct {
		name string
		opts []AllocatorBuilderOption
		want int
	}{
		{"default", nil, MinimumCapacity},
		{"below floor", []AllocatorBuilderOption{WithInitialCapacity(4)}, MinimumCapacity},
		{"zero", []AllocatorBuilderOption{WithInitialCapacity(0)}, MinimumCapacity},
		{"above floor", []AllocatorBuilderOption{WithInitialCapacity(64)}, 64},
		{"max below floor", []AllocatorBuilderOption{WithInitialCapacity(4), WithMaxCapacity(8)}, 8},
		{"initial above max", []AllocatorBuilderOption{WithInitialCapacity(100), WithMaxCapacity(50)}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewAllocator[*owner](tt.opts...).Cap())
		})
	}
}

func TestExhaustion(t *testing.T) {
	a := NewAllocator[*owner](WithMaxCapacity(3))

	owners := []*owner{{"0"}, {"1"}, {"2"}}
	handles := make([]Handle, 0, len(owners))
	for _, o := range owners {
		h, err := a.Add(o)
		require.NoError(t, err)
		handles = append(handles, h)
	}

	h, err := a.Add(&owner{"overflow"})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, Invalid, h)
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, 3, a.Cap())

	for i, h := range handles {
		got, ok := a.Get(h)
		require.True(t, ok)
		assert.Same(t, owners[i], got)
	}
}

func TestInvalidHandles(t *testing.T) {
	a := NewAllocator[*owner]()
	h, err := a.Add(&owner{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		handle Handle
	}{
		{"negative", -1},
		{"beyond capacity", Handle(a.Cap() + 10)},
		{"never assigned", h + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := a.Get(tt.handle)
			assert.False(t, ok)
			assert.Nil(t, got)

			got, ok = a.Remove(tt.handle)
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
	assert.Equal(t, 1, a.Len())
}

func TestRemoveTwiceIsNoop(t *testing.T) {
	a := NewAllocator[*owner]()
	h, err := a.Add(&owner{})
	require.NoError(t, err)

	_, ok := a.Remove(h)
	require.True(t, ok)
	_, ok = a.Remove(h)
	assert.False(t, ok)
	assert.Equal(t, 0, a.Len())

	// the handle must only be handed out once more, not twice
	h1, err := a.Add(&owner{})
	require.NoError(t, err)
	h2, err := a.Add(&owner{})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestEachVisitsLiveHandlesInOrder(t *testing.T) {
	a := NewAllocator[*owner]()
	for i := 0; i < 4; i++ {
		_, err := a.Add(&owner{})
		require.NoError(t, err)
	}
	a.Remove(1)

	var visited []Handle
	a.Each(func(h Handle, _ *owner) {
		visited = append(visited, h)
	})
	assert.Equal(t, []Handle{0, 2, 3}, visited)
}
