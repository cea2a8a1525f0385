package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelworld/internal/world"
)

func TestStoreInsertRemoveVersion(t *testing.T) {
	dims := testParams().Dims()
	s := NewStore()
	assert.Zero(t, s.Version())

	a := flatChunk(world.ChunkCoord{X: 1, Z: 2}, dims)
	s.Insert(a)
	assert.Equal(t, uint64(1), s.Version())
	got, ok := s.Get(a.Coord)
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.False(t, s.Remove(world.ChunkCoord{X: 9}))
	assert.Equal(t, uint64(1), s.Version())
	assert.True(t, s.Remove(a.Coord))
	assert.Equal(t, uint64(2), s.Version())
	assert.False(t, s.Has(a.Coord))
}

func TestStoreEvictBeyond(t *testing.T) {
	dims := testParams().Dims()
	s := NewStore()
	forEachWithin(world.ChunkCoord{}, 3, func(c world.ChunkCoord) {
		s.Insert(flatChunk(c, dims))
	})
	require.Equal(t, 49, s.Len())
	before := s.Version()

	evicted := s.EvictBeyond(world.ChunkCoord{X: 1}, 2)
	// Columns x=-3 and x=-2 are farther than 2 from x=1; rows z=±3 as well.
	assert.Len(t, evicted, 49-25)
	assert.Equal(t, 25, s.Len())
	assert.Equal(t, before+1, s.Version())
	for _, c := range s.Coords() {
		assert.LessOrEqual(t, c.Chebyshev(world.ChunkCoord{X: 1}), 2)
	}
	assert.Equal(t, world.ChunkCoord{X: -3, Z: -3}, evicted[0])

	assert.Empty(t, s.EvictBeyond(world.ChunkCoord{X: 1}, 2))
	assert.Equal(t, before+1, s.Version())
}

func TestSpiralVisitsRingsInOrder(t *testing.T) {
	center := world.ChunkCoord{X: -4, Z: 7}
	var s spiral
	s.reset(center, 3)

	seen := make(map[world.ChunkCoord]bool)
	last := 0
	var order []world.ChunkCoord
	for {
		c, ok := s.next()
		if !ok {
			break
		}
		d := c.Chebyshev(center)
		assert.GreaterOrEqual(t, d, last, "ring order broken at %v", c)
		last = d
		assert.False(t, seen[c], "duplicate %v", c)
		seen[c] = true
		order = append(order, c)
	}
	require.Len(t, order, 49)
	assert.Equal(t, center, order[0])
	for _, c := range order[1:9] {
		assert.Equal(t, 1, c.Chebyshev(center))
	}

	_, ok := s.next()
	assert.False(t, ok)
}

func TestSpiralUnread(t *testing.T) {
	var s spiral
	s.reset(world.ChunkCoord{}, 1)
	first, _ := s.next()
	second, _ := s.next()
	s.unread(second)
	again, ok := s.next()
	require.True(t, ok)
	assert.Equal(t, second, again)
	third, _ := s.next()
	assert.NotEqual(t, second, third)
	assert.NotEqual(t, first, third)
}

func TestSpiralZeroRadius(t *testing.T) {
	var s spiral
	s.reset(world.ChunkCoord{X: 2}, 0)
	c, ok := s.next()
	require.True(t, ok)
	assert.Equal(t, world.ChunkCoord{X: 2}, c)
	_, ok = s.next()
	assert.False(t, ok)
}

func TestClassifyLOD(t *testing.T) {
	cases := []struct {
		d    int
		want LOD
	}{
		{0, LODShadow},
		{2, LODShadow},
		{3, LODDetail},
		{6, LODDetail},
		{7, LODDistant},
		{16, LODDistant},
		{17, LODNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyLOD(tc.d, 2, 6, 10), "distance %d", tc.d)
	}
	assert.True(t, LODShadow.Near())
	assert.True(t, LODDetail.Near())
	assert.False(t, LODDistant.Near())
	assert.False(t, LODNone.Near())
	assert.Equal(t, "distant", LODDistant.String())
}

func TestCommandQueueDrainOrder(t *testing.T) {
	q := NewCommandQueue()
	assert.Nil(t, q.Drain(0))

	q.MoveObserver(1, 2)
	q.SetBlock(3, 4, 5, world.Stone)
	q.MoveObserver(6, 7)
	require.Equal(t, 3, q.Len())

	first := q.Drain(2)
	require.Len(t, first, 2)
	assert.Equal(t, CommandObserver, first[0].Kind)
	assert.Equal(t, 1.0, first[0].PosX)
	assert.Equal(t, CommandSetBlock, first[1].Kind)
	assert.Equal(t, world.Stone, first[1].Block)
	assert.Equal(t, 1, q.Len())

	rest := q.Drain(0)
	require.Len(t, rest, 1)
	assert.Equal(t, 7.0, rest[0].PosZ)
	assert.Zero(t, q.Len())
}
