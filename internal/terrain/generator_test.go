package terrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelworld/internal/world"
)

func newTestGenerator() *Generator {
	return NewGenerator(world.DefaultParams(42), world.DefaultRegistry())
}

func TestGenerateIsDeterministic(t *testing.T) {
	coords := []world.ChunkCoord{{X: 0, Z: 0}, {X: -3, Z: 5}, {X: 12, Z: -7}}
	for _, c := range coords {
		a := newTestGenerator().Generate(42, c.X, c.Z)
		b := newTestGenerator().Generate(42, c.X, c.Z)
		require.Equal(t, a.Volume.Voxels, b.Volume.Voxels, "chunk %v", c)
		assert.Equal(t, a.HeightMap, b.HeightMap)
		assert.Equal(t, a.TopLayer, b.TopLayer)
		assert.Equal(t, a.Biome, b.Biome)
		assert.Equal(t, a.Trees, b.Trees)
		assert.Equal(t, a.AverageHeight, b.AverageHeight)
	}
}

func TestSeed42CenterColumnIsStable(t *testing.T) {
	first := newTestGenerator()
	second := newTestGenerator()
	a := first.Generate(42, 0, 0)
	b := second.Generate(42, 0, 0)

	idx := a.Dims().ColumnIndex(8, 8)
	assert.Equal(t, a.HeightMap[idx], b.HeightMap[idx])
	assert.Equal(t, a.TopLayer[idx], b.TopLayer[idx])

	sa := first.Field(42).TerrainSample(8, 8)
	sb := second.Field(42).TerrainSample(8, 8)
	assert.Equal(t, sa.Height, sb.Height)
	assert.Equal(t, sa.Biome, sb.Biome)
	assert.NotEqual(t, world.Air, a.TopLayer[idx])
}

func TestGeneratedChunkInvariants(t *testing.T) {
	gen := newTestGenerator()
	reg := world.DefaultRegistry()
	chunk := gen.Generate(42, 2, -1)
	dims := chunk.Dims()

	require.Len(t, chunk.Volume.Voxels, dims.Volume())
	require.Len(t, chunk.HeightMap, dims.Columns())
	for _, id := range chunk.Volume.Voxels {
		require.True(t, reg.Registered(id))
	}
	for x := 0; x < dims.Size; x++ {
		for z := 0; z < dims.Size; z++ {
			assert.Equal(t, world.Bedrock, chunk.Block(x, 0, z))
			idx := dims.ColumnIndex(x, z)
			h := int(chunk.HeightMap[idx])
			assert.Equal(t, chunk.TopLayer[idx], chunk.Block(x, h, z))
			for y := h + 1; y < dims.Height; y++ {
				require.Equal(t, world.Air, chunk.Block(x, y, z))
			}
		}
	}
	for _, tree := range chunk.Trees {
		assert.True(t, dims.InColumnBounds(tree.LocalX, tree.LocalZ))
		assert.True(t, reg.IsLog(chunk.Block(tree.LocalX, tree.WorldY, tree.LocalZ)), "tree %+v", tree)
	}
}

// terrainTop finds the highest terrain voxel, ignoring decoration, fluids
// and surface ice.
func terrainTop(reg *world.Registry, vol *world.Volume, x, z int) int {
	for y := vol.Dims.Height - 1; y >= 0; y-- {
		id := vol.At(x, y, z)
		if id == world.Ice {
			continue
		}
		if reg.Lookup(id).Category == world.CategoryTerrain {
			return y
		}
	}
	return -1
}

func TestNeighborChunksShareTheField(t *testing.T) {
	gen := newTestGenerator()
	reg := world.DefaultRegistry()
	left := gen.Generate(42, 0, 0)
	right := gen.Generate(42, 1, 0)
	field := gen.Field(42)
	size := gen.Params().ChunkSize

	for z := 0; z < size; z++ {
		wantLeft := field.TerrainSample(size-1, z).Height
		wantRight := field.TerrainSample(size, z).Height
		assert.Equal(t, wantLeft, terrainTop(reg, left.Volume, size-1, z), "left z=%d", z)
		assert.Equal(t, wantRight, terrainTop(reg, right.Volume, 0, z), "right z=%d", z)
	}
}

func TestSurfaceHeightMatchesSampler(t *testing.T) {
	gen := newTestGenerator()
	for _, wx := range []int{-100, 0, 77} {
		assert.Equal(t, gen.Field(42).TerrainSample(wx, wx/2).Height, gen.SurfaceHeight(42, wx, wx/2))
	}
}

func TestGatedWrite(t *testing.T) {
	gen := newTestGenerator()
	dims := world.Dims{Size: 4, Height: 4}
	b := &chunkBuild{gen: gen, dims: dims, vol: world.NewVolume(world.ChunkCoord{}, dims)}

	b.vol.Set(0, 0, 0, world.OakLeaves)
	b.vol.Set(1, 0, 0, world.Stone)
	b.vol.Set(2, 0, 0, world.Water)
	b.vol.Set(3, 0, 0, world.TallGrass)
	b.vol.Set(0, 1, 0, world.OakLog)

	cases := map[string]struct {
		x, y, z int
		id      world.BlockID
		ok      bool
		want    world.BlockID
	}{
		"air":              {0, 2, 0, world.OakLeaves, true, world.OakLeaves},
		"log over leaves":  {0, 0, 0, world.OakLog, true, world.OakLog},
		"stone kept":       {1, 0, 0, world.OakLog, false, world.Stone},
		"water replaced":   {2, 0, 0, world.Seagrass, true, world.Seagrass},
		"plant replaced":   {3, 0, 0, world.OakLeaves, true, world.OakLeaves},
		"leaves keep logs": {0, 1, 0, world.OakLeaves, false, world.OakLog},
	}
	for _, name := range []string{"air", "log over leaves", "stone kept", "water replaced", "plant replaced", "leaves keep logs"} {
		c := cases[name]
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, c.ok, b.place(c.x, c.y, c.z, c.id))
			assert.Equal(t, c.want, b.vol.At(c.x, c.y, c.z))
		})
	}

	b.vol.Set(1, 1, 1, world.SpruceLeaves)
	assert.False(t, b.place(1, 1, 1, world.OakLeaves))
	assert.Equal(t, world.SpruceLeaves, b.vol.At(1, 1, 1))

	assert.False(t, b.place(-1, 0, 0, world.OakLog))
	assert.False(t, b.place(0, 4, 0, world.OakLog))
}

func TestDominantBiome(t *testing.T) {
	total := 100
	cases := map[string]struct {
		counts [5]int
		want   world.DominantBiome
	}{
		"mostly plain":        {counts: [5]int{world.DominantPlain: 70, world.DominantForest: 30}, want: world.DominantPlain},
		"ocean majority":      {counts: [5]int{world.DominantOcean: 55, world.DominantPlain: 45}, want: world.DominantOcean},
		"mountain share":      {counts: [5]int{world.DominantMountain: 31, world.DominantPlain: 69}, want: world.DominantMountain},
		"forest beats desert": {counts: [5]int{world.DominantForest: 50, world.DominantDesert: 40, world.DominantPlain: 10}, want: world.DominantForest},
		"below every cutoff":  {counts: [5]int{world.DominantOcean: 30, world.DominantDesert: 35, world.DominantPlain: 35}, want: world.DominantPlain},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, c.want, dominantBiome(c.counts, total))
		})
	}
}

func TestDeterministicRNG(t *testing.T) {
	a := newDeterministicRNG(3, -4, 42)
	b := newDeterministicRNG(3, -4, 42)
	for i := 0; i < 32; i++ {
		v := a.nextInt(7)
		assert.Equal(t, v, b.nextInt(7))
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 7)
	}
	assert.Equal(t, 0, a.nextInt(0))
}

func TestChunkSizeDoesNotChangeTheWorld(t *testing.T) {
	bigParams := world.DefaultParams(42)
	bigParams.ChunkSize = 64
	smallParams := world.DefaultParams(42)
	smallParams.ChunkSize = 16
	big := NewGenerator(bigParams, world.DefaultRegistry())
	small := NewGenerator(smallParams, world.DefaultRegistry())
	per := bigParams.ChunkSize / smallParams.ChunkSize

	for _, bc := range []world.ChunkCoord{{X: 0, Z: 0}, {X: -1, Z: 1}} {
		whole := big.Generate(42, bc.X, bc.Z)
		trees := 0
		for i := 0; i < per; i++ {
			for j := 0; j < per; j++ {
				part := small.Generate(42, bc.X*per+i, bc.Z*per+j)
				trees += len(part.Trees)
				for x := 0; x < smallParams.ChunkSize; x++ {
					for z := 0; z < smallParams.ChunkSize; z++ {
						for y := 0; y < smallParams.Height; y++ {
							want := whole.Block(i*smallParams.ChunkSize+x, y, j*smallParams.ChunkSize+z)
							if got := part.Block(x, y, z); got != want {
								t.Fatalf("chunk %v sub %d,%d voxel %d,%d,%d = %d, want %d", bc, i, j, x, y, z, got, want)
							}
						}
					}
				}
			}
		}
		assert.Equal(t, len(whole.Trees), trees, "chunk %v", bc)
	}
}

func TestGravelPatchCrossesChunkBorder(t *testing.T) {
	gen := newTestGenerator()
	p := gen.Params()
	dims := p.Dims()
	field := gen.Field(42)

	for cx := -64; cx <= 64; cx++ {
		wx := cx*p.ChunkSize + p.ChunkSize - 1
		for wz := -1024; wz <= 1024; wz++ {
			if _, ok := gen.gravelPatch(field, 42, field.TerrainSample(wx, wz), wx, wz); !ok {
				continue
			}
			across := field.TerrainSample(wx+1, wz)
			if s, _ := surfaceBlocks(p, across); s != world.Sand {
				continue
			}
			coord, lx, lz := dims.ChunkOf(wx+1, wz)
			require.Equal(t, 0, lx)
			chunk := gen.Generate(42, coord.X, coord.Z)
			assert.Equal(t, world.Gravel, chunk.Block(lx, across.Height, lz), "patch centred at %d,%d", wx, wz)
			return
		}
	}
	t.Fatal("no gravel patch centre on a chunk border")
}
