package terrain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelworld/internal/world"
)

func TestReseedIsDeterministic(t *testing.T) {
	params := world.DefaultParams(7)
	a := NewField(params)
	b := NewField(params)
	for i := 0; i < 64; i++ {
		x := float64(i)*13.37 + 0.25
		y := float64(i)*-7.11 + 0.5
		require.Equal(t, a.Sample2D(x, y), b.Sample2D(x, y))
		require.Equal(t, a.Sample3D(x, y, x+y), b.Sample3D(x, y, x+y))
	}

	b.Reseed(8)
	b.Reseed(7)
	for i := 0; i < 16; i++ {
		x := float64(i) * 3.3
		assert.Equal(t, a.Fractal(x, x/2, 4, 2, 0.5), b.Fractal(x, x/2, 4, 2, 0.5))
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	a := NewField(world.DefaultParams(1))
	b := NewField(world.DefaultParams(2))
	differs := false
	for i := 0; i < 64 && !differs; i++ {
		x := float64(i)*1.7 + 0.3
		differs = a.Sample2D(x, x*0.5+0.1) != b.Sample2D(x, x*0.5+0.1)
	}
	assert.True(t, differs)
}

func TestNoiseRanges(t *testing.T) {
	f := NewField(world.DefaultParams(99))
	for i := 0; i < 500; i++ {
		x := float64(i)*0.731 - 120
		y := float64(i)*1.113 + 45
		n := f.Sample2D(x, y)
		assert.GreaterOrEqual(t, n, -1.0)
		assert.LessOrEqual(t, n, 1.0)

		fr := f.Fractal(x, y, 6, 2, 0.5)
		assert.GreaterOrEqual(t, fr, -1.0)
		assert.LessOrEqual(t, fr, 1.0)

		r := f.Ridged(x, y, 5, 2, 0.5)
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)

		v := f.Value2D(x, y)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, 0.0, f.Fractal(1, 1, 0, 2, 0.5))
}

func TestNoiseIsContinuousFarFromOrigin(t *testing.T) {
	f := NewField(world.DefaultParams(42))
	const eps = 1e-7
	for _, x0 := range []float64{-4935, -5120, -10007, -250001, 4935, 65536} {
		assert.InDelta(t, f.Sample2D(x0-eps, 0.3), f.Sample2D(x0+eps, 0.3), 1e-4, "2d x=%v", x0)
		assert.InDelta(t, f.Sample2D(0.3, x0-eps), f.Sample2D(0.3, x0+eps), 1e-4, "2d y=%v", x0)
		assert.InDelta(t, f.Sample3D(x0-eps, 0.4, 0.7), f.Sample3D(x0+eps, 0.4, 0.7), 1e-4, "3d x=%v", x0)
		assert.InDelta(t, f.Sample3D(0.4, 0.7, x0-eps), f.Sample3D(0.4, 0.7, x0+eps), 1e-4, "3d z=%v", x0)
	}
	for _, x := range []float64{-9000.25, -300.5, 12.75} {
		assert.InDelta(t, f.Sample2D(x, 3.5), f.Sample2D(x+256, 3.5), 1e-9)
		assert.InDelta(t, f.Sample3D(x, 3.5, -7.25), f.Sample3D(x, 3.5, -7.25-256), 1e-9)
	}
}

func TestContinentalOffsetIsContinuous(t *testing.T) {
	const eps = 1e-9
	for _, edge := range []float64{-0.35, -0.1} {
		below := ContinentalOffset(edge - eps)
		above := ContinentalOffset(edge)
		assert.InDelta(t, below, above, 1e-6, "edge %v", edge)
	}
	prev := math.Inf(-1)
	for c := -1.0; c <= 1.0; c += 0.01 {
		v := ContinentalOffset(c)
		assert.GreaterOrEqual(t, v, prev-1e-9)
		prev = v
	}
	assert.Equal(t, -28.0, ContinentalOffset(-1))
	assert.Equal(t, 20.0, ContinentalOffset(1))
}

func TestTerrainSampleClampedAndFloored(t *testing.T) {
	params := world.DefaultParams(42)
	f := NewField(params)
	for wx := -400; wx <= 400; wx += 37 {
		for wz := -400; wz <= 400; wz += 41 {
			s := f.TerrainSample(wx, wz)
			require.GreaterOrEqual(t, s.Height, 2)
			require.LessOrEqual(t, s.Height, params.Height-2)
			if s.Height < params.WaterLevel {
				assert.Contains(t, []world.Biome{world.BiomeOcean, world.BiomeRiver}, s.Biome)
			}
			assert.Equal(t, s, f.TerrainSample(wx, wz))
		}
	}
}

func TestClassifyBiome(t *testing.T) {
	p := world.DefaultParams(0)
	cases := map[string]struct {
		height      int
		temp, humid float64
		cont        float64
		river       bool
		want        world.Biome
	}{
		"deep water":    {height: p.WaterLevel - 10, cont: -0.6, want: world.BiomeOcean},
		"river channel": {height: p.RiverBed, cont: 0.2, river: true, want: world.BiomeRiver},
		"shoreline":     {height: p.WaterLevel + 1, cont: -0.05, want: world.BiomeBeach},
		"peak":          {height: p.SnowLine + 2, temp: 0.9, cont: 0.5, want: world.BiomeSnowy},
		"cold slope":    {height: p.MountainLine + 1, temp: -0.5, cont: 0.5, want: world.BiomeSnowy},
		"slope":         {height: p.MountainLine + 1, temp: 0.2, cont: 0.5, want: world.BiomeMountain},
		"wet and hot":   {height: p.WaterLevel + 8, temp: 0.6, humid: 0.5, cont: 0.3, want: world.BiomeJungle},
		"dry and hot":   {height: p.WaterLevel + 8, temp: 0.4, humid: -0.2, cont: 0.3, want: world.BiomeDesert},
		"arid badlands": {height: p.WaterLevel + 8, temp: 0.7, humid: -0.5, cont: 0.3, want: world.BiomeMesa},
		"warm":          {height: p.WaterLevel + 8, temp: 0.4, humid: 0.0, cont: 0.3, want: world.BiomeSavanna},
		"tundra":        {height: p.WaterLevel + 8, temp: -0.6, cont: 0.3, want: world.BiomeSnowy},
		"temperate wet": {height: p.WaterLevel + 8, temp: 0.0, humid: 0.3, cont: 0.3, want: world.BiomeForest},
		"temperate dry": {height: p.WaterLevel + 8, temp: 0.0, humid: -0.3, cont: 0.3, want: world.BiomePlains},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, c.want, ClassifyBiome(p, c.height, c.temp, c.humid, c.cont, c.river))
		})
	}
}

func TestHashesAreStable(t *testing.T) {
	assert.Equal(t, Hash2(42, 10, -3), Hash2(42, 10, -3))
	assert.NotEqual(t, Hash2(42, 10, -3), Hash2(43, 10, -3))
	assert.Equal(t, Hash3(5, 1, 2, 3), Hash3(5, 1, 2, 3))
	for i := 0; i < 100; i++ {
		v := HashFloat(Hash2(1, i, -i))
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}
