package terrain

import (
	"math"

	"github.com/aquilax/go-perlin"

	"voxelworld/internal/world"
)

const (
	perlinAlpha = 2.0
	perlinBeta  = 2.0

	warpScale        = 1.0 / 320
	warpStrength     = 48.0
	continentalScale = 1.0 / 900
	erosionScale     = 1.0 / 520
	detailScale      = 1.0 / 36
	climateScale     = 1.0 / 760
	riverScale       = 1.0 / 640
	hillScale        = 1.0 / 110
	ridgeScale       = 1.0 / 240

	hillAmplitude   = 9.0
	ridgeAmplitude  = 58.0
	detailAmplitude = 2.0

	valleyWidth     = 0.11
	valleyDampening = 0.7
	riverThreshold  = 0.035
	riverMinCont    = -0.3
)

// channel offsets keep the macro channels decorrelated while sharing one
// gradient table.
var (
	offsetWarpX    = [2]float64{31.7, -12.3}
	offsetWarpZ    = [2]float64{-71.1, 44.9}
	offsetErosion  = [2]float64{103.3, 211.9}
	offsetDetail   = [2]float64{-207.5, 59.1}
	offsetTemp     = [2]float64{307.9, -331.7}
	offsetHumidity = [2]float64{-419.3, 443.1}
	offsetRiver    = [2]float64{523.7, 587.3}
	offsetHills    = [2]float64{-631.9, 677.7}
	offsetRidges   = [2]float64{743.1, -797.3}
	offsetCaveB    = [3]float64{17.3, 5.1, -9.7}
)

// TerrainSample is the transient result of sampling one world column.
type TerrainSample struct {
	Height          int
	Biome           world.Biome
	IsRiver         bool
	Continentalness float64
	Erosion         float64
	Temperature     float64
	Humidity        float64
}

// Field is a seeded noise source plus the derived terrain sampler. All
// sampling methods are safe for concurrent use; Reseed is not.
type Field struct {
	seed   int64
	params world.Params
	grad   *perlin.Perlin
	cave   *perlin.Perlin
}

// NewField builds a field for params.Seed.
func NewField(params world.Params) *Field {
	f := &Field{params: params}
	f.Reseed(params.Seed)
	return f
}

// Reseed re-derives every permutation and gradient table from seed.
func (f *Field) Reseed(seed int64) {
	f.seed = seed
	f.params.Seed = seed
	f.grad = perlin.NewPerlin(perlinAlpha, perlinBeta, 1, seed)
	f.cave = perlin.NewPerlin(perlinAlpha, perlinBeta, 1, seed^0x5bd1e995)
}

func (f *Field) Seed() int64 {
	return f.seed
}

// latticePeriod is the repeat length of the go-perlin gradient table.
const latticePeriod = 256

// wrapLattice folds v into [0, latticePeriod). go-perlin truncates its cell
// index toward zero, which is only correct for inputs above -4096; the noise
// repeats every latticePeriod cells, so folding changes nothing else.
func wrapLattice(v float64) float64 {
	return v - latticePeriod*math.Floor(v/latticePeriod)
}

// Sample2D returns single-octave gradient noise in [-1, 1].
func (f *Field) Sample2D(x, y float64) float64 {
	return clampFloat(f.grad.Noise2D(wrapLattice(x), wrapLattice(y))*math.Sqrt2, -1, 1)
}

// Sample3D returns single-octave gradient noise in [-1, 1] from the cave
// channel.
func (f *Field) Sample3D(x, y, z float64) float64 {
	return clampFloat(f.cave.Noise3D(wrapLattice(x), wrapLattice(y), wrapLattice(z))*math.Sqrt2, -1, 1)
}

// Value2D is hashed lattice value noise in [-1, 1].
func (f *Field) Value2D(x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	sx := smooth(x - float64(x0))
	sy := smooth(y - float64(y0))

	ix0 := lerp(random2D(x0, y0, f.seed), random2D(x0+1, y0, f.seed), sx)
	ix1 := lerp(random2D(x0, y0+1, f.seed), random2D(x0+1, y0+1, f.seed), sx)
	return lerp(ix0, ix1, sy)
}

// Fractal sums octaves of Sample2D and normalises by the amplitude total.
func (f *Field) Fractal(x, y float64, octaves int, lacunarity, gain float64) float64 {
	frequency := 1.0
	amplitude := 1.0
	noiseSum := 0.0
	maxAmplitude := 0.0

	for i := 0; i < octaves; i++ {
		noiseSum += f.Sample2D(x*frequency, y*frequency) * amplitude
		maxAmplitude += amplitude
		amplitude *= gain
		frequency *= lacunarity
	}

	if maxAmplitude == 0 {
		return 0
	}
	return noiseSum / maxAmplitude
}

// Ridged accumulates (1-|n|)^2 per octave. The result lies in [0, 1].
func (f *Field) Ridged(x, y float64, octaves int, lacunarity, gain float64) float64 {
	frequency := 1.0
	amplitude := 1.0
	noiseSum := 0.0
	maxAmplitude := 0.0

	for i := 0; i < octaves; i++ {
		n := 1 - math.Abs(f.Sample2D(x*frequency, y*frequency))
		noiseSum += n * n * amplitude
		maxAmplitude += amplitude
		amplitude *= gain
		frequency *= lacunarity
	}

	if maxAmplitude == 0 {
		return 0
	}
	return noiseSum / maxAmplitude
}

// ContinentalOffset maps continentalness onto a height offset relative to
// the water level with a three segment smoothstep spline.
func ContinentalOffset(c float64) float64 {
	switch {
	case c < -0.35:
		return lerp(-28, -6, smoothstep(-0.8, -0.35, c))
	case c < -0.1:
		return lerp(-6, 2, smoothstep(-0.35, -0.1, c))
	default:
		return lerp(2, 20, smoothstep(-0.1, 0.6, c))
	}
}

// TerrainSample computes height and biome for one world column.
func (f *Field) TerrainSample(wx, wz int) TerrainSample {
	p := f.params
	x := float64(wx)
	z := float64(wz)

	// warp
	qx := x + f.Fractal(x*warpScale+offsetWarpX[0], z*warpScale+offsetWarpX[1], 3, 2, 0.5)*warpStrength
	qz := z + f.Fractal(x*warpScale+offsetWarpZ[0], z*warpScale+offsetWarpZ[1], 3, 2, 0.5)*warpStrength

	// macro channels
	cont := f.Fractal(qx*continentalScale, qz*continentalScale, 4, 2, 0.5)
	erosion := f.Fractal(qx*erosionScale+offsetErosion[0], qz*erosionScale+offsetErosion[1], 3, 2, 0.5)
	detail := f.Fractal(qx*detailScale+offsetDetail[0], qz*detailScale+offsetDetail[1], 2, 2, 0.5)
	temp := f.Fractal(qx*climateScale+offsetTemp[0], qz*climateScale+offsetTemp[1], 2, 2, 0.5)
	humid := f.Fractal(qx*climateScale+offsetHumidity[0], qz*climateScale+offsetHumidity[1], 2, 2, 0.5)
	river := math.Abs(f.Fractal(qx*riverScale+offsetRiver[0], qz*riverScale+offsetRiver[1], 3, 2, 0.5))

	valley := 1 - smoothstep(0, valleyWidth, river)
	if cont < riverMinCont {
		valley = 0
	}

	water := float64(p.WaterLevel)
	height := water + ContinentalOffset(cont)*(1-valley*valleyDampening)

	inland := smoothstep(-0.1, 0.35, cont)
	mix := smoothstep(-0.25, 0.45, -erosion)
	hills := f.Fractal(qx*hillScale+offsetHills[0], qz*hillScale+offsetHills[1], 4, 2, 0.5) * hillAmplitude
	ridges := f.Ridged(qx*ridgeScale+offsetRidges[0], qz*ridgeScale+offsetRidges[1], 5, 2, 0.5) * ridgeAmplitude
	height += lerp(hills, ridges, mix) * inland * (1 - valley)
	height += detail * detailAmplitude

	floor := water + 1
	height = lerp(height, floor, smoothstep(0.35, 1, valley))

	isRiver := cont >= riverMinCont && river < riverThreshold
	if isRiver {
		t := smoothstep(0, 1, 1-river/riverThreshold)
		bed := float64(p.RiverBed)
		if height > bed {
			height = lerp(height, bed, t)
		}
	}

	height = clampFloat(height, 2, float64(p.Height-2))
	h := int(math.Floor(height))

	return TerrainSample{
		Height:          h,
		Biome:           ClassifyBiome(p, h, temp, humid, cont, isRiver),
		IsRiver:         isRiver,
		Continentalness: cont,
		Erosion:         erosion,
		Temperature:     temp,
		Humidity:        humid,
	}
}

// ClassifyBiome is the column biome decision tree.
func ClassifyBiome(p world.Params, height int, temp, humid, cont float64, isRiver bool) world.Biome {
	switch {
	case height < p.WaterLevel && isRiver:
		return world.BiomeRiver
	case height < p.WaterLevel:
		return world.BiomeOcean
	case height <= p.WaterLevel+p.BeachBand && cont < 0.1:
		return world.BiomeBeach
	case height >= p.SnowLine:
		return world.BiomeSnowy
	case height >= p.MountainLine:
		if temp < -0.2 {
			return world.BiomeSnowy
		}
		return world.BiomeMountain
	}

	switch {
	case temp > 0.3:
		switch {
		case humid > 0.2:
			return world.BiomeJungle
		case humid < -0.3 && temp > 0.5:
			return world.BiomeMesa
		case humid < -0.05:
			return world.BiomeDesert
		default:
			return world.BiomeSavanna
		}
	case temp < -0.4:
		return world.BiomeSnowy
	case humid > 0.1:
		return world.BiomeForest
	default:
		return world.BiomePlains
	}
}

// CaveAt reports whether the cave mask carves the voxel at depth below the
// column surface.
func (f *Field) CaveAt(wx, y, wz, depth int) bool {
	x := float64(wx) * 0.055
	fy := float64(y) * 0.085
	z := float64(wz) * 0.055
	a := f.Sample3D(x, fy, z)
	b := f.Sample3D(x+offsetCaveB[0], fy+offsetCaveB[1], z+offsetCaveB[2])
	threshold := 0.06 + 0.06*clampFloat(float64(depth)/40, 0, 1)
	return math.Abs(a-b) < threshold
}

// Hash2 is a cheap integer hash of a world column and seed.
func Hash2(seed int64, x, z int) uint32 {
	return hash3(x, z, int(seed^seed>>32))
}

// Hash3 hashes a voxel coordinate and seed.
func Hash3(seed int64, x, y, z int) uint32 {
	return hash3(x, int(hash3(y, z, int(seed))), int(seed>>17))
}

// HashFloat maps a hash onto [0, 1).
func HashFloat(h uint32) float64 {
	return float64(h&0xFFFFFF) / float64(0x1000000)
}

func random2D(x, y int, seed int64) float64 {
	return float64(hash3(x, y, int(seed))&0xFFFF)/0x8000 - 1.0
}

func hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func smoothstep(edge0, edge1, x float64) float64 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	return smooth(clampFloat((x-edge0)/(edge1-edge0), 0, 1))
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
