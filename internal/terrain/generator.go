package terrain

import (
	"sync"

	"voxelworld/internal/world"
)

const (
	treeSalt       = 0x7f4a7c15
	decorationSalt = 0x2545f491
	mesaBandSalt   = 0x6d657361
	maxCachedSeeds = 8

	gravelMaxRadius = 2
	gravelMaskScale = 1.0 / 24
	gravelMaskFloor = -0.25
)

// Generator fills chunk volumes. Generate is a pure function of the seed,
// the chunk coordinate and the block registry, and is safe to call from many
// goroutines at once.
type Generator struct {
	params   world.Params
	registry *world.Registry

	mu     sync.Mutex
	fields map[int64]*Field
}

func NewGenerator(params world.Params, registry *world.Registry) *Generator {
	if registry == nil {
		registry = world.DefaultRegistry()
	}
	return &Generator{
		params:   params,
		registry: registry,
		fields:   make(map[int64]*Field),
	}
}

func (g *Generator) Params() world.Params {
	return g.params
}

// Field returns the shared noise field for seed.
func (g *Generator) Field(seed int64) *Field {
	g.mu.Lock()
	defer g.mu.Unlock()
	if f, ok := g.fields[seed]; ok {
		return f
	}
	if len(g.fields) >= maxCachedSeeds {
		g.fields = make(map[int64]*Field)
	}
	p := g.params
	p.Seed = seed
	f := NewField(p)
	g.fields[seed] = f
	return f
}

// SurfaceHeight returns the undecorated ground height of a world column.
func (g *Generator) SurfaceHeight(seed int64, wx, wz int) int {
	return g.Field(seed).TerrainSample(wx, wz).Height
}

// chunkBuild carries the per-call state of one Generate invocation.
type chunkBuild struct {
	gen     *Generator
	field   *Field
	seed    int64
	coord   world.ChunkCoord
	dims    world.Dims
	originX int
	originZ int
	vol     *world.Volume
	samples []TerrainSample
	trees   []world.TreePlacement
}

// Generate builds the chunk at (cx, cz) for seed.
func (g *Generator) Generate(seed int64, cx, cz int) *world.Chunk {
	coord := world.ChunkCoord{X: cx, Z: cz}
	dims := g.params.Dims()
	ox, oz := dims.Origin(coord)
	b := &chunkBuild{
		gen:     g,
		field:   g.Field(seed),
		seed:    seed,
		coord:   coord,
		dims:    dims,
		originX: ox,
		originZ: oz,
		vol:     world.NewVolume(coord, dims),
		samples: make([]TerrainSample, dims.Columns()),
	}

	b.fillColumns()
	b.growForests()
	b.decorateSurface()
	b.scatterGravel()
	return b.summarize()
}

// sample returns the terrain sample for a world column, using the cached
// column pass result when the column lies inside the chunk.
func (b *chunkBuild) sample(wx, wz int) TerrainSample {
	lx, lz := wx-b.originX, wz-b.originZ
	if b.dims.InColumnBounds(lx, lz) {
		return b.samples[b.dims.ColumnIndex(lx, lz)]
	}
	return b.field.TerrainSample(wx, wz)
}

func (b *chunkBuild) fillColumns() {
	for x := 0; x < b.dims.Size; x++ {
		for z := 0; z < b.dims.Size; z++ {
			wx, wz := b.originX+x, b.originZ+z
			s := b.field.TerrainSample(wx, wz)
			b.samples[b.dims.ColumnIndex(x, z)] = s
			b.fillColumn(x, z, wx, wz, s)
		}
	}
}

func (b *chunkBuild) fillColumn(x, z, wx, wz int, s TerrainSample) {
	p := b.gen.params
	h := s.Height
	surface, subsurface := surfaceBlocks(p, s)

	b.vol.Set(x, 0, z, world.Bedrock)
	for y := 1; y <= h; y++ {
		depth := h - y
		id := world.Stone
		switch {
		case s.Biome == world.BiomeMesa && depth > 0 && depth <= 14:
			id = b.mesaBand(y)
		case depth == 0:
			id = surface
		case depth <= 3:
			id = subsurface
		}
		b.vol.Set(x, y, z, id)
	}

	for y := h + 1; y <= p.WaterLevel; y++ {
		id := world.Water
		if y == p.WaterLevel && s.Temperature < -0.45 {
			id = world.Ice
		}
		b.vol.Set(x, y, z, id)
	}

	top := h - p.CaveMinDepth
	for y := 2; y < top; y++ {
		if b.field.CaveAt(wx, y, wz, h-y) {
			b.vol.Set(x, y, z, world.Air)
		}
	}
}

func surfaceBlocks(p world.Params, s TerrainSample) (world.BlockID, world.BlockID) {
	switch s.Biome {
	case world.BiomeOcean, world.BiomeRiver, world.BiomeBeach:
		return world.Sand, world.Sand
	case world.BiomeDesert:
		return world.Sand, world.Sandstone
	case world.BiomeMesa:
		return world.RedSand, world.RedSandstone
	case world.BiomeSnowy:
		return world.Snow, world.Dirt
	case world.BiomeMountain:
		if s.Height >= p.SnowLine {
			return world.Snow, world.Stone
		}
		if s.Height >= p.MountainLine+8 {
			return world.Stone, world.Stone
		}
	}
	if s.Height >= p.SnowLine {
		return world.Snow, world.Dirt
	}
	return world.Grass, world.Dirt
}

// mesaBand picks the strata block for height y from a hashed band index so
// that stripes line up across the whole mesa.
func (b *chunkBuild) mesaBand(y int) world.BlockID {
	switch hash3(y/2, mesaBandSalt, int(b.seed)) % 5 {
	case 0, 3:
		return world.RedSand
	case 1:
		return world.Terracotta
	default:
		return world.RedSandstone
	}
}

// place is the single gated write used by every decoration routine. It
// takes local coordinates and silently drops writes outside the volume.
func (b *chunkBuild) place(x, y, z int, id world.BlockID) bool {
	if !b.dims.InBounds(x, y, z) {
		return false
	}
	reg := b.gen.registry
	current := b.vol.At(x, y, z)
	switch {
	case reg.IsReplaceable(current):
	case reg.IsLeaves(current) && reg.IsLog(id):
	default:
		return false
	}
	return b.vol.Set(x, y, z, id)
}

func (b *chunkBuild) decorateSurface() {
	p := b.gen.params
	for x := 0; x < b.dims.Size; x++ {
		for z := 0; z < b.dims.Size; z++ {
			s := b.samples[b.dims.ColumnIndex(x, z)]
			wx, wz := b.originX+x, b.originZ+z
			gate := Hash2(b.seed^decorationSalt, wx, wz)
			roll := HashFloat(gate)
			h := s.Height
			if h+1 >= b.dims.Height {
				continue
			}

			if s.Biome == world.BiomeOcean {
				b.decorateSeabed(x, z, h, roll)
				continue
			}
			if h < p.WaterLevel || b.vol.At(x, h+1, z) != world.Air {
				continue
			}
			ground := b.vol.At(x, h, z)

			switch s.Biome {
			case world.BiomeDesert, world.BiomeMesa:
				if ground != world.Sand && ground != world.RedSand {
					continue
				}
				switch {
				case roll < 0.012:
					height := 1 + int(gate>>8)%3
					for dy := 1; dy <= height; dy++ {
						if !b.place(x, h+dy, z, world.Cactus) {
							break
						}
					}
				case roll < 0.03:
					b.place(x, h+1, z, world.DeadBush)
				}
			case world.BiomePlains, world.BiomeForest, world.BiomeJungle, world.BiomeSavanna:
				if ground != world.Grass {
					continue
				}
				if id, ok := plantFor(s.Biome, roll, gate); ok {
					b.place(x, h+1, z, id)
				}
			}
		}
	}
}

// plantFor applies the per-biome plant weighting to one column roll.
func plantFor(biome world.Biome, roll float64, gate uint32) (world.BlockID, bool) {
	pick := gate >> 24
	switch biome {
	case world.BiomePlains:
		switch {
		case roll < 0.10:
			return world.TallGrass, true
		case roll < 0.13:
			if pick&1 == 0 {
				return world.Poppy, true
			}
			return world.Dandelion, true
		}
	case world.BiomeForest:
		switch {
		case roll < 0.07:
			return world.TallGrass, true
		case roll < 0.11:
			return world.Fern, true
		case roll < 0.125:
			return world.Poppy, true
		}
	case world.BiomeJungle:
		switch {
		case roll < 0.14:
			return world.Fern, true
		case roll < 0.22:
			return world.TallGrass, true
		case roll < 0.25:
			return world.BlueOrchid, true
		}
	case world.BiomeSavanna:
		switch {
		case roll < 0.12:
			return world.TallGrass, true
		case roll < 0.13:
			return world.Dandelion, true
		}
	}
	return world.Air, false
}

func (b *chunkBuild) decorateSeabed(x, z, h int, roll float64) {
	p := b.gen.params
	if p.WaterLevel-h < 2 || b.vol.At(x, h+1, z) != world.Water {
		return
	}
	switch {
	case roll < 0.07:
		b.place(x, h+1, z, world.Seagrass)
	case roll < 0.075:
		b.place(x, h+1, z, world.SeaLantern)
	}
}

// scatterGravel turns sandy seabed into gravel around patch centres. Centres
// within gravelMaxRadius of the chunk count, so a patch straddling a border
// is painted the same on both sides. Whether a column is a centre depends
// only on the field and the column hash.
func (b *chunkBuild) scatterGravel() {
	for wx := b.originX - gravelMaxRadius; wx < b.originX+b.dims.Size+gravelMaxRadius; wx++ {
		for wz := b.originZ - gravelMaxRadius; wz < b.originZ+b.dims.Size+gravelMaxRadius; wz++ {
			radius, ok := b.gen.gravelPatch(b.field, b.seed, b.sample(wx, wz), wx, wz)
			if !ok {
				continue
			}
			for dx := -radius; dx <= radius; dx++ {
				for dz := -radius; dz <= radius; dz++ {
					x, z := wx+dx-b.originX, wz+dz-b.originZ
					if !b.dims.InColumnBounds(x, z) {
						continue
					}
					h := b.samples[b.dims.ColumnIndex(x, z)].Height
					if b.vol.At(x, h, z) == world.Sand {
						b.vol.Set(x, h, z, world.Gravel)
					}
				}
			}
		}
	}
}

// gravelPatch reports whether the column centres a gravel patch and how far
// the patch reaches.
func (g *Generator) gravelPatch(f *Field, seed int64, s TerrainSample, wx, wz int) (int, bool) {
	p := g.params
	if s.Biome != world.BiomeOcean || p.WaterLevel-s.Height < 2 || s.Height+1 >= p.Height {
		return 0, false
	}
	gate := Hash2(seed^decorationSalt, wx, wz)
	if roll := HashFloat(gate); roll < 0.075 || roll >= 0.095 {
		return 0, false
	}
	if f.Value2D(float64(wx)*gravelMaskScale, float64(wz)*gravelMaskScale) < gravelMaskFloor {
		return 0, false
	}
	return 1 + int(gate>>12)%gravelMaxRadius, true
}

func (b *chunkBuild) summarize() *world.Chunk {
	dims := b.dims
	chunk := &world.Chunk{
		Coord:  b.coord,
		Volume: b.vol,
		Trees:  b.trees,
	}
	chunk.RecomputeSummary()

	var counts [5]int
	for _, s := range b.samples {
		counts[s.Biome.Family()]++
	}
	chunk.Biome = dominantBiome(counts, dims.Columns())
	return chunk
}

// dominantBiome picks the plurality among categories that clear their
// priority threshold, defaulting to plain.
func dominantBiome(counts [5]int, total int) world.DominantBiome {
	if total <= 0 {
		return world.DominantPlain
	}
	thresholds := []struct {
		label world.DominantBiome
		share float64
	}{
		{world.DominantOcean, 0.5},
		{world.DominantMountain, 0.3},
		{world.DominantDesert, 0.4},
		{world.DominantForest, 0.4},
	}
	best := world.DominantPlain
	bestCount := 0
	for _, t := range thresholds {
		n := counts[t.label]
		if float64(n) < t.share*float64(total) {
			continue
		}
		if n > bestCount {
			best = t.label
			bestCount = n
		}
	}
	return best
}
