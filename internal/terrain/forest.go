package terrain

import (
	"math"

	"voxelworld/internal/world"
)

type treeVariant struct {
	species     world.Species
	log         world.BlockID
	leaves      world.BlockID
	minHeight   int
	heightRange int
	canopy      int
	fluff       int // percent of edge leaves dropped
}

var treeVariants = map[world.Species]treeVariant{
	world.SpeciesOak: {
		species: world.SpeciesOak, log: world.OakLog, leaves: world.OakLeaves,
		minHeight: 4, heightRange: 3, canopy: 2, fluff: 35,
	},
	world.SpeciesBirch: {
		species: world.SpeciesBirch, log: world.BirchLog, leaves: world.BirchLeaves,
		minHeight: 5, heightRange: 3, canopy: 2, fluff: 25,
	},
	world.SpeciesSpruce: {
		species: world.SpeciesSpruce, log: world.SpruceLog, leaves: world.SpruceLeaves,
		minHeight: 6, heightRange: 5, canopy: 3, fluff: 20,
	},
	world.SpeciesJungle: {
		species: world.SpeciesJungle, log: world.JungleLog, leaves: world.JungleLeaves,
		minHeight: 8, heightRange: 6, canopy: 3, fluff: 30,
	},
	world.SpeciesAcacia: {
		species: world.SpeciesAcacia, log: world.AcaciaLog, leaves: world.AcaciaLeaves,
		minHeight: 4, heightRange: 3, canopy: 3, fluff: 25,
	},
}

// treeChoice returns the species and placement chance for a biome. Biomes
// without trees report false.
func treeChoice(s TerrainSample, gate uint32) (world.Species, float64, bool) {
	switch s.Biome {
	case world.BiomeForest:
		if s.Humidity > 0.3 && gate>>28 < 5 {
			return world.SpeciesBirch, 0.045, true
		}
		return world.SpeciesOak, 0.045, true
	case world.BiomePlains:
		return world.SpeciesOak, 0.004, true
	case world.BiomeJungle:
		return world.SpeciesJungle, 0.05, true
	case world.BiomeSavanna:
		return world.SpeciesAcacia, 0.008, true
	case world.BiomeMountain:
		return world.SpeciesSpruce, 0.012, true
	case world.BiomeSnowy:
		return world.SpeciesSpruce, 0.02, true
	}
	return 0, 0, false
}

// growForests paints every tree whose trunk lies within the chunk plus the
// decoration margin. Trunks outside the chunk only contribute the parts of
// their canopy that overhang it.
func (b *chunkBuild) growForests() {
	p := b.gen.params
	margin := p.DecorationMargin
	for wx := b.originX - margin; wx < b.originX+b.dims.Size+margin; wx++ {
		for wz := b.originZ - margin; wz < b.originZ+b.dims.Size+margin; wz++ {
			gate := Hash2(b.seed^treeSalt, wx, wz)
			s := b.sample(wx, wz)
			if s.Height < p.WaterLevel || s.Height+1 >= b.dims.Height {
				continue
			}
			species, chance, ok := treeChoice(s, gate)
			if !ok || HashFloat(gate) >= chance {
				continue
			}
			if s.Biome != world.BiomeSnowy && s.Height >= p.SnowLine {
				continue
			}

			lx, lz := wx-b.originX, wz-b.originZ
			baseY := s.Height + 1
			if b.dims.InColumnBounds(lx, lz) {
				b.trees = append(b.trees, world.TreePlacement{LocalX: lx, WorldY: baseY, LocalZ: lz, Species: species})
			}

			rng := newDeterministicRNG(wx, wz, b.seed)
			b.buildTree(treeVariants[species], lx, baseY, lz, rng)
		}
	}
}

func (b *chunkBuild) buildTree(v treeVariant, x, y, z int, rng *deterministicRNG) {
	height := v.minHeight + rng.nextInt(v.heightRange)
	switch v.species {
	case world.SpeciesSpruce:
		b.buildSpruce(v, x, y, z, height, rng)
	case world.SpeciesJungle:
		b.buildJungle(v, x, y, z, height, rng)
	case world.SpeciesAcacia:
		b.buildAcacia(v, x, y, z, height, rng)
	default:
		b.buildTrunk(v.log, x, y, z, height)
		top := y + height - 1
		radius := v.canopy
		if v.species == world.SpeciesBirch {
			b.buildDiamond(v.leaves, x, top-1, z, radius, v.fluff, rng)
			b.buildDiamond(v.leaves, x, top, z, radius, v.fluff, rng)
			b.buildDiamond(v.leaves, x, top+1, z, 1, 0, rng)
			return
		}
		b.buildLeafCluster(v.leaves, x, top, z, radius, v.fluff, rng)
		b.buildLeafCluster(v.leaves, x, top+2, z, 1, 0, rng)
	}
}

func (b *chunkBuild) buildTrunk(id world.BlockID, x, y, z, height int) {
	for dy := 0; dy < height; dy++ {
		b.place(x, y+dy, z, id)
	}
}

func (b *chunkBuild) buildSpruce(v treeVariant, x, y, z, height int, rng *deterministicRNG) {
	b.buildTrunk(v.log, x, y, z, height)
	top := y + height
	b.place(x, top, z, v.leaves)
	radius := 1
	for ly := top - 1; ly >= y+2; ly-- {
		b.buildDiamond(v.leaves, x, ly, z, radius, v.fluff, rng)
		if (top-ly)%2 == 0 && radius < v.canopy {
			radius++
		} else if radius > 1 && (top-ly)%3 == 0 {
			radius--
		}
	}
}

func (b *chunkBuild) buildJungle(v treeVariant, x, y, z, height int, rng *deterministicRNG) {
	fork := y + height*2/3
	b.buildTrunk(v.log, x, y, z, fork-y+1)

	dirs := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	first := rng.nextInt(4)
	for i := 0; i < 2; i++ {
		d := dirs[(first+i*2)%4]
		reach := 2 + rng.nextInt(2)
		lift := height - (fork - y) + rng.nextInt(2)
		ex, ey, ez := x+d[0]*reach, fork+lift, z+d[1]*reach
		b.buildBranch(v.log, x, fork, z, ex, ey, ez)
		b.buildLeafCluster(v.leaves, ex, ey, ez, v.canopy, v.fluff, rng)
	}

	for i := 0; i < 2; i++ {
		by := y + 3 + rng.nextInt(maxInt(1, fork-y-3))
		d := dirs[rng.nextInt(4)]
		ex, ez := x+d[0]*2, z+d[1]*2
		b.buildBranch(v.log, x, by, z, ex, by+1, ez)
		b.buildLeafCluster(v.leaves, ex, by+1, ez, 1, v.fluff, rng)
	}
}

func (b *chunkBuild) buildAcacia(v treeVariant, x, y, z, height int, rng *deterministicRNG) {
	b.buildTrunk(v.log, x, y, z, height)
	top := y + height - 1

	dx := rng.nextInt(3) - 1
	dz := rng.nextInt(3) - 1
	if dx == 0 && dz == 0 {
		dx = 1
	}
	lean := 2 + rng.nextInt(2)
	ex, ey, ez := x+dx*lean, top+lean, z+dz*lean
	b.buildBranch(v.log, x, top, z, ex, ey, ez)
	b.buildFlatCanopy(v.leaves, ex, ey+1, ez, v.canopy, v.fluff, rng)

	// second, shorter fork opposite the lean
	fx, fy, fz := x-dx*2, top+1, z-dz*2
	b.buildBranch(v.log, x, top-1, z, fx, fy, fz)
	b.buildFlatCanopy(v.leaves, fx, fy+1, fz, v.canopy-1, v.fluff, rng)
}

// buildBranch walks a straight line between two voxels and places logs
// along it.
func (b *chunkBuild) buildBranch(id world.BlockID, x0, y0, z0, x1, y1, z1 int) {
	steps := maxInt(absInt(x1-x0), maxInt(absInt(y1-y0), absInt(z1-z0)))
	if steps == 0 {
		b.place(x0, y0, z0, id)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		bx := int(math.Round(lerp(float64(x0), float64(x1), t)))
		by := int(math.Round(lerp(float64(y0), float64(y1), t)))
		bz := int(math.Round(lerp(float64(z0), float64(z1), t)))
		b.place(bx, by, bz, id)
	}
}

// buildLeafCluster paints a sphere of leaves and drops a share of the
// outermost shell for an uneven silhouette.
func (b *chunkBuild) buildLeafCluster(id world.BlockID, cx, cy, cz, radius, fluff int, rng *deterministicRNG) {
	r2 := radius*radius + radius
	inner := (radius - 1) * (radius - 1)
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			for dz := -radius; dz <= radius; dz++ {
				d2 := dx*dx + dy*dy + dz*dz
				if d2 > r2 {
					continue
				}
				if d2 > inner && rng.nextInt(100) < fluff {
					continue
				}
				b.place(cx+dx, cy+dy, cz+dz, id)
			}
		}
	}
}

// buildDiamond paints one horizontal layer with |dx|+|dz| <= radius.
func (b *chunkBuild) buildDiamond(id world.BlockID, cx, y, cz, radius, fluff int, rng *deterministicRNG) {
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			d := absInt(dx) + absInt(dz)
			if d > radius {
				continue
			}
			if d == radius && radius > 0 && rng.nextInt(100) < fluff {
				continue
			}
			b.place(cx+dx, y, cz+dz, id)
		}
	}
}

func (b *chunkBuild) buildFlatCanopy(id world.BlockID, cx, y, cz, radius, fluff int, rng *deterministicRNG) {
	if radius < 1 {
		radius = 1
	}
	b.buildDiamond(id, cx, y, cz, radius+1, fluff, rng)
	b.buildDiamond(id, cx, y+1, cz, radius-1, fluff, rng)
}

type deterministicRNG struct {
	state uint64
}

func newDeterministicRNG(x, z int, seed int64) *deterministicRNG {
	state := uint64(uint32(x))<<32 ^ uint64(uint32(z))<<1 ^ uint64(seed)
	if state == 0 {
		state = 0x9e3779b97f4a7c15
	}
	return &deterministicRNG{state: state}
}

func (r *deterministicRNG) next() uint64 {
	r.state ^= r.state << 7
	r.state ^= r.state >> 9
	r.state ^= r.state << 8
	return r.state
}

func (r *deterministicRNG) nextInt(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint64(n))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
