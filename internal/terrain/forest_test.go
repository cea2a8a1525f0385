package terrain

import (
	"testing"

	"voxelworld/internal/world"
)

func TestTreeChoiceByBiome(t *testing.T) {
	tests := []struct {
		name    string
		sample  TerrainSample
		gate    uint32
		species world.Species
		ok      bool
	}{
		{name: "dry forest", sample: TerrainSample{Biome: world.BiomeForest}, gate: 0, species: world.SpeciesOak, ok: true},
		{name: "humid forest", sample: TerrainSample{Biome: world.BiomeForest, Humidity: 0.6}, gate: 0, species: world.SpeciesBirch, ok: true},
		{name: "humid forest high gate", sample: TerrainSample{Biome: world.BiomeForest, Humidity: 0.6}, gate: 0xF0000000, species: world.SpeciesOak, ok: true},
		{name: "jungle", sample: TerrainSample{Biome: world.BiomeJungle}, species: world.SpeciesJungle, ok: true},
		{name: "savanna", sample: TerrainSample{Biome: world.BiomeSavanna}, species: world.SpeciesAcacia, ok: true},
		{name: "snowy", sample: TerrainSample{Biome: world.BiomeSnowy}, species: world.SpeciesSpruce, ok: true},
		{name: "desert", sample: TerrainSample{Biome: world.BiomeDesert}, ok: false},
		{name: "ocean", sample: TerrainSample{Biome: world.BiomeOcean}, ok: false},
	}
	for _, tt := range tests {
		species, chance, ok := treeChoice(tt.sample, tt.gate)
		if ok != tt.ok {
			t.Fatalf("%s: ok = %v, want %v", tt.name, ok, tt.ok)
		}
		if !ok {
			continue
		}
		if species != tt.species {
			t.Fatalf("%s: species = %v, want %v", tt.name, species, tt.species)
		}
		if chance <= 0 || chance >= 1 {
			t.Fatalf("%s: chance %v outside (0, 1)", tt.name, chance)
		}
	}
}

func newTreeBuild(t *testing.T) *chunkBuild {
	t.Helper()
	gen := newTestGenerator()
	dims := world.Dims{Size: 16, Height: 64}
	return &chunkBuild{
		gen:  gen,
		seed: 42,
		dims: dims,
		vol:  world.NewVolume(world.ChunkCoord{}, dims),
	}
}

func TestBuildTreeKeepsTrunkUnderCanopy(t *testing.T) {
	reg := world.DefaultRegistry()
	for species, variant := range treeVariants {
		b := newTreeBuild(t)
		b.buildTree(variant, 8, 10, 8, newDeterministicRNG(8, 8, 42))

		for y := 10; y < 14; y++ {
			if got := b.vol.At(8, y, 8); got != variant.log {
				t.Fatalf("%v: trunk voxel at y=%d is %d, want log %d", species, y, got, variant.log)
			}
		}
		if got := b.vol.At(8, 9, 8); got != world.Air {
			t.Fatalf("%v: tree wrote below its base: %d", species, got)
		}

		leaves := 0
		for _, id := range b.vol.Voxels {
			if reg.IsLeaves(id) {
				if id != variant.leaves {
					t.Fatalf("%v: unexpected leaf block %d", species, id)
				}
				leaves++
			}
		}
		if leaves == 0 {
			t.Fatalf("%v: tree has no canopy", species)
		}
	}
}

func TestBuildTreeIsDeterministic(t *testing.T) {
	for species, variant := range treeVariants {
		a := newTreeBuild(t)
		b := newTreeBuild(t)
		a.buildTree(variant, 5, 20, 9, newDeterministicRNG(5, 9, 7))
		b.buildTree(variant, 5, 20, 9, newDeterministicRNG(5, 9, 7))
		for i := range a.vol.Voxels {
			if a.vol.Voxels[i] != b.vol.Voxels[i] {
				t.Fatalf("%v: voxel %d differs between identical builds", species, i)
			}
		}
	}
}

func TestOverhangingCanopyIsClipped(t *testing.T) {
	variant := treeVariants[world.SpeciesOak]
	b := newTreeBuild(t)
	// Trunk one column outside the chunk: only its canopy may land inside.
	b.buildTree(variant, -1, 10, 8, newDeterministicRNG(-1, 8, 42))

	reg := world.DefaultRegistry()
	for _, id := range b.vol.Voxels {
		if reg.IsLog(id) {
			t.Fatalf("trunk outside the chunk wrote a log inside it")
		}
	}
}
