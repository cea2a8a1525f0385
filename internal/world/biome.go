package world

// Biome classifies a single world column.
type Biome uint8

const (
	BiomeOcean Biome = iota
	BiomeRiver
	BiomeBeach
	BiomePlains
	BiomeForest
	BiomeJungle
	BiomeSavanna
	BiomeDesert
	BiomeMesa
	BiomeMountain
	BiomeSnowy
	biomeCount
)

// BiomeCount is the number of column biomes.
const BiomeCount = int(biomeCount)

var biomeNames = [...]string{
	BiomeOcean:    "ocean",
	BiomeRiver:    "river",
	BiomeBeach:    "beach",
	BiomePlains:   "plains",
	BiomeForest:   "forest",
	BiomeJungle:   "jungle",
	BiomeSavanna:  "savanna",
	BiomeDesert:   "desert",
	BiomeMesa:     "mesa",
	BiomeMountain: "mountain",
	BiomeSnowy:    "snowy",
}

func (b Biome) String() string {
	if int(b) < len(biomeNames) {
		return biomeNames[b]
	}
	return "unknown"
}

// DominantBiome is the coarse per-chunk label used by distant rendering.
type DominantBiome uint8

const (
	DominantPlain DominantBiome = iota
	DominantOcean
	DominantDesert
	DominantForest
	DominantMountain
)

func (d DominantBiome) String() string {
	switch d {
	case DominantOcean:
		return "ocean"
	case DominantDesert:
		return "desert"
	case DominantForest:
		return "forest"
	case DominantMountain:
		return "mountain"
	default:
		return "plain"
	}
}

// Family maps a column biome onto its dominant-label category.
func (b Biome) Family() DominantBiome {
	switch b {
	case BiomeOcean, BiomeRiver:
		return DominantOcean
	case BiomeDesert, BiomeMesa:
		return DominantDesert
	case BiomeForest, BiomeJungle:
		return DominantForest
	case BiomeMountain, BiomeSnowy:
		return DominantMountain
	default:
		return DominantPlain
	}
}
