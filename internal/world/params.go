package world

// Params is the immutable configuration shared by the generator, mesher and
// streamer. Construct it once and pass it by value or pointer; nothing mutates
// it afterwards.
type Params struct {
	Seed       int64
	ChunkSize  int
	Height     int
	WaterLevel int
	// RiverBed is the target height river channels are carved down to.
	RiverBed int
	// BeachBand is how far above water level the shoreline biome reaches.
	BeachBand    int
	MountainLine int
	SnowLine     int
	// CaveMinDepth keeps caves this many voxels below the surface.
	CaveMinDepth int
	// DecorationMargin is how far outside the chunk trunks are considered so
	// that overhanging canopies are painted consistently.
	DecorationMargin int

	// AOLevels maps an occlusion count 0..3 to vertex brightness.
	AOLevels [4]float32
	// AtlasColumns and AtlasRows describe the tile grid of the texture atlas.
	AtlasColumns int
	AtlasRows    int
	UVEpsilon    float32
	// LeafBushScale sizes the extra cross emitted around leaf blocks.
	LeafBushScale float32
}

// DefaultParams returns the standard world layout for the given seed.
func DefaultParams(seed int64) Params {
	return Params{
		Seed:             seed,
		ChunkSize:        16,
		Height:           128,
		WaterLevel:       40,
		RiverBed:         36,
		BeachBand:        2,
		MountainLine:     78,
		SnowLine:         92,
		CaveMinDepth:     6,
		DecorationMargin: 7,
		AOLevels:         [4]float32{1.0, 0.8, 0.6, 0.4},
		AtlasColumns:     16,
		AtlasRows:        16,
		UVEpsilon:        0.001,
		LeafBushScale:    1.4,
	}
}

func (p Params) Dims() Dims {
	return Dims{Size: p.ChunkSize, Height: p.Height}
}
