package world

// Volume is a dense voxel grid for one chunk. Unset voxels are air.
type Volume struct {
	Coord  ChunkCoord
	Dims   Dims
	Voxels []BlockID
}

func NewVolume(coord ChunkCoord, dims Dims) *Volume {
	return &Volume{
		Coord:  coord,
		Dims:   dims,
		Voxels: make([]BlockID, dims.Volume()),
	}
}

// At returns the voxel at a local coordinate, or air when out of bounds.
func (v *Volume) At(x, y, z int) BlockID {
	if v == nil || !v.Dims.InBounds(x, y, z) {
		return Air
	}
	return v.Voxels[v.Dims.Index(x, y, z)]
}

// Set writes a voxel. Out of bounds writes are dropped and report false.
func (v *Volume) Set(x, y, z int, id BlockID) bool {
	if v == nil || !v.Dims.InBounds(x, y, z) {
		return false
	}
	v.Voxels[v.Dims.Index(x, y, z)] = id
	return true
}

// Fill sets every voxel in the inclusive vertical range of one column.
func (v *Volume) Fill(x, z, fromY, toY int, id BlockID) {
	if fromY < 0 {
		fromY = 0
	}
	if toY >= v.Dims.Height {
		toY = v.Dims.Height - 1
	}
	if !v.Dims.InColumnBounds(x, z) {
		return
	}
	for y := fromY; y <= toY; y++ {
		v.Voxels[v.Dims.Index(x, y, z)] = id
	}
}

// Clone returns a deep copy suitable for handing to a worker.
func (v *Volume) Clone() *Volume {
	if v == nil {
		return nil
	}
	voxels := make([]BlockID, len(v.Voxels))
	copy(voxels, v.Voxels)
	return &Volume{Coord: v.Coord, Dims: v.Dims, Voxels: voxels}
}

// Species identifies a tree shape family.
type Species uint8

const (
	SpeciesOak Species = iota
	SpeciesBirch
	SpeciesSpruce
	SpeciesJungle
	SpeciesAcacia
)

func (s Species) String() string {
	switch s {
	case SpeciesOak:
		return "oak"
	case SpeciesBirch:
		return "birch"
	case SpeciesSpruce:
		return "spruce"
	case SpeciesJungle:
		return "jungle"
	case SpeciesAcacia:
		return "acacia"
	default:
		return "unknown"
	}
}

// TreePlacement records a trunk rooted inside the chunk for low-detail rendering.
type TreePlacement struct {
	LocalX  int
	WorldY  int
	LocalZ  int
	Species Species
}

// Chunk is a generated chunk together with its derived summaries.
type Chunk struct {
	Coord  ChunkCoord
	Volume *Volume
	// HeightMap and TopLayer are indexed by Dims.ColumnIndex and describe the
	// volume as generated; edits do not update them until RecomputeSummary.
	HeightMap     []int16
	TopLayer      []BlockID
	AverageHeight float64
	Biome         DominantBiome
	Trees         []TreePlacement
	Dirty         bool
	// Revision increases on every successful edit.
	Revision uint64
}

func (c *Chunk) Dims() Dims {
	return c.Volume.Dims
}

// Block returns the voxel at a local coordinate.
func (c *Chunk) Block(x, y, z int) BlockID {
	return c.Volume.At(x, y, z)
}

// SetBlock edits a voxel in place and marks the chunk dirty.
func (c *Chunk) SetBlock(x, y, z int, id BlockID) bool {
	if !c.Volume.Set(x, y, z, id) {
		return false
	}
	c.Dirty = true
	c.Revision++
	return true
}

// RecomputeSummary rescans the height and top-layer maps from the volume.
func (c *Chunk) RecomputeSummary() {
	dims := c.Volume.Dims
	if len(c.HeightMap) != dims.Columns() {
		c.HeightMap = make([]int16, dims.Columns())
	}
	if len(c.TopLayer) != dims.Columns() {
		c.TopLayer = make([]BlockID, dims.Columns())
	}
	total := 0
	for x := 0; x < dims.Size; x++ {
		for z := 0; z < dims.Size; z++ {
			height, top := ScanColumn(c.Volume, x, z)
			idx := dims.ColumnIndex(x, z)
			c.HeightMap[idx] = int16(height)
			c.TopLayer[idx] = top
			total += height
		}
	}
	if cols := dims.Columns(); cols > 0 {
		c.AverageHeight = float64(total) / float64(cols)
	}
}

// ScanColumn returns the topmost non-air y of a column and its block. An
// empty column reports height 0 and air.
func ScanColumn(v *Volume, x, z int) (int, BlockID) {
	for y := v.Dims.Height - 1; y >= 0; y-- {
		if id := v.At(x, y, z); id != Air {
			return y, id
		}
	}
	return 0, Air
}
