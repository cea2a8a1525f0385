package world

import "fmt"

// ChunkCoord identifies a chunk column in chunk space.
type ChunkCoord struct {
	X int
	Z int
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// Chebyshev returns max(|dx|, |dz|) in chunk units.
func (c ChunkCoord) Chebyshev(other ChunkCoord) int {
	dx := absInt(c.X - other.X)
	dz := absInt(c.Z - other.Z)
	if dx > dz {
		return dx
	}
	return dz
}

// Direction names one of the four lateral neighbors of a chunk.
type Direction int

const (
	North Direction = iota // -Z
	South                  // +Z
	East                   // +X
	West                   // -X
)

// Directions lists the lateral neighbors in a fixed order.
var Directions = [4]Direction{North, South, East, West}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// Neighbor returns the adjacent chunk in direction d.
func (c ChunkCoord) Neighbor(d Direction) ChunkCoord {
	switch d {
	case North:
		return ChunkCoord{X: c.X, Z: c.Z - 1}
	case South:
		return ChunkCoord{X: c.X, Z: c.Z + 1}
	case East:
		return ChunkCoord{X: c.X + 1, Z: c.Z}
	case West:
		return ChunkCoord{X: c.X - 1, Z: c.Z}
	}
	return c
}

// Dims describes the extent of a chunk volume in voxels.
type Dims struct {
	Size   int
	Height int
}

// Volume returns the voxel count of one chunk.
func (d Dims) Volume() int {
	return d.Size * d.Height * d.Size
}

// Columns returns the number of (x,z) columns in one chunk.
func (d Dims) Columns() int {
	return d.Size * d.Size
}

// Index maps a local voxel coordinate to its flat offset. Every flat voxel
// access in the module goes through this function.
func (d Dims) Index(x, y, z int) int {
	return (x*d.Height+y)*d.Size + z
}

// ColumnIndex maps a local column to its offset in per-column maps.
func (d Dims) ColumnIndex(x, z int) int {
	return x*d.Size + z
}

func (d Dims) InBounds(x, y, z int) bool {
	return x >= 0 && z >= 0 && y >= 0 && x < d.Size && z < d.Size && y < d.Height
}

func (d Dims) InColumnBounds(x, z int) bool {
	return x >= 0 && z >= 0 && x < d.Size && z < d.Size
}

// ChunkOf returns the chunk holding the world column (wx, wz) and the local
// column inside it.
func (d Dims) ChunkOf(wx, wz int) (ChunkCoord, int, int) {
	coord := ChunkCoord{X: floorDiv(wx, d.Size), Z: floorDiv(wz, d.Size)}
	return coord, floorMod(wx, d.Size), floorMod(wz, d.Size)
}

// Origin returns the world coordinate of the chunk's (0,0) column.
func (d Dims) Origin(c ChunkCoord) (int, int) {
	return c.X * d.Size, c.Z * d.Size
}

func floorDiv(value, size int) int {
	if size <= 0 {
		return 0
	}
	if value >= 0 {
		return value / size
	}
	return -((-value - 1) / size) - 1
}

func floorMod(value, size int) int {
	if size <= 0 {
		return 0
	}
	return value - floorDiv(value, size)*size
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
