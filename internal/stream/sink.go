package stream

import (
	"voxelworld/internal/mesh"
	"voxelworld/internal/world"
)

// LOD is the rendering tier of a resident chunk.
type LOD int8

const (
	LODNone LOD = iota - 1
	// LODShadow is full detail with shadow casting.
	LODShadow
	// LODDetail is full detail without shadows.
	LODDetail
	// LODDistant chunks go to the instanced far-terrain path instead of
	// being meshed.
	LODDistant
)

func (l LOD) String() string {
	switch l {
	case LODShadow:
		return "shadow"
	case LODDetail:
		return "detail"
	case LODDistant:
		return "distant"
	default:
		return "none"
	}
}

// Near reports whether chunks at this tier are meshed.
func (l LOD) Near() bool {
	return l == LODShadow || l == LODDetail
}

// ChunkMesh is finished geometry for one near chunk.
type ChunkMesh struct {
	Coord    world.ChunkCoord
	LOD      LOD
	Revision uint64
	Buffers  *mesh.Buffers
}

// DistantChunk is the low-detail summary of a far chunk.
type DistantChunk struct {
	Coord         world.ChunkCoord
	HeightMap     []int16
	TopLayer      []world.BlockID
	AverageHeight float64
	Biome         world.DominantBiome
	Trees         []world.TreePlacement
}

// Sink receives everything the streamer produces for the renderer. Calls
// are made from the control loop.
type Sink interface {
	MeshReady(m ChunkMesh)
	// MeshRemoved drops a near chunk's geometry after eviction or demotion.
	MeshRemoved(coord world.ChunkCoord)
	LODChanged(coord world.ChunkCoord, lod LOD)
	// DistantUpdated replaces the whole far-terrain set.
	DistantUpdated(chunks []DistantChunk)
}

// Discard is a Sink that ignores everything.
type Discard struct{}

func (Discard) MeshReady(ChunkMesh)              {}
func (Discard) MeshRemoved(world.ChunkCoord)     {}
func (Discard) LODChanged(world.ChunkCoord, LOD) {}
func (Discard) DistantUpdated([]DistantChunk)    {}

// ClassifyLOD assigns the tier for a chunk at Chebyshev distance d from the
// observer.
func ClassifyLOD(d, shadowRadius, highRadius, lowRadius int) LOD {
	switch {
	case d <= shadowRadius:
		return LODShadow
	case d <= highRadius:
		return LODDetail
	case d <= highRadius+lowRadius:
		return LODDistant
	default:
		return LODNone
	}
}
