package stream

import (
	"sort"

	"voxelworld/internal/world"
)

// Store is the keyed cache of resident chunks. It belongs to the control
// loop and is not safe for concurrent use.
type Store struct {
	chunks  map[world.ChunkCoord]*world.Chunk
	version uint64
}

func NewStore() *Store {
	return &Store{chunks: make(map[world.ChunkCoord]*world.Chunk)}
}

func (s *Store) Get(coord world.ChunkCoord) (*world.Chunk, bool) {
	chunk, ok := s.chunks[coord]
	return chunk, ok
}

func (s *Store) Has(coord world.ChunkCoord) bool {
	_, ok := s.chunks[coord]
	return ok
}

// Insert adds or replaces a chunk and bumps the version.
func (s *Store) Insert(chunk *world.Chunk) {
	s.chunks[chunk.Coord] = chunk
	s.version++
}

// Remove deletes a chunk outright. It reports whether anything was removed.
func (s *Store) Remove(coord world.ChunkCoord) bool {
	if _, ok := s.chunks[coord]; !ok {
		return false
	}
	delete(s.chunks, coord)
	s.version++
	return true
}

func (s *Store) Len() int {
	return len(s.chunks)
}

// Version changes whenever the set of resident chunks changes.
func (s *Store) Version() uint64 {
	return s.version
}

// Coords returns the resident coordinates in a stable order.
func (s *Store) Coords() []world.ChunkCoord {
	coords := make([]world.ChunkCoord, 0, len(s.chunks))
	for c := range s.chunks {
		coords = append(coords, c)
	}
	sortCoords(coords)
	return coords
}

// EvictBeyond removes every chunk farther than radius (Chebyshev) from
// center and returns the removed coordinates.
func (s *Store) EvictBeyond(center world.ChunkCoord, radius int) []world.ChunkCoord {
	var evicted []world.ChunkCoord
	for c := range s.chunks {
		if c.Chebyshev(center) > radius {
			evicted = append(evicted, c)
		}
	}
	for _, c := range evicted {
		delete(s.chunks, c)
	}
	if len(evicted) > 0 {
		s.version++
		sortCoords(evicted)
	}
	return evicted
}

func sortCoords(coords []world.ChunkCoord) {
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Z < coords[j].Z
	})
}
