package stream

import "voxelworld/internal/world"

// spiral walks expanding square rings around a centre chunk. It keeps its
// position between calls so a scan can be spread over many ticks.
type spiral struct {
	center world.ChunkCoord
	radius int
	ring   int
	index  int
	done   bool
	held   *world.ChunkCoord
}

func (s *spiral) reset(center world.ChunkCoord, radius int) {
	*s = spiral{center: center, radius: radius}
}

// next returns the following coordinate, or false once every ring up to the
// radius has been visited.
func (s *spiral) next() (world.ChunkCoord, bool) {
	if s.held != nil {
		c := *s.held
		s.held = nil
		return c, true
	}
	if s.done {
		return world.ChunkCoord{}, false
	}
	if s.ring == 0 {
		s.ring = 1
		s.index = 0
		if s.radius < 1 {
			s.done = true
		}
		return s.center, true
	}

	r := s.ring
	side := s.index / (2 * r)
	off := s.index % (2 * r)
	cx, cz := s.center.X, s.center.Z
	var c world.ChunkCoord
	switch side {
	case 0:
		c = world.ChunkCoord{X: cx - r + off, Z: cz - r}
	case 1:
		c = world.ChunkCoord{X: cx + r, Z: cz - r + off}
	case 2:
		c = world.ChunkCoord{X: cx + r - off, Z: cz + r}
	default:
		c = world.ChunkCoord{X: cx - r, Z: cz + r - off}
	}

	s.index++
	if s.index >= 8*r {
		s.ring++
		s.index = 0
		if s.ring > s.radius {
			s.done = true
		}
	}
	return c, true
}

// unread pushes c back so the next call returns it again.
func (s *spiral) unread(c world.ChunkCoord) {
	s.held = &c
}
