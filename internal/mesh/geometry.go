package mesh

import "github.com/go-gl/mathgl/mgl32"

// Geometry is one indexed triangle-list buffer set. Colors holds one RGB
// triple per vertex and is nil for fluid geometry.
type Geometry struct {
	Positions []float32
	Normals   []float32
	UVs       []float32
	Colors    []float32
	Indices   []uint32
}

// Buffers is the complete output of meshing one chunk.
type Buffers struct {
	Opaque  Geometry
	Foliage Geometry
	Water   Geometry
}

func (g *Geometry) VertexCount() int {
	return len(g.Positions) / 3
}

func (g *Geometry) QuadCount() int {
	return len(g.Indices) / 6
}

func (g *Geometry) Empty() bool {
	return len(g.Indices) == 0
}

// QuadCount totals the quads across all three buffers.
func (b *Buffers) QuadCount() int {
	return b.Opaque.QuadCount() + b.Foliage.QuadCount() + b.Water.QuadCount()
}

type quad struct {
	corners [4]mgl32.Vec3
	normal  mgl32.Vec3
	uvs     [4]mgl32.Vec2
	shade   [4]float32
	// flip selects the 1-3 diagonal instead of 0-2.
	flip bool
}

func (g *Geometry) appendQuad(q quad, withColor bool) {
	base := uint32(g.VertexCount())
	for i := 0; i < 4; i++ {
		c := q.corners[i]
		g.Positions = append(g.Positions, c.X(), c.Y(), c.Z())
		g.Normals = append(g.Normals, q.normal.X(), q.normal.Y(), q.normal.Z())
		g.UVs = append(g.UVs, q.uvs[i].X(), q.uvs[i].Y())
		if withColor {
			s := q.shade[i]
			g.Colors = append(g.Colors, s, s, s)
		}
	}
	if q.flip {
		g.Indices = append(g.Indices, base+1, base+2, base+3, base+1, base+3, base)
		return
	}
	g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
}
