package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelworld/internal/world"
)

// Neighbors holds the lateral neighbor volumes of the chunk being meshed.
// A nil entry is treated as all air.
type Neighbors struct {
	North *world.Volume // -Z
	South *world.Volume // +Z
	East  *world.Volume // +X
	West  *world.Volume // -X
}

// Get returns the neighbor in direction d.
func (n Neighbors) Get(d world.Direction) *world.Volume {
	switch d {
	case world.North:
		return n.North
	case world.South:
		return n.South
	case world.East:
		return n.East
	case world.West:
		return n.West
	}
	return nil
}

// Set stores v as the neighbor in direction d.
func (n *Neighbors) Set(d world.Direction, v *world.Volume) {
	switch d {
	case world.North:
		n.North = v
	case world.South:
		n.South = v
	case world.East:
		n.East = v
	case world.West:
		n.West = v
	}
}

type face struct {
	normal [3]int
	u      [3]int
	v      [3]int
	origin [3]int
	// horizontal marks top and bottom faces.
	horizontal bool
	tile       func(world.Tiles) int
}

var cornerSteps = [4][2]int{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// faces lists the six cube faces with u x v pointing along the normal so
// corners 0..3 wind counter-clockwise when seen from outside.
var faces = [6]face{
	{normal: [3]int{1, 0, 0}, u: [3]int{0, 0, -1}, v: [3]int{0, 1, 0}, origin: [3]int{1, 0, 1}, tile: sideTile},
	{normal: [3]int{-1, 0, 0}, u: [3]int{0, 0, 1}, v: [3]int{0, 1, 0}, origin: [3]int{0, 0, 0}, tile: sideTile},
	{normal: [3]int{0, 1, 0}, u: [3]int{1, 0, 0}, v: [3]int{0, 0, -1}, origin: [3]int{0, 1, 1}, horizontal: true, tile: topTile},
	{normal: [3]int{0, -1, 0}, u: [3]int{1, 0, 0}, v: [3]int{0, 0, 1}, origin: [3]int{0, 0, 0}, horizontal: true, tile: bottomTile},
	{normal: [3]int{0, 0, 1}, u: [3]int{1, 0, 0}, v: [3]int{0, 1, 0}, origin: [3]int{0, 0, 1}, tile: sideTile},
	{normal: [3]int{0, 0, -1}, u: [3]int{-1, 0, 0}, v: [3]int{0, 1, 0}, origin: [3]int{1, 0, 0}, tile: sideTile},
}

func sideTile(t world.Tiles) int   { return t.Side }
func topTile(t world.Tiles) int    { return t.Top }
func bottomTile(t world.Tiles) int { return t.Bottom }

// sealed stands in for voxels below the floor or above the ceiling of the
// world. It hides faces and occludes like solid stone.
var sealed = world.BlockDefinition{Name: "sealed", Category: world.CategoryTerrain, Solid: true}

// Mesher turns voxel volumes into render buffers. It holds no mutable state
// and may be shared between goroutines.
type Mesher struct {
	params   world.Params
	registry *world.Registry
}

func NewMesher(params world.Params, registry *world.Registry) *Mesher {
	if registry == nil {
		registry = world.DefaultRegistry()
	}
	return &Mesher{params: params, registry: registry}
}

// meshContext binds one volume and its neighbors for voxel lookups across
// chunk borders.
type meshContext struct {
	m   *Mesher
	vol *world.Volume
	nb  Neighbors
}

func (c *meshContext) def(x, y, z int) world.BlockDefinition {
	dims := c.vol.Dims
	if y < 0 || y >= dims.Height {
		return sealed
	}
	vol := c.vol
	outX := x < 0 || x >= dims.Size
	outZ := z < 0 || z >= dims.Size
	switch {
	case outX && outZ:
		return c.m.registry.Lookup(world.Air)
	case x < 0:
		vol, x = c.nb.West, x+dims.Size
	case x >= dims.Size:
		vol, x = c.nb.East, x-dims.Size
	case z < 0:
		vol, z = c.nb.North, z+dims.Size
	case z >= dims.Size:
		vol, z = c.nb.South, z-dims.Size
	}
	return c.m.registry.Lookup(vol.At(x, y, z))
}

// Mesh builds the three render buffers for vol.
func (m *Mesher) Mesh(vol *world.Volume, nb Neighbors) *Buffers {
	out := &Buffers{}
	if vol == nil {
		return out
	}
	ctx := &meshContext{m: m, vol: vol, nb: nb}
	dims := vol.Dims
	for x := 0; x < dims.Size; x++ {
		for y := 0; y < dims.Height; y++ {
			for z := 0; z < dims.Size; z++ {
				id := vol.Voxels[dims.Index(x, y, z)]
				if id == world.Air {
					continue
				}
				def := m.registry.Lookup(id)
				if def.Category == world.CategoryAir {
					continue
				}
				if def.Sprite {
					m.emitCross(&out.Foliage, def, x, y, z, 1)
					continue
				}
				m.emitCube(ctx, out, def, x, y, z)
				if def.Category == world.CategoryLeaves {
					m.emitCross(&out.Foliage, def, x, y, z, m.params.LeafBushScale)
				}
			}
		}
	}
	return out
}

func (m *Mesher) emitCube(ctx *meshContext, out *Buffers, def world.BlockDefinition, x, y, z int) {
	ox, oz := ctx.vol.Dims.Origin(ctx.vol.Coord)
	for _, f := range faces {
		nx, ny, nz := x+f.normal[0], y+f.normal[1], z+f.normal[2]
		if !FaceVisible(def, ctx.def(nx, ny, nz)) {
			continue
		}

		q := quad{normal: vec3(f.normal)}
		for i, step := range cornerSteps {
			q.corners[i] = mgl32.Vec3{
				float32(x + f.origin[0] + step[0]*f.u[0] + step[1]*f.v[0]),
				float32(y + f.origin[1] + step[0]*f.u[1] + step[1]*f.v[1]),
				float32(z + f.origin[2] + step[0]*f.u[2] + step[1]*f.v[2]),
			}
		}

		rotation := 0
		if f.horizontal {
			rotation = int(topRotationHash(ox+x, oz+z) & 3)
		} else if def.Rotatable {
			rotation = int(sideRotationHash(ox+x, y, oz+z) & 3)
		}
		q.uvs = m.tileUVs(f.tile(def.Tiles), rotation)

		switch {
		case def.Fluid:
			out.Water.appendQuad(q, false)
		case def.Opaque():
			levels := m.faceAO(ctx, f, nx, ny, nz)
			for i, level := range levels {
				q.shade[i] = m.params.AOLevels[level]
			}
			q.flip = levels[0]+levels[2] > levels[1]+levels[3]
			out.Opaque.appendQuad(q, true)
		default:
			q.shade = [4]float32{1, 1, 1, 1}
			out.Foliage.appendQuad(q, true)
		}
	}
}

// faceAO returns the occlusion level of each face corner. (nx, ny, nz) is
// the voxel the face looks into.
func (m *Mesher) faceAO(ctx *meshContext, f face, nx, ny, nz int) [4]int {
	var levels [4]int
	occludes := func(dx, dy, dz int) bool {
		return ctx.def(nx+dx, ny+dy, nz+dz).Opaque()
	}
	for i, step := range cornerSteps {
		su := step[0]*2 - 1
		sv := step[1]*2 - 1
		ux, uy, uz := f.u[0]*su, f.u[1]*su, f.u[2]*su
		vx, vy, vz := f.v[0]*sv, f.v[1]*sv, f.v[2]*sv
		if f.horizontal {
			levels[i] = VertexAO(
				occludes(ux, uy, uz),
				occludes(vx, vy, vz),
				occludes(ux+vx, uy+vy, uz+vz),
			)
			continue
		}
		// side faces only look up or down along v
		levels[i] = VertexAO(
			occludes(vx, vy, vz),
			false,
			occludes(ux+vx, uy+vy, uz+vz),
		)
	}
	return levels
}

// VertexAO returns the occlusion level 0..3 of one corner. Two occluding
// sides force full occlusion whatever the diagonal holds.
func VertexAO(side1, side2, corner bool) int {
	if side1 && side2 {
		return 3
	}
	level := 0
	for _, occluded := range [3]bool{side1, side2, corner} {
		if occluded {
			level++
		}
	}
	return level
}

// FaceVisible reports whether a face of cur is drawn against neighbor.
func FaceVisible(cur, neighbor world.BlockDefinition) bool {
	switch {
	case neighbor.Category == world.CategoryAir:
		return true
	case neighbor.Fluid:
		return !cur.Fluid
	case neighbor.Opaque():
		return false
	case cur.ID == neighbor.ID && cur.Transparent:
		// same-species foliage and other see-through runs hide inner faces
		return false
	}
	return true
}

// emitCross adds two intersecting diagonal quads, scaled about the voxel
// centre.
func (m *Mesher) emitCross(g *Geometry, def world.BlockDefinition, x, y, z int, scale float32) {
	centre := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}
	planes := [2][4]mgl32.Vec3{
		{{0, 0, 0}, {1, 0, 1}, {1, 1, 1}, {0, 1, 0}},
		{{1, 0, 0}, {0, 0, 1}, {0, 1, 1}, {1, 1, 0}},
	}
	uvs := m.tileUVs(def.Tiles.Side, 0)
	up := mgl32.Vec3{0, 1, 0}
	for _, plane := range planes {
		q := quad{normal: up, uvs: uvs, shade: [4]float32{1, 1, 1, 1}}
		for i, c := range plane {
			offset := c.Sub(mgl32.Vec3{0.5, 0.5, 0.5}).Mul(scale)
			q.corners[i] = centre.Add(offset)
		}
		g.appendQuad(q, true)
	}
}

// tileUVs returns the inset atlas rectangle of tile, rotated by quarter
// turns.
func (m *Mesher) tileUVs(tile, rotation int) [4]mgl32.Vec2 {
	cols := m.params.AtlasColumns
	rows := m.params.AtlasRows
	if cols <= 0 || rows <= 0 {
		cols, rows = 1, 1
	}
	col := tile % cols
	row := (tile / cols) % rows
	eps := m.params.UVEpsilon
	u0 := float32(col)/float32(cols) + eps
	u1 := float32(col+1)/float32(cols) - eps
	v0 := float32(row)/float32(rows) + eps
	v1 := float32(row+1)/float32(rows) - eps
	base := [4]mgl32.Vec2{{u0, v0}, {u1, v0}, {u1, v1}, {u0, v1}}
	var out [4]mgl32.Vec2
	for i := range out {
		out[i] = base[(i+rotation)&3]
	}
	return out
}

func vec3(v [3]int) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func topRotationHash(x, z int) uint32 {
	h := uint32(x*73856093 ^ z*19349663)
	h = (h ^ (h >> 15)) * 2246822519
	return h ^ (h >> 13)
}

func sideRotationHash(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return (h ^ (h >> 16)) >> 7
}
