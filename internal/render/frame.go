package render

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"voxelworld/internal/mesh"
	"voxelworld/internal/stream"
	"voxelworld/internal/world"
)

// FrameKind is the first byte of every binary frame.
type FrameKind uint8

const (
	FrameMesh FrameKind = iota + 1
	FrameRemove
	FrameLOD
	FrameDistant
)

const flagCompressed = 1 << 0

// ErrShortFrame reports a frame cut off before its declared contents.
var ErrShortFrame = errors.New("short frame")

// Frame is a decoded binary message. Which fields are set depends on Kind.
type Frame struct {
	Kind     FrameKind
	Coord    world.ChunkCoord
	LOD      stream.LOD
	Revision uint64
	Buffers  *mesh.Buffers
	Distant  []stream.DistantChunk
}

// Codec encodes frames as little endian binary with an optional zstd body:
//
//	kind:u8 flags:u8 body
//
// A Codec is safe for concurrent use.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec builds a codec. Compression only affects encoding; decoding
// always honours the frame flag.
func NewCodec(compress bool) (*Codec, error) {
	c := &Codec{}
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		c.enc = enc
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	c.dec = dec
	return c, nil
}

func (c *Codec) Close() {
	if c.enc != nil {
		c.enc.Close()
	}
	c.dec.Close()
}

func (c *Codec) seal(kind FrameKind, body []byte) []byte {
	var flags byte
	if c.enc != nil {
		body = c.enc.EncodeAll(body, nil)
		flags |= flagCompressed
	}
	out := make([]byte, 0, len(body)+2)
	out = append(out, byte(kind), flags)
	return append(out, body...)
}

func (c *Codec) EncodeMesh(m stream.ChunkMesh) []byte {
	var buf bytes.Buffer
	writeCoord(&buf, m.Coord)
	buf.WriteByte(byte(m.LOD))
	writeLE(&buf, m.Revision)
	b := m.Buffers
	if b == nil {
		b = &mesh.Buffers{}
	}
	writeGeometry(&buf, &b.Opaque)
	writeGeometry(&buf, &b.Foliage)
	writeGeometry(&buf, &b.Water)
	return c.seal(FrameMesh, buf.Bytes())
}

func (c *Codec) EncodeRemove(coord world.ChunkCoord) []byte {
	var buf bytes.Buffer
	writeCoord(&buf, coord)
	return c.seal(FrameRemove, buf.Bytes())
}

func (c *Codec) EncodeLOD(coord world.ChunkCoord, lod stream.LOD) []byte {
	var buf bytes.Buffer
	writeCoord(&buf, coord)
	buf.WriteByte(byte(lod))
	return c.seal(FrameLOD, buf.Bytes())
}

func (c *Codec) EncodeDistant(chunks []stream.DistantChunk) []byte {
	var buf bytes.Buffer
	writeLE(&buf, uint32(len(chunks)))
	for _, d := range chunks {
		writeCoord(&buf, d.Coord)
		writeLE(&buf, float32(d.AverageHeight))
		buf.WriteByte(byte(d.Biome))
		writeLE(&buf, uint32(len(d.HeightMap)))
		writeLE(&buf, d.HeightMap)
		tops := make([]uint8, len(d.TopLayer))
		for i, id := range d.TopLayer {
			tops[i] = uint8(id)
		}
		writeLE(&buf, uint32(len(tops)))
		buf.Write(tops)
		writeLE(&buf, uint32(len(d.Trees)))
		for _, t := range d.Trees {
			writeLE(&buf, int32(t.LocalX))
			writeLE(&buf, int32(t.WorldY))
			writeLE(&buf, int32(t.LocalZ))
			buf.WriteByte(byte(t.Species))
		}
	}
	return c.seal(FrameDistant, buf.Bytes())
}

// Decode parses any frame produced by a Codec.
func (c *Codec) Decode(data []byte) (Frame, error) {
	if len(data) < 2 {
		return Frame{}, ErrShortFrame
	}
	frame := Frame{Kind: FrameKind(data[0])}
	body := data[2:]
	if data[1]&flagCompressed != 0 {
		raw, err := c.dec.DecodeAll(body, nil)
		if err != nil {
			return Frame{}, fmt.Errorf("decompress frame: %w", err)
		}
		body = raw
	}
	r := &reader{buf: bytes.NewReader(body)}
	switch frame.Kind {
	case FrameMesh:
		frame.Coord = r.coord()
		frame.LOD = stream.LOD(int8(r.u8()))
		r.read(&frame.Revision)
		frame.Buffers = &mesh.Buffers{}
		r.geometry(&frame.Buffers.Opaque)
		r.geometry(&frame.Buffers.Foliage)
		r.geometry(&frame.Buffers.Water)
	case FrameRemove:
		frame.Coord = r.coord()
	case FrameLOD:
		frame.Coord = r.coord()
		frame.LOD = stream.LOD(int8(r.u8()))
	case FrameDistant:
		frame.Distant = r.distant()
	default:
		return Frame{}, fmt.Errorf("unknown frame kind %d", frame.Kind)
	}
	if r.err != nil {
		return Frame{}, fmt.Errorf("decode %d frame: %w", frame.Kind, r.err)
	}
	return frame, nil
}

func writeLE(buf *bytes.Buffer, v any) {
	// Writes to a bytes.Buffer cannot fail for fixed size values.
	_ = binary.Write(buf, binary.LittleEndian, v)
}

func writeCoord(buf *bytes.Buffer, c world.ChunkCoord) {
	writeLE(buf, int32(c.X))
	writeLE(buf, int32(c.Z))
}

// writeGeometry emits vertex and index counts, a colour flag, then the raw
// attribute arrays.
func writeGeometry(buf *bytes.Buffer, g *mesh.Geometry) {
	vertices := g.VertexCount()
	writeLE(buf, uint32(vertices))
	writeLE(buf, uint32(len(g.Indices)))
	hasColor := len(g.Colors) == vertices*3 && vertices > 0
	if hasColor {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	writeLE(buf, g.Positions)
	writeLE(buf, g.Normals)
	writeLE(buf, g.UVs)
	if hasColor {
		writeLE(buf, g.Colors)
	}
	writeLE(buf, g.Indices)
}

// maxElements bounds decoded array lengths so a corrupt header cannot force
// a huge allocation.
const maxElements = 1 << 24

type reader struct {
	buf *bytes.Reader
	err error
}

func (r *reader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.buf, binary.LittleEndian, v); err != nil {
		r.err = ErrShortFrame
	}
}

func (r *reader) u8() byte {
	if r.err != nil {
		return 0
	}
	b, err := r.buf.ReadByte()
	if err != nil {
		r.err = ErrShortFrame
	}
	return b
}

func (r *reader) count() int {
	var n uint32
	r.read(&n)
	if n > maxElements {
		r.err = fmt.Errorf("array length %d too large", n)
		return 0
	}
	return int(n)
}

func (r *reader) coord() world.ChunkCoord {
	var x, z int32
	r.read(&x)
	r.read(&z)
	return world.ChunkCoord{X: int(x), Z: int(z)}
}

func (r *reader) floats(n int) []float32 {
	if n == 0 || r.err != nil {
		return nil
	}
	out := make([]float32, n)
	r.read(out)
	return out
}

func (r *reader) geometry(g *mesh.Geometry) {
	vertices := r.count()
	indices := r.count()
	hasColor := r.u8() == 1
	g.Positions = r.floats(vertices * 3)
	g.Normals = r.floats(vertices * 3)
	g.UVs = r.floats(vertices * 2)
	if hasColor {
		g.Colors = r.floats(vertices * 3)
	}
	if indices > 0 && r.err == nil {
		g.Indices = make([]uint32, indices)
		r.read(g.Indices)
	}
}

func (r *reader) distant() []stream.DistantChunk {
	n := r.count()
	if r.err != nil {
		return nil
	}
	out := make([]stream.DistantChunk, 0, min(n, 4096))
	for i := 0; i < n && r.err == nil; i++ {
		var d stream.DistantChunk
		d.Coord = r.coord()
		var avg float32
		r.read(&avg)
		d.AverageHeight = float64(avg)
		d.Biome = world.DominantBiome(r.u8())
		if cols := r.count(); cols > 0 && r.err == nil {
			d.HeightMap = make([]int16, cols)
			r.read(d.HeightMap)
		}
		if cols := r.count(); cols > 0 && r.err == nil {
			tops := make([]uint8, cols)
			r.read(tops)
			d.TopLayer = make([]world.BlockID, cols)
			for j, id := range tops {
				d.TopLayer[j] = world.BlockID(id)
			}
		}
		trees := r.count()
		for j := 0; j < trees && r.err == nil; j++ {
			var lx, wy, lz int32
			r.read(&lx)
			r.read(&wy)
			r.read(&lz)
			d.Trees = append(d.Trees, world.TreePlacement{
				LocalX:  int(lx),
				WorldY:  int(wy),
				LocalZ:  int(lz),
				Species: world.Species(r.u8()),
			})
		}
		out = append(out, d)
	}
	return out
}
