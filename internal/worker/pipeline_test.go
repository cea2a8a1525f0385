package worker

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelworld/internal/mesh"
	"voxelworld/internal/terrain"
	"voxelworld/internal/world"
)

type stubGenerator struct {
	fn func(seed int64, cx, cz int) *world.Chunk
}

func (s stubGenerator) Generate(seed int64, cx, cz int) *world.Chunk {
	return s.fn(seed, cx, cz)
}

type blockingMesher struct {
	release chan struct{}
}

func (b blockingMesher) Mesh(vol *world.Volume, nb mesh.Neighbors) *mesh.Buffers {
	<-b.release
	return &mesh.Buffers{}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func smallParams() world.Params {
	p := world.DefaultParams(42)
	p.ChunkSize = 8
	p.Height = 64
	p.WaterLevel = 20
	p.RiverBed = 16
	p.MountainLine = 40
	p.SnowLine = 50
	return p
}

func await(t *testing.T, p *Pipeline) Result {
	t.Helper()
	select {
	case res := <-p.Results():
		return res
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for result")
	}
	return Result{}
}

func TestGenerateAndMeshRoundTrip(t *testing.T) {
	params := smallParams()
	reg := world.DefaultRegistry()
	p := NewPipeline(Options{Workers: 2, QueueSize: 4}, terrain.NewGenerator(params, reg), mesh.NewMesher(params, reg), quietLogger())
	defer p.Close()

	coord := world.ChunkCoord{X: 1, Z: -2}
	id, ok := p.SubmitGenerate(GenerateRequest{Coord: coord, Seed: 42})
	require.True(t, ok)

	res := await(t, p)
	require.NoError(t, res.Err)
	assert.Equal(t, id, res.ID)
	assert.Equal(t, KindGenerate, res.Kind)
	assert.Equal(t, coord, res.Coord)
	require.NotNil(t, res.Chunk)

	meshID, ok := p.SubmitMesh(MeshRequest{Coord: coord, Revision: 3, Volume: res.Chunk.Volume.Clone()})
	require.True(t, ok)
	assert.Greater(t, meshID, id)

	res = await(t, p)
	require.NoError(t, res.Err)
	assert.Equal(t, KindMesh, res.Kind)
	assert.Equal(t, uint64(3), res.Revision)
	require.NotNil(t, res.Buffers)
	assert.Greater(t, res.Buffers.Opaque.QuadCount(), 0)
}

func TestPanicBecomesError(t *testing.T) {
	gen := stubGenerator{fn: func(int64, int, int) *world.Chunk { panic("boom") }}
	p := NewPipeline(Options{Workers: 1}, gen, nil, quietLogger())
	defer p.Close()

	_, ok := p.SubmitGenerate(GenerateRequest{Coord: world.ChunkCoord{X: 4}})
	require.True(t, ok)
	res := await(t, p)
	assert.ErrorIs(t, res.Err, ErrPanic)
	assert.Equal(t, world.ChunkCoord{X: 4}, res.Coord)
	assert.Nil(t, res.Chunk)
}

func TestMalformedResults(t *testing.T) {
	cases := map[string]func(int64, int, int) *world.Chunk{
		"nil chunk": func(int64, int, int) *world.Chunk { return nil },
		"wrong coordinate": func(int64, int, int) *world.Chunk {
			return &world.Chunk{Coord: world.ChunkCoord{X: 99}, Volume: world.NewVolume(world.ChunkCoord{X: 99}, world.Dims{Size: 1, Height: 1})}
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			p := NewPipeline(Options{Workers: 1}, stubGenerator{fn: fn}, nil, quietLogger())
			defer p.Close()
			_, ok := p.SubmitGenerate(GenerateRequest{})
			require.True(t, ok)
			assert.ErrorIs(t, await(t, p).Err, ErrMalformedResult)
		})
	}

	p := NewPipeline(Options{Workers: 1}, nil, mesh.NewMesher(smallParams(), nil), quietLogger())
	defer p.Close()
	_, ok := p.SubmitMesh(MeshRequest{})
	require.True(t, ok)
	assert.ErrorIs(t, await(t, p).Err, ErrMalformedResult)
}

func TestSubmitRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	p := NewPipeline(Options{Workers: 1, QueueSize: 1}, nil, blockingMesher{release: release}, quietLogger())

	vol := world.NewVolume(world.ChunkCoord{}, world.Dims{Size: 1, Height: 1})
	_, ok := p.SubmitMesh(MeshRequest{Volume: vol})
	require.True(t, ok)
	_, ok = p.SubmitMesh(MeshRequest{Volume: vol.Clone()})
	require.True(t, ok)
	_, ok = p.SubmitMesh(MeshRequest{Volume: vol.Clone()})
	assert.False(t, ok)
	assert.Equal(t, 2, p.InFlight())

	close(release)
	await(t, p)
	await(t, p)
	p.Close()

	_, ok = p.SubmitMesh(MeshRequest{Volume: vol})
	assert.False(t, ok)
}
