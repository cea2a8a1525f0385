package worker

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"

	"voxelworld/internal/mesh"
	"voxelworld/internal/world"
)

var (
	// ErrPanic wraps a panic raised while running a task.
	ErrPanic = errors.New("worker task panicked")
	// ErrMalformedResult reports a task that returned no usable output.
	ErrMalformedResult = errors.New("malformed worker result")
	// ErrClosed is returned for work submitted after Close.
	ErrClosed = errors.New("pipeline closed")
)

// Kind distinguishes generation from meshing work.
type Kind uint8

const (
	KindGenerate Kind = iota + 1
	KindMesh
)

func (k Kind) String() string {
	switch k {
	case KindGenerate:
		return "generate"
	case KindMesh:
		return "mesh"
	default:
		return "unknown"
	}
}

// GenerateRequest asks for the chunk at Coord to be generated from Seed.
type GenerateRequest struct {
	Coord world.ChunkCoord
	Seed  int64
}

// MeshRequest carries private copies of a chunk volume and its neighbors.
// The pipeline takes ownership of every volume in the request.
type MeshRequest struct {
	Coord     world.ChunkCoord
	Revision  uint64
	Volume    *world.Volume
	Neighbors mesh.Neighbors
}

// Result is the self-contained response to one request.
type Result struct {
	ID       uint64
	Kind     Kind
	Coord    world.ChunkCoord
	Revision uint64
	Chunk    *world.Chunk
	Buffers  *mesh.Buffers
	Elapsed  time.Duration
	Err      error
}

// Generator produces chunks. *terrain.Generator satisfies it.
type Generator interface {
	Generate(seed int64, cx, cz int) *world.Chunk
}

// Mesher produces render buffers. *mesh.Mesher satisfies it.
type Mesher interface {
	Mesh(vol *world.Volume, nb mesh.Neighbors) *mesh.Buffers
}

type Options struct {
	// Workers bounds concurrent tasks; zero uses GOMAXPROCS.
	Workers int
	// QueueSize bounds accepted tasks waiting for a worker.
	QueueSize int
}

// Pipeline runs generation and meshing on a worker pool and delivers each
// outcome on Results. Submission never blocks: a full pipeline rejects the
// request and the caller retries on a later tick.
type Pipeline struct {
	pool    pond.Pool
	gen     Generator
	mesher  Mesher
	logger  *log.Logger
	results chan Result
	done    chan struct{}

	capacity int64
	inflight atomic.Int64
	nextID   atomic.Uint64
	closed   atomic.Bool
	once     sync.Once
}

func NewPipeline(opts Options, gen Generator, mesher Mesher, logger *log.Logger) *Pipeline {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queue := opts.QueueSize
	if queue < 0 {
		queue = 0
	}
	if logger == nil {
		logger = log.New(log.Writer(), "worker ", log.LstdFlags|log.Lmicroseconds)
	}
	capacity := workers + queue
	return &Pipeline{
		pool:     pond.NewPool(workers),
		gen:      gen,
		mesher:   mesher,
		logger:   logger,
		results:  make(chan Result, capacity),
		done:     make(chan struct{}),
		capacity: int64(capacity),
	}
}

// Results delivers completed work. Read it without blocking from the
// control loop.
func (p *Pipeline) Results() <-chan Result {
	return p.results
}

// InFlight reports accepted tasks that have not delivered a result yet.
func (p *Pipeline) InFlight() int {
	return int(p.inflight.Load())
}

// SubmitGenerate queues a generation request. It reports the request id and
// false when the pipeline is full or closed.
func (p *Pipeline) SubmitGenerate(req GenerateRequest) (uint64, bool) {
	return p.submit(KindGenerate, req.Coord, 0, func() (Result, error) {
		chunk := p.gen.Generate(req.Seed, req.Coord.X, req.Coord.Z)
		if chunk == nil || chunk.Volume == nil || chunk.Coord != req.Coord {
			return Result{}, fmt.Errorf("%w: chunk %v", ErrMalformedResult, req.Coord)
		}
		return Result{Chunk: chunk}, nil
	})
}

// SubmitMesh queues a meshing request.
func (p *Pipeline) SubmitMesh(req MeshRequest) (uint64, bool) {
	return p.submit(KindMesh, req.Coord, req.Revision, func() (Result, error) {
		if req.Volume == nil {
			return Result{}, fmt.Errorf("%w: mesh %v without volume", ErrMalformedResult, req.Coord)
		}
		buffers := p.mesher.Mesh(req.Volume, req.Neighbors)
		if buffers == nil {
			return Result{}, fmt.Errorf("%w: mesh %v", ErrMalformedResult, req.Coord)
		}
		return Result{Buffers: buffers}, nil
	})
}

func (p *Pipeline) submit(kind Kind, coord world.ChunkCoord, revision uint64, run func() (Result, error)) (uint64, bool) {
	if p.closed.Load() {
		return 0, false
	}
	if p.inflight.Add(1) > p.capacity {
		p.inflight.Add(-1)
		return 0, false
	}
	id := p.nextID.Add(1)
	p.pool.Submit(func() {
		defer p.inflight.Add(-1)
		res := p.execute(id, kind, coord, run)
		res.Revision = revision
		select {
		case p.results <- res:
		case <-p.done:
		}
	})
	return id, true
}

func (p *Pipeline) execute(id uint64, kind Kind, coord world.ChunkCoord, run func() (Result, error)) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("%s %v (request %d) panicked: %v", kind, coord, id, r)
			res = Result{Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
		res.ID = id
		res.Kind = kind
		res.Coord = coord
		res.Elapsed = time.Since(start)
	}()

	out, err := run()
	if err != nil {
		return Result{Err: err}
	}
	return out
}

// Close stops accepting work and waits for running tasks to finish.
// Results not yet read are dropped.
func (p *Pipeline) Close() {
	p.once.Do(func() {
		p.closed.Store(true)
		close(p.done)
		p.pool.StopAndWait()
	})
}
