package stream

import (
	"log"
	"sort"

	"voxelworld/internal/mesh"
	"voxelworld/internal/metrics"
	"voxelworld/internal/worker"
	"voxelworld/internal/world"
)

// State is the lifecycle position of one chunk coordinate.
type State uint8

const (
	StateUnrequested State = iota
	StatePending
	StateResident
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResident:
		return "resident"
	default:
		return "unrequested"
	}
}

// Dispatcher accepts work without blocking and reports results on a
// channel. *worker.Pipeline satisfies it.
type Dispatcher interface {
	SubmitGenerate(req worker.GenerateRequest) (uint64, bool)
	SubmitMesh(req worker.MeshRequest) (uint64, bool)
	Results() <-chan worker.Result
}

// HeightSampler answers surface height queries for columns that are not
// resident. *terrain.Generator satisfies it.
type HeightSampler interface {
	SurfaceHeight(seed int64, wx, wz int) int
}

type Options struct {
	Params world.Params

	HighDetailRadius int
	LowDetailRadius  int
	ShadowRadius     int

	// EvictionBuffer is added to the combined LOD radius to get the
	// eviction horizon.
	EvictionBuffer int

	MaxRequestsPerTick    int
	MaxSpiralStepsPerTick int
	MaxMeshesPerTick      int

	// MaxResultsPerTick and MaxCommandsPerTick of zero mean unbounded.
	MaxResultsPerTick  int
	MaxCommandsPerTick int

	Heights HeightSampler

	// Commands, when set, becomes the world's command queue so producers
	// can be built before the world.
	Commands *CommandQueue
}

// DefaultOptions returns streaming limits suitable for an interactive view.
func DefaultOptions(params world.Params) Options {
	return Options{
		Params:                params,
		HighDetailRadius:      6,
		LowDetailRadius:       10,
		ShadowRadius:          3,
		EvictionBuffer:        2,
		MaxRequestsPerTick:    8,
		MaxSpiralStepsPerTick: 256,
		MaxMeshesPerTick:      6,
	}
}

func (o Options) normalized() Options {
	if o.HighDetailRadius < 0 {
		o.HighDetailRadius = 0
	}
	if o.LowDetailRadius < 0 {
		o.LowDetailRadius = 0
	}
	if o.ShadowRadius > o.HighDetailRadius {
		o.ShadowRadius = o.HighDetailRadius
	}
	if o.EvictionBuffer < 0 {
		o.EvictionBuffer = 0
	}
	if o.MaxRequestsPerTick <= 0 {
		o.MaxRequestsPerTick = 1
	}
	if o.MaxSpiralStepsPerTick < o.MaxRequestsPerTick {
		o.MaxSpiralStepsPerTick = o.MaxRequestsPerTick
	}
	if o.MaxMeshesPerTick <= 0 {
		o.MaxMeshesPerTick = 1
	}
	return o
}

// ScanRadius is the combined LOD radius the spiral covers.
func (o Options) ScanRadius() int {
	return o.HighDetailRadius + o.LowDetailRadius
}

// EvictionRadius is the Chebyshev distance beyond which resident chunks are
// dropped. It is never smaller than ScanRadius.
func (o Options) EvictionRadius() int {
	return o.ScanRadius() + o.EvictionBuffer
}

type meshState struct {
	inFlight  bool
	requestID uint64
	meshed    bool
	meshedRev uint64
}

// Stats is a snapshot of the streamer's bookkeeping. MeshesQueued counts
// chunks waiting for a mesh request to be sent.
type Stats struct {
	Observer       world.ChunkCoord
	Resident       int
	Pending        int
	MeshesInFlight int
	MeshesQueued   int
	Near           int
	Distant        int
}

// World owns the resident chunks around one observer. Every method must be
// called from the same goroutine; other goroutines talk to it through
// Commands.
type World struct {
	opts       Options
	dims       world.Dims
	dispatcher Dispatcher
	sink       Sink
	metrics    *metrics.Metrics
	logger     *log.Logger
	commands   *CommandQueue

	store   *Store
	pending map[world.ChunkCoord]struct{}
	scan    spiral
	rescan  bool

	observerX, observerZ float64
	center               world.ChunkCoord

	lods       map[world.ChunkCoord]LOD
	lodVersion uint64
	lodCenter  world.ChunkCoord
	lodValid   bool
	distant    map[world.ChunkCoord]distantEntry

	meshes       map[world.ChunkCoord]*meshState
	wanted       map[world.ChunkCoord]struct{}
	meshRequests map[uint64]world.ChunkCoord
	staleLogged  map[world.ChunkCoord]struct{}
}

func NewWorld(opts Options, dispatcher Dispatcher, sink Sink, m *metrics.Metrics, logger *log.Logger) *World {
	if sink == nil {
		sink = Discard{}
	}
	if logger == nil {
		logger = log.New(log.Writer(), "stream ", log.LstdFlags|log.Lmicroseconds)
	}
	opts = opts.normalized()
	commands := opts.Commands
	if commands == nil {
		commands = NewCommandQueue()
	}
	return &World{
		opts:         opts,
		dims:         opts.Params.Dims(),
		dispatcher:   dispatcher,
		sink:         sink,
		metrics:      m,
		logger:       logger,
		commands:     commands,
		store:        NewStore(),
		pending:      make(map[world.ChunkCoord]struct{}),
		rescan:       true,
		lods:         make(map[world.ChunkCoord]LOD),
		distant:      make(map[world.ChunkCoord]distantEntry),
		meshes:       make(map[world.ChunkCoord]*meshState),
		wanted:       make(map[world.ChunkCoord]struct{}),
		meshRequests: make(map[uint64]world.ChunkCoord),
		staleLogged:  make(map[world.ChunkCoord]struct{}),
	}
}

func (w *World) Options() Options {
	return w.opts
}

// Commands is the queue other goroutines use to move the observer and edit
// blocks. It is drained at the start of every Tick.
func (w *World) Commands() *CommandQueue {
	return w.commands
}

// Store exposes the resident chunk cache for read-only inspection.
func (w *World) Store() *Store {
	return w.store
}

// Observer returns the chunk the observer currently stands in.
func (w *World) Observer() world.ChunkCoord {
	return w.center
}

// SetObserver moves the observer. Crossing into another chunk restarts the
// spiral scan around the new centre.
func (w *World) SetObserver(x, z float64) {
	w.observerX, w.observerZ = x, z
	coord, _, _ := w.dims.ChunkOf(floorInt(x), floorInt(z))
	if coord != w.center {
		w.center = coord
		w.rescan = true
	}
}

// Tick runs one scheduling step. It never blocks on the dispatcher.
func (w *World) Tick() {
	w.applyCommands()
	w.drainResults()
	w.schedule()
	w.refreshLOD()
	w.dispatchMeshes()
	w.publish()
}

func (w *World) applyCommands() {
	for _, cmd := range w.commands.Drain(w.opts.MaxCommandsPerTick) {
		switch cmd.Kind {
		case CommandObserver:
			w.SetObserver(cmd.PosX, cmd.PosZ)
		case CommandSetBlock:
			w.SetBlock(cmd.X, cmd.Y, cmd.Z, cmd.Block)
		}
	}
}

func (w *World) drainResults() {
	results := w.dispatcher.Results()
	for n := 0; w.opts.MaxResultsPerTick <= 0 || n < w.opts.MaxResultsPerTick; n++ {
		select {
		case res, ok := <-results:
			if !ok {
				return
			}
			switch res.Kind {
			case worker.KindGenerate:
				w.applyChunk(res)
			case worker.KindMesh:
				w.applyMesh(res)
			default:
				w.logger.Printf("dropping result %d with unknown kind %d", res.ID, res.Kind)
			}
		default:
			return
		}
	}
}

func (w *World) applyChunk(res worker.Result) {
	coord := res.Coord
	if _, ok := w.pending[coord]; !ok {
		return
	}
	delete(w.pending, coord)

	if res.Err == nil && (res.Chunk == nil || res.Chunk.Coord != coord || res.Chunk.Volume == nil) {
		res.Err = worker.ErrMalformedResult
	}
	if res.Err != nil {
		w.logger.Printf("generate %v (request %d) failed: %v", coord, res.ID, res.Err)
		w.metrics.IncFailed()
		w.rescan = true
		return
	}
	w.metrics.ObserveGenerate(res.Elapsed)
	if coord.Chebyshev(w.center) > w.opts.EvictionRadius() {
		// The observer moved away while this was being generated.
		return
	}

	w.store.Insert(res.Chunk)
	delete(w.staleLogged, coord)
	w.metrics.IncGenerated()

	evicted := w.store.EvictBeyond(w.center, w.opts.EvictionRadius())
	for _, c := range evicted {
		w.forget(c)
	}
	w.metrics.AddEvicted(len(evicted))

	// Neighbors meshed while this chunk was missing treated it as air.
	for _, d := range world.Directions {
		n := coord.Neighbor(d)
		if w.lods[n].Near() && w.store.Has(n) {
			w.wanted[n] = struct{}{}
		}
	}
}

func (w *World) forget(coord world.ChunkCoord) {
	if ms, ok := w.meshes[coord]; ok && ms.meshed {
		w.sink.MeshRemoved(coord)
	}
	delete(w.meshes, coord)
	delete(w.wanted, coord)
	delete(w.lods, coord)
}

func (w *World) applyMesh(res worker.Result) {
	coord := res.Coord
	delete(w.meshRequests, res.ID)

	ms := w.meshes[coord]
	current := ms != nil && ms.inFlight && ms.requestID == res.ID
	if current {
		ms.inFlight = false
	}
	chunk, resident := w.store.Get(coord)
	if !current || !resident || !w.lods[coord].Near() {
		w.metrics.IncStale()
		if _, seen := w.staleLogged[coord]; !seen {
			w.staleLogged[coord] = struct{}{}
			w.logger.Printf("discarding stale mesh for %v (request %d)", coord, res.ID)
		}
		return
	}
	if res.Err != nil || res.Buffers == nil {
		w.logger.Printf("mesh %v (request %d) failed: %v", coord, res.ID, res.Err)
		w.metrics.IncFailed()
		w.wanted[coord] = struct{}{}
		return
	}

	w.metrics.ObserveMesh(res.Elapsed)
	w.metrics.IncMeshesBuilt()
	ms.meshed = true
	ms.meshedRev = res.Revision
	w.sink.MeshReady(ChunkMesh{
		Coord:    coord,
		LOD:      w.lods[coord],
		Revision: res.Revision,
		Buffers:  res.Buffers,
	})
	if res.Revision != chunk.Revision {
		// Edited while in flight; this mesh is shown once until the fresh
		// one arrives.
		w.wanted[coord] = struct{}{}
	}
}

func (w *World) schedule() {
	if w.rescan {
		w.scan.reset(w.center, w.opts.ScanRadius())
		w.rescan = false
	}
	requests := 0
	for steps := 0; steps < w.opts.MaxSpiralStepsPerTick && requests < w.opts.MaxRequestsPerTick; steps++ {
		coord, ok := w.scan.next()
		if !ok {
			return
		}
		if w.store.Has(coord) {
			continue
		}
		if _, ok := w.pending[coord]; ok {
			continue
		}
		w.pending[coord] = struct{}{}
		if _, ok := w.dispatcher.SubmitGenerate(worker.GenerateRequest{Coord: coord, Seed: w.opts.Params.Seed}); !ok {
			delete(w.pending, coord)
			w.scan.unread(coord)
			w.metrics.IncRejected()
			return
		}
		w.metrics.IncRequested()
		requests++
	}
}

func (w *World) refreshLOD() {
	version := w.store.Version()
	if w.lodValid && w.lodVersion == version && w.lodCenter == w.center {
		return
	}
	w.lodValid = true
	w.lodVersion = version
	w.lodCenter = w.center

	next := make(map[world.ChunkCoord]LOD, len(w.lods))
	nextDistant := make(map[world.ChunkCoord]distantEntry, len(w.distant))
	var order []world.ChunkCoord
	changed := false
	for _, coord := range w.store.Coords() {
		lod := ClassifyLOD(coord.Chebyshev(w.center), w.opts.ShadowRadius, w.opts.HighDetailRadius, w.opts.LowDetailRadius)
		prev, had := w.lods[coord]
		if !had {
			prev = LODNone
		}
		if lod != prev {
			w.sink.LODChanged(coord, lod)
		}
		if lod != LODNone {
			next[coord] = lod
		}

		if lod.Near() {
			ms := w.meshes[coord]
			if ms == nil {
				ms = &meshState{}
				w.meshes[coord] = ms
			}
			if !ms.meshed && !ms.inFlight {
				w.wanted[coord] = struct{}{}
			}
			continue
		}
		if prev.Near() {
			if ms, ok := w.meshes[coord]; ok && ms.meshed {
				w.sink.MeshRemoved(coord)
			}
			delete(w.meshes, coord)
			delete(w.wanted, coord)
		}
		if lod == LODDistant {
			chunk, _ := w.store.Get(coord)
			entry, ok := w.distant[coord]
			if !ok || entry.chunk != chunk || entry.revision != chunk.Revision {
				entry = distantEntry{chunk: chunk, revision: chunk.Revision, summary: distantSummary(chunk)}
				changed = true
			}
			nextDistant[coord] = entry
			order = append(order, coord)
		}
	}
	w.lods = next
	if len(nextDistant) != len(w.distant) {
		changed = true
	}
	w.distant = nextDistant
	if !changed {
		return
	}
	distant := make([]DistantChunk, 0, len(order))
	for _, coord := range order {
		distant = append(distant, nextDistant[coord].summary)
	}
	w.sink.DistantUpdated(distant)
}

// distantEntry caches the summary last sent for a distant chunk. The far set
// is resent only when its membership or a member's revision changes.
type distantEntry struct {
	chunk    *world.Chunk
	revision uint64
	summary  DistantChunk
}

func distantSummary(chunk *world.Chunk) DistantChunk {
	return DistantChunk{
		Coord:         chunk.Coord,
		HeightMap:     append([]int16(nil), chunk.HeightMap...),
		TopLayer:      append([]world.BlockID(nil), chunk.TopLayer...),
		AverageHeight: chunk.AverageHeight,
		Biome:         chunk.Biome,
		Trees:         append([]world.TreePlacement(nil), chunk.Trees...),
	}
}

func (w *World) dispatchMeshes() {
	if len(w.wanted) == 0 {
		return
	}
	queue := make([]world.ChunkCoord, 0, len(w.wanted))
	for coord := range w.wanted {
		if !w.store.Has(coord) || !w.lods[coord].Near() {
			delete(w.wanted, coord)
			continue
		}
		if ms := w.meshes[coord]; ms != nil && ms.inFlight {
			continue
		}
		queue = append(queue, coord)
	}
	sortByDistance(queue, w.center)

	sent := 0
	for _, coord := range queue {
		if sent >= w.opts.MaxMeshesPerTick {
			return
		}
		chunk, _ := w.store.Get(coord)
		req := worker.MeshRequest{
			Coord:    coord,
			Revision: chunk.Revision,
			Volume:   chunk.Volume.Clone(),
		}
		req.Neighbors = w.neighborVolumes(coord)
		id, ok := w.dispatcher.SubmitMesh(req)
		if !ok {
			w.metrics.IncRejected()
			return
		}
		ms := w.meshes[coord]
		if ms == nil {
			ms = &meshState{}
			w.meshes[coord] = ms
		}
		ms.inFlight = true
		ms.requestID = id
		w.meshRequests[id] = coord
		delete(w.wanted, coord)
		sent++
	}
}

func (w *World) neighborVolumes(coord world.ChunkCoord) mesh.Neighbors {
	var nb mesh.Neighbors
	for _, d := range world.Directions {
		if chunk, ok := w.store.Get(coord.Neighbor(d)); ok {
			nb.Set(d, chunk.Volume.Clone())
		}
	}
	return nb
}

func (w *World) publish() {
	w.metrics.SetStore(w.store.Len(), len(w.pending), len(w.meshRequests))
}

// State reports where a coordinate sits in the chunk lifecycle.
func (w *World) State(coord world.ChunkCoord) State {
	if w.store.Has(coord) {
		return StateResident
	}
	if _, ok := w.pending[coord]; ok {
		return StatePending
	}
	return StateUnrequested
}

// LOD returns the tier last assigned to coord, or LODNone.
func (w *World) LOD(coord world.ChunkCoord) LOD {
	if lod, ok := w.lods[coord]; ok {
		return lod
	}
	return LODNone
}

// MeshPending reports whether a mesh for coord is queued or in flight.
func (w *World) MeshPending(coord world.ChunkCoord) bool {
	if _, ok := w.wanted[coord]; ok {
		return true
	}
	ms := w.meshes[coord]
	return ms != nil && ms.inFlight
}

// GetBlock returns the block at a world position, or air when the chunk is
// not resident or y is outside the world.
func (w *World) GetBlock(wx, wy, wz int) world.BlockID {
	if wy < 0 || wy >= w.dims.Height {
		return world.Air
	}
	coord, lx, lz := w.dims.ChunkOf(wx, wz)
	chunk, ok := w.store.Get(coord)
	if !ok {
		return world.Air
	}
	return chunk.Block(lx, wy, lz)
}

// SetBlock edits a resident voxel and queues fresh meshes for its chunk and
// the lateral neighbors. It reports false when nothing was changed.
func (w *World) SetBlock(wx, wy, wz int, id world.BlockID) bool {
	if wy < 0 || wy >= w.dims.Height {
		return false
	}
	coord, lx, lz := w.dims.ChunkOf(wx, wz)
	chunk, ok := w.store.Get(coord)
	if !ok {
		return false
	}
	if !chunk.SetBlock(lx, wy, lz, id) {
		return false
	}
	w.metrics.IncEdits()
	w.invalidate(chunk)
	for _, d := range world.Directions {
		if n, ok := w.store.Get(coord.Neighbor(d)); ok {
			w.invalidate(n)
		}
	}
	return true
}

func (w *World) invalidate(chunk *world.Chunk) {
	switch lod := w.LOD(chunk.Coord); {
	case lod.Near():
		w.wanted[chunk.Coord] = struct{}{}
	case lod == LODDistant && chunk.Dirty:
		chunk.RecomputeSummary()
		w.lodValid = false
	}
}

// SurfaceHeight returns the topmost non-air y of a world column. Resident
// chunks are rescanned so edits are reflected; other columns fall back to
// the height sampler.
func (w *World) SurfaceHeight(wx, wz int) (int, bool) {
	coord, lx, lz := w.dims.ChunkOf(wx, wz)
	if chunk, ok := w.store.Get(coord); ok {
		if !chunk.Dirty && len(chunk.HeightMap) == w.dims.Columns() {
			return int(chunk.HeightMap[w.dims.ColumnIndex(lx, lz)]), true
		}
		h, _ := world.ScanColumn(chunk.Volume, lx, lz)
		return h, true
	}
	if w.opts.Heights == nil {
		return 0, false
	}
	return w.opts.Heights.SurfaceHeight(w.opts.Params.Seed, wx, wz), true
}

func (w *World) Stats() Stats {
	st := Stats{
		Observer:       w.center,
		Resident:       w.store.Len(),
		Pending:        len(w.pending),
		MeshesInFlight: len(w.meshRequests),
	}
	for coord := range w.wanted {
		if ms := w.meshes[coord]; ms == nil || !ms.inFlight {
			st.MeshesQueued++
		}
	}
	for _, lod := range w.lods {
		if lod.Near() {
			st.Near++
		} else if lod == LODDistant {
			st.Distant++
		}
	}
	return st
}

func sortByDistance(coords []world.ChunkCoord, center world.ChunkCoord) {
	sort.Slice(coords, func(i, j int) bool {
		di, dj := coords[i].Chebyshev(center), coords[j].Chebyshev(center)
		if di != dj {
			return di < dj
		}
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Z < coords[j].Z
	})
}

func floorInt(v float64) int {
	i := int(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return i
}
