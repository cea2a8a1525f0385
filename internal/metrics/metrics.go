package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voxelworld"

// Metrics holds the streamer and pipeline collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Requested      prometheus.Counter
	Generated      prometheus.Counter
	Failed         prometheus.Counter
	Rejected       prometheus.Counter
	Evicted        prometheus.Counter
	MeshesBuilt    prometheus.Counter
	StaleDiscarded prometheus.Counter
	Edits          prometheus.Counter

	Resident       prometheus.Gauge
	Pending        prometheus.Gauge
	MeshesInFlight prometheus.Gauge

	GenerateSeconds prometheus.Histogram
	MeshSeconds     prometheus.Histogram
}

// New creates the collectors and registers them with reg. Pass nil to skip
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_requests_total",
			Help:      "Chunk generation requests dispatched to workers.",
		}),
		Generated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_generated_total",
			Help:      "Generated chunks inserted into the store.",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_failures_total",
			Help:      "Worker results that carried an error.",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Requests refused because the worker queue was full.",
		}),
		Evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_evicted_total",
			Help:      "Chunks removed for lying beyond the eviction horizon.",
		}),
		MeshesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meshes_built_total",
			Help:      "Mesh results applied and handed to the renderer.",
		}),
		StaleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meshes_stale_total",
			Help:      "Mesh results dropped because their chunk was evicted or edited.",
		}),
		Edits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_edits_total",
			Help:      "Successful setBlock calls.",
		}),
		Resident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_resident",
			Help:      "Chunks currently held in the store.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_pending",
			Help:      "Chunks requested but not yet returned.",
		}),
		MeshesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "meshes_in_flight",
			Help:      "Mesh requests awaiting a result.",
		}),
		GenerateSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_generate_seconds",
			Help:      "Worker time spent generating one chunk.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		MeshSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_mesh_seconds",
			Help:      "Worker time spent meshing one chunk.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Requested, m.Generated, m.Failed, m.Rejected, m.Evicted,
			m.MeshesBuilt, m.StaleDiscarded, m.Edits,
			m.Resident, m.Pending, m.MeshesInFlight,
			m.GenerateSeconds, m.MeshSeconds,
		)
	}
	return m
}

func (m *Metrics) IncRequested() {
	if m != nil {
		m.Requested.Inc()
	}
}

func (m *Metrics) IncGenerated() {
	if m != nil {
		m.Generated.Inc()
	}
}

func (m *Metrics) IncFailed() {
	if m != nil {
		m.Failed.Inc()
	}
}

func (m *Metrics) IncRejected() {
	if m != nil {
		m.Rejected.Inc()
	}
}

func (m *Metrics) AddEvicted(n int) {
	if m != nil && n > 0 {
		m.Evicted.Add(float64(n))
	}
}

func (m *Metrics) IncMeshesBuilt() {
	if m != nil {
		m.MeshesBuilt.Inc()
	}
}

func (m *Metrics) IncStale() {
	if m != nil {
		m.StaleDiscarded.Inc()
	}
}

func (m *Metrics) IncEdits() {
	if m != nil {
		m.Edits.Inc()
	}
}

// SetStore publishes the store and scheduler sizes.
func (m *Metrics) SetStore(resident, pending, meshing int) {
	if m == nil {
		return
	}
	m.Resident.Set(float64(resident))
	m.Pending.Set(float64(pending))
	m.MeshesInFlight.Set(float64(meshing))
}

func (m *Metrics) ObserveGenerate(d time.Duration) {
	if m != nil {
		m.GenerateSeconds.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveMesh(d time.Duration) {
	if m != nil {
		m.MeshSeconds.Observe(d.Seconds())
	}
}

// Handler serves the collectors registered with g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
