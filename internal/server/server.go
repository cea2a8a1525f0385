package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"voxelworld/internal/config"
	"voxelworld/internal/mesh"
	"voxelworld/internal/metrics"
	"voxelworld/internal/render"
	"voxelworld/internal/stream"
	"voxelworld/internal/terrain"
	"voxelworld/internal/worker"
	"voxelworld/internal/world"
)

const shutdownTimeout = 5 * time.Second

// Server wires the streamer to its worker pipeline, the renderer hub and the
// metrics endpoint, and owns the control loop that ticks the world.
type Server struct {
	cfg      *config.Config
	params   world.Params
	world    *stream.World
	pipeline *worker.Pipeline
	hub      *render.Hub
	registry *prometheus.Registry
	logger   *log.Logger

	statsMu sync.Mutex
	stats   stream.Stats
}

func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger := log.New(log.Writer(), "voxelworld ", log.LstdFlags|log.Lmicroseconds)
	params := cfg.Params()
	registry := world.DefaultRegistry()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	gen := terrain.NewGenerator(params, registry)
	pipeline := worker.NewPipeline(cfg.WorkerOptions(), gen, mesh.NewMesher(params, registry), nil)

	commands := stream.NewCommandQueue()
	hub, err := render.NewHub(render.Options{
		ChunkSize:    params.ChunkSize,
		Height:       params.Height,
		Compress:     cfg.Render.Compress,
		SendBuffer:   cfg.Render.SendBuffer,
		WriteTimeout: cfg.Render.WriteTimeout.Duration(),
	}, commands, nil)
	if err != nil {
		pipeline.Close()
		return nil, fmt.Errorf("create render hub: %w", err)
	}

	opts := cfg.StreamOptions(params)
	opts.Heights = gen
	opts.Commands = commands

	return &Server{
		cfg:      cfg,
		params:   params,
		world:    stream.NewWorld(opts, pipeline, hub, m, nil),
		pipeline: pipeline,
		hub:      hub,
		registry: promReg,
		logger:   logger,
	}, nil
}

// World exposes the streamer. It must only be used from the goroutine that
// runs the server, or before Run starts.
func (s *Server) World() *stream.World {
	return s.world
}

func (s *Server) Hub() *render.Hub {
	return s.hub
}

// Stats returns the snapshot taken at the end of the latest tick. It is safe
// to call from any goroutine.
func (s *Server) Stats() stream.Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *Server) tick() {
	s.world.Tick()
	stats := s.world.Stats()
	s.statsMu.Lock()
	s.stats = stats
	s.statsMu.Unlock()
}

// Handler returns the http routes served on the render listener: the
// websocket hub and a JSON status document.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Render.Path, s.hub.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

func (s *Server) MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Metrics.Path, metrics.Handler(s.registry))
	return mux
}

func (s *Server) handleStatus(rw http.ResponseWriter, _ *http.Request) {
	stats := s.Stats()
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]interface{}{
		"seed":           s.params.Seed,
		"observer":       stats.Observer,
		"resident":       stats.Resident,
		"pending":        stats.Pending,
		"meshesInFlight": stats.MeshesInFlight,
		"meshesQueued":   stats.MeshesQueued,
		"jobsInFlight":   s.pipeline.InFlight(),
		"near":           stats.Near,
		"distant":        stats.Distant,
		"sessions":       s.hub.Sessions(),
	})
}

// Run ticks the world and serves the configured endpoints until ctx is
// cancelled or a listener fails. A clean shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	defer s.pipeline.Close()
	defer s.hub.Close()

	var servers []*http.Server
	if s.cfg.Render.Listen != "" {
		servers = append(servers, &http.Server{Addr: s.cfg.Render.Listen, Handler: s.Handler()})
	}
	if s.cfg.Metrics.Listen != "" {
		servers = append(servers, &http.Server{Addr: s.cfg.Metrics.Listen, Handler: s.MetricsHandler()})
	}

	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, open := range listeners {
				_ = open.Close()
			}
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
		s.logger.Printf("listening on %s", ln.Addr())
	}

	g, ctx := errgroup.WithContext(ctx)
	engine := newTickEngine(s, s.cfg.Streaming.TickRate.Duration(), s.logger)
	g.Go(func() error {
		engine.run(ctx)
		return nil
	})
	for i, srv := range servers {
		srv, ln := srv, listeners[i]
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		// Sessions hold hijacked connections that Shutdown does not track.
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Printf("shutdown %s: %v", srv.Addr, err)
			}
		}
		return nil
	})

	s.logger.Printf("streaming seed %d around %v", s.params.Seed, s.world.Observer())
	return g.Wait()
}
