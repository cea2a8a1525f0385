package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelworld/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.World.Seed = 42
	cfg.World.ChunkSize = 8
	cfg.World.Height = 48
	cfg.World.WaterLevel = 16
	cfg.Streaming.HighDetailRadius = 1
	cfg.Streaming.LowDetailRadius = 1
	cfg.Streaming.ShadowRadius = 0
	cfg.Workers.Count = 2
	cfg.Render.Listen = ""
	cfg.Metrics.Listen = ""
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := New(cfg)
	require.NoError(t, err)
	srv.logger = log.New(io.Discard, "", 0)
	return srv
}

func settle(t *testing.T, srv *Server) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		srv.tick()
		st := srv.Stats()
		if st.Resident == 25 && st.Pending == 0 && st.MeshesQueued == 0 && st.MeshesInFlight == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("world did not settle: %+v", srv.Stats())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Streaming.ShadowRadius = 5
	_, err = New(cfg)
	assert.ErrorContains(t, err, "validate config")
}

func TestServerStreamsAndReportsStatus(t *testing.T) {
	srv := newTestServer(t, testConfig())
	defer srv.pipeline.Close()
	defer srv.hub.Close()

	settle(t, srv)
	assert.Equal(t, 9, srv.Stats().Near)
	assert.Equal(t, 16, srv.Stats().Distant)
	require.Eventually(t, func() bool { return srv.pipeline.InFlight() == 0 }, 5*time.Second, time.Millisecond)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 25.0, status["resident"])
	assert.Equal(t, 42.0, status["seed"])
	assert.Equal(t, 0.0, status["jobsInFlight"])

	rec = httptest.NewRecorder()
	srv.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "voxelworld_chunks_generated_total 25")
	assert.Contains(t, body, "go_goroutines")
}

func TestServerAppliesQueuedEdits(t *testing.T) {
	srv := newTestServer(t, testConfig())
	defer srv.pipeline.Close()
	defer srv.hub.Close()
	settle(t, srv)

	w := srv.World()
	h, ok := w.SurfaceHeight(3, 3)
	require.True(t, ok)
	w.Commands().SetBlock(3, h, 3, 1)
	srv.tick()
	assert.Equal(t, 1, int(w.GetBlock(3, h, 3)))

	w.Commands().MoveObserver(100, -100)
	srv.tick()
	assert.Equal(t, w.Observer(), srv.Stats().Observer)
	assert.NotEqual(t, 0, w.Observer().X)
}

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Render.Listen = "127.0.0.1:0"
	cfg.Metrics.Listen = "localhost:0"
	srv := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Stats().Resident > 0 }, 30*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestRunReportsListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig()
	cfg.Render.Listen = busy.Addr().String()
	srv := newTestServer(t, cfg)

	err = srv.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "listen "), err.Error())
}
