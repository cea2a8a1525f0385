package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncRequested()
	m.IncRequested()
	m.IncGenerated()
	m.AddEvicted(3)
	m.AddEvicted(-1)
	m.IncStale()
	m.SetStore(10, 4, 2)
	m.ObserveGenerate(5 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requested))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generated))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Evicted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleDiscarded))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.Resident))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Pending))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MeshesInFlight))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncRequested()
		m.IncFailed()
		m.SetStore(1, 1, 1)
		m.ObserveMesh(time.Second)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IncEdits()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "voxelworld_block_edits_total 1"))
}
