package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveProcess(nil)
	m.ObserveProcess(nil)
	m.ObserveProcess(errors.New("bad trace"))
	m.ObserveGraph(100, 4, 2)
	m.ObserveGraph(50, 1, 1)
	m.ObserveExport(2, 7, 19)
	m.ObserveStage("build", 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.processes.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.processes.WithLabelValues(ResultError)))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.events))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.sentinels))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.threads))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.exported))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.links))
	assert.Equal(t, 19.0, testutil.ToFloat64(m.occurs))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveGraph(10, 1, 1)

	path := filepath.Join(t.TempDir(), "bbgraph.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bbgraph_events_total 10")
	assert.Contains(t, string(data), "bbgraph_threads_total 1")
}

func TestMetrics_WriteTextfileError(t *testing.T) {
	m := New(prometheus.NewRegistry())
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "bbgraph.prom"))
	assert.Error(t, err)
}
