package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/goleak"

	"github.com/mrzor/bbgraph/internal/dataset"
	"github.com/mrzor/bbgraph/internal/metrics"
	"github.com/mrzor/bbgraph/internal/output"
	"github.com/mrzor/bbgraph/internal/procgraph"
	"github.com/mrzor/bbgraph/internal/procmeta"
	"github.com/mrzor/bbgraph/internal/selector"
	"github.com/mrzor/bbgraph/internal/trace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const nodesCSV = `bb,addr,img
0,0x10,a.out
1,0x20,a.out
2,0x30,a.out
3,0x40,|libc, musl|
`

// Thread pin 0 has links 2->3 (x2); pin 1 has none.
const traceCSV = `os_tid,pin_tid,bb_idx
100,0,1
100,0,2
101,1,0
100,0,3
100,0,-1
100,0,1
100,0,2
100,0,3
`

func writeTables(t *testing.T, dir string, pid int, nodes, events string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("pid%d.bb.csv", pid)), []byte(nodes), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("pid%d.trace.csv", pid)), []byte(events), 0o644))
}

type fixture struct {
	out     string
	meta    *procmeta.Manager
	metrics *metrics.Metrics
	reg     *prometheus.Registry
}

func newRunner(t *testing.T, expression string, concurrency int) (*Runner, *fixture) {
	t.Helper()
	f := &fixture{out: t.TempDir(), meta: procmeta.NewManager(), reg: prometheus.NewRegistry()}
	f.metrics = metrics.New(f.reg)

	w, err := output.NewJSONWriter(f.out, output.JSONOptions{})
	require.NoError(t, err)
	sel, err := selector.New(expression)
	require.NoError(t, err)

	tracer := noop.NewTracerProvider().Tracer("test")
	return New(log.NewNopLogger(), tracer, w, sel, f.meta, f.metrics, concurrency), f
}

func TestRunBuildsEveryProcess(t *testing.T) {
	in := t.TempDir()
	for _, pid := range []int{11, 12, 13} {
		writeTables(t, in, pid, nodesCSV, traceCSV)
	}
	procs, orphans, err := dataset.Discover(in)
	require.NoError(t, err)
	require.Empty(t, orphans)
	require.Len(t, procs, 3)

	r, f := newRunner(t, "", 2)
	require.NoError(t, r.Run(context.Background(), procs))

	assert.Equal(t, []int{11, 12, 13}, f.meta.PIDs())
	for _, pid := range []int{11, 12, 13} {
		md, ok := f.meta.Get(pid)
		require.True(t, ok)
		assert.Equal(t, 4, md.Nodes)
		assert.Equal(t, 8, md.Events)
		assert.Equal(t, 1, md.Sentinels)
		assert.Equal(t, 2, md.Threads)
		assert.Equal(t, 2, md.Selected)
		assert.Equal(t, 1, md.Links)
		assert.Equal(t, 2, md.Occurrences)
		assert.Positive(t, md.Duration)
		assert.NoError(t, f.meta.GetError(pid))
		assert.Empty(t, f.meta.GetIssues(pid))

		for _, tid := range []int64{0, 1} {
			assert.FileExists(t, filepath.Join(f.out, output.ThreadFile(pid, tid)))
		}
	}

	data, err := os.ReadFile(filepath.Join(f.out, output.ThreadFile(12, 0)))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"links":[{"source":"2","target":"3","count":2}]`)
	assert.Contains(t, string(data), `{"addr":"0x40","id":"3","img":"libc, musl"}`)

	expected := `
# HELP bbgraph_processes_total Processes handled, by result.
# TYPE bbgraph_processes_total counter
bbgraph_processes_total{result="ok"} 3
# HELP bbgraph_events_total Trace events loaded, sentinels included.
# TYPE bbgraph_events_total counter
bbgraph_events_total 24
# HELP bbgraph_links_total Distinct weighted links written.
# TYPE bbgraph_links_total counter
bbgraph_links_total 3
`
	assert.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected),
		"bbgraph_processes_total", "bbgraph_events_total", "bbgraph_links_total"))
}

func TestRunSelector(t *testing.T) {
	in := t.TempDir()
	writeTables(t, in, 7, nodesCSV, traceCSV)
	p, err := dataset.Lookup(in, 7)
	require.NoError(t, err)

	r, f := newRunner(t, "links > 0", 1)
	require.NoError(t, r.Run(context.Background(), []dataset.Process{p}))

	md, ok := f.meta.Get(7)
	require.True(t, ok)
	assert.Equal(t, 2, md.Threads)
	assert.Equal(t, 1, md.Selected)

	assert.FileExists(t, filepath.Join(f.out, output.ThreadFile(7, 0)))
	assert.NoFileExists(t, filepath.Join(f.out, output.ThreadFile(7, 1)))
}

func TestRunMalformedTrace(t *testing.T) {
	in := t.TempDir()
	writeTables(t, in, 7, nodesCSV, "os_tid,pin_tid,bb_idx\n100,0,1\n100,zero,2\n")
	p, err := dataset.Lookup(in, 7)
	require.NoError(t, err)

	r, f := newRunner(t, "", 1)
	err = r.Run(context.Background(), []dataset.Process{p})
	require.Error(t, err)
	assert.True(t, errors.Is(err, trace.ErrMalformedField))
	assert.Contains(t, err.Error(), "pid 7: load_trace:")

	var fe *trace.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, trace.FieldPinTid, fe.Field)

	assert.Error(t, f.meta.GetError(7))
	md, ok := f.meta.Get(7)
	require.True(t, ok, "failed process keeps the statistics of completed stages")
	assert.Equal(t, 4, md.Nodes)
	assert.Zero(t, md.Events)
	assert.Zero(t, md.Threads)
	assert.Equal(t, []int{7}, f.meta.PIDs())
	expected := `
# HELP bbgraph_processes_total Processes handled, by result.
# TYPE bbgraph_processes_total counter
bbgraph_processes_total{result="error"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "bbgraph_processes_total"))
}

func TestRunRecordsIssues(t *testing.T) {
	in := t.TempDir()
	// bb 9 is not in the node table; thread pin 1 only leaves the whitelist.
	writeTables(t, in, 5, nodesCSV, "os_tid,pin_tid,bb_idx\n100,0,1\n100,0,2\n100,0,9\n101,1,-1\n")
	p, err := dataset.Lookup(in, 5)
	require.NoError(t, err)

	r, f := newRunner(t, "", 1)
	require.NoError(t, r.Run(context.Background(), []dataset.Process{p}))

	assert.Equal(t, []string{
		"thread os_tid=100 pin_tid=0: 1 links reference unknown basic blocks",
		"thread os_tid=101 pin_tid=1 recorded only sentinels",
	}, f.meta.GetIssues(5))
	assert.NoError(t, f.meta.GetError(5))
}

func TestRunCancelled(t *testing.T) {
	in := t.TempDir()
	writeTables(t, in, 1, nodesCSV, traceCSV)
	writeTables(t, in, 2, nodesCSV, traceCSV)
	procs, _, err := dataset.Discover(in)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _ := newRunner(t, "", 2)
	err = r.Run(ctx, procs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunNoProcesses(t *testing.T) {
	r, f := newRunner(t, "", 0)
	require.NoError(t, r.Run(context.Background(), nil))
	assert.Empty(t, f.meta.PIDs())
}

func TestCheck(t *testing.T) {
	nodes := []trace.BasicBlock{{ID: "1"}, {ID: "2"}}
	events := []trace.Event{
		{OSTid: 10, PinTid: 0, BBIdx: 1},
		{OSTid: 10, PinTid: 0, BBIdx: 1},
		{OSTid: 10, PinTid: 0, BBIdx: 2},
		{OSTid: 10, PinTid: 0, BBIdx: 9},
		{OSTid: 11, PinTid: 1, BBIdx: trace.Sentinel},
	}
	issues := Check(procgraph.Build(3, nodes, events))
	assert.Equal(t, []string{
		"thread os_tid=10 pin_tid=0: 1 links reference unknown basic blocks",
		"thread os_tid=11 pin_tid=1 recorded only sentinels",
	}, issues)

	assert.Empty(t, Check(procgraph.Build(3, nil, events[:4])), "no node table, nothing to compare against")
}
