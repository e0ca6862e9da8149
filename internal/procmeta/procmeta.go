package procmeta

import (
	"time"

	"github.com/mrzor/bbgraph/internal/procgraph"
	"github.com/mrzor/bbgraph/internal/threadtrace"
)

// ProcessMetadata holds the statistics of one processed trace.
type ProcessMetadata struct {
	Nodes       int           // Basic blocks in the node table
	Events      int           // Trace rows, sentinels included
	Sentinels   int           // Whitelist exits across all threads
	Threads     int           // Distinct (os_tid, pin_tid) pairs
	Selected    int           // Threads kept by the selector
	Links       int           // Distinct links across selected threads
	Occurrences int           // Edge occurrences behind those links
	Duration    time.Duration // Wall time spent on the process
}

// Summarize fills the graph-derived fields from a built graph.
func (m *ProcessMetadata) Summarize(g *procgraph.Graph) {
	m.Nodes = len(g.Nodes)
	m.Threads = len(g.Threads)
	m.Sentinels = 0
	for _, th := range g.Threads {
		m.Sentinels += th.Sentinels()
	}
}

// CountSelected fills the export fields from the threads kept by the selector.
func (m *ProcessMetadata) CountSelected(threads []*threadtrace.Thread) {
	m.Selected = len(threads)
	m.Links = 0
	m.Occurrences = 0
	for _, th := range threads {
		m.Links += len(th.Links)
		m.Occurrences += th.Occurrences()
	}
}
