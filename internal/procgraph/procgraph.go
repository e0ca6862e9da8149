// Package procgraph builds the per-thread control-flow graphs of one process.
//
// The process trace interleaves every thread. Build collects the distinct
// (os_tid, pin_tid) pairs, orders them by pin_tid, and hands each thread the
// events carrying its pin_tid, in trace order, for segmentation.
package procgraph

import (
	"sort"

	"github.com/mrzor/bbgraph/internal/threadtrace"
	"github.com/mrzor/bbgraph/internal/trace"
)

// Graph is the node table of a process together with its threads.
type Graph struct {
	PID     int
	Nodes   []trace.BasicBlock
	Threads []*threadtrace.Thread
}

// Document is the exported shape of one thread's graph.
type Document struct {
	Thread trace.ThreadKey    `json:"-"`
	Nodes  []trace.BasicBlock `json:"nodes"`
	Links  []trace.Link       `json:"links"`
}

// Build partitions events by thread and derives each thread's links.
// nodes is shared by every thread and never modified.
func Build(pid int, nodes []trace.BasicBlock, events []trace.Event) *Graph {
	keys := Keys(events)
	threads := make([]*threadtrace.Thread, 0, len(keys))
	for _, key := range keys {
		threads = append(threads, threadtrace.New(key, Partition(events, key.PinTid)))
	}
	return &Graph{PID: pid, Nodes: nodes, Threads: threads}
}

// Keys returns the distinct thread identities in events, ascending by
// pin_tid. Pairs sharing a pin_tid are ordered by os_tid.
func Keys(events []trace.Event) []trace.ThreadKey {
	seen := make(map[trace.ThreadKey]struct{})
	var keys []trace.ThreadKey
	for _, ev := range events {
		k := ev.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PinTid != keys[j].PinTid {
			return keys[i].PinTid < keys[j].PinTid
		}
		return keys[i].OSTid < keys[j].OSTid
	})
	return keys
}

// Partition returns the events recorded by pinTid, in trace order.
func Partition(events []trace.Event, pinTid int64) []trace.Event {
	var out []trace.Event
	for _, ev := range events {
		if ev.PinTid == pinTid {
			out = append(out, ev)
		}
	}
	return out
}

// Documents returns one {nodes, links} document per thread.
func (g *Graph) Documents() []Document {
	return DocumentsFor(g.Nodes, g.Threads)
}

// DocumentsFor pairs a node table with a subset of a graph's threads.
func DocumentsFor(nodes []trace.BasicBlock, threads []*threadtrace.Thread) []Document {
	if nodes == nil {
		nodes = []trace.BasicBlock{}
	}
	docs := make([]Document, 0, len(threads))
	for _, th := range threads {
		links := th.Links
		if links == nil {
			links = []trace.Link{}
		}
		docs = append(docs, Document{Thread: th.Key, Nodes: nodes, Links: links})
	}
	return docs
}

// NodesJSON renders the node table indented, with sorted keys and without
// HTML escaping.
func (g *Graph) NodesJSON() ([]byte, error) {
	nodes := g.Nodes
	if nodes == nil {
		nodes = []trace.BasicBlock{}
	}
	return trace.EncodeJSON(nodes, "    ")
}
