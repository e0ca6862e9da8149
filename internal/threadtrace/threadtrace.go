package threadtrace

import (
	"github.com/mrzor/bbgraph/internal/trace"
)

// Segment is a maximal run of in-region events of one thread.
type Segment []trace.Event

// Edge is an ordered pair of basic-block indices.
type Edge struct {
	Source int64
	Target int64
}

// Split cuts events at every sentinel. Sentinels are discarded and empty
// segments are kept.
func Split(events []trace.Event) []Segment {
	segments := make([]Segment, 0, 1)
	var current Segment
	for _, ev := range events {
		if ev.IsSentinel() {
			segments = append(segments, current)
			current = nil
			continue
		}
		current = append(current, ev)
	}
	return append(segments, current)
}

// SegmentEdges returns every edge occurrence of a segment, in order.
// Only interior positions act as edge sources.
func SegmentEdges(seg Segment) []Edge {
	if len(seg) < 3 {
		return nil
	}
	edges := make([]Edge, 0, len(seg)-2)
	for i := 1; i < len(seg)-1; i++ {
		edges = append(edges, Edge{Source: seg[i].BBIdx, Target: seg[i+1].BBIdx})
	}
	return edges
}

// Aggregate tallies the edges of all segments into links, one per distinct
// pair, in order of first occurrence.
func Aggregate(segments []Segment) []trace.Link {
	counts := make(map[Edge]int)
	var order []Edge
	for _, seg := range segments {
		for _, e := range SegmentEdges(seg) {
			if counts[e] == 0 {
				order = append(order, e)
			}
			counts[e]++
		}
	}

	links := make([]trace.Link, 0, len(order))
	for _, e := range order {
		links = append(links, trace.Link{Source: e.Source, Target: e.Target, Count: counts[e]})
	}
	return links
}

// Thread is the derived view of one thread's trace.
type Thread struct {
	Key trace.ThreadKey
	// Events is the thread's trace, sentinels included, in trace order.
	Events   []trace.Event
	Segments []Segment
	Links    []trace.Link
}

// New segments and aggregates the events of one thread.
func New(key trace.ThreadKey, events []trace.Event) *Thread {
	segments := Split(events)
	return &Thread{
		Key:      key,
		Events:   events,
		Segments: segments,
		Links:    Aggregate(segments),
	}
}

// Sentinels returns how many whitelist exits the thread recorded.
func (t *Thread) Sentinels() int {
	return len(t.Segments) - 1
}

// Occurrences returns the number of edge occurrences before aggregation.
func (t *Thread) Occurrences() int {
	n := 0
	for _, l := range t.Links {
		n += l.Count
	}
	return n
}
