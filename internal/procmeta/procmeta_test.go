package procmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrzor/bbgraph/internal/procgraph"
	"github.com/mrzor/bbgraph/internal/trace"
)

func TestProcessMetadata_Summarize(t *testing.T) {
	events := []trace.Event{
		{OSTid: 1, PinTid: 0, BBIdx: 0},
		{OSTid: 1, PinTid: 0, BBIdx: -1},
		{OSTid: 2, PinTid: 1, BBIdx: -1},
		{OSTid: 2, PinTid: 1, BBIdx: -1},
	}
	g := procgraph.Build(9, []trace.BasicBlock{{ID: "0"}}, events)

	md := ProcessMetadata{Sentinels: 42}
	md.Summarize(g)

	assert.Equal(t, 1, md.Nodes)
	assert.Equal(t, 2, md.Threads)
	assert.Equal(t, 3, md.Sentinels)
}

func TestProcessMetadata_CountSelected(t *testing.T) {
	events := []trace.Event{
		{OSTid: 1, PinTid: 0, BBIdx: 0},
		{OSTid: 1, PinTid: 0, BBIdx: 1},
		{OSTid: 1, PinTid: 0, BBIdx: 2},
		{OSTid: 1, PinTid: 0, BBIdx: 1},
		{OSTid: 1, PinTid: 0, BBIdx: 2},
		{OSTid: 2, PinTid: 1, BBIdx: 5},
	}
	g := procgraph.Build(9, nil, events)

	md := ProcessMetadata{Links: 10, Occurrences: 10}
	md.CountSelected(g.Threads)

	assert.Equal(t, 2, md.Selected)
	// 1->2 twice, 2->1 once.
	assert.Equal(t, 2, md.Links)
	assert.Equal(t, 3, md.Occurrences)

	md.CountSelected(nil)
	assert.Zero(t, md.Selected)
	assert.Zero(t, md.Links)
	assert.Zero(t, md.Occurrences)
}
