package dataset

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mrzor/bbgraph/internal/eventstream"
	"github.com/mrzor/bbgraph/internal/trace"
)

// ErrDuplicateNode is returned when two basic blocks share an id.
var ErrDuplicateNode = errors.New("duplicate basic block id")

// nodeLoader renames the first column to "id" and collects basic blocks.
type nodeLoader struct {
	nodes []trace.BasicBlock
	seen  map[string]int
}

func (l *nodeLoader) HandleHeader(header []string) ([]string, error) {
	header[0] = trace.FieldID
	return header, nil
}

func (l *nodeLoader) HandleRow(line int, row trace.Row) error {
	bb, err := trace.ParseBasicBlock(row)
	if err != nil {
		return fmt.Errorf("line %d: %w", line, err)
	}
	if prev, ok := l.seen[bb.ID]; ok {
		return fmt.Errorf("line %d: %w %q (first on line %d)", line, ErrDuplicateNode, bb.ID, prev)
	}
	l.seen[bb.ID] = line
	l.nodes = append(l.nodes, bb)
	return nil
}

// eventLoader parses trace rows into typed events.
type eventLoader struct {
	events []trace.Event
}

func (l *eventLoader) HandleHeader(header []string) ([]string, error) {
	for _, want := range []string{trace.FieldOSTid, trace.FieldPinTid, trace.FieldBBIdx} {
		if !slices.Contains(header, want) {
			return nil, fmt.Errorf("header lacks %q column", want)
		}
	}
	return header, nil
}

func (l *eventLoader) HandleRow(line int, row trace.Row) error {
	ev, err := trace.ParseEvent(row, line)
	if err != nil {
		return err
	}
	l.events = append(l.events, ev)
	return nil
}

// LoadBasicBlocks reads a node table.
func LoadBasicBlocks(ctx context.Context, path string) ([]trace.BasicBlock, error) {
	l := &nodeLoader{seen: make(map[string]int)}
	if err := run(ctx, path, l); err != nil {
		return nil, err
	}
	return l.nodes, nil
}

// LoadTrace reads an event table, failing on the first malformed integer
// field.
func LoadTrace(ctx context.Context, path string) ([]trace.Event, error) {
	l := &eventLoader{}
	if err := run(ctx, path, l); err != nil {
		return nil, err
	}
	return l.events, nil
}

func run(ctx context.Context, path string, h eventstream.Handler) (err error) {
	rc, err := eventstream.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := eventstream.New(rc, h).Run(ctx); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
