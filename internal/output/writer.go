package output

import (
	"context"
	"fmt"

	"github.com/mrzor/bbgraph/internal/config"
	"github.com/mrzor/bbgraph/internal/procgraph"
	"github.com/mrzor/bbgraph/internal/threadtrace"
)

// Writer exports the selected threads of a process graph.
// Implementations must be safe for concurrent use across processes.
type Writer interface {
	WriteGraph(ctx context.Context, g *procgraph.Graph, threads []*threadtrace.Thread) error
	Close() error
}

// New returns the writer for cfg.Format.
func New(cfg *config.Config) (Writer, error) {
	switch cfg.Format {
	case config.FormatJSON:
		return NewJSONWriter(cfg.Out, JSONOptions{Indent: cfg.Indent, WriteNodes: cfg.WriteNodes})
	case config.FormatSQLite:
		return NewSQLiteWriter(cfg.Out)
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.Format)
	}
}
