package output

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrzor/bbgraph/internal/procgraph"
	"github.com/mrzor/bbgraph/internal/threadtrace"
)

// JSONOptions tunes JSONWriter output.
type JSONOptions struct {
	Indent     bool
	WriteNodes bool
}

// JSONWriter writes one {nodes, links} document per thread.
//
// Files are named after pin_tid only. Threads sharing a pin_tid under
// several os_tid values are built from the same events and yield identical
// documents, so only the first of them is written.
type JSONWriter struct {
	dir  string
	opts JSONOptions
}

// NewJSONWriter creates dir if needed.
func NewJSONWriter(dir string, opts JSONOptions) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &JSONWriter{dir: dir, opts: opts}, nil
}

// ThreadFile returns the file name of a thread document.
func ThreadFile(pid int, pinTid int64) string {
	return fmt.Sprintf("pid%d.tid%d.json", pid, pinTid)
}

// NodesFile returns the file name of a process node table.
func NodesFile(pid int) string {
	return fmt.Sprintf("pid%d.nodes.json", pid)
}

// WriteGraph writes the documents of threads, and the node table if enabled.
func (w *JSONWriter) WriteGraph(ctx context.Context, g *procgraph.Graph, threads []*threadtrace.Thread) error {
	written := make(map[int64]struct{}, len(threads))
	for _, doc := range procgraph.DocumentsFor(g.Nodes, threads) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := written[doc.Thread.PinTid]; ok {
			continue
		}
		written[doc.Thread.PinTid] = struct{}{}
		path := filepath.Join(w.dir, ThreadFile(g.PID, doc.Thread.PinTid))
		if err := w.writeFile(path, doc); err != nil {
			return err
		}
	}

	if w.opts.WriteNodes {
		data, err := g.NodesJSON()
		if err != nil {
			return fmt.Errorf("failed to encode nodes: %w", err)
		}
		path := filepath.Join(w.dir, NodesFile(g.PID))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

func (w *JSONWriter) writeFile(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if w.opts.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return bw.Flush()
}

// Close is a no-op; every file is closed once written.
func (w *JSONWriter) Close() error {
	return nil
}
