package output

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mrzor/bbgraph/internal/procgraph"
	"github.com/mrzor/bbgraph/internal/threadtrace"
	"github.com/mrzor/bbgraph/internal/trace"
)

// SQLiteWriter stores every process of a run in one database.
// Rewriting a process replaces its previous rows.
type SQLiteWriter struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteWriter opens (or creates) the database at path.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(graphSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// DB exposes the underlying database for queries.
func (w *SQLiteWriter) DB() *sql.DB {
	return w.db
}

// WriteGraph replaces the rows of g.PID inside one transaction.
func (w *SQLiteWriter) WriteGraph(ctx context.Context, g *procgraph.Graph, threads []*threadtrace.Thread) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"nodes", "threads", "links"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE pid = ?", g.PID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx, "INSERT INTO nodes (pid, id, attrs) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	for _, n := range g.Nodes {
		attrs, err := trace.EncodeJSON(n.Attrs, "")
		if err != nil {
			return fmt.Errorf("failed to encode attributes of node %s: %w", n.ID, err)
		}
		if _, err := nodeStmt.ExecContext(ctx, g.PID, n.ID, string(attrs)); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.ID, err)
		}
	}

	threadStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO threads (pid, os_tid, pin_tid, events, segments, sentinels) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer threadStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO links (pid, os_tid, pin_tid, source, target, count) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer linkStmt.Close()

	for _, th := range threads {
		if _, err := threadStmt.ExecContext(ctx,
			g.PID, th.Key.OSTid, th.Key.PinTid, len(th.Events), len(th.Segments), th.Sentinels()); err != nil {
			return fmt.Errorf("failed to insert thread %s: %w", th.Key, err)
		}
		for _, l := range th.Links {
			if _, err := linkStmt.ExecContext(ctx,
				g.PID, th.Key.OSTid, th.Key.PinTid, l.Source, l.Target, l.Count); err != nil {
				return fmt.Errorf("failed to insert link of thread %s: %w", th.Key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pid %d: %w", g.PID, err)
	}
	return nil
}

// Close closes the database.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
