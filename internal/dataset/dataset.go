// Package dataset locates and loads the per-process tables of a trace
// directory.
//
// The tracing tool writes, for every traced process N:
//
//	pid<N>.bb.csv     basic blocks (first column is the block index)
//	pid<N>.trace.csv  executed blocks, one row per event
//
// Either file may carry a .gz or .zst suffix.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/mrzor/bbgraph/internal/eventstream"
)

// ErrNotFound is returned when a process has no tables in a directory.
var ErrNotFound = errors.New("process tables not found")

var tablePattern = regexp.MustCompile(`^pid(\d+)\.(bb|trace)\.csv(\.gz|\.zst)?$`)

// Process names the tables of one traced process.
type Process struct {
	PID       int
	BBPath    string
	TracePath string
}

// Discover lists every process in dir that has both tables, sorted by PID.
// PIDs with only one of the two tables are returned in orphans.
func Discover(dir string) (procs []Process, orphans []int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read trace directory: %w", err)
	}

	found := make(map[int]*Process)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := tablePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		pid, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		p := found[pid]
		if p == nil {
			p = &Process{PID: pid}
			found[pid] = p
		}
		path := filepath.Join(dir, entry.Name())
		// Prefer the uncompressed table when several encodings exist.
		switch m[2] {
		case "bb":
			if p.BBPath == "" || m[3] == "" {
				p.BBPath = path
			}
		case "trace":
			if p.TracePath == "" || m[3] == "" {
				p.TracePath = path
			}
		}
	}

	for pid, p := range found {
		if p.BBPath == "" || p.TracePath == "" {
			orphans = append(orphans, pid)
			continue
		}
		procs = append(procs, *p)
	}
	sort.Slice(procs, func(i, j int) bool { return procs[i].PID < procs[j].PID })
	sort.Ints(orphans)
	return procs, orphans, nil
}

// Lookup resolves the tables of a single process.
func Lookup(dir string, pid int) (Process, error) {
	p := Process{PID: pid}
	for _, suffix := range []string{"", eventstream.SuffixGzip, eventstream.SuffixZstd} {
		bb := filepath.Join(dir, fmt.Sprintf("pid%d.bb.csv%s", pid, suffix))
		if p.BBPath == "" && fileExists(bb) {
			p.BBPath = bb
		}
		tr := filepath.Join(dir, fmt.Sprintf("pid%d.trace.csv%s", pid, suffix))
		if p.TracePath == "" && fileExists(tr) {
			p.TracePath = tr
		}
	}
	if p.BBPath == "" || p.TracePath == "" {
		return Process{}, fmt.Errorf("pid %d in %s: %w", pid, dir, ErrNotFound)
	}
	return p, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
