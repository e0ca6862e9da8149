package procmeta

import (
	"sort"
	"sync"
)

// Manager holds the metadata of every process in a run.
// It provides command-query separation for metadata access.
type Manager struct {
	mu       sync.RWMutex
	metadata map[int]*ProcessMetadata // PID -> process metadata
	errors   map[int]error            // PID -> failure that stopped processing
	issues   map[int][]string         // PID -> list of warnings
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{
		metadata: make(map[int]*ProcessMetadata),
		errors:   make(map[int]error),
		issues:   make(map[int][]string),
	}
}

// Get returns a copy of the metadata for a PID (query).
// The second result is false if no metadata exists for this PID.
func (m *Manager) Get(pid int) (ProcessMetadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.metadata[pid]
	if !ok {
		return ProcessMetadata{}, false
	}
	return *md, true
}

// GetError retrieves the failure recorded for a PID (query).
// Returns nil if no error exists for this PID.
func (m *Manager) GetError(pid int) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errors[pid]
}

// GetIssues retrieves the warnings recorded for a PID (query).
// Returns nil if no issues exist for this PID.
func (m *Manager) GetIssues(pid int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.issues[pid]...)
}

// PIDs returns every PID with metadata or an error, ascending (query).
func (m *Manager) PIDs() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[int]struct{}, len(m.metadata)+len(m.errors))
	for pid := range m.metadata {
		seen[pid] = struct{}{}
	}
	for pid := range m.errors {
		seen[pid] = struct{}{}
	}
	pids := make([]int, 0, len(seen))
	for pid := range seen {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// Set stores metadata for a PID (command).
// If metadata already exists, it is replaced.
func (m *Manager) Set(pid int, metadata *ProcessMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[pid] = metadata
}

// Update applies fn to the metadata of a PID under the write lock,
// creating the entry if needed (command).
func (m *Manager) Update(pid int, fn func(*ProcessMetadata)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md := m.metadata[pid]
	if md == nil {
		md = &ProcessMetadata{}
		m.metadata[pid] = md
	}
	fn(md)
}

// SetError stores the failure that stopped a PID (command).
func (m *Manager) SetError(pid int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[pid] = err
}

// AddIssue adds a warning for a PID (command).
func (m *Manager) AddIssue(pid int, issue string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[pid] = append(m.issues[pid], issue)
}
