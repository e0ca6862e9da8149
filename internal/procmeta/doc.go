// Package procmeta records what happened to each process during a run.
//
// ProcessMetadata holds the table sizes and graph statistics of one process,
// filled in stage by stage as the process is loaded, built and exported. A
// process that fails keeps the statistics of the stages it completed.
//
// Manager provides command-query separation:
//
// Queries (read-only):
//   - Get(pid) - Retrieve metadata
//   - GetError(pid) - Retrieve the failure that stopped the process
//   - GetIssues(pid) - Retrieve warnings
//   - PIDs() - List known processes
//
// Commands (mutations):
//   - Set(pid, metadata) - Store metadata
//   - Update(pid, fn) - Mutate metadata under the lock
//   - SetError(pid, err) - Store a failure
//   - AddIssue(pid, issue) - Add a warning
//
// Processes are built concurrently, so every access goes through an RWMutex.
package procmeta
