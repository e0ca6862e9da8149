// Package selector chooses which threads of a process are exported.
//
// A selection is an expr boolean expression evaluated once per thread against:
//   - pid: process id
//   - os_tid, pin_tid: thread identity
//   - events: trace rows of the thread, sentinels included
//   - segments: in-region segments
//   - sentinels: whitelist exits
//   - links: distinct weighted links
//
// Example: `links > 0 && pin_tid < 4`. An empty expression selects everything.
package selector
