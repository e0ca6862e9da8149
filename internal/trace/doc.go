// Package trace defines the records read from a basic-block execution trace.
//
// A trace comes in two tables per process:
//   - pid<N>.bb.csv: one BasicBlock per row, the graph nodes
//   - pid<N>.trace.csv: one Event per executed basic block, in execution order
//
// Both tables carry arbitrary extra columns which are kept as opaque string
// attributes. Only os_tid, pin_tid and bb_idx are typed.
//
// An Event whose BBIdx equals Sentinel is not a basic block: it marks the
// point where execution left the whitelisted region of interest.
package trace
