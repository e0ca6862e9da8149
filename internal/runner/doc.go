// Package runner builds the graphs of many traced processes in parallel.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│      dataset.Discover / Lookup          │
//	└─────────────────┬───────────────────────┘
//	                  │ []dataset.Process
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   runner                                │  ← errgroup, bounded
//	│   - One goroutine per process           │
//	│   - First failure cancels the rest      │
//	└─────────┬───────────────────────────────┘
//	          │ per process, each stage in a span
//	          │
//	          ├──→ load_nodes ───→ dataset.LoadBasicBlocks
//	          │
//	          ├──→ load_trace ───→ dataset.LoadTrace
//	          │
//	          ├──→ build ────────→ procgraph.Build
//	          │                    - Partitions by pin_tid
//	          │                    - threadtrace segments + links
//	          │
//	          ├──→ select ───────→ selector.Select
//	          │
//	          └──→ write ────────→ output.Writer
//
// Per-process statistics land in procmeta.Manager and metrics.Metrics.
package runner
