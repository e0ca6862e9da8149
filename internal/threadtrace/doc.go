// Package threadtrace turns one thread's basic-block events into weighted links.
//
// Segmentation splits the event sequence at every sentinel (bb_idx == -1):
//
//	┌─────────┐
//	│  Start  │  one empty segment open
//	└────┬────┘
//	     │
//	     │ event (bb_idx >= 0)
//	     ▼
//	┌──────────┐
//	│Appending │ ◄──┐ more in-region events
//	└────┬─────┘    │
//	     │          │
//	     │ sentinel │
//	     ▼          │
//	┌──────────┐    │
//	│  Close   │ ───┘ segment kept (even if empty), new one opened,
//	└──────────┘      sentinel dropped
//
// At end of input the open segment is kept too, so a trace with n sentinels
// always yields n+1 segments.
//
// Edge derivation works per segment. The first and last block of a segment
// are the blocks recorded on entering and leaving the region, so they never
// act as an edge source; they may still be a target:
//
//	segment:  b0  b1  b2  b3
//	edges:        b1→b2  b2→b3
//
// Segments shorter than three events yield nothing. Edges never cross a
// sentinel. Identical (source, target) pairs are then tallied into a Link
// with the number of occurrences.
package threadtrace
