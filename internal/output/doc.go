// Package output writes built process graphs.
//
// A Writer is a pure export layer that:
//   - Receives a built graph and the threads chosen for export
//   - Serialises each thread as {nodes, links}
//   - Owns its destination (files or database)
//
// It does NOT:
//   - Load or parse tables
//   - Segment traces or count links
//   - Decide which threads are exported
//
// Two writers exist:
//   - JSONWriter: one pid<N>.tid<PIN>.json file per thread
//   - SQLiteWriter: nodes, threads and links tables in one database
package output
