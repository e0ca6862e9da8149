package trace

import (
	"encoding/json"
	"fmt"
)

// Sentinel is the bb_idx value recorded when execution leaves the whitelist.
const Sentinel int64 = -1

// Column names of the typed trace fields.
const (
	FieldOSTid  = "os_tid"
	FieldPinTid = "pin_tid"
	FieldBBIdx  = "bb_idx"
	FieldID     = "id"
)

// Row is one table record keyed by column header.
type Row map[string]string

// Event is one executed basic block occurrence.
type Event struct {
	OSTid  int64
	PinTid int64
	BBIdx  int64
	// Attrs holds every column other than the typed ones.
	Attrs map[string]string
}

// IsSentinel reports whether the event marks an exit from the whitelist.
func (e Event) IsSentinel() bool {
	return e.BBIdx == Sentinel
}

// Key returns the identity of the thread that executed the event.
func (e Event) Key() ThreadKey {
	return ThreadKey{OSTid: e.OSTid, PinTid: e.PinTid}
}

// ThreadKey identifies a thread by its OS and instrumentation thread ids.
type ThreadKey struct {
	OSTid  int64
	PinTid int64
}

func (k ThreadKey) String() string {
	return fmt.Sprintf("os_tid=%d pin_tid=%d", k.OSTid, k.PinTid)
}

// BasicBlock is a graph node. Its fields are passed through untouched.
type BasicBlock struct {
	ID    string
	Attrs map[string]string
}

// MarshalJSON renders the block as one flat object with "id" next to the
// pass-through attributes.
func (b BasicBlock) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(b.Attrs)+1)
	for k, v := range b.Attrs {
		flat[k] = v
	}
	flat[FieldID] = b.ID
	return EncodeJSON(flat, "")
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (b *BasicBlock) UnmarshalJSON(data []byte) error {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	id, ok := flat[FieldID]
	if !ok {
		return fmt.Errorf("basic block without %q field", FieldID)
	}
	delete(flat, FieldID)
	b.ID = id
	b.Attrs = flat
	return nil
}

// Link is a weighted directed edge between two basic blocks of one thread.
//
// Source and target are written as JSON strings so they join against node
// ids, which are strings.
type Link struct {
	Source int64 `json:"source,string"`
	Target int64 `json:"target,string"`
	Count  int   `json:"count"`
}
