package crdt

import (
	"fmt"

	"presenced/internal/clock"
)

// ReplicaRef identifies the replica that authored a presence entry: a
// stable node name plus the nonce it picked at start.
type ReplicaRef struct {
	Name string
	Vsn  int64
}

// String renders the ref as "name#vsn", used as a map key display and in
// log lines.
func (r ReplicaRef) String() string {
	return fmt.Sprintf("%s#%d", r.Name, r.Vsn)
}

// Tag is the CRDT's causal stamp: a per-owner counter that strictly
// increases with every join/leave the owner performs. It is assigned at
// insert time and bumped at every subsequent mutation of the same key.
type Tag struct {
	Ref     ReplicaRef
	Counter int64
}

// Meta is the caller-supplied metadata mapping for a presence, plus the
// server-assigned phx_ref / phx_ref_prev keys.
type Meta map[string]any

// Clone returns a shallow copy, so callers can't mutate crdt-owned state
// through a returned map.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Presence is a (key, meta) pair as seen within a single topic.
type Presence struct {
	Key  string
	Meta Meta
}

// TopicPresence is a Presence together with the topic it belongs to, the
// shape returned by operations whose results span multiple topics (merge,
// replica_up, replica_down) so the caller can group them.
type TopicPresence struct {
	Topic string
	Key   string
	Meta  Meta
}

// ClockEntry is one replica's current vsn and vector clock, as carried in
// a heartbeat's clocks map.
type ClockEntry struct {
	Vsn   int64
	Clock clock.VectorClock
}

// EntrySnapshot is one presence entry as carried on the wire, scoped to
// its owning replica and including tombstones so a receiver's merge can
// propagate leaves, not just joins.
type EntrySnapshot struct {
	Owner   ReplicaRef
	Pid     string
	Topic   string
	Key     string
	Meta    Meta
	Tag     Tag
	Deleted bool
}

// Snapshot is the payload shape used for both a full transfer (extract)
// and a heartbeat delta (extract_delta): a set of entries plus the clocks
// they were produced under. A delta's Entries are scoped to one owner; a
// full snapshot's Entries may span every owner the sender knows about.
type Snapshot struct {
	Clocks  map[string]ClockEntry
	Entries []EntrySnapshot
}

// Empty reports whether the snapshot carries nothing new, matching the
// wire's `EMPTY` delta sentinel.
func (s Snapshot) Empty() bool {
	return len(s.Entries) == 0
}
