// Package crdt implements the presence state-based CRDT: the storage,
// merge and delta-extraction engine the tracker server depends on but does
// not itself understand the internals of.
//
// Presences are grouped by owning replica, mirroring the teacher's
// dominance-based reconciliation (internal/repair.Reconcile): within one
// owner's submap a key's tag counter only ever increases, so merge reduces
// to "adopt the remote entry if its tag dominates the one we hold" — no
// sibling/conflict bookkeeping is needed because a (pid, topic, key) triple
// is only ever written by the replica whose ref owns it.
//
// A leave does not erase its map entry; it tombstones it (Deleted: true,
// tag bumped) the same way storage.InMemoryStore keeps a soft-deleted
// VersionedValue around instead of dropping the key outright. That keeps
// leaves propagating correctly through full-state transfers, not just
// deltas.
package crdt
