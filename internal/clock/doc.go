// Package clock provides the vector clock internal/crdt keeps per
// replica, keyed by replica name rather than a generic node ID. The
// presence CRDT advances its own replica's clock on every join and leave
// (an entry's tag counter is that clock position) and carries every
// replica's clock in heartbeats, so replicas can tell from a heartbeat
// alone whether they are missing events and need a transfer.
package clock
