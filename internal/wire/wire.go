// Package wire defines the tagged messages exchanged between tracker
// replicas and their encoding onto google.golang.org/protobuf's
// well-known structpb types, the way internal/node/convert.go converts
// clock.VectorClock to a generated protobuf message — except here there
// is no .proto/codegen available, so the envelope itself is a
// structpb.Struct built from plain Go values via structpb.NewStruct,
// which is exactly what structpb is for.
package wire

import "presenced/internal/crdt"

// Heartbeat carries a replica's pending delta (possibly empty) and its
// full clocks map, broadcast once per broadcast_period.
type Heartbeat struct {
	Topic  string
	From   crdt.ReplicaRef
	Delta  crdt.Snapshot
	Clocks map[string]crdt.ClockEntry
}

// TransferReq asks From's peer for a full state transfer. ReqID
// correlates the eventual TransferAck back to this request.
type TransferReq struct {
	Topic  string
	ReqID  string
	From   crdt.ReplicaRef
	Clocks map[string]crdt.ClockEntry
}

// TransferAck answers a TransferReq with a full snapshot.
type TransferAck struct {
	Topic    string
	ReqID    string
	From     crdt.ReplicaRef
	Snapshot crdt.Snapshot
}
