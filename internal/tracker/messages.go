package tracker

import "presenced/internal/crdt"

// The mailbox carries exactly these tagged variants, mirroring the
// wire protocol's {heartbeat, transfer_req, transfer_ack} tags plus the
// local request/event variants spec.md §9 calls for ("one task/goroutine
// per tracker with an input channel carrying tagged request/event
// variants"). Every public Server method below builds one of these,
// sends it to s.mailbox, and blocks on its reply channel (where it has
// one); the actor loop in server.go type-switches on whatever it reads.

type trackReq struct {
	pid, topic, key string
	meta            crdt.Meta
	reply           chan trackReply
}

type trackReply struct {
	ref string
	err error
}

type untrackKeyReq struct {
	pid, topic, key string
	reply           chan error
}

type untrackAllReq struct {
	pid   string
	reply chan struct{}
}

type updateReq struct {
	pid, topic, key string
	meta            crdt.Meta
	reply           chan trackReply
}

type listReq struct {
	topic string
	reply chan []crdt.Presence
}

type replicasReq struct {
	reply chan []ReplicaInfo
}

type replicaReq struct {
	name  string
	reply chan replicaReply
}

type replicaReply struct {
	info ReplicaInfo
	err  error
}

// sessionDownEvent is the internal event a session-terminated signal is
// converted into (spec.md §9's "process linking" design note); it has no
// reply, matching untrack(pid) fired without an explicit caller waiting.
type sessionDownEvent struct {
	pid string
}

type inboundHeartbeatEvent struct {
	from   crdt.ReplicaRef
	delta  crdt.Snapshot
	clocks map[string]crdt.ClockEntry
}

type inboundTransferReqEvent struct {
	from  crdt.ReplicaRef
	reqID string
}

type inboundTransferAckEvent struct {
	from     crdt.ReplicaRef
	reqID    string
	snapshot crdt.Snapshot
}

// stopEvent asks the actor loop to exit after draining nothing further.
type stopEvent struct {
	done chan struct{}
}
