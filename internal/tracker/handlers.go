package tracker

import (
	"log"
	"time"

	"presenced/internal/crdt"
	"presenced/internal/registry"
	"presenced/internal/wire"
)

// The handle* functions below run exclusively on the actor goroutine
// (called from Server.run's mailbox switch); none of them may be called
// directly from a public API method.

func (s *Server) handleTrack(r trackReq) {
	meta := r.meta.Clone()
	if meta == nil {
		meta = crdt.Meta{}
	}
	ref := newPhxRef()
	meta["phx_ref"] = ref

	s.state.Join(r.pid, r.topic, r.key, meta)
	s.linked[r.pid] = true

	s.dispatchDiff(groupDiff([]crdt.TopicPresence{{Topic: r.topic, Key: r.key, Meta: meta}}, nil))
	r.reply <- trackReply{ref: ref}
}

func (s *Server) handleUntrackKey(r untrackKeyReq) {
	meta, ok := s.state.Leave(r.pid, r.topic, r.key)
	if ok {
		s.dispatchDiff(groupDiff(nil, []crdt.TopicPresence{{Topic: r.topic, Key: r.key, Meta: meta}}))
		if len(s.state.GetByPid(r.pid)) == 0 {
			delete(s.linked, r.pid)
		}
	}
	r.reply <- nil
}

func (s *Server) handleUntrackAll(r untrackAllReq) {
	left := s.state.LeaveAll(r.pid)
	delete(s.linked, r.pid)
	s.dispatchDiff(groupDiff(nil, left))
	close(r.reply)
}

func (s *Server) handleUpdate(r updateReq) {
	oldMeta, ok := s.state.Leave(r.pid, r.topic, r.key)
	if !ok {
		r.reply <- trackReply{err: ErrNoPresence}
		return
	}

	newMeta := r.meta.Clone()
	if newMeta == nil {
		newMeta = crdt.Meta{}
	}
	newRef := newPhxRef()
	newMeta["phx_ref"] = newRef
	if prevRef, ok := oldMeta["phx_ref"]; ok {
		newMeta["phx_ref_prev"] = prevRef
	}

	s.state.Join(r.pid, r.topic, r.key, newMeta)

	s.dispatchDiff(groupDiff(
		[]crdt.TopicPresence{{Topic: r.topic, Key: r.key, Meta: newMeta}},
		[]crdt.TopicPresence{{Topic: r.topic, Key: r.key, Meta: oldMeta}},
	))
	r.reply <- trackReply{ref: newRef}
}

func (s *Server) handleList(r listReq) {
	r.reply <- s.state.GetByTopic(r.topic)
}

func (s *Server) handleReplicas(r replicasReq) {
	recs := s.reg.Snapshot()
	out := make([]ReplicaInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, ReplicaInfo{
			Name:            rec.Ref.Name,
			Vsn:             rec.Ref.Vsn,
			Status:          rec.Status.String(),
			LastHeartbeatAt: rec.LastHeartbeatAt,
		})
	}
	r.reply <- out
}

func (s *Server) handleReplica(r replicaReq) {
	rec, ok := s.reg.Get(r.name)
	if !ok {
		r.reply <- replicaReply{err: ErrUnknownReplica}
		return
	}
	r.reply <- replicaReply{info: ReplicaInfo{
		Name:            rec.Ref.Name,
		Vsn:             rec.Ref.Vsn,
		Status:          rec.Status.String(),
		LastHeartbeatAt: rec.LastHeartbeatAt,
	}}
}

func (s *Server) handleSessionDown(e sessionDownEvent) {
	left := s.state.LeaveAll(e.pid)
	delete(s.linked, e.pid)
	s.dispatchDiff(groupDiff(nil, left))
}

// handleHeartbeatTick runs the three phases of spec.md §4.3's heartbeat
// tick: broadcast, sync, liveness.
func (s *Server) handleHeartbeatTick() {
	// Phase 1: broadcast.
	if s.state.HasDelta() {
		delta := s.state.ExtractDelta()
		s.broadcastHeartbeat(delta)
		s.state.ResetDelta()
		s.silentPeriods = 0
	} else if s.silentPeriods >= s.cfg.MaxSilentPeriods {
		s.broadcastHeartbeat(crdt.Snapshot{})
		s.silentPeriods = 0
	} else {
		s.silentPeriods++
	}

	// Phase 2: sync.
	s.currentSampleCount--
	if s.currentSampleCount <= 1 {
		targets := clockSetToSync(s.selfRef.Name, s.state.SelfClock(), s.state.Clocks(), s.pending, func(name string) bool {
			_, ok := s.reg.Get(name)
			return ok
		})
		for _, target := range targets {
			s.sendTransferReq(target)
		}
		s.pending = make(map[string]pendingClock)
		s.currentSampleCount = s.cfg.ClockSamplePeriods
	}

	// Phase 3: liveness.
	var joined, left []crdt.TopicPresence
	now := time.Now()
	for _, name := range s.reg.Names() {
		prev, current, ok := s.reg.DetectDown(name, now, s.cfg.DownPeriod, s.cfg.PermdownPeriod)
		if !ok || prev.Status == current.Status {
			continue
		}
		j, l := s.applyDetectDownTransition(prev, current)
		joined = append(joined, j...)
		left = append(left, l...)
	}
	s.dispatchDiff(groupDiff(joined, left))
}

func (s *Server) broadcastHeartbeat(delta crdt.Snapshot) {
	hb := wire.Heartbeat{Topic: s.topic, From: s.selfRef, Delta: delta, Clocks: s.state.Clocks()}
	// transport_failure is classified transient, not caught (spec.md §7):
	// the next tick's heartbeat implicitly retries dissemination.
	if err := s.tr.BroadcastFrom(s.selfRef.Name, s.topic, hb); err != nil {
		log.Printf("[%s] heartbeat broadcast: %v", s.selfRef.Name, err)
	}
}

func (s *Server) sendTransferReq(target string) {
	req := wire.TransferReq{Topic: s.topic, ReqID: newPhxRef(), From: s.selfRef, Clocks: s.state.Clocks()}
	if err := s.tr.DirectBroadcast(target, s.topic, req); err != nil {
		log.Printf("[%s] transfer_req to %s: %v", s.selfRef.Name, target, err)
	}
}

func (s *Server) handleInboundHeartbeat(e inboundHeartbeatEvent) {
	mergePendingClocks(s.pending, e.clocks)

	var joined, left []crdt.TopicPresence
	if !e.delta.Empty() {
		joined, left = s.state.Merge(e.delta)
	}

	prev, prevOK, current := s.reg.PutHeartbeat(registry.Ref{Name: e.from.Name, Vsn: e.from.Vsn}, time.Now())
	j, l := s.applyHeartbeatTransition(prevOK, prev, current)
	joined = append(joined, j...)
	left = append(left, l...)

	s.dispatchDiff(groupDiff(joined, left))
}

func (s *Server) handleInboundTransferReq(e inboundTransferReqEvent) {
	snapshot := s.state.Extract()
	ack := wire.TransferAck{Topic: s.topic, ReqID: e.reqID, From: s.selfRef, Snapshot: snapshot}
	if err := s.tr.DirectBroadcast(e.from.Name, s.topic, ack); err != nil {
		log.Printf("[%s] transfer_ack to %s: %v", s.selfRef.Name, e.from.Name, err)
	}
}

func (s *Server) handleInboundTransferAck(e inboundTransferAckEvent) {
	joined, left := s.state.Merge(e.snapshot)
	s.dispatchDiff(groupDiff(joined, left))
}
