package tracker

import (
	"presenced/internal/crdt"
	"presenced/internal/registry"
)

func toCRDTRef(ref registry.Ref) crdt.ReplicaRef {
	return crdt.ReplicaRef{Name: ref.Name, Vsn: ref.Vsn}
}

// applyHeartbeatTransition classifies the (prev, current) pair
// put_heartbeat just produced and drives the CRDT accordingly, per
// spec.md §4.3's heartbeat transition table. It returns the
// joined/left presences to fold into this tick's diff.
func (s *Server) applyHeartbeatTransition(prevOK bool, prev, current registry.Record) (joined, left []crdt.TopicPresence) {
	curRef := toCRDTRef(current.Ref)

	if !prevOK {
		// none -> up(vsn): up(current)
		return s.state.ReplicaUp(curRef), nil
	}

	if prev.Ref.Vsn == current.Ref.Vsn {
		if prev.Status == registry.Down || prev.Status == registry.Permdown {
			// down(vsn) -> up(vsn): up(current)
			return s.state.ReplicaUp(curRef), nil
		}
		// up(vsn) -> up(vsn): no-op
		return nil, nil
	}

	// vsn changed: a restart.
	prevRef := toCRDTRef(prev.Ref)
	if prev.Status == registry.Up {
		// up(old) -> down(prev) -> permdown(prev) -> up(current)
		left = s.state.ReplicaDown(prevRef)
		s.state.RemoveDownReplicas(prevRef)
		joined = s.state.ReplicaUp(curRef)
		return joined, left
	}
	// down(old)/permdown(old) -> permdown(prev) -> up(current); prev's
	// leaves were already reported when it first went down. current is
	// brought up first, while the name is still hidden, so entries merged
	// from it under the hidden name are reported as joins.
	joined = s.state.ReplicaUp(curRef)
	s.state.RemoveDownReplicas(prevRef)
	return joined, nil
}

// applyDetectDownTransition classifies a detect_down result per spec.md
// §4.3's liveness transition table.
func (s *Server) applyDetectDownTransition(prev, current registry.Record) (joined, left []crdt.TopicPresence) {
	ref := toCRDTRef(current.Ref)
	switch {
	case prev.Status == registry.Up && current.Status == registry.Down:
		return nil, s.state.ReplicaDown(ref)
	case prev.Status == registry.Down && current.Status == registry.Permdown:
		s.state.RemoveDownReplicas(ref)
		return nil, nil
	default:
		return nil, nil
	}
}
