package tracker

import (
	"presenced/internal/clock"
	"presenced/internal/crdt"
)

// pendingClock is one (replica_name, vsn, vector_clock) entry of the
// pending clock set (spec.md §3). The set is keyed by name, so it holds
// one entry per name, overwritten whenever a later heartbeat reports a
// new vsn or a dominating, concurrent or equal position for that name;
// it is cleared after every sync phase.
type pendingClock struct {
	vsn   int64
	clock clock.VectorClock
}

// mergePendingClocks folds a heartbeat's (or the local CRDT's) clocks map
// into the accumulated pending set, keeping whichever entry per name is
// not dominated by what's already there.
func mergePendingClocks(pending map[string]pendingClock, clocks map[string]crdt.ClockEntry) {
	for name, ce := range clocks {
		existing, ok := pending[name]
		if !ok {
			pending[name] = pendingClock{vsn: ce.Vsn, clock: ce.Clock.Copy()}
			continue
		}
		cmp := ce.Clock.Compare(existing.clock)
		if ce.Vsn != existing.vsn || cmp == clock.After || cmp == clock.Concurrent || cmp == clock.Equal {
			pending[name] = pendingClock{vsn: ce.Vsn, clock: ce.Clock.Copy()}
		}
	}
}

// clockSetToSync implements spec.md §4.4: fold in the local CRDT's own
// clocks, compute the maximal (non-dominated) set of replica clocks —
// the same "discard anything dominated by another entry" pass
// repair.Reconcile runs over sibling values, just applied to replica
// clocks instead of versioned values — and filter to replicas the
// registry currently knows about. The result is exactly the peers ahead
// of (or concurrent with) everyone else in the set: the ones worth
// requesting a transfer from.
func clockSetToSync(selfName string, selfClock clock.VectorClock, localClocks map[string]crdt.ClockEntry, pending map[string]pendingClock, known func(name string) bool) []string {
	merged := make(map[string]pendingClock, len(pending)+len(localClocks))
	for name, pc := range pending {
		merged[name] = pc
	}
	mergePendingClocks(merged, localClocks)
	if _, ok := merged[selfName]; !ok {
		merged[selfName] = pendingClock{clock: selfClock}
	} else {
		cmp := selfClock.Compare(merged[selfName].clock)
		if cmp == clock.After || cmp == clock.Concurrent {
			merged[selfName] = pendingClock{vsn: merged[selfName].vsn, clock: selfClock}
		}
	}

	type candidate struct {
		name string
		vc   clock.VectorClock
	}
	candidates := make([]candidate, 0, len(merged))
	for name, pc := range merged {
		candidates = append(candidates, candidate{name: name, vc: pc.clock})
	}

	var targets []string
	for i, a := range candidates {
		if a.name == selfName {
			continue
		}
		dominated := false
		for j, b := range candidates {
			if i == j {
				continue
			}
			if a.vc.Compare(b.vc) == clock.Before {
				dominated = true
				break
			}
		}
		if dominated {
			continue
		}
		if a.vc.Compare(selfClock) == clock.Equal {
			continue
		}
		if known != nil && !known(a.name) {
			continue
		}
		targets = append(targets, a.name)
	}
	return targets
}
