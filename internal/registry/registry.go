package registry

import (
	"sync"
	"time"
)

// Status is a replica's liveness state.
type Status int

const (
	// Up means heartbeats are arriving within down_period.
	Up Status = iota
	// Down means no heartbeat for more than down_period but less than
	// permdown_period; presences from this replica are hidden but retained.
	Down
	// Permdown means no heartbeat for more than permdown_period, or a
	// restart (new vsn) was observed for an old identity; presences from
	// this replica are purged. Terminal.
	Permdown
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Up:
		return "up"
	case Down:
		return "down"
	case Permdown:
		return "permdown"
	default:
		return "unknown"
	}
}

// Ref identifies a replica by its stable node name and the nonce it picked
// at start. A restart produces a new Vsn, signalling to peers that
// previously-seen state from that name is stale.
type Ref struct {
	Name string
	Vsn  int64
}

// Record is a replica registry entry.
type Record struct {
	Ref             Ref
	Status          Status
	LastHeartbeatAt time.Time
}

// Registry tracks every known peer replica's identity, liveness status and
// last-seen time. It is not safe for the zero value; use New.
type Registry struct {
	mu     sync.Mutex
	byName map[string]Record
}

// New creates an empty replica registry.
func New() *Registry {
	return &Registry{byName: make(map[string]Record)}
}

// PutHeartbeat upserts the record for ref.Name, setting LastHeartbeatAt to
// now and Status to Up. It returns the prior record for that name (ok=false
// if this name was never seen before) and the newly-written current record,
// so the caller can classify the (prev, current) transition per the
// replica state machine (same name, same vsn; same name, new vsn; etc).
func (r *Registry) PutHeartbeat(ref Ref, now time.Time) (prev Record, prevOK bool, current Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, prevOK = r.byName[ref.Name]

	current = Record{
		Ref:             ref,
		Status:          Up,
		LastHeartbeatAt: now,
	}
	r.byName[ref.Name] = current
	return prev, prevOK, current
}

// DetectDown computes the liveness transition for the named replica given
// the elapsed silence since its last heartbeat, and persists the result.
// ok is false if name is not known to the registry.
//
//	Up       -> Up        if now-last <= downPeriod
//	Up       -> Down       otherwise
//	Down     -> Down       if now-last <= permdownPeriod
//	Down     -> Permdown   otherwise
//	Permdown -> Permdown   (terminal)
func (r *Registry) DetectDown(name string, now time.Time, downPeriod, permdownPeriod time.Duration) (prev Record, current Record, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok = r.byName[name]
	if !ok {
		return Record{}, Record{}, false
	}

	current = prev
	silence := now.Sub(prev.LastHeartbeatAt)

	switch prev.Status {
	case Up:
		if silence > downPeriod {
			current.Status = Down
		}
	case Down:
		if silence > permdownPeriod {
			current.Status = Permdown
		}
	case Permdown:
		// terminal
	}

	r.byName[name] = current
	return prev, current, true
}

// Get returns the current record for name, if known.
func (r *Registry) Get(name string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byName[name]
	return rec, ok
}

// Remove evicts a replica from the registry entirely, e.g. once its
// permdown has been fully processed (presences purged) and it is no longer
// worth tracking.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byName, name)
}

// Names returns every replica name currently tracked, excluding none.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// Snapshot returns a copy of every tracked record, for introspection
// (debug RPCs, tests).
func (r *Registry) Snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0, len(r.byName))
	for _, rec := range r.byName {
		out = append(out, rec)
	}
	return out
}
