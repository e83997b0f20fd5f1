package crdt

import (
	"sync"

	"presenced/internal/clock"
)

type presenceKey struct {
	Pid   string
	Topic string
	Key   string
}

type entry struct {
	Pid     string
	Topic   string
	Meta    Meta
	Tag     Tag
	Deleted bool
}

// State is the presence CRDT. It is safe for concurrent use, though in
// practice only the owning tracker server actor ever touches it; the
// mutex exists for the same reason storage.InMemoryStore's does — to make
// copy-on-read/write discipline explicit rather than to arbitrate real
// contention.
type State struct {
	mu        sync.Mutex
	self      ReplicaRef
	values    map[ReplicaRef]map[presenceKey]entry
	hidden    map[string]bool
	clocks    map[string]ClockEntry
	selfClock clock.VectorClock
	dirty     map[presenceKey]bool
	purged    map[ReplicaRef]bool
}

// New returns an empty presence state owned by self.
func New(self ReplicaRef) *State {
	return &State{
		self:      self,
		values:    map[ReplicaRef]map[presenceKey]entry{self: {}},
		hidden:    make(map[string]bool),
		clocks:    make(map[string]ClockEntry),
		selfClock: clock.New(),
		dirty:     make(map[presenceKey]bool),
		purged:    make(map[ReplicaRef]bool),
	}
}

func (s *State) stampSelf() Tag {
	s.selfClock.Increment(s.self.Name)
	s.clocks[s.self.Name] = ClockEntry{Vsn: s.self.Vsn, Clock: s.selfClock.Copy()}
	return Tag{Ref: s.self, Counter: s.selfClock.Get(s.self.Name)}
}

// Join adds or replaces a local presence entry, returning the tag that was
// assigned to it.
func (s *State) Join(pid, topic, key string, meta Meta) Tag {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag := s.stampSelf()
	pk := presenceKey{Pid: pid, Topic: topic, Key: key}
	s.values[s.self][pk] = entry{Pid: pid, Topic: topic, Meta: meta.Clone(), Tag: tag, Deleted: false}
	s.dirty[pk] = true
	return tag
}

// Leave removes the local entry for (pid, topic, key), reporting whether
// a live entry existed to remove.
func (s *State) Leave(pid, topic, key string) (Meta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pk := presenceKey{Pid: pid, Topic: topic, Key: key}
	e, ok := s.values[s.self][pk]
	if !ok || e.Deleted {
		return nil, false
	}

	old := e.Meta
	e.Tag = s.stampSelf()
	e.Deleted = true
	s.values[s.self][pk] = e
	s.dirty[pk] = true
	return old, true
}

// LeaveAll removes every local entry owned by pid, returning them as
// TopicPresence values so the caller can build a leave diff before link
// detachment.
func (s *State) LeaveAll(pid string) []TopicPresence {
	s.mu.Lock()
	defer s.mu.Unlock()

	var left []TopicPresence
	for pk, e := range s.values[s.self] {
		if pk.Pid != pid || e.Deleted {
			continue
		}
		e.Tag = s.stampSelf()
		e.Deleted = true
		s.values[s.self][pk] = e
		s.dirty[pk] = true
		left = append(left, TopicPresence{Topic: pk.Topic, Key: pk.Key, Meta: e.Meta})
	}
	return left
}

// GetByPidTopicKey looks up the single live entry for (pid, topic, key),
// searching the entries of every owner, including hidden ones.
func (s *State) GetByPidTopicKey(pid, topic, key string) (Presence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pk := presenceKey{Pid: pid, Topic: topic, Key: key}
	for _, sub := range s.values {
		e, ok := sub[pk]
		if ok && !e.Deleted {
			return Presence{Key: key, Meta: e.Meta.Clone()}, true
		}
	}
	return Presence{}, false
}

// GetByPid returns every live entry owned by pid, across all topics.
func (s *State) GetByPid(pid string) []TopicPresence {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []TopicPresence
	for _, sub := range s.values {
		for pk, e := range sub {
			if pk.Pid == pid && !e.Deleted {
				out = append(out, TopicPresence{Topic: pk.Topic, Key: pk.Key, Meta: e.Meta.Clone()})
			}
		}
	}
	return out
}

// GetByTopic returns the locally-visible presence list for topic: live
// entries whose owning replica is not currently hidden (down or
// permdown).
func (s *State) GetByTopic(topic string) []Presence {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Presence
	for ref, sub := range s.values {
		if s.hidden[ref.Name] {
			continue
		}
		for pk, e := range sub {
			if pk.Topic == topic && !e.Deleted {
				out = append(out, Presence{Key: pk.Key, Meta: e.Meta.Clone()})
			}
		}
	}
	return out
}

// SelfClock returns a copy of this replica's own vector clock, used by
// the tracker to fold its own position into the pending clock set before
// computing which peers to request transfers from.
func (s *State) SelfClock() clock.VectorClock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selfClock.Copy()
}

// Clocks returns a copy of every replica's last-known vsn and vector
// clock, as carried on outbound heartbeats.
func (s *State) Clocks() map[string]ClockEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]ClockEntry, len(s.clocks))
	for name, ce := range s.clocks {
		out[name] = ClockEntry{Vsn: ce.Vsn, Clock: ce.Clock.Copy()}
	}
	return out
}

// HasDelta reports whether any local entry changed since the last
// ResetDelta.
func (s *State) HasDelta() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty) > 0
}

// ResetDelta clears the dirty set without altering stored values.
func (s *State) ResetDelta() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = make(map[presenceKey]bool)
}

// ExtractDelta returns a snapshot scoped to the entries this replica has
// changed since the last ResetDelta. It does not itself clear the dirty
// set; callers decide when the broadcast has been committed.
func (s *State) ExtractDelta() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]EntrySnapshot, 0, len(s.dirty))
	sub := s.values[s.self]
	for pk := range s.dirty {
		e := sub[pk]
		entries = append(entries, EntrySnapshot{
			Owner: s.self, Pid: pk.Pid, Topic: pk.Topic, Key: pk.Key,
			Meta: e.Meta.Clone(), Tag: e.Tag, Deleted: e.Deleted,
		})
	}

	clocks := map[string]ClockEntry{}
	if ce, ok := s.clocks[s.self.Name]; ok {
		clocks[s.self.Name] = ClockEntry{Vsn: ce.Vsn, Clock: ce.Clock.Copy()}
	}
	return Snapshot{Clocks: clocks, Entries: entries}
}

// Extract produces a full transfer snapshot across every owner this
// replica knows about, and clears the local dirty set — the receiving
// peer's transfer_ack now covers whatever was pending, so the next
// heartbeat doesn't redundantly resend it.
func (s *State) Extract() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []EntrySnapshot
	for ref, sub := range s.values {
		for pk, e := range sub {
			entries = append(entries, EntrySnapshot{
				Owner: ref, Pid: pk.Pid, Topic: pk.Topic, Key: pk.Key,
				Meta: e.Meta.Clone(), Tag: e.Tag, Deleted: e.Deleted,
			})
		}
	}

	clocks := make(map[string]ClockEntry, len(s.clocks))
	for name, ce := range s.clocks {
		clocks[name] = ClockEntry{Vsn: ce.Vsn, Clock: ce.Clock.Copy()}
	}

	s.dirty = make(map[presenceKey]bool)
	return Snapshot{Clocks: clocks, Entries: entries}
}

// Merge applies a remote snapshot (a full transfer or a single-owner
// delta) and returns the presences that newly became visible and those
// that stopped being visible as a result, as flat lists (the caller
// groups them into a per-topic diff).
//
// A remote entry is adopted only if its tag counter strictly dominates
// what's locally stored for that key — the same dominance test
// repair.Reconcile uses, specialized to a single owner per key so there
// are never siblings to resolve.
func (s *State) Merge(remote Snapshot) (joined, left []TopicPresence) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, ce := range remote.Clocks {
		if name == s.self.Name {
			continue
		}
		cur, ok := s.clocks[name]
		if !ok || ce.Vsn != cur.Vsn || ce.Clock.Compare(cur.Clock) == clock.After || ce.Clock.Compare(cur.Clock) == clock.Concurrent {
			s.clocks[name] = ClockEntry{Vsn: ce.Vsn, Clock: ce.Clock.Copy()}
		}
	}

	for _, es := range remote.Entries {
		if es.Owner == s.self {
			continue
		}
		if s.purged[es.Owner] {
			continue
		}
		sub, ok := s.values[es.Owner]
		if !ok {
			sub = make(map[presenceKey]entry)
			s.values[es.Owner] = sub
		}

		pk := presenceKey{Pid: es.Pid, Topic: es.Topic, Key: es.Key}
		existing, existed := sub[pk]
		if existed && es.Tag.Counter <= existing.Tag.Counter {
			continue
		}

		visibleBefore := existed && !existing.Deleted && !s.hidden[es.Owner.Name]
		sub[pk] = entry{Pid: es.Pid, Topic: es.Topic, Meta: es.Meta.Clone(), Tag: es.Tag, Deleted: es.Deleted}
		visibleAfter := !es.Deleted && !s.hidden[es.Owner.Name]

		switch {
		case !visibleBefore && visibleAfter:
			joined = append(joined, TopicPresence{Topic: es.Topic, Key: es.Key, Meta: es.Meta.Clone()})
		case visibleBefore && !visibleAfter:
			left = append(left, TopicPresence{Topic: es.Topic, Key: es.Key, Meta: existing.Meta})
		}
	}
	return joined, left
}

// ReplicaUp unhides ref's presences, reporting the ones that become
// visible again. If ref's name is not hidden, nothing is reported: its
// presences are already visible and were reported when merged.
func (s *State) ReplicaUp(ref ReplicaRef) []TopicPresence {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.purged[ref] {
		return nil
	}
	if !s.hidden[ref.Name] {
		return nil
	}

	delete(s.hidden, ref.Name)

	var joined []TopicPresence
	for pk, e := range s.values[ref] {
		if !e.Deleted {
			joined = append(joined, TopicPresence{Topic: pk.Topic, Key: pk.Key, Meta: e.Meta.Clone()})
		}
	}
	return joined
}

// ReplicaDown hides ref's presences from GetByTopic without deleting
// them, so they can reappear without a transfer if the replica recovers.
func (s *State) ReplicaDown(ref ReplicaRef) []TopicPresence {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hidden[ref.Name] = true

	var left []TopicPresence
	for pk, e := range s.values[ref] {
		if !e.Deleted {
			left = append(left, TopicPresence{Topic: pk.Topic, Key: pk.Key, Meta: e.Meta.Clone()})
		}
	}
	return left
}

// RemoveDownReplicas permanently purges every presence owned by ref. No
// diff is returned: by the time a replica reaches permdown its presences
// were already reported as leaves when it went down (or, for the
// up-to-permdown compound transition, the caller issues ReplicaDown
// first to get that diff).
func (s *State) RemoveDownReplicas(ref ReplicaRef) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, ref)
	delete(s.hidden, ref.Name)
	delete(s.clocks, ref.Name)
	s.purged[ref] = true
}
