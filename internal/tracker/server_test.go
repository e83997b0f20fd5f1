package tracker

import (
	"testing"
	"time"

	"presenced/internal/crdt"
	"presenced/internal/transport/localbus"
)

// testHandler records every diff HandleDiff is called with, forwarding
// each onto a buffered channel so tests can wait on a specific topic
// event without racing the actor's async dispatch.
type testHandler struct {
	ch chan TopicDiff
}

func newTestHandler() *testHandler {
	return &testHandler{ch: make(chan TopicDiff, 256)}
}

func (h *testHandler) Init() error { return nil }

func (h *testHandler) HandleDiff(diffs []TopicDiff) error {
	for _, d := range diffs {
		h.ch <- d
	}
	return nil
}

func (h *testHandler) await(t *testing.T, topic string, timeout time.Duration) TopicDiff {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case d := <-h.ch:
			if d.Topic == topic {
				return d
			}
		case <-deadline:
			t.Fatalf("timed out waiting for a diff on topic %q", topic)
		}
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BroadcastPeriod = 15 * time.Millisecond
	cfg.MaxSilentPeriods = 2
	cfg.DownPeriod = cfg.BroadcastPeriod * time.Duration(cfg.MaxSilentPeriods) * 2
	cfg.PermdownPeriod = 2 * time.Second
	cfg.ClockSamplePeriods = 1
	return cfg
}

func metaHas(m crdt.Meta, key string, want any) bool {
	v, ok := m[key]
	return ok && v == want
}

func TestSoloJoinLeave(t *testing.T) {
	bus := localbus.New()
	h := newTestHandler()
	s, err := Start(testConfig(), "A", bus.Node("A"), h)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	ref, err := s.Track("sess1", "room", "u1", crdt.Meta{"status": "on"})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}

	d := h.await(t, "room", time.Second)
	if len(d.Joins) != 1 || d.Joins[0].Key != "u1" || !metaHas(d.Joins[0].Meta, "phx_ref", ref) {
		t.Fatalf("unexpected join diff: %+v", d)
	}

	list := s.List("room")
	if len(list) != 1 || list[0].Key != "u1" || !metaHas(list[0].Meta, "status", "on") {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := s.Untrack("sess1", "room", "u1"); err != nil {
		t.Fatalf("Untrack: %v", err)
	}

	d = h.await(t, "room", time.Second)
	if len(d.Leaves) != 1 || d.Joins != nil || d.Leaves[0].Key != "u1" {
		t.Fatalf("unexpected leave diff: %+v", d)
	}

	if list := s.List("room"); len(list) != 0 {
		t.Fatalf("expected empty list after untrack, got %+v", list)
	}
}

func TestMetadataUpdate(t *testing.T) {
	bus := localbus.New()
	h := newTestHandler()
	s, err := Start(testConfig(), "A", bus.Node("A"), h)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	ref1, err := s.Track("sess1", "room", "u1", crdt.Meta{"n": int64(1)})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	h.await(t, "room", time.Second)

	ref2, err := s.Update("sess1", "room", "u1", crdt.Meta{"n": int64(2)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ref2 == ref1 {
		t.Fatalf("Update should assign a fresh phx_ref")
	}

	d := h.await(t, "room", time.Second)
	if len(d.Joins) != 1 || !metaHas(d.Joins[0].Meta, "n", int64(2)) || !metaHas(d.Joins[0].Meta, "phx_ref_prev", ref1) {
		t.Fatalf("unexpected update join half: %+v", d.Joins)
	}
	if len(d.Leaves) != 1 || !metaHas(d.Leaves[0].Meta, "n", int64(1)) {
		t.Fatalf("unexpected update leave half: %+v", d.Leaves)
	}
}

func TestUpdateMissingPresenceIsAnError(t *testing.T) {
	bus := localbus.New()
	h := newTestHandler()
	s, err := Start(testConfig(), "A", bus.Node("A"), h)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if _, err := s.Update("sess1", "room", "ghost", crdt.Meta{}); err != ErrNoPresence {
		t.Fatalf("expected ErrNoPresence, got %v", err)
	}
}

func TestSessionTerminatedUntracksEverything(t *testing.T) {
	bus := localbus.New()
	h := newTestHandler()
	s, err := Start(testConfig(), "A", bus.Node("A"), h)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if _, err := s.Track("sess1", "room", "u1", crdt.Meta{}); err != nil {
		t.Fatalf("Track: %v", err)
	}
	h.await(t, "room", time.Second)

	s.SessionTerminated("sess1")
	d := h.await(t, "room", time.Second)
	if len(d.Leaves) != 1 || d.Leaves[0].Key != "u1" {
		t.Fatalf("expected a leave for u1, got %+v", d)
	}
}

func TestTwoNodeConvergence(t *testing.T) {
	bus := localbus.New()
	ha, hb := newTestHandler(), newTestHandler()
	cfg := testConfig()

	a, err := Start(cfg, "A", bus.Node("A"), ha)
	if err != nil {
		t.Fatalf("Start A: %v", err)
	}
	defer a.Stop()
	b, err := Start(cfg, "B", bus.Node("B"), hb)
	if err != nil {
		t.Fatalf("Start B: %v", err)
	}
	defer b.Stop()

	if _, err := a.Track("sess1", "room", "u1", crdt.Meta{}); err != nil {
		t.Fatalf("Track: %v", err)
	}

	d := hb.await(t, "room", 2*time.Second)
	if len(d.Joins) != 1 || d.Joins[0].Key != "u1" {
		t.Fatalf("B should observe a join for u1, got %+v", d)
	}

	list := b.List("room")
	if len(list) != 1 || list[0].Key != "u1" {
		t.Fatalf("B.List(room) should contain u1, got %+v", list)
	}
}

func TestReplicaLookup(t *testing.T) {
	bus := localbus.New()
	ha, hb := newTestHandler(), newTestHandler()
	cfg := testConfig()

	a, err := Start(cfg, "A", bus.Node("A"), ha)
	if err != nil {
		t.Fatalf("Start A: %v", err)
	}
	defer a.Stop()
	b, err := Start(cfg, "B", bus.Node("B"), hb)
	if err != nil {
		t.Fatalf("Start B: %v", err)
	}
	defer b.Stop()

	if _, err := a.Track("sess1", "room", "u1", crdt.Meta{}); err != nil {
		t.Fatalf("Track: %v", err)
	}
	hb.await(t, "room", 2*time.Second)

	info, err := b.Replica("A")
	if err != nil {
		t.Fatalf("Replica(A): %v", err)
	}
	if info.Name != "A" || info.Status != "up" {
		t.Fatalf("unexpected replica info: %+v", info)
	}

	if _, err := b.Replica("ghost"); err != ErrUnknownReplica {
		t.Fatalf("expected ErrUnknownReplica, got %v", err)
	}
}

func TestPeerRestartPermdownsOldIdentity(t *testing.T) {
	bus := localbus.New()
	ha, hb := newTestHandler(), newTestHandler()
	cfg := testConfig()

	a, err := Start(cfg, "A", bus.Node("A"), ha)
	if err != nil {
		t.Fatalf("Start A: %v", err)
	}
	defer a.Stop()

	b1, err := Start(cfg, "B", bus.Node("B"), hb)
	if err != nil {
		t.Fatalf("Start B (v1): %v", err)
	}
	if _, err := b1.Track("sessB", "room", "u2", crdt.Meta{}); err != nil {
		t.Fatalf("Track u2: %v", err)
	}

	d := ha.await(t, "room", 2*time.Second)
	if len(d.Joins) != 1 || d.Joins[0].Key != "u2" {
		t.Fatalf("A should see u2 join, got %+v", d)
	}
	b1.Stop()
	bus.Remove("B")

	hb2 := newTestHandler()
	b2, err := Start(cfg, "B", bus.Node("B"), hb2)
	if err != nil {
		t.Fatalf("Start B (v2): %v", err)
	}
	defer b2.Stop()
	if _, err := b2.Track("sessB2", "room", "u3", crdt.Meta{}); err != nil {
		t.Fatalf("Track u3: %v", err)
	}

	sawLeaveU2, sawJoinU3 := false, false
	deadline := time.After(3 * time.Second)
	for !sawLeaveU2 || !sawJoinU3 {
		select {
		case diff := <-ha.ch:
			if diff.Topic != "room" {
				continue
			}
			for _, l := range diff.Leaves {
				if l.Key == "u2" {
					sawLeaveU2 = true
				}
			}
			for _, j := range diff.Joins {
				if j.Key == "u3" {
					sawJoinU3 = true
				}
			}
		case <-deadline:
			t.Fatalf("timed out: sawLeaveU2=%v sawJoinU3=%v", sawLeaveU2, sawJoinU3)
		}
	}

	list := a.List("room")
	if len(list) != 1 || list[0].Key != "u3" {
		t.Fatalf("A.List(room) should only contain u3 after B's restart, got %+v", list)
	}
}
