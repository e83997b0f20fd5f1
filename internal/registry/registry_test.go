package registry

import (
	"testing"
	"time"
)

func TestPutHeartbeat_NewReplica(t *testing.T) {
	r := New()
	now := time.Now()

	prev, prevOK, current := r.PutHeartbeat(Ref{Name: "b@host", Vsn: 1}, now)

	if prevOK {
		t.Fatalf("expected no prior record, got %+v", prev)
	}
	if current.Status != Up {
		t.Errorf("expected new record to be Up, got %v", current.Status)
	}
	if current.Ref.Vsn != 1 {
		t.Errorf("expected vsn 1, got %d", current.Ref.Vsn)
	}
	if !current.LastHeartbeatAt.Equal(now) {
		t.Errorf("expected LastHeartbeatAt %v, got %v", now, current.LastHeartbeatAt)
	}
}

func TestPutHeartbeat_SameVsnRefreshesLiveness(t *testing.T) {
	r := New()
	t0 := time.Now()
	t1 := t0.Add(2 * time.Second)

	r.PutHeartbeat(Ref{Name: "b@host", Vsn: 1}, t0)
	prev, prevOK, current := r.PutHeartbeat(Ref{Name: "b@host", Vsn: 1}, t1)

	if !prevOK {
		t.Fatal("expected a prior record")
	}
	if prev.Ref.Vsn != current.Ref.Vsn {
		t.Errorf("vsn should not change on a plain heartbeat refresh: prev=%d current=%d", prev.Ref.Vsn, current.Ref.Vsn)
	}
	if current.Status != Up {
		t.Errorf("expected Up, got %v", current.Status)
	}
	if !current.LastHeartbeatAt.Equal(t1) {
		t.Errorf("expected refreshed LastHeartbeatAt %v, got %v", t1, current.LastHeartbeatAt)
	}
}

func TestPutHeartbeat_NewVsnIsARestart(t *testing.T) {
	r := New()
	t0 := time.Now()
	t1 := t0.Add(time.Second)

	r.PutHeartbeat(Ref{Name: "b@host", Vsn: 1}, t0)
	prev, prevOK, current := r.PutHeartbeat(Ref{Name: "b@host", Vsn: 2}, t1)

	if !prevOK {
		t.Fatal("expected a prior record")
	}
	if prev.Ref.Vsn == current.Ref.Vsn {
		t.Fatal("expected vsn to differ across a restart")
	}
	if current.Status != Up {
		t.Errorf("expected the new identity to come up Up, got %v", current.Status)
	}
}

func TestDetectDown_UnknownNameIsNotOK(t *testing.T) {
	r := New()
	_, _, ok := r.DetectDown("nobody", time.Now(), time.Second, time.Second)
	if ok {
		t.Fatal("expected ok=false for an unknown replica")
	}
}

func TestDetectDown_Transitions(t *testing.T) {
	const downPeriod = 3 * time.Second
	const permdownPeriod = 10 * time.Second

	tests := []struct {
		name       string
		startAt    Status
		silence    time.Duration
		wantStatus Status
	}{
		{"up stays up within down_period", Up, 1 * time.Second, Up},
		{"up goes down past down_period", Up, 4 * time.Second, Down},
		{"down stays down within permdown_period", Down, 5 * time.Second, Down},
		{"down goes permdown past permdown_period", Down, 11 * time.Second, Permdown},
		{"permdown is terminal", Permdown, 100 * time.Second, Permdown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			t0 := time.Now()
			r.PutHeartbeat(Ref{Name: "b@host", Vsn: 1}, t0)

			// force the record into the desired starting status before
			// measuring the transition under test.
			rec, _ := r.Get("b@host")
			rec.Status = tt.startAt
			r.byName["b@host"] = rec

			now := t0.Add(tt.silence)
			prev, current, ok := r.DetectDown("b@host", now, downPeriod, permdownPeriod)
			if !ok {
				t.Fatal("expected a known record")
			}
			if prev.Status != tt.startAt {
				t.Errorf("expected prev status %v, got %v", tt.startAt, prev.Status)
			}
			if current.Status != tt.wantStatus {
				t.Errorf("expected status %v, got %v", tt.wantStatus, current.Status)
			}
		})
	}
}

func TestRemoveAndSnapshot(t *testing.T) {
	r := New()
	r.PutHeartbeat(Ref{Name: "a@host", Vsn: 1}, time.Now())
	r.PutHeartbeat(Ref{Name: "b@host", Vsn: 1}, time.Now())

	if got := len(r.Snapshot()); got != 2 {
		t.Fatalf("expected 2 records, got %d", got)
	}

	r.Remove("a@host")

	if _, ok := r.Get("a@host"); ok {
		t.Fatal("expected a@host to be gone after Remove")
	}
	if got := len(r.Snapshot()); got != 1 {
		t.Fatalf("expected 1 record after remove, got %d", got)
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		Up:       "up",
		Down:     "down",
		Permdown: "permdown",
		Status(99): "unknown",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
