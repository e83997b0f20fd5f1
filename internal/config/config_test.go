package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "presenced.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMinimalConfig(t *testing.T) {
	path := writeConfig(t, `
node_id: A
listen_addr: ":50051"
peers:
  - name: B
    addr: "127.0.0.1:50052"
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.NodeID != "A" || c.ListenAddr != ":50051" {
		t.Fatalf("unexpected config: %+v", c)
	}
	if addrs := c.PeerAddrs(); addrs["B"] != "127.0.0.1:50052" {
		t.Fatalf("unexpected peer addrs: %+v", addrs)
	}

	cfg, err := c.TrackerConfig()
	if err != nil {
		t.Fatalf("TrackerConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default-filled tracker config should validate: %v", err)
	}
}

func TestLoadMissingNodeID(t *testing.T) {
	path := writeConfig(t, `listen_addr: ":50051"`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for a missing node_id")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/presenced.yaml"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestTrackerConfigOverridesTiming(t *testing.T) {
	path := writeConfig(t, `
node_id: A
listen_addr: ":50051"
timing:
  broadcast_period: "50ms"
  max_silent_periods: 4
  permdown_period: "10s"
  clock_sample_periods: 3
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg, err := c.TrackerConfig()
	if err != nil {
		t.Fatalf("TrackerConfig: %v", err)
	}
	if cfg.BroadcastPeriod != 50*time.Millisecond {
		t.Errorf("BroadcastPeriod = %s, want 50ms", cfg.BroadcastPeriod)
	}
	if cfg.DownPeriod != 50*time.Millisecond*4*2 {
		t.Errorf("DownPeriod should derive from overridden broadcast/silent periods, got %s", cfg.DownPeriod)
	}
	if cfg.PermdownPeriod != 10*time.Second {
		t.Errorf("PermdownPeriod = %s, want 10s", cfg.PermdownPeriod)
	}
	if cfg.ClockSamplePeriods != 3 {
		t.Errorf("ClockSamplePeriods = %d, want 3", cfg.ClockSamplePeriods)
	}
}
