// Package config loads a node's presenced.yaml: its identity, listen
// address, peer list and tracker timing knobs. This replaces the
// teacher's flag-string config.ParsePeers ("id1=addr1,id2=addr2") with a
// YAML file, since a presence cluster carries more tunables than a
// single peer string does.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"presenced/internal/tracker"
)

// Peer is one other node in the cluster, addressed by name.
type Peer struct {
	Name string `yaml:"name"`
	Addr string `yaml:"addr"`
}

// Timing mirrors tracker.Config but with YAML-friendly string durations
// (e.g. "1500ms"), analogous to config.Peer's plain strings.
type Timing struct {
	BroadcastPeriod    string `yaml:"broadcast_period"`
	MaxSilentPeriods   int    `yaml:"max_silent_periods"`
	DownPeriod         string `yaml:"down_period"`
	PermdownPeriod     string `yaml:"permdown_period"`
	ClockSamplePeriods int    `yaml:"clock_sample_periods"`
	LogLevel           string `yaml:"log_level"`
}

// Config is a node's full presenced.yaml contents.
type Config struct {
	NodeID     string  `yaml:"node_id"`
	ListenAddr string  `yaml:"listen_addr"`
	Peers      []Peer  `yaml:"peers"`
	Timing     *Timing `yaml:"timing"`
}

// Load reads and parses a presenced.yaml file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if c.NodeID == "" {
		return nil, fmt.Errorf("config: node_id is required")
	}
	if c.ListenAddr == "" {
		return nil, fmt.Errorf("config: listen_addr is required")
	}
	return &c, nil
}

// PeerAddrs returns the configured peers as a plain name→addr map, the
// shape internal/transport/grpctransport.New wants.
func (c *Config) PeerAddrs() map[string]string {
	out := make(map[string]string, len(c.Peers))
	for _, p := range c.Peers {
		out[p.Name] = p.Addr
	}
	return out
}

// TrackerConfig builds a tracker.Config from the YAML timing block,
// falling back to tracker.DefaultConfig for anything left unset.
func (c *Config) TrackerConfig() (tracker.Config, error) {
	cfg := tracker.DefaultConfig()
	if c.Timing == nil {
		return cfg, nil
	}
	t := c.Timing

	var err error
	if t.BroadcastPeriod != "" {
		if cfg.BroadcastPeriod, err = time.ParseDuration(t.BroadcastPeriod); err != nil {
			return tracker.Config{}, fmt.Errorf("config: timing.broadcast_period: %w", err)
		}
	}
	if t.MaxSilentPeriods != 0 {
		cfg.MaxSilentPeriods = t.MaxSilentPeriods
	}
	if t.DownPeriod != "" {
		if cfg.DownPeriod, err = time.ParseDuration(t.DownPeriod); err != nil {
			return tracker.Config{}, fmt.Errorf("config: timing.down_period: %w", err)
		}
	} else if t.BroadcastPeriod != "" || t.MaxSilentPeriods != 0 {
		cfg.DownPeriod = cfg.BroadcastPeriod * time.Duration(cfg.MaxSilentPeriods) * 2
	}
	if t.PermdownPeriod != "" {
		if cfg.PermdownPeriod, err = time.ParseDuration(t.PermdownPeriod); err != nil {
			return tracker.Config{}, fmt.Errorf("config: timing.permdown_period: %w", err)
		}
	}
	if t.ClockSamplePeriods != 0 {
		cfg.ClockSamplePeriods = t.ClockSamplePeriods
	}
	if t.LogLevel == "debug" {
		cfg.LogLevel = tracker.LogDebug
	}

	if err := cfg.Validate(); err != nil {
		return tracker.Config{}, err
	}
	return cfg, nil
}
