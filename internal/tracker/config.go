package tracker

import (
	"fmt"
	"time"
)

// LogLevel gates the tracker's diagnostic verbosity. Off by default.
// Transport send errors and handler failures are logged at every level;
// replica state transitions are not logged at any level.
type LogLevel int

const (
	// LogOff suppresses debug-tier logging.
	LogOff LogLevel = iota
	// LogDebug additionally logs inbound transport messages of an
	// unknown type.
	LogDebug
)

// Config holds the tracker server's timing knobs, the way config.Config
// holds a node's peer list — except a presence tracker has more tunables
// than an "id=addr" peer string, so this gets its own Validate/defaults
// pair instead of a flag parser.
type Config struct {
	// BroadcastPeriod is the heartbeat tick interval.
	BroadcastPeriod time.Duration
	// MaxSilentPeriods forces an empty heartbeat after this many quiet
	// ticks, so peers can still detect liveness when nothing changed.
	MaxSilentPeriods int
	// DownPeriod is the silence duration before a peer is flagged down.
	DownPeriod time.Duration
	// PermdownPeriod is the silence duration before a peer is flagged
	// permdown.
	PermdownPeriod time.Duration
	// ClockSamplePeriods is how many heartbeat ticks to accumulate
	// pending clocks before requesting transfers.
	ClockSamplePeriods int
	// LogLevel gates debug-tier logging.
	LogLevel LogLevel
}

// DefaultConfig returns the spec's documented defaults: a 1500ms
// broadcast period, 10 silent periods before a forced heartbeat, a down
// period of broadcast_period × max_silent_periods × 2, a 20-minute
// permdown period, and a 2-tick clock sampling window.
func DefaultConfig() Config {
	broadcastPeriod := 1500 * time.Millisecond
	maxSilentPeriods := 10
	return Config{
		BroadcastPeriod:    broadcastPeriod,
		MaxSilentPeriods:   maxSilentPeriods,
		DownPeriod:         broadcastPeriod * time.Duration(maxSilentPeriods) * 2,
		PermdownPeriod:     1_200_000 * time.Millisecond,
		ClockSamplePeriods: 2,
		LogLevel:           LogOff,
	}
}

// Validate checks the two invariants the spec calls out: down_period
// strictly precedes permdown_period, and at least one silent period must
// elapse before a forced empty heartbeat.
func (c Config) Validate() error {
	if c.BroadcastPeriod <= 0 {
		return fmt.Errorf("tracker: broadcast_period must be positive, got %s", c.BroadcastPeriod)
	}
	if c.MaxSilentPeriods < 1 {
		return fmt.Errorf("tracker: max_silent_periods must be >= 1, got %d", c.MaxSilentPeriods)
	}
	if c.DownPeriod >= c.PermdownPeriod {
		return fmt.Errorf("tracker: down_period (%s) must be less than permdown_period (%s)", c.DownPeriod, c.PermdownPeriod)
	}
	if c.ClockSamplePeriods < 1 {
		return fmt.Errorf("tracker: clock_sample_periods must be >= 1, got %d", c.ClockSamplePeriods)
	}
	return nil
}
