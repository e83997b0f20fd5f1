// Package registry tracks the liveness of every known peer replica.
//
// Unlike a SWIM-style membership protocol with an explicit Suspect state and
// probe-based failure detection, a replica's liveness here is derived purely
// from heartbeat recency: up while heartbeats keep arriving, down after
// down_period of silence, permdown (terminal) after permdown_period. A
// replica restart is detected by a change in vsn for the same name and is
// handled as a graceful permdown of the old identity followed by an up of
// the new one.
package registry
