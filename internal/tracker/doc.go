// Package tracker implements the per-namespace tracker server: the actor
// that owns one presence CRDT and one replica registry, drives the
// heartbeat cadence, answers local track/untrack/update/list calls, and
// applies inbound heartbeats and transfers from peers.
//
// The server is a single goroutine reading a mailbox channel of tagged
// request/event values, the same "one task per owner, input channel of
// variants" shape the teacher doesn't itself use (its Node is a
// mutex-protected gRPC server) but which every public method here
// honors: Track/Untrack/Update/List/Replicas all enqueue a request and
// block on a reply channel rather than touching Server fields directly.
package tracker
