// Package transport defines the pub/sub contract the tracker server relies
// on and is agnostic to: subscribe a local process to a topic, broadcast
// to every other node's subscribers, or address one node directly. The
// tracker core never depends on a concrete transport; internal/tracker
// only calls through this interface.
package transport

// Transport is the three-operation pub/sub contract a tracker server runs
// on top of. Implementations provide at-most-once, best-effort fan-out
// with no ordering guarantees.
type Transport interface {
	// NodeName returns this node's stable name, as it would appear in a
	// ReplicaRef.
	NodeName() string

	// Subscribe delivers every subsequent BroadcastFrom/DirectBroadcast
	// on topic to fn, until the returned function is called.
	Subscribe(topic string, fn func(from string, msg any)) (unsubscribe func())

	// BroadcastFrom delivers msg on topic to every subscriber on every
	// node except publisher.
	BroadcastFrom(publisher, topic string, msg any) error

	// DirectBroadcast delivers msg on topic only to subscribers on node.
	DirectBroadcast(node, topic string, msg any) error
}
