// Package localbus is an in-process Transport implementation: every node
// in the simulated cluster lives in the same binary and delivery happens
// over Go channels/goroutines rather than a network, which is what lets
// internal/trackertest exercise multi-replica scenarios without spawning
// real processes (unlike internal/it's external-binary harness, which the
// teacher's exec.Command approach doesn't fit here since these "nodes"
// are just goroutines).
package localbus

import (
	"context"
	"fmt"
	"sync"

	"presenced/internal/transport"
)

// Bus is a shared switchboard a set of in-process nodes attach to.
type Bus struct {
	mu    sync.Mutex
	nodes map[string]*node
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{nodes: make(map[string]*node)}
}

// Node returns the Transport handle for name, creating it on first use.
func (b *Bus) Node(name string) transport.Transport {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[name]
	if !ok {
		n = &node{name: name, bus: b, subs: make(map[string][]subscription)}
		b.nodes[name] = n
	}
	return n
}

// Remove detaches name from the bus, simulating a node process exiting so
// it stops receiving and can no longer be addressed directly.
func (b *Bus) Remove(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.nodes, name)
}

// Sever stops delivery to name's subscribers, simulating a transport
// partition: the node is still registered (DirectBroadcast targeting it
// still resolves) but nothing delivered to it is observed until Restore.
// Messages the severed node sends are still delivered to other nodes.
func (b *Bus) Sever(name string) {
	b.mu.Lock()
	n, ok := b.nodes[name]
	b.mu.Unlock()
	if !ok {
		return
	}
	n.mu.Lock()
	n.partitioned = true
	n.mu.Unlock()
}

// Restore reverses Sever.
func (b *Bus) Restore(name string) {
	b.mu.Lock()
	n, ok := b.nodes[name]
	b.mu.Unlock()
	if !ok {
		return
	}
	n.mu.Lock()
	n.partitioned = false
	n.mu.Unlock()
}

type subscription struct {
	id int
	fn func(from string, msg any)
}

type node struct {
	name string
	bus  *Bus

	mu          sync.Mutex
	subs        map[string][]subscription
	nextSubID   int
	partitioned bool
}

func (n *node) NodeName() string { return n.name }

func (n *node) Subscribe(topic string, fn func(from string, msg any)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextSubID
	n.nextSubID++
	n.subs[topic] = append(n.subs[topic], subscription{id: id, fn: fn})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		list := n.subs[topic]
		for i, s := range list {
			if s.id == id {
				n.subs[topic] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (n *node) BroadcastFrom(publisher, topic string, msg any) error {
	n.bus.mu.Lock()
	targets := make([]*node, 0, len(n.bus.nodes))
	for name, peer := range n.bus.nodes {
		if name != publisher {
			targets = append(targets, peer)
		}
	}
	n.bus.mu.Unlock()

	names := make([]string, len(targets))
	byName := make(map[string]*node, len(targets))
	for i, t := range targets {
		names[i] = t.name
		byName[t.name] = t
	}

	transport.FanOut(context.Background(), names, func(_ context.Context, target string) error {
		byName[target].deliver(publisher, topic, msg)
		return nil
	})
	return nil
}

func (n *node) DirectBroadcast(nodeName, topic string, msg any) error {
	n.bus.mu.Lock()
	peer, ok := n.bus.nodes[nodeName]
	n.bus.mu.Unlock()
	if !ok {
		return fmt.Errorf("localbus: unknown node %q", nodeName)
	}
	peer.deliver(n.name, topic, msg)
	return nil
}

func (n *node) deliver(from, topic string, msg any) {
	n.mu.Lock()
	if n.partitioned {
		n.mu.Unlock()
		return
	}
	subsCopy := append([]subscription(nil), n.subs[topic]...)
	n.mu.Unlock()

	for _, s := range subsCopy {
		go s.fn(from, msg)
	}
}
