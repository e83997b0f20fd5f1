package grpctransport

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// dialTimeout bounds how long a first connection attempt to a peer may
// take before giving up.
const dialTimeout = 5 * time.Second

// clientPool is a dial-once, reuse-forever pool of gRPC clients to peer
// addresses, modeled on internal/node/client.go's ClientManager: a
// read-locked fast path plus a double-checked write lock for the dial.
type clientPool struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func newClientPool() *clientPool {
	return &clientPool{clients: make(map[string]*Client)}
}

func (p *clientPool) get(addr string) (*Client, error) {
	p.mu.RLock()
	client, ok := p.clients[addr]
	p.mu.RUnlock()
	if ok {
		return client, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[addr]; ok {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("grpctransport: dial %s: %w", addr, err)
	}

	client = newClient(conn)
	p.clients[addr] = client
	return client, nil
}

func (p *clientPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, client := range p.clients {
		if err := client.Close(); err != nil {
			log.Printf("grpctransport: closing client for %s: %v", addr, err)
		}
	}
	p.clients = make(map[string]*Client)
}
