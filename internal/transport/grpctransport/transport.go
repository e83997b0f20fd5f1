package grpctransport

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"presenced/internal/transport"
	"presenced/internal/wire"
)

// Transport is the network transport.Transport implementation: every
// tracker message becomes a unary gRPC call against a peer resolved from
// a static name→address table, the way internal/node.Node resolves
// peers through its ring rather than DNS/service-discovery.
type Transport struct {
	name       string
	listenAddr string

	mu          sync.RWMutex
	peers       map[string]string
	debugSource DebugSource

	subsMu sync.Mutex
	subs   map[string][]subscription

	pool       *clientPool
	grpcServer *grpc.Server
}

type subscription struct {
	id int
	fn func(from string, msg any)
}

var _ transport.Transport = (*Transport)(nil)
var _ Server = (*Transport)(nil)

// New creates a transport bound to listenAddr and dispatching under name.
// peers maps every other known replica name to its dial address.
func New(name, listenAddr string, peers map[string]string) *Transport {
	peerCopy := make(map[string]string, len(peers))
	for k, v := range peers {
		peerCopy[k] = v
	}
	return &Transport{
		name:       name,
		listenAddr: listenAddr,
		peers:      peerCopy,
		subs:       make(map[string][]subscription),
		pool:       newClientPool(),
	}
}

// NodeName implements transport.Transport.
func (t *Transport) NodeName() string { return t.name }

// AddPeer registers (or updates) a peer's dial address, e.g. once it is
// learned from configuration or a later heartbeat.
func (t *Transport) AddPeer(name, addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[name] = addr
}

func (t *Transport) peerAddr(name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	addr, ok := t.peers[name]
	return addr, ok
}

func (t *Transport) peerNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.peers))
	for name := range t.peers {
		names = append(names, name)
	}
	return names
}

// Serve starts the gRPC server and blocks until it stops.
func (t *Transport) Serve() error {
	lis, err := net.Listen("tcp", t.listenAddr)
	if err != nil {
		return fmt.Errorf("grpctransport: listen on %s: %w", t.listenAddr, err)
	}

	t.grpcServer = grpc.NewServer()
	RegisterServer(t.grpcServer, t)
	RegisterDebugServer(t.grpcServer, t)
	reflection.Register(t.grpcServer)

	log.Printf("[%s] presence transport listening on %s", t.name, t.listenAddr)
	if err := t.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("grpctransport: serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server and drops pooled peer
// connections.
func (t *Transport) Stop() {
	if t.grpcServer != nil {
		log.Printf("[%s] stopping presence transport", t.name)
		t.grpcServer.GracefulStop()
	}
	t.pool.close()
}

// Subscribe implements transport.Transport.
func (t *Transport) Subscribe(topic string, fn func(from string, msg any)) func() {
	t.subsMu.Lock()
	defer t.subsMu.Unlock()

	id := len(t.subs[topic])
	t.subs[topic] = append(t.subs[topic], subscription{id: id, fn: fn})
	return func() {
		t.subsMu.Lock()
		defer t.subsMu.Unlock()
		list := t.subs[topic]
		for i, s := range list {
			if s.id == id {
				t.subs[topic] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (t *Transport) dispatch(topic, from string, msg any) {
	t.subsMu.Lock()
	subsCopy := append([]subscription(nil), t.subs[topic]...)
	t.subsMu.Unlock()

	for _, s := range subsCopy {
		go s.fn(from, msg)
	}
}

// BroadcastFrom implements transport.Transport by calling the matching
// unary RPC on every known peer except publisher, best-effort and
// concurrently (see transport.FanOut).
func (t *Transport) BroadcastFrom(publisher, topic string, msg any) error {
	var targets []string
	for _, name := range t.peerNames() {
		if name != publisher {
			targets = append(targets, name)
		}
	}

	errs := transport.FanOut(context.Background(), targets, func(ctx context.Context, target string) error {
		return t.send(ctx, target, msg)
	})
	if len(errs) > 0 {
		return fmt.Errorf("grpctransport: broadcast_from %s on %s: %d peer(s) failed: %v", publisher, topic, len(errs), errs)
	}
	return nil
}

// DirectBroadcast implements transport.Transport by calling the matching
// unary RPC on exactly one named peer.
func (t *Transport) DirectBroadcast(node, topic string, msg any) error {
	return t.send(context.Background(), node, msg)
}

func (t *Transport) send(ctx context.Context, target string, msg any) error {
	addr, ok := t.peerAddr(target)
	if !ok {
		return fmt.Errorf("grpctransport: unknown peer %q", target)
	}
	client, err := t.pool.get(addr)
	if err != nil {
		return status.Errorf(codes.Unavailable, "grpctransport: %v", err)
	}

	switch m := msg.(type) {
	case wire.Heartbeat:
		in, err := wire.HeartbeatToStruct(m)
		if err != nil {
			return err
		}
		_, err = client.Heartbeat(ctx, in)
		return err
	case wire.TransferReq:
		in, err := wire.TransferReqToStruct(m)
		if err != nil {
			return err
		}
		_, err = client.TransferReq(ctx, in)
		return err
	case wire.TransferAck:
		in, err := wire.TransferAckToStruct(m)
		if err != nil {
			return err
		}
		_, err = client.TransferAck(ctx, in)
		return err
	default:
		return fmt.Errorf("grpctransport: unsupported message type %T", msg)
	}
}

// Heartbeat implements the Server side of the gRPC service: decode and
// dispatch to local subscribers, then acknowledge receipt. The
// substantive reply (if any) comes later as the peer's own
// TransferAck/TransferReq call, not as this RPC's return value.
func (t *Transport) Heartbeat(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	hb, err := wire.StructToHeartbeat(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "grpctransport: %v", err)
	}
	t.dispatch(hb.Topic, hb.From.Name, hb)
	return &structpb.Struct{}, nil
}

// TransferReq implements Server.
func (t *Transport) TransferReq(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tr, err := wire.StructToTransferReq(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "grpctransport: %v", err)
	}
	t.dispatch(tr.Topic, tr.From.Name, tr)
	return &structpb.Struct{}, nil
}

// TransferAck implements Server.
func (t *Transport) TransferAck(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ta, err := wire.StructToTransferAck(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "grpctransport: %v", err)
	}
	t.dispatch(ta.Topic, ta.From.Name, ta)
	return &structpb.Struct{}, nil
}
