package grpctransport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"presenced/internal/crdt"
	"presenced/internal/tracker"
)

// DebugServiceName is the gRPC service path segment for the read-only
// introspection endpoints, kept separate from PresenceService the same
// way the teacher's Membership service keeps GetMembership/GetRing apart
// from its Ping/Gossip replication traffic.
const DebugServiceName = "presenced.DebugService"

// DebugSource is the local tracker a Transport exposes over the debug
// RPCs. *tracker.Server satisfies this without any adapter.
type DebugSource interface {
	List(topic string) []crdt.Presence
	Replicas() []tracker.ReplicaInfo
}

// DebugServer is the gRPC-facing contract for the two debug RPCs: List
// mirrors the teacher's GetRing(key) and Replicas mirrors GetMembership,
// both reduced to structpb request/response bodies since there is no
// generated message type to carry them.
type DebugServer interface {
	List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Replicas(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var _ DebugServer = (*Transport)(nil)

// AttachDebugSource wires src into t so the debug RPCs can answer List
// and Replicas calls. Must be called before Serve; a Transport with no
// source attached answers both RPCs with codes.Unavailable.
func (t *Transport) AttachDebugSource(src DebugSource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.debugSource = src
}

// List implements DebugServer: the presence list for one topic.
func (t *Transport) List(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	t.mu.RLock()
	src := t.debugSource
	t.mu.RUnlock()
	if src == nil {
		return nil, status.Error(codes.Unavailable, "grpctransport: no debug source attached")
	}

	topicField, ok := in.Fields["topic"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "grpctransport: missing \"topic\" field")
	}

	presences := src.List(topicField.GetStringValue())
	entries := make([]*structpb.Value, 0, len(presences))
	for _, p := range presences {
		meta, err := structpb.NewStruct(p.Meta)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "grpctransport: encode meta for %q: %v", p.Key, err)
		}
		entries = append(entries, structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				"key":  structpb.NewStringValue(p.Key),
				"meta": structpb.NewStructValue(meta),
			},
		}))
	}
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"presences": structpb.NewListValue(&structpb.ListValue{Values: entries}),
		},
	}, nil
}

// Replicas implements DebugServer: a snapshot of the replica registry.
func (t *Transport) Replicas(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	t.mu.RLock()
	src := t.debugSource
	t.mu.RUnlock()
	if src == nil {
		return nil, status.Error(codes.Unavailable, "grpctransport: no debug source attached")
	}

	replicas := src.Replicas()
	entries := make([]*structpb.Value, 0, len(replicas))
	for _, r := range replicas {
		entries = append(entries, structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				"name":              structpb.NewStringValue(r.Name),
				"vsn":               structpb.NewNumberValue(float64(r.Vsn)),
				"status":            structpb.NewStringValue(r.Status),
				"last_heartbeat_at": structpb.NewStringValue(r.LastHeartbeatAt.Format("2006-01-02T15:04:05Z07:00")),
			},
		}))
	}
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"replicas": structpb.NewListValue(&structpb.ListValue{Values: entries}),
		},
	}, nil
}

func _DebugService_List_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DebugServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + DebugServiceName + "/List"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DebugServer).List(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _DebugService_Replicas_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DebugServer).Replicas(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + DebugServiceName + "/Replicas"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DebugServer).Replicas(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var debugServiceDesc = grpc.ServiceDesc{
	ServiceName: DebugServiceName,
	HandlerType: (*DebugServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "List", Handler: _DebugService_List_Handler},
		{MethodName: "Replicas", Handler: _DebugService_Replicas_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "presenced/grpctransport/debug.go",
}

// RegisterDebugServer attaches srv to a gRPC server under DebugServiceName.
func RegisterDebugServer(s grpc.ServiceRegistrar, srv DebugServer) {
	s.RegisterService(&debugServiceDesc, srv)
}

// DebugClient is the stub used by cmd/presenced's list/replicas
// subcommands to query a running node remotely.
type DebugClient struct {
	cc *grpc.ClientConn
}

// NewDebugClient wraps an already-dialed connection.
func NewDebugClient(cc *grpc.ClientConn) *DebugClient {
	return &DebugClient{cc: cc}
}

// List calls the remote List RPC for topic.
func (c *DebugClient) List(ctx context.Context, topic string) (*structpb.Struct, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"topic": structpb.NewStringValue(topic),
	}}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+DebugServiceName+"/List", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Replicas calls the remote Replicas RPC.
func (c *DebugClient) Replicas(ctx context.Context) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+DebugServiceName+"/Replicas", in(), out); err != nil {
		return nil, err
	}
	return out, nil
}

func in() *structpb.Struct { return &structpb.Struct{} }
