// Package grpctransport is the network Transport implementation: a gRPC
// service exposing Heartbeat/TransferReq/TransferAck unary RPCs plus a
// ClientManager-style dial pool, modeled on internal/node/client.go and
// internal/node/node.go. There is no .proto file backing this service —
// the retrieved pack carries no protoc output to regenerate from — so the
// service descriptor below is hand-written the way protoc-gen-go-grpc
// would emit it, and every payload is a *structpb.Struct rather than a
// generated message type.
package grpctransport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the gRPC service path segment every method hangs off.
const ServiceName = "presenced.PresenceService"

// Server is the gRPC-facing contract the transport server dispatches to.
// Its three methods receive the *structpb.Struct payload exactly as sent;
// the sender encodes it and the implementation decodes it, both via
// internal/wire.
type Server interface {
	Heartbeat(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	TransferReq(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	TransferAck(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

func _PresenceService_Heartbeat_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Heartbeat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Heartbeat"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Heartbeat(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _PresenceService_TransferReq_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).TransferReq(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/TransferReq"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).TransferReq(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _PresenceService_TransferAck_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).TransferAck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/TransferAck"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).TransferAck(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Heartbeat", Handler: _PresenceService_Heartbeat_Handler},
		{MethodName: "TransferReq", Handler: _PresenceService_TransferReq_Handler},
		{MethodName: "TransferAck", Handler: _PresenceService_TransferAck_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "presenced/grpctransport/service.go",
}

// RegisterServer attaches srv to a gRPC server under ServiceName.
func RegisterServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

// Client is the stub a dial pool hands back; it wraps a *grpc.ClientConn
// the same three calls Server exposes.
type Client struct {
	cc *grpc.ClientConn
}

func newClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc}
}

// Close tears down the underlying connection. Called by clientPool.close
// when the transport stops; callers holding a *Client obtained from the
// pool never call this directly.
func (c *Client) Close() error {
	return c.cc.Close()
}

func (c *Client) Heartbeat(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Heartbeat", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) TransferReq(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/TransferReq", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) TransferAck(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/TransferAck", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
