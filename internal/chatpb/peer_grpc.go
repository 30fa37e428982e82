package chatpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	Peer_SendDirectMessage_FullMethodName = "/groupchat.v1.Peer/SendDirectMessage"
	Peer_GetHistory_FullMethodName        = "/groupchat.v1.Peer/GetHistory"
)

// PeerClient is the client API for the Peer service.
type PeerClient interface {
	SendDirectMessage(ctx context.Context, in *ChatMessage, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetHistory(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ChatMessage], error)
}

type peerClient struct {
	cc grpc.ClientConnInterface
}

func NewPeerClient(cc grpc.ClientConnInterface) PeerClient {
	return &peerClient{cc}
}

func (c *peerClient) SendDirectMessage(ctx context.Context, in *ChatMessage, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, Peer_SendDirectMessage_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *peerClient) GetHistory(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ChatMessage], error) {
	stream, err := c.cc.NewStream(ctx, &Peer_ServiceDesc.Streams[0], Peer_GetHistory_FullMethodName, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, ChatMessage]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// PeerServer is the server API for the Peer service.
// Implementations should embed UnimplementedPeerServer.
type PeerServer interface {
	SendDirectMessage(context.Context, *ChatMessage) (*emptypb.Empty, error)
	GetHistory(*emptypb.Empty, grpc.ServerStreamingServer[ChatMessage]) error
}

// UnimplementedPeerServer answers every call with codes.Unimplemented.
type UnimplementedPeerServer struct{}

func (UnimplementedPeerServer) SendDirectMessage(context.Context, *ChatMessage) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendDirectMessage not implemented")
}
func (UnimplementedPeerServer) GetHistory(*emptypb.Empty, grpc.ServerStreamingServer[ChatMessage]) error {
	return status.Errorf(codes.Unimplemented, "method GetHistory not implemented")
}

func RegisterPeerServer(s grpc.ServiceRegistrar, srv PeerServer) {
	s.RegisterService(&Peer_ServiceDesc, srv)
}

func _Peer_SendDirectMessage_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ChatMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PeerServer).SendDirectMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Peer_SendDirectMessage_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PeerServer).SendDirectMessage(ctx, req.(*ChatMessage))
	}
	return interceptor(ctx, in, info, handler)
}

func _Peer_GetHistory_Handler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(PeerServer).GetHistory(m, &grpc.GenericServerStream[emptypb.Empty, ChatMessage]{ServerStream: stream})
}

// Peer_ServiceDesc is the grpc.ServiceDesc for the Peer service.
var Peer_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "groupchat.v1.Peer",
	HandlerType: (*PeerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendDirectMessage", Handler: _Peer_SendDirectMessage_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "GetHistory",
			Handler:       _Peer_GetHistory_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "groupchat/v1/peer",
}
