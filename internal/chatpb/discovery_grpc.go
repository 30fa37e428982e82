package chatpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	Discovery_CreateGroup_FullMethodName            = "/groupchat.v1.Discovery/CreateGroup"
	Discovery_ListGroups_FullMethodName             = "/groupchat.v1.Discovery/ListGroups"
	Discovery_EnterGroup_FullMethodName             = "/groupchat.v1.Discovery/EnterGroup"
	Discovery_LeaveGroup_FullMethodName             = "/groupchat.v1.Discovery/LeaveGroup"
	Discovery_GetParticipants_FullMethodName        = "/groupchat.v1.Discovery/GetParticipants"
	Discovery_SubscribeToGroupEvents_FullMethodName = "/groupchat.v1.Discovery/SubscribeToGroupEvents"
	Discovery_LogMessage_FullMethodName             = "/groupchat.v1.Discovery/LogMessage"
)

// DiscoveryClient is the client API for the Discovery service.
type DiscoveryClient interface {
	CreateGroup(ctx context.Context, in *CreateGroupRequest, opts ...grpc.CallOption) (*CreateGroupResponse, error)
	ListGroups(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListGroupsResponse, error)
	EnterGroup(ctx context.Context, in *EnterGroupRequest, opts ...grpc.CallOption) (*EnterGroupResponse, error)
	LeaveGroup(ctx context.Context, in *LeaveGroupRequest, opts ...grpc.CallOption) (*LeaveGroupResponse, error)
	GetParticipants(ctx context.Context, in *GetParticipantsRequest, opts ...grpc.CallOption) (*GetParticipantsResponse, error)
	SubscribeToGroupEvents(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[GroupEvent], error)
	LogMessage(ctx context.Context, in *ChatMessage, opts ...grpc.CallOption) (*LogMessageResponse, error)
}

type discoveryClient struct {
	cc grpc.ClientConnInterface
}

func NewDiscoveryClient(cc grpc.ClientConnInterface) DiscoveryClient {
	return &discoveryClient{cc}
}

func (c *discoveryClient) CreateGroup(ctx context.Context, in *CreateGroupRequest, opts ...grpc.CallOption) (*CreateGroupResponse, error) {
	out := new(CreateGroupResponse)
	if err := c.cc.Invoke(ctx, Discovery_CreateGroup_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *discoveryClient) ListGroups(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*ListGroupsResponse, error) {
	out := new(ListGroupsResponse)
	if err := c.cc.Invoke(ctx, Discovery_ListGroups_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *discoveryClient) EnterGroup(ctx context.Context, in *EnterGroupRequest, opts ...grpc.CallOption) (*EnterGroupResponse, error) {
	out := new(EnterGroupResponse)
	if err := c.cc.Invoke(ctx, Discovery_EnterGroup_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *discoveryClient) LeaveGroup(ctx context.Context, in *LeaveGroupRequest, opts ...grpc.CallOption) (*LeaveGroupResponse, error) {
	out := new(LeaveGroupResponse)
	if err := c.cc.Invoke(ctx, Discovery_LeaveGroup_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *discoveryClient) GetParticipants(ctx context.Context, in *GetParticipantsRequest, opts ...grpc.CallOption) (*GetParticipantsResponse, error) {
	out := new(GetParticipantsResponse)
	if err := c.cc.Invoke(ctx, Discovery_GetParticipants_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *discoveryClient) SubscribeToGroupEvents(ctx context.Context, in *SubscribeRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[GroupEvent], error) {
	stream, err := c.cc.NewStream(ctx, &Discovery_ServiceDesc.Streams[0], Discovery_SubscribeToGroupEvents_FullMethodName, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[SubscribeRequest, GroupEvent]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *discoveryClient) LogMessage(ctx context.Context, in *ChatMessage, opts ...grpc.CallOption) (*LogMessageResponse, error) {
	out := new(LogMessageResponse)
	if err := c.cc.Invoke(ctx, Discovery_LogMessage_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// DiscoveryServer is the server API for the Discovery service.
// Implementations should embed UnimplementedDiscoveryServer.
type DiscoveryServer interface {
	CreateGroup(context.Context, *CreateGroupRequest) (*CreateGroupResponse, error)
	ListGroups(context.Context, *emptypb.Empty) (*ListGroupsResponse, error)
	EnterGroup(context.Context, *EnterGroupRequest) (*EnterGroupResponse, error)
	LeaveGroup(context.Context, *LeaveGroupRequest) (*LeaveGroupResponse, error)
	GetParticipants(context.Context, *GetParticipantsRequest) (*GetParticipantsResponse, error)
	SubscribeToGroupEvents(*SubscribeRequest, grpc.ServerStreamingServer[GroupEvent]) error
	LogMessage(context.Context, *ChatMessage) (*LogMessageResponse, error)
}

// UnimplementedDiscoveryServer answers every call with codes.Unimplemented.
type UnimplementedDiscoveryServer struct{}

func (UnimplementedDiscoveryServer) CreateGroup(context.Context, *CreateGroupRequest) (*CreateGroupResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CreateGroup not implemented")
}
func (UnimplementedDiscoveryServer) ListGroups(context.Context, *emptypb.Empty) (*ListGroupsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListGroups not implemented")
}
func (UnimplementedDiscoveryServer) EnterGroup(context.Context, *EnterGroupRequest) (*EnterGroupResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method EnterGroup not implemented")
}
func (UnimplementedDiscoveryServer) LeaveGroup(context.Context, *LeaveGroupRequest) (*LeaveGroupResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method LeaveGroup not implemented")
}
func (UnimplementedDiscoveryServer) GetParticipants(context.Context, *GetParticipantsRequest) (*GetParticipantsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetParticipants not implemented")
}
func (UnimplementedDiscoveryServer) SubscribeToGroupEvents(*SubscribeRequest, grpc.ServerStreamingServer[GroupEvent]) error {
	return status.Errorf(codes.Unimplemented, "method SubscribeToGroupEvents not implemented")
}
func (UnimplementedDiscoveryServer) LogMessage(context.Context, *ChatMessage) (*LogMessageResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method LogMessage not implemented")
}

func RegisterDiscoveryServer(s grpc.ServiceRegistrar, srv DiscoveryServer) {
	s.RegisterService(&Discovery_ServiceDesc, srv)
}

func _Discovery_CreateGroup_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateGroupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiscoveryServer).CreateGroup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Discovery_CreateGroup_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiscoveryServer).CreateGroup(ctx, req.(*CreateGroupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Discovery_ListGroups_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiscoveryServer).ListGroups(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Discovery_ListGroups_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiscoveryServer).ListGroups(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Discovery_EnterGroup_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(EnterGroupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiscoveryServer).EnterGroup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Discovery_EnterGroup_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiscoveryServer).EnterGroup(ctx, req.(*EnterGroupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Discovery_LeaveGroup_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LeaveGroupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiscoveryServer).LeaveGroup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Discovery_LeaveGroup_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiscoveryServer).LeaveGroup(ctx, req.(*LeaveGroupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Discovery_GetParticipants_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetParticipantsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiscoveryServer).GetParticipants(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Discovery_GetParticipants_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiscoveryServer).GetParticipants(ctx, req.(*GetParticipantsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Discovery_SubscribeToGroupEvents_Handler(srv any, stream grpc.ServerStream) error {
	m := new(SubscribeRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DiscoveryServer).SubscribeToGroupEvents(m, &grpc.GenericServerStream[SubscribeRequest, GroupEvent]{ServerStream: stream})
}

func _Discovery_LogMessage_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ChatMessage)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiscoveryServer).LogMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Discovery_LogMessage_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DiscoveryServer).LogMessage(ctx, req.(*ChatMessage))
	}
	return interceptor(ctx, in, info, handler)
}

// Discovery_ServiceDesc is the grpc.ServiceDesc for the Discovery service.
var Discovery_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "groupchat.v1.Discovery",
	HandlerType: (*DiscoveryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateGroup", Handler: _Discovery_CreateGroup_Handler},
		{MethodName: "ListGroups", Handler: _Discovery_ListGroups_Handler},
		{MethodName: "EnterGroup", Handler: _Discovery_EnterGroup_Handler},
		{MethodName: "LeaveGroup", Handler: _Discovery_LeaveGroup_Handler},
		{MethodName: "GetParticipants", Handler: _Discovery_GetParticipants_Handler},
		{MethodName: "LogMessage", Handler: _Discovery_LogMessage_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SubscribeToGroupEvents",
			Handler:       _Discovery_SubscribeToGroupEvents_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "groupchat/v1/discovery",
}
