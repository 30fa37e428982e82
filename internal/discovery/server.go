package discovery

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	"groupchat/internal/chatpb"
)

// Server implements the Discovery gRPC service on top of a Service.
type Server struct {
	chatpb.UnimplementedDiscoveryServer
	svc *Service
}

// NewServer creates a new discovery server.
func NewServer(svc *Service) *Server {
	return &Server{svc: svc}
}

func (s *Server) CreateGroup(ctx context.Context, req *chatpb.CreateGroupRequest) (*chatpb.CreateGroupResponse, error) {
	st, msg := statusOf(s.svc.CreateGroup(req.GroupID, req.Password))
	return &chatpb.CreateGroupResponse{Status: st, ErrorMessage: msg}, nil
}

func (s *Server) ListGroups(ctx context.Context, _ *emptypb.Empty) (*chatpb.ListGroupsResponse, error) {
	return &chatpb.ListGroupsResponse{GroupIDs: s.svc.ListGroups()}, nil
}

func (s *Server) EnterGroup(ctx context.Context, req *chatpb.EnterGroupRequest) (*chatpb.EnterGroupResponse, error) {
	res, err := s.svc.EnterGroup(req.GroupID, req.Password, req.PeerAddress, req.UserID)
	if err != nil {
		st, msg := statusOf(err)
		return &chatpb.EnterGroupResponse{Status: st, ErrorMessage: msg, ProcessID: -1}, nil
	}
	return &chatpb.EnterGroupResponse{
		Status:    chatpb.Status_OK,
		ProcessID: int32(res.ProcessID),
		Peers:     chatpb.ParticipantsToPB(res.Participants),
		History:   chatpb.MessagesToPB(res.History),
	}, nil
}

func (s *Server) LeaveGroup(ctx context.Context, req *chatpb.LeaveGroupRequest) (*chatpb.LeaveGroupResponse, error) {
	st, msg := statusOf(s.svc.LeaveGroup(req.GroupID, req.UserID))
	return &chatpb.LeaveGroupResponse{Status: st, ErrorMessage: msg}, nil
}

func (s *Server) GetParticipants(ctx context.Context, req *chatpb.GetParticipantsRequest) (*chatpb.GetParticipantsResponse, error) {
	ps, err := s.svc.Participants(req.GroupID)
	st, msg := statusOf(err)
	return &chatpb.GetParticipantsResponse{Status: st, ErrorMessage: msg, Peers: chatpb.ParticipantsToPB(ps)}, nil
}

// SubscribeToGroupEvents streams membership events until the client goes
// away or the subscription is closed. A client that goes away leaves the
// group.
func (s *Server) SubscribeToGroupEvents(req *chatpb.SubscribeRequest, stream grpc.ServerStreamingServer[chatpb.GroupEvent]) error {
	sub, err := s.svc.Subscribe(req.GroupID, req.UserID)
	if err != nil {
		return rpcError(err)
	}
	defer sub.Close()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			s.svc.cfg.logger.Debug("subscriber stream ended", "group", req.GroupID, "user", req.UserID, "err", ctx.Err())
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := stream.Send(chatpb.EventToPB(ev)); err != nil {
				return err
			}
		}
	}
}

func (s *Server) LogMessage(ctx context.Context, req *chatpb.ChatMessage) (*chatpb.LogMessageResponse, error) {
	st, msg := statusOf(s.svc.LogMessage(chatpb.MessageFromPB(req)))
	return &chatpb.LogMessageResponse{Status: st, ErrorMessage: msg}, nil
}
