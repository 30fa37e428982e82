// Package peer carries direct messages and history pulls between chat
// clients over gRPC.
package peer

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"groupchat/internal/chat"
	"groupchat/internal/chatpb"
	"groupchat/internal/overlay"
)

// Receiver is the local side of the peer service, usually an
// *overlay.Overlay.
type Receiver interface {
	ReceiveDirectMessage(msg chat.Message) error
	History() []chat.Message
}

// Server implements the Peer gRPC service.
type Server struct {
	chatpb.UnimplementedPeerServer
	recv   Receiver
	logger *slog.Logger
}

// NewServer creates a new peer server. A nil logger means slog.Default().
func NewServer(recv Receiver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{recv: recv, logger: logger}
}

// SendDirectMessage hands an inbound message to the receiver.
func (s *Server) SendDirectMessage(ctx context.Context, req *chatpb.ChatMessage) (*emptypb.Empty, error) {
	msg := chatpb.MessageFromPB(req)
	if err := s.recv.ReceiveDirectMessage(msg); err != nil {
		if errors.Is(err, overlay.ErrNotInGroup) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		s.logger.Error("direct message rejected", "group", msg.GroupID, "peer", msg.SenderID, "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &emptypb.Empty{}, nil
}

// GetHistory streams the receiver's history, oldest first.
func (s *Server) GetHistory(_ *emptypb.Empty, stream grpc.ServerStreamingServer[chatpb.ChatMessage]) error {
	hist := s.recv.History()
	for _, msg := range hist {
		if err := stream.Send(chatpb.MessageToPB(msg)); err != nil {
			return err
		}
	}
	s.logger.Debug("served history", "messages", len(hist))
	return nil
}
