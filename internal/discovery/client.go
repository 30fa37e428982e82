package discovery

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"groupchat/internal/chat"
	"groupchat/internal/chatpb"
)

// Client talks to a remote discovery server. Failures reported by the
// server come back as the package's sentinel errors.
type Client struct {
	conn *grpc.ClientConn
	rpc  chatpb.DiscoveryClient
}

// Dial creates a client for the discovery server at addr. The connection is
// established lazily.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial discovery %s: %w", addr, err)
	}
	return &Client{conn: conn, rpc: chatpb.NewDiscoveryClient(conn)}, nil
}

// NewClient wraps an existing connection. Close does not close it.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{rpc: chatpb.NewDiscoveryClient(cc)}
}

// Close releases the connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) CreateGroup(ctx context.Context, groupID, password string) error {
	resp, err := c.rpc.CreateGroup(ctx, &chatpb.CreateGroupRequest{GroupID: groupID, Password: password})
	if err != nil {
		return err
	}
	return errorOf(resp.Status, resp.ErrorMessage)
}

func (c *Client) ListGroups(ctx context.Context) ([]string, error) {
	resp, err := c.rpc.ListGroups(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	return resp.GroupIDs, nil
}

func (c *Client) EnterGroup(ctx context.Context, groupID, password, addr, userID string) (*chat.JoinResult, error) {
	resp, err := c.rpc.EnterGroup(ctx, &chatpb.EnterGroupRequest{
		GroupID:     groupID,
		Password:    password,
		PeerAddress: addr,
		UserID:      userID,
	})
	if err != nil {
		return nil, err
	}
	if err := errorOf(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	return &chat.JoinResult{
		ProcessID:    int(resp.ProcessID),
		Participants: chatpb.ParticipantsFromPB(resp.Peers),
		History:      chatpb.MessagesFromPB(resp.History),
	}, nil
}

func (c *Client) LeaveGroup(ctx context.Context, groupID, userID string) error {
	resp, err := c.rpc.LeaveGroup(ctx, &chatpb.LeaveGroupRequest{GroupID: groupID, UserID: userID})
	if err != nil {
		return err
	}
	return errorOf(resp.Status, resp.ErrorMessage)
}

func (c *Client) Participants(ctx context.Context, groupID string) ([]chat.Participant, error) {
	resp, err := c.rpc.GetParticipants(ctx, &chatpb.GetParticipantsRequest{GroupID: groupID})
	if err != nil {
		return nil, err
	}
	if err := errorOf(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	return chatpb.ParticipantsFromPB(resp.Peers), nil
}

// Subscribe opens the membership event stream. Cancel ctx to end it; the
// server then treats the user as gone.
func (c *Client) Subscribe(ctx context.Context, groupID, userID string) (chat.EventStream, error) {
	stream, err := c.rpc.SubscribeToGroupEvents(ctx, &chatpb.SubscribeRequest{GroupID: groupID, UserID: userID})
	if err != nil {
		return nil, errorOfRPC(err)
	}
	return &eventStream{stream: stream}, nil
}

func (c *Client) LogMessage(ctx context.Context, msg chat.Message) error {
	resp, err := c.rpc.LogMessage(ctx, chatpb.MessageToPB(msg))
	if err != nil {
		return err
	}
	return errorOf(resp.Status, resp.ErrorMessage)
}

type eventStream struct {
	stream grpc.ServerStreamingClient[chatpb.GroupEvent]
}

func (s *eventStream) Recv() (chat.Event, error) {
	ev, err := s.stream.Recv()
	if err != nil {
		return chat.Event{}, errorOfRPC(err)
	}
	return chatpb.EventFromPB(ev), nil
}
