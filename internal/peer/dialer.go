package peer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"groupchat/internal/chat"
	"groupchat/internal/chatpb"
	"groupchat/internal/overlay"
)

// Dialer opens gRPC links to other peers. Each link owns its connection.
type Dialer struct {
	opts []grpc.DialOption
}

// NewDialer returns a dialer using plaintext connections plus opts.
func NewDialer(opts ...grpc.DialOption) *Dialer {
	return &Dialer{
		opts: append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...),
	}
}

// Dial creates a lazy connection to addr. Reachability is only known on
// the first call.
func (d *Dialer) Dial(addr string) (overlay.PeerConn, error) {
	cc, err := grpc.NewClient(addr, d.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial peer %s: %w", addr, err)
	}
	return &Conn{cc: cc, rpc: chatpb.NewPeerClient(cc)}, nil
}

// Conn is a link to one peer.
type Conn struct {
	cc  *grpc.ClientConn
	rpc chatpb.PeerClient
}

// SendDirectMessage delivers msg. A peer that is up but not in msg's group
// answers with an error wrapping overlay.ErrPeerRejected.
func (c *Conn) SendDirectMessage(ctx context.Context, msg chat.Message) error {
	_, err := c.rpc.SendDirectMessage(ctx, chatpb.MessageToPB(msg))
	if status.Code(err) == codes.FailedPrecondition {
		return fmt.Errorf("%w: %s", overlay.ErrPeerRejected, status.Convert(err).Message())
	}
	return err
}

func (c *Conn) FetchHistory(ctx context.Context, fn func(chat.Message) error) error {
	stream, err := c.rpc.GetHistory(ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}
	for {
		pb, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(chatpb.MessageFromPB(pb)); err != nil {
			return err
		}
	}
}

func (c *Conn) Close() error {
	return c.cc.Close()
}
