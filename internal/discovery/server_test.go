package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"groupchat/internal/chat"
	"groupchat/internal/chatpb"
)

func startServer(t *testing.T, svc *Service) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	chatpb.RegisterDiscoveryServer(srv, NewServer(svc))
	go func() { _ = srv.Serve(lis) }()

	c, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
		svc.Close()
		srv.Stop()
	})
	return c
}

func TestClientServerRoundTrip(t *testing.T) {
	svc := New()
	c := startServer(t, svc)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.CreateGroup(ctx, "g", "pw"))
	require.ErrorIs(t, c.CreateGroup(ctx, "g", ""), ErrAlreadyExists)
	require.ErrorIs(t, c.CreateGroup(ctx, "", ""), ErrInvalidGroupID)

	groups, err := c.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g"}, groups)

	_, err = c.EnterGroup(ctx, "g", "bad", "a:1", "alice")
	require.ErrorIs(t, err, ErrWrongPassword)
	_, err = c.EnterGroup(ctx, "nope", "", "a:1", "alice")
	require.ErrorIs(t, err, ErrNotFound)

	res, err := c.EnterGroup(ctx, "g", "pw", "a:1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ProcessID)

	msg := chat.NewMessage("g", "alice", 0, "hi", []int64{1})
	require.NoError(t, c.LogMessage(ctx, msg))

	res, err = c.EnterGroup(ctx, "g", "pw", "b:1", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ProcessID)
	require.Len(t, res.History, 1)
	assert.Equal(t, msg.ID, res.History[0].ID)
	assert.Equal(t, []int64{1}, []int64(res.History[0].Clock))

	ps, err := c.Participants(ctx, "g")
	require.NoError(t, err)
	assert.Len(t, ps, 2)

	require.NoError(t, c.LeaveGroup(ctx, "g", "bob"))
	require.ErrorIs(t, c.LeaveGroup(ctx, "nope", "bob"), ErrNotFound)
}

func TestSubscribeStreamImplicitLeave(t *testing.T) {
	svc := New()
	c := startServer(t, svc)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.CreateGroup(ctx, "g", ""))
	_, err := c.EnterGroup(ctx, "g", "", "a:1", "alice")
	require.NoError(t, err)

	subCtx, subCancel := context.WithCancel(ctx)
	stream, err := c.Subscribe(subCtx, "g", "alice")
	require.NoError(t, err)

	ev, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, chat.EventSnapshot, ev.Kind)
	require.Len(t, ev.Participants, 1)

	_, err = c.EnterGroup(ctx, "g", "", "b:1", "bob")
	require.NoError(t, err)
	ev, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, chat.EventUserJoined, ev.Kind)
	assert.Equal(t, "bob", ev.Participant.UserID)

	subCancel()
	require.Eventually(t, func() bool {
		ps, err := svc.Participants("g")
		return err == nil && len(ps) == 1 && ps[0].UserID == "bob"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribeUnknownGroup(t *testing.T) {
	c := startServer(t, New())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.Subscribe(ctx, "missing", "alice")
	if err == nil {
		_, err = stream.Recv()
	}
	require.ErrorIs(t, err, ErrNotFound)
}
