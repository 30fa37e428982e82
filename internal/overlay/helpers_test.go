package overlay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"groupchat/internal/chat"
	"groupchat/internal/discovery"
)

var errPeerDown = errors.New("connection refused")

// memNet routes direct messages between overlays in the same process.
type memNet struct {
	mu    sync.Mutex
	nodes map[string]*Overlay
	down  map[string]bool
	dials map[string]int
}

func newMemNet() *memNet {
	return &memNet{
		nodes: make(map[string]*Overlay),
		down:  make(map[string]bool),
		dials: make(map[string]int),
	}
}

func (n *memNet) register(addr string, o *Overlay) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[addr] = o
}

func (n *memNet) setDown(addr string, down bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.down[addr] = down
}

func (n *memNet) lookup(addr string) (*Overlay, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	o, ok := n.nodes[addr]
	if !ok || n.down[addr] {
		return nil, fmt.Errorf("dial %s: %w", addr, errPeerDown)
	}
	return o, nil
}

func (n *memNet) Dial(addr string) (PeerConn, error) {
	n.mu.Lock()
	n.dials[addr]++
	n.mu.Unlock()
	return &memConn{net: n, addr: addr}, nil
}

type memConn struct {
	net  *memNet
	addr string
}

func (c *memConn) SendDirectMessage(ctx context.Context, msg chat.Message) error {
	o, err := c.net.lookup(c.addr)
	if err != nil {
		return err
	}
	// A live peer outside the group answers with a rejection, as the gRPC
	// dialer reports it.
	if err := o.ReceiveDirectMessage(msg.Clone()); err != nil {
		if errors.Is(err, ErrNotInGroup) {
			return fmt.Errorf("%w: %w", ErrPeerRejected, err)
		}
		return err
	}
	return nil
}

func (c *memConn) FetchHistory(ctx context.Context, fn func(chat.Message) error) error {
	o, err := c.net.lookup(c.addr)
	if err != nil {
		return err
	}
	for _, msg := range o.History() {
		if err := fn(msg); err != nil {
			return err
		}
	}
	return nil
}

func (n *memNet) dialCount(addr string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dials[addr]
}

func (c *memConn) Close() error { return nil }

// localDiscovery adapts an in-process discovery service.
type localDiscovery struct {
	svc *discovery.Service
}

func (d localDiscovery) EnterGroup(_ context.Context, groupID, password, addr, userID string) (*chat.JoinResult, error) {
	return d.svc.EnterGroup(groupID, password, addr, userID)
}

func (d localDiscovery) LeaveGroup(_ context.Context, groupID, userID string) error {
	return d.svc.LeaveGroup(groupID, userID)
}

func (d localDiscovery) Subscribe(ctx context.Context, groupID, userID string) (chat.EventStream, error) {
	sub, err := d.svc.Subscribe(groupID, userID)
	if err != nil {
		return nil, err
	}
	return &localStream{ctx: ctx, sub: sub}, nil
}

func (d localDiscovery) LogMessage(_ context.Context, msg chat.Message) error {
	return d.svc.LogMessage(msg)
}

type localStream struct {
	ctx context.Context
	sub *discovery.Subscription
}

func (s *localStream) Recv() (chat.Event, error) {
	select {
	case <-s.ctx.Done():
		s.sub.Close()
		return chat.Event{}, s.ctx.Err()
	case ev, ok := <-s.sub.Events():
		if !ok {
			return chat.Event{}, io.EOF
		}
		return ev, nil
	}
}

// gatedDiscovery holds back the EnterGroup answer until release is closed,
// after the service has already admitted the user and told the others.
type gatedDiscovery struct {
	localDiscovery
	entered chan struct{}
	release chan struct{}
}

func (d gatedDiscovery) EnterGroup(ctx context.Context, groupID, password, addr, userID string) (*chat.JoinResult, error) {
	res, err := d.localDiscovery.EnterGroup(ctx, groupID, password, addr, userID)
	close(d.entered)
	<-d.release
	return res, err
}

type mockDiscovery struct {
	mock.Mock
}

func (m *mockDiscovery) EnterGroup(_ context.Context, groupID, password, addr, userID string) (*chat.JoinResult, error) {
	args := m.Called(groupID, password, addr, userID)
	res, _ := args.Get(0).(*chat.JoinResult)
	return res, args.Error(1)
}

func (m *mockDiscovery) LeaveGroup(_ context.Context, groupID, userID string) error {
	return m.Called(groupID, userID).Error(0)
}

func (m *mockDiscovery) Subscribe(ctx context.Context, groupID, userID string) (chat.EventStream, error) {
	args := m.Called(groupID, userID)
	s, _ := args.Get(0).(*scriptedStream)
	if s == nil {
		return nil, args.Error(1)
	}
	return s.bind(ctx), args.Error(1)
}

func (m *mockDiscovery) LogMessage(_ context.Context, msg chat.Message) error {
	return m.Called(msg.Text).Error(0)
}

// scriptedStream yields its events and then either fails with err or, if
// err is nil, blocks until its context ends.
type scriptedStream struct {
	ctx    context.Context
	events []chat.Event
	err    error
	next   int
}

func (s *scriptedStream) bind(ctx context.Context) *scriptedStream {
	return &scriptedStream{ctx: ctx, events: s.events, err: s.err}
}

func (s *scriptedStream) Recv() (chat.Event, error) {
	if s.next < len(s.events) {
		ev := s.events[s.next]
		s.next++
		return ev, nil
	}
	if s.err != nil {
		return chat.Event{}, s.err
	}
	<-s.ctx.Done()
	return chat.Event{}, s.ctx.Err()
}

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(5 * time.Millisecond)
}

type cluster struct {
	t   *testing.T
	svc *discovery.Service
	net *memNet
}

func newCluster(t *testing.T, opts ...discovery.Option) *cluster {
	t.Helper()
	svc := discovery.New(opts...)
	t.Cleanup(svc.Close)
	return &cluster{t: t, svc: svc, net: newMemNet()}
}

// client builds an overlay named user, reachable at "<user>:7000".
func (c *cluster) client(user string, mods ...func(*Config)) *Overlay {
	c.t.Helper()
	cfg := Config{UserID: user, Addr: user + ":7000", SendTimeout: 200 * time.Millisecond}
	for _, m := range mods {
		m(&cfg)
	}
	o, err := New(cfg, localDiscovery{svc: c.svc}, c.net, WithBackOff(fastBackOff))
	require.NoError(c.t, err)
	c.net.register(cfg.Addr, o)
	c.t.Cleanup(func() {
		if o.State() == StateMember {
			_ = o.Leave(context.Background())
		}
	})
	return o
}

func peerIDs(o *Overlay) []int {
	var ids []int
	for _, p := range o.Peers() {
		ids = append(ids, p.ProcessID)
	}
	return ids
}
