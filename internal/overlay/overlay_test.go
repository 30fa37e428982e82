package overlay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"groupchat/internal/chat"
	"groupchat/internal/discovery"
	"groupchat/internal/vclock"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Addr: "a:1"}, &mockDiscovery{}, newMemNet())
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New(Config{UserID: "alice"}, &mockDiscovery{}, newMemNet())
	require.ErrorIs(t, err, ErrInvalidConfig)

	o, err := New(Config{UserID: "alice", Addr: "a:1"}, &mockDiscovery{}, newMemNet())
	require.NoError(t, err)
	assert.Equal(t, DefaultSendTimeout, o.Config().SendTimeout)
	assert.Equal(t, StateLobby, o.State())
	assert.Equal(t, -1, o.Identity())
	assert.Nil(t, o.Clock())
}

func TestTwoPeerScenario(t *testing.T) {
	c := newCluster(t)
	require.NoError(t, c.svc.CreateGroup("G", ""))
	ctx := context.Background()

	var (
		mu       sync.Mutex
		received []chat.Message
	)
	a := c.client("alice")
	a.opts.onMessage = func(m chat.Message) {
		mu.Lock()
		received = append(received, m)
		mu.Unlock()
	}
	b := c.client("bob")

	require.NoError(t, a.Join(ctx, "G", ""))
	assert.Equal(t, 0, a.Identity())
	assert.Equal(t, StateMember, a.State())
	assert.Equal(t, vclock.Clock{0}, a.Clock())

	require.NoError(t, b.Join(ctx, "G", ""))
	assert.Equal(t, 1, b.Identity())
	assert.Equal(t, []int{0}, peerIDs(b))
	require.Eventually(t, func() bool { return assert.ObjectsAreEqual([]int{1}, peerIDs(a)) }, waitFor, tick)

	report, err := b.Send(ctx, "hi")
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.False(t, report.NoRecipients())
	require.Len(t, report.Delivered, 1)
	assert.Equal(t, "alice", report.Delivered[0].UserID)
	assert.Equal(t, vclock.Clock{0, 1}, report.Message.Clock)

	assert.Equal(t, vclock.Clock{1, 1}, a.Clock())
	hist := a.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "hi", hist[0].Text)
	mu.Lock()
	require.Len(t, received, 1)
	assert.Equal(t, report.Message.ID, received[0].ID)
	mu.Unlock()

	require.NoError(t, b.Leave(ctx))
	assert.Equal(t, StateLobby, b.State())
	require.Eventually(t, func() bool { return len(a.Peers()) == 0 }, waitFor, tick)

	res, err := c.svc.EnterGroup("G", "", "carol:7000", "carol")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ProcessID, "freed identity is reused")
}

func TestJoinWhileMemberRejected(t *testing.T) {
	c := newCluster(t)
	require.NoError(t, c.svc.CreateGroup("G", ""))
	require.NoError(t, c.svc.CreateGroup("H", ""))
	a := c.client("alice")

	require.NoError(t, a.Join(context.Background(), "G", ""))
	err := a.Join(context.Background(), "H", "")
	require.ErrorIs(t, err, ErrAlreadyInGroup)
	assert.Equal(t, "G", a.GroupID())
}

func TestJoinFailureReturnsToLobby(t *testing.T) {
	disc := &mockDiscovery{}
	disc.On("EnterGroup", "G", "pw", "a:1", "alice").Return(nil, discovery.ErrGroupFull).Once()

	o, err := New(Config{UserID: "alice", Addr: "a:1"}, disc, newMemNet())
	require.NoError(t, err)

	err = o.Join(context.Background(), "G", "pw")
	require.ErrorIs(t, err, discovery.ErrGroupFull)
	assert.Equal(t, StateLobby, o.State())
	disc.AssertExpectations(t)
}

func TestSendOutsideGroup(t *testing.T) {
	o, err := New(Config{UserID: "alice", Addr: "a:1"}, &mockDiscovery{}, newMemNet())
	require.NoError(t, err)

	_, err = o.Send(context.Background(), "hello")
	require.ErrorIs(t, err, ErrNotInGroup)
	require.ErrorIs(t, o.Leave(context.Background()), ErrNotInGroup)
}

func TestSendWithoutPeers(t *testing.T) {
	c := newCluster(t)
	require.NoError(t, c.svc.CreateGroup("G", ""))
	a := c.client("alice")
	require.NoError(t, a.Join(context.Background(), "G", ""))

	report, err := a.Send(context.Background(), "anyone?")
	require.NoError(t, err)
	assert.True(t, report.NoRecipients())
	assert.NoError(t, report.Err())
	assert.Equal(t, vclock.Clock{1}, a.Clock())
	assert.Len(t, a.History(), 1)
}

func TestSendPrunesUnreachablePeer(t *testing.T) {
	c := newCluster(t)
	require.NoError(t, c.svc.CreateGroup("G", ""))
	ctx := context.Background()
	a, b, carol := c.client("alice"), c.client("bob"), c.client("carol")
	for _, o := range []*Overlay{a, b, carol} {
		require.NoError(t, o.Join(ctx, "G", ""))
	}
	require.Eventually(t, func() bool { return len(a.Peers()) == 2 }, waitFor, tick)

	c.net.setDown("carol:7000", true)
	report, err := a.Send(ctx, "still there?")
	require.NoError(t, err)
	require.Len(t, report.Delivered, 1)
	assert.Equal(t, "bob", report.Delivered[0].UserID)
	require.Contains(t, report.Failed, 2)
	assert.ErrorIs(t, report.Failed[2], ErrPeerUnreachable)
	assert.ErrorIs(t, report.Err(), errPeerDown)
	assert.Equal(t, []int{1}, peerIDs(a))

	assert.Len(t, b.History(), 1)
	assert.Empty(t, carol.History())
}

func TestSendPreservesPerPeerOrder(t *testing.T) {
	c := newCluster(t)
	require.NoError(t, c.svc.CreateGroup("G", ""))
	ctx := context.Background()
	a, b := c.client("alice"), c.client("bob")
	require.NoError(t, a.Join(ctx, "G", ""))
	require.NoError(t, b.Join(ctx, "G", ""))
	require.Eventually(t, func() bool { return len(a.Peers()) == 1 }, waitFor, tick)

	texts := []string{"one", "two", "three", "four"}
	for _, text := range texts {
		_, err := a.Send(ctx, text)
		require.NoError(t, err)
	}
	hist := b.History()
	require.Len(t, hist, len(texts))
	for i, msg := range hist {
		assert.Equal(t, texts[i], msg.Text)
		if i > 0 {
			before, err := vclock.HappenedBefore(hist[i-1].Clock, msg.Clock)
			require.NoError(t, err)
			assert.True(t, before)
		}
	}
}

func TestReceiveDirectMessage(t *testing.T) {
	c := newCluster(t)
	require.NoError(t, c.svc.CreateGroup("G", ""))
	a := c.client("alice")

	msg := chat.NewMessage("G", "bob", 1, "hey", vclock.Clock{0, 3})
	require.ErrorIs(t, a.ReceiveDirectMessage(msg), ErrNotInGroup)

	require.NoError(t, a.Join(context.Background(), "G", ""))
	require.ErrorIs(t, a.ReceiveDirectMessage(chat.NewMessage("other", "bob", 1, "x", nil)), ErrNotInGroup)

	require.NoError(t, a.ReceiveDirectMessage(msg))
	require.NoError(t, a.ReceiveDirectMessage(msg))
	assert.Equal(t, vclock.Clock{1, 3}, a.Clock(), "duplicate must not advance the clock")
	assert.Len(t, a.History(), 1)
}

func TestJoinFetchesHistoryFromLowestPeer(t *testing.T) {
	c := newCluster(t)
	require.NoError(t, c.svc.CreateGroup("G", ""))
	ctx := context.Background()
	a, b := c.client("alice"), c.client("bob")
	require.NoError(t, a.Join(ctx, "G", ""))
	require.NoError(t, b.Join(ctx, "G", ""))
	require.Eventually(t, func() bool { return len(a.Peers()) == 1 }, waitFor, tick)

	for _, text := range []string{"first", "second"} {
		_, err := a.Send(ctx, text)
		require.NoError(t, err)
	}

	carol := c.client("carol")
	require.NoError(t, carol.Join(ctx, "G", ""))
	hist := carol.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "first", hist[0].Text)
	assert.Equal(t, "second", hist[1].Text)
	assert.Equal(t, vclock.Clock{2, 0, 0}, carol.Clock(), "catch-up merges without a local event")

	_, err := carol.FetchHistoryFrom(ctx, 7)
	require.ErrorIs(t, err, ErrUnknownPeer)
}

func TestJoinReplaysDiscoveryHistory(t *testing.T) {
	c := newCluster(t)
	require.NoError(t, c.svc.CreateGroup("G", ""))
	ctx := context.Background()
	logging := func(cfg *Config) { cfg.LogToDiscovery = true }

	a := c.client("alice", logging)
	require.NoError(t, a.Join(ctx, "G", ""))
	_, err := a.Send(ctx, "for later")
	require.NoError(t, err)

	var got []string
	b := c.client("bob")
	b.opts.onMessage = func(m chat.Message) { got = append(got, m.Text) }
	require.NoError(t, b.Join(ctx, "G", ""))

	assert.Equal(t, []string{"for later"}, got)
	assert.Equal(t, vclock.Clock{1, 0}, b.Clock())
}

func quietMember(t *testing.T, user string) *Overlay {
	t.Helper()
	return quietMemberOn(t, newMemNet(), user)
}

func quietMemberOn(t *testing.T, net *memNet, user string) *Overlay {
	t.Helper()
	disc := &mockDiscovery{}
	disc.On("EnterGroup", "G", "", user+":1", user).Return(&chat.JoinResult{ProcessID: 0}, nil)
	disc.On("Subscribe", "G", user).Return(&scriptedStream{}, nil)
	disc.On("LeaveGroup", "G", user).Return(nil)

	o, err := New(Config{UserID: user, Addr: user + ":1"}, disc, net)
	require.NoError(t, err)
	net.register(user+":1", o)
	require.NoError(t, o.Join(context.Background(), "G", ""))
	t.Cleanup(func() { _ = o.Leave(context.Background()) })
	return o
}

func TestHandleEventIsIdempotent(t *testing.T) {
	a := quietMember(t, "alice")

	bob := chat.Participant{UserID: "bob", Addr: "bob:7000", ProcessID: 3}
	a.HandleEvent(chat.Event{Kind: chat.EventUserJoined, Participant: bob})
	a.HandleEvent(chat.Event{Kind: chat.EventUserJoined, Participant: bob})
	assert.Equal(t, []chat.Participant{bob}, a.Peers())
	assert.Len(t, a.Clock(), 4, "clock grows to cover the newcomer")

	a.HandleEvent(chat.Event{Kind: chat.EventUserJoined, Participant: chat.Participant{UserID: "alice", Addr: "alice:1", ProcessID: 0}})
	assert.Len(t, a.Peers(), 1, "self is never linked")

	a.HandleEvent(chat.Event{Kind: chat.EventUserLeft, Participant: bob})
	a.HandleEvent(chat.Event{Kind: chat.EventUserLeft, Participant: bob})
	assert.Empty(t, a.Peers())

	carol := chat.Participant{UserID: "carol", Addr: "carol:7000", ProcessID: 1}
	a.HandleEvent(chat.Event{Kind: chat.EventUserJoined, Participant: bob})
	a.HandleEvent(chat.Event{Kind: chat.EventSnapshot, Participants: []chat.Participant{carol}})
	assert.Equal(t, []chat.Participant{carol}, a.Peers())
}

func TestHandleEventReusedIdentityReplacesLink(t *testing.T) {
	a := quietMember(t, "alice")

	bob := chat.Participant{UserID: "bob", Addr: "bob:7000", ProcessID: 1}
	dave := chat.Participant{UserID: "dave", Addr: "dave:7000", ProcessID: 1}
	a.HandleEvent(chat.Event{Kind: chat.EventUserJoined, Participant: bob})
	a.HandleEvent(chat.Event{Kind: chat.EventUserLeft, Participant: dave})
	assert.Equal(t, []chat.Participant{bob}, a.Peers(), "leave of another user keeps the link")

	a.HandleEvent(chat.Event{Kind: chat.EventUserJoined, Participant: dave})
	assert.Equal(t, []chat.Participant{dave}, a.Peers())
}

func TestWatcherResubscribesAndKeepsLinks(t *testing.T) {
	bob := chat.Participant{UserID: "bob", Addr: "bob:1", ProcessID: 1}
	carol := chat.Participant{UserID: "carol", Addr: "carol:1", ProcessID: 2}
	self := chat.Participant{UserID: "alice", Addr: "alice:1", ProcessID: 0}

	disc := &mockDiscovery{}
	disc.On("EnterGroup", "G", "", "alice:1", "alice").
		Return(&chat.JoinResult{ProcessID: 0, Participants: []chat.Participant{bob}}, nil)
	disc.On("Subscribe", "G", "alice").
		Return(&scriptedStream{err: errors.New("stream reset")}, nil).Once()
	disc.On("Subscribe", "G", "alice").
		Return(nil, errors.New("unavailable")).Once()
	disc.On("Subscribe", "G", "alice").
		Return(&scriptedStream{events: []chat.Event{
			{Kind: chat.EventSnapshot, Participants: []chat.Participant{self, bob, carol}},
		}}, nil)
	disc.On("LeaveGroup", "G", "alice").Return(nil)

	net := newMemNet()
	o, err := New(Config{UserID: "alice", Addr: "alice:1"}, disc, net, WithBackOff(fastBackOff))
	require.NoError(t, err)
	net.register("alice:1", o)
	net.register("bob:1", o)

	require.NoError(t, o.Join(context.Background(), "G", ""))

	require.Eventually(t, func() bool { return len(o.Peers()) == 2 }, waitFor, tick)
	assert.Equal(t, []chat.Participant{bob, carol}, o.Peers())
	assert.Equal(t, 1, net.dialCount("bob:1"), "links survive a lost stream")

	require.NoError(t, o.Leave(context.Background()))
	disc.AssertNumberOfCalls(t, "Subscribe", 3)
	disc.AssertCalled(t, "LeaveGroup", "G", "alice")
}

func TestLogToDiscoveryFailureDoesNotFailSend(t *testing.T) {
	disc := &mockDiscovery{}
	disc.On("EnterGroup", "G", "", "alice:1", "alice").Return(&chat.JoinResult{ProcessID: 0}, nil)
	disc.On("Subscribe", "G", "alice").Return(&scriptedStream{}, nil)
	disc.On("LogMessage", "hello").Return(discovery.ErrNotFound)
	disc.On("LeaveGroup", "G", "alice").Return(nil)

	o, err := New(Config{UserID: "alice", Addr: "alice:1", LogToDiscovery: true}, disc, newMemNet())
	require.NoError(t, err)
	require.NoError(t, o.Join(context.Background(), "G", ""))

	report, err := o.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, report.NoRecipients())
	disc.AssertCalled(t, "LogMessage", mock.Anything)
	require.NoError(t, o.Leave(context.Background()))
}

func TestMessageDuringJoinIsQueued(t *testing.T) {
	c := newCluster(t)
	require.NoError(t, c.svc.CreateGroup("G", ""))
	ctx := context.Background()
	a := c.client("alice")
	require.NoError(t, a.Join(ctx, "G", ""))

	var (
		mu   sync.Mutex
		got  []string
		once sync.Once
	)
	disc := gatedDiscovery{
		localDiscovery: localDiscovery{svc: c.svc},
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	release := func() { once.Do(func() { close(disc.release) }) }
	t.Cleanup(release)

	b, err := New(Config{UserID: "bob", Addr: "bob:7000", SendTimeout: 200 * time.Millisecond}, disc, c.net,
		WithBackOff(fastBackOff),
		WithMessageHandler(func(msg chat.Message) {
			mu.Lock()
			got = append(got, msg.Text)
			mu.Unlock()
		}))
	require.NoError(t, err)
	c.net.register("bob:7000", b)

	joined := make(chan error, 1)
	go func() { joined <- b.Join(ctx, "G", "") }()
	<-disc.entered
	require.Eventually(t, func() bool { return len(a.Peers()) == 1 }, waitFor, tick)
	require.Equal(t, StateJoining, b.State())

	report, err := a.Send(ctx, "early")
	require.NoError(t, err)
	require.Len(t, report.Delivered, 1)
	assert.Empty(t, report.Failed)

	release()
	require.NoError(t, <-joined)
	t.Cleanup(func() { _ = b.Leave(context.Background()) })
	assert.Equal(t, StateMember, b.State())
	assert.Equal(t, vclock.Clock{1, 1}, b.Clock())
	assert.Equal(t, []int{1}, peerIDs(a), "the joiner keeps its link")

	report, err = a.Send(ctx, "late")
	require.NoError(t, err)
	require.Len(t, report.Delivered, 1)
	assert.False(t, report.NoRecipients())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"early", "late"}, got)
}

func TestSendKeepsLinkToPeerThatRejects(t *testing.T) {
	net := newMemNet()
	a := quietMemberOn(t, net, "alice")

	lobby, err := New(Config{UserID: "bob", Addr: "bob:1"}, &mockDiscovery{}, net)
	require.NoError(t, err)
	net.register("bob:1", lobby)
	bob := chat.Participant{UserID: "bob", Addr: "bob:1", ProcessID: 1}
	a.HandleEvent(chat.Event{Kind: chat.EventUserJoined, Participant: bob})

	report, err := a.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.Contains(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[1], ErrPeerRejected)
	assert.NotErrorIs(t, report.Failed[1], ErrPeerUnreachable)
	assert.Equal(t, []chat.Participant{bob}, a.Peers())
}

func TestLeaveIsExplicit(t *testing.T) {
	sink := metrics.NewInmemSink(time.Minute, time.Minute)
	c := newCluster(t, discovery.WithMetricSink(sink))
	require.NoError(t, c.svc.CreateGroup("G", ""))
	ctx := context.Background()
	a := c.client("alice")
	require.NoError(t, a.Join(ctx, "G", ""))
	require.NoError(t, a.Leave(ctx))

	ps, err := c.svc.Participants("G")
	require.NoError(t, err)
	assert.Empty(t, ps)
	assert.Equal(t, StateLobby, a.State())

	var leaves, implicit int
	for _, iv := range sink.Data() {
		for k, v := range iv.Counters {
			switch {
			case strings.HasPrefix(k, "groupchat.discovery.leave.implicit"):
				implicit += v.Count
			case strings.HasPrefix(k, "groupchat.discovery.leave.count"):
				leaves += v.Count
			}
		}
	}
	assert.Equal(t, 1, leaves)
	assert.Zero(t, implicit)
}

func TestWithMessageHandlerIgnoresNil(t *testing.T) {
	opts := defaultOptions()
	WithMessageHandler(nil)(&opts)
	require.NotNil(t, opts.onMessage)

	o := quietMember(t, "alice")
	WithMessageHandler(nil)(&o.opts)
	require.NoError(t, o.ReceiveDirectMessage(chat.NewMessage("G", "bob", 1, "hi", vclock.Clock{0, 1})))
	assert.Len(t, o.History(), 1)
}
