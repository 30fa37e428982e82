package overlay

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"groupchat/internal/chat"
	"groupchat/internal/history"
	"groupchat/internal/vclock"
)

// Discovery is the part of the discovery service the overlay depends on.
type Discovery interface {
	EnterGroup(ctx context.Context, groupID, password, addr, userID string) (*chat.JoinResult, error)
	LeaveGroup(ctx context.Context, groupID, userID string) error
	Subscribe(ctx context.Context, groupID, userID string) (chat.EventStream, error)
	LogMessage(ctx context.Context, msg chat.Message) error
}

// Dialer opens links to other peers.
type Dialer interface {
	Dial(addr string) (PeerConn, error)
}

// PeerConn is a direct connection to one peer.
type PeerConn interface {
	SendDirectMessage(ctx context.Context, msg chat.Message) error
	// FetchHistory streams the peer's local history, calling fn for each
	// message in the order the peer holds them.
	FetchHistory(ctx context.Context, fn func(chat.Message) error) error
	Close() error
}

// State is the membership state of a client.
type State int

const (
	StateLobby State = iota
	StateJoining
	StateMember
)

func (s State) String() string {
	switch s {
	case StateLobby:
		return "LOBBY"
	case StateJoining:
		return "JOINING"
	case StateMember:
		return "MEMBER"
	default:
		return "UNKNOWN"
	}
}

type link struct {
	peer chat.Participant
	conn PeerConn
}

// Overlay is one user's connection to a group. It is safe for concurrent
// use: the membership watcher, the inbound peer server and the application
// send path all run against it at once.
type Overlay struct {
	cfg    Config
	opts   options
	disc   Discovery
	dialer Dialer

	// sendMu serializes Send so that every peer sees our messages in the
	// order we sent them.
	sendMu sync.Mutex

	mu          sync.Mutex
	state       State
	groupID     string
	identity    int
	links       map[int]*link
	clock       *vclock.Manager
	history     *history.Log
	stopWatch   context.CancelFunc
	watcherDone chan struct{}
	// pending holds direct messages that arrived while joining.
	pending []chat.Message
	leaving bool
}

// New creates an overlay in the lobby state.
func New(cfg Config, disc Discovery, dialer Dialer, opts ...Option) (*Overlay, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := &Overlay{
		cfg:      cfg,
		opts:     defaultOptions(),
		disc:     disc,
		dialer:   dialer,
		identity: -1,
		history:  history.New(cfg.HistorySize),
	}
	for _, opt := range opts {
		opt(&o.opts)
	}
	o.opts.logger = o.opts.logger.With("user", cfg.UserID)
	return o, nil
}

// Join enters groupID, connects to the members already in it and starts
// following membership events.
func (o *Overlay) Join(ctx context.Context, groupID, password string) error {
	o.mu.Lock()
	if o.state != StateLobby {
		o.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrAlreadyInGroup, o.groupID)
	}
	o.state = StateJoining
	o.groupID = groupID
	o.pending = nil
	o.mu.Unlock()

	res, err := o.disc.EnterGroup(ctx, groupID, password, o.cfg.Addr, o.cfg.UserID)
	if err != nil {
		o.abortJoin()
		return fmt.Errorf("enter group %q: %w", groupID, err)
	}

	size := res.ProcessID + 1
	for _, p := range res.Participants {
		if p.ProcessID+1 > size {
			size = p.ProcessID + 1
		}
	}
	clk, err := vclock.NewManager(res.ProcessID, size)
	if err != nil {
		o.abortJoin()
		return err
	}
	hist := history.New(o.cfg.HistorySize)
	for _, msg := range res.History {
		clk.MergeWithoutIncrement(msg.Clock)
		hist.Append(msg)
	}

	links := make(map[int]*link, len(res.Participants))
	for _, p := range res.Participants {
		if p.ProcessID == res.ProcessID || p.UserID == o.cfg.UserID {
			continue
		}
		conn, err := o.dialer.Dial(p.Addr)
		if err != nil {
			o.opts.logger.Warn("failed to open peer link", "group", groupID, "peer", p.UserID, "addr", p.Addr, "error", err)
			continue
		}
		links[p.ProcessID] = &link{peer: p, conn: conn}
	}

	watchCtx, stop := context.WithCancel(context.Background())
	o.mu.Lock()
	o.identity = res.ProcessID
	o.clock = clk
	o.history = hist
	o.links = links
	o.stopWatch = stop
	o.watcherDone = make(chan struct{})
	done := o.watcherDone
	o.mu.Unlock()
	o.gauge(MetricLinks, len(links))

	for _, msg := range res.History {
		o.opts.onMessage(msg)
	}
	queued := o.becomeMember(clk, hist)

	o.opts.logger.Info("joined group", "group", groupID, "process_id", res.ProcessID,
		"peers", len(links), "history", len(res.History), "queued", queued)

	if len(res.History) == 0 {
		if id, ok := o.lowestPeer(); ok {
			if _, err := o.FetchHistoryFrom(ctx, id); err != nil {
				o.opts.logger.Warn("history catch-up failed", "group", groupID, "process_id", id, "error", err)
			}
		}
	}

	stream, err := o.disc.Subscribe(watchCtx, groupID, o.cfg.UserID)
	if err != nil {
		o.opts.logger.Warn("membership subscription failed, will retry", "group", groupID, "error", err)
		stream = nil
	}
	go o.watch(watchCtx, done, groupID, stream)
	return nil
}

// becomeMember absorbs the messages queued while joining and then moves to
// StateMember. Messages arriving meanwhile keep queuing, so they are handed
// over in arrival order. It returns how many were absorbed.
func (o *Overlay) becomeMember(clk *vclock.Manager, hist *history.Log) int {
	n := 0
	for {
		o.mu.Lock()
		batch := o.pending
		o.pending = nil
		if len(batch) == 0 {
			o.state = StateMember
			o.mu.Unlock()
			return n
		}
		o.mu.Unlock()
		for _, msg := range batch {
			o.absorb(clk, hist, msg)
		}
		n += len(batch)
	}
}

func (o *Overlay) abortJoin() {
	o.mu.Lock()
	o.state = StateLobby
	o.groupID = ""
	o.pending = nil
	o.mu.Unlock()
}

// Leave tells discovery, stops following the group and closes every link.
// Discovery hears the explicit leave before the event stream goes away.
func (o *Overlay) Leave(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateMember || o.leaving {
		o.mu.Unlock()
		return ErrNotInGroup
	}
	o.leaving = true
	groupID := o.groupID
	stop, done := o.stopWatch, o.watcherDone
	o.mu.Unlock()

	err := o.disc.LeaveGroup(ctx, groupID, o.cfg.UserID)

	stop()
	<-done

	o.mu.Lock()
	links := o.links
	o.links = nil
	o.stopWatch = nil
	o.watcherDone = nil
	o.state = StateLobby
	o.groupID = ""
	o.identity = -1
	o.leaving = false
	o.mu.Unlock()

	for _, l := range links {
		o.closeLink(l)
	}
	o.gauge(MetricLinks, 0)

	o.opts.logger.Info("left group", "group", groupID)
	if err != nil {
		return fmt.Errorf("leave group %q: %w", groupID, err)
	}
	return nil
}

func (o *Overlay) isLeaving() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.leaving
}

func (o *Overlay) closeLink(l *link) {
	if err := l.conn.Close(); err != nil {
		o.opts.logger.Debug("closing peer link", "peer", l.peer.UserID, "error", err)
	}
}

func (o *Overlay) lowestPeer() (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	lowest, found := 0, false
	for id := range o.links {
		if !found || id < lowest {
			lowest, found = id, true
		}
	}
	return lowest, found
}

// State returns the current membership state.
func (o *Overlay) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Identity returns the process identity in the current group, or -1.
func (o *Overlay) Identity() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.identity
}

// GroupID returns the current group, or "".
func (o *Overlay) GroupID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.groupID
}

// Clock returns a copy of the local vector clock, or nil outside a group.
func (o *Overlay) Clock() vclock.Clock {
	o.mu.Lock()
	clk := o.clock
	member := o.state == StateMember
	o.mu.Unlock()
	if !member || clk == nil {
		return nil
	}
	return clk.Snapshot()
}

// History returns the locally held messages, oldest first. It keeps the
// last group's history after leaving.
func (o *Overlay) History() []chat.Message {
	o.mu.Lock()
	hist := o.history
	o.mu.Unlock()
	return hist.Snapshot()
}

// Peers returns the peers with a live link, ordered by identity.
func (o *Overlay) Peers() []chat.Participant {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]chat.Participant, 0, len(o.links))
	for _, l := range o.links {
		out = append(out, l.peer)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProcessID < out[j].ProcessID })
	return out
}

// Config returns the configuration the overlay runs with.
func (o *Overlay) Config() Config {
	return o.cfg
}
