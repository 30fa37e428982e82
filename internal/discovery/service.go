package discovery

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-metrics"

	"groupchat/internal/chat"
)

// Service is the discovery registry. It is safe for concurrent use.
type Service struct {
	cfg config

	mu     sync.RWMutex
	groups map[string]*group
	closed bool
}

// New returns an empty registry.
func New(opts ...Option) *Service {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Service{
		cfg:    cfg,
		groups: make(map[string]*group),
	}
}

// MaxGroupSize returns the identity pool size shared by every group.
func (s *Service) MaxGroupSize() int { return s.cfg.maxGroupSize }

func (s *Service) lookup(id string) (*group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return g, nil
}

// CreateGroup registers a new group. An empty password means anyone may
// enter.
func (s *Service) CreateGroup(id, password string) error {
	if id == "" {
		return ErrInvalidGroupID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.groups[id]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, id)
	}
	s.groups[id] = newGroup(id, password, s.cfg.maxGroupSize, s.cfg.historySize)
	s.incr(MetricGroupsCreated, id)
	s.cfg.logger.Info("group created", "group", id, "protected", password != "")
	return nil
}

// ListGroups returns the group IDs in lexical order.
func (s *Service) ListGroups() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.groups))
	for id := range s.groups {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// EnterGroup admits userID into the group and assigns it the lowest free
// process identity. The returned participants and history are captured in
// the same critical section that announces the newcomer, so every
// participant either appears in the snapshot or will announce itself later.
func (s *Service) EnterGroup(id, password, addr, userID string) (*chat.JoinResult, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	g, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.password != "" && g.password != password {
		s.reject(id, "wrong_password")
		return nil, ErrWrongPassword
	}
	if _, ok := g.participants[userID]; ok {
		s.reject(id, "already_joined")
		return nil, fmt.Errorf("%w: %q", ErrAlreadyJoined, userID)
	}
	pid := g.acquireSlot()
	if pid < 0 {
		s.reject(id, "full")
		return nil, ErrGroupFull
	}

	res := &chat.JoinResult{
		ProcessID:    pid,
		Participants: g.participantsLocked(),
		History:      g.history.Snapshot(),
	}
	p := chat.Participant{UserID: userID, Addr: addr, ProcessID: pid}
	s.broadcastLocked(g, chat.Event{Kind: chat.EventUserJoined, Participant: p}, userID)
	g.participants[userID] = p

	s.incr(MetricJoins, id)
	s.cfg.logger.Info("user joined", "group", id, "user", userID, "process_id", pid, "peer", addr)
	return res, nil
}

func (s *Service) reject(groupID, reason string) {
	s.incr(MetricJoinsRejected, groupID, metrics.Label{Name: labelReason, Value: reason})
}

// LeaveGroup removes userID from the group, frees its identity and closes
// its subscription. Leaving a group one is not in is a no-op.
func (s *Service) LeaveGroup(id, userID string) error {
	g, err := s.lookup(id)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	s.leaveLocked(g, userID, false)
	return nil
}

func (s *Service) leaveLocked(g *group, userID string, implicit bool) {
	if sub, ok := g.subs[userID]; ok {
		delete(g.subs, userID)
		sub.closeLocked()
		s.gauge(MetricSubscribers, g.id, len(g.subs))
	}
	p, ok := g.participants[userID]
	if !ok {
		return
	}
	delete(g.participants, userID)
	g.releaseSlot(p.ProcessID)
	s.broadcastLocked(g, chat.Event{Kind: chat.EventUserLeft, Participant: p}, userID)

	s.incr(MetricLeaves, g.id)
	if implicit {
		s.incr(MetricImplicitLeaves, g.id)
	}
	s.cfg.logger.Info("user left", "group", g.id, "user", userID, "process_id", p.ProcessID, "implicit", implicit)
}

// Subscribe opens a membership event stream for userID. The first event is
// a snapshot of the current participants. A newer subscription for the same
// user replaces the older one, whose channel is closed without a leave.
func (s *Service) Subscribe(id, userID string) (*Subscription, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	g, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.subs[userID]; ok {
		old.closeLocked()
		s.cfg.logger.Debug("subscription replaced", "group", id, "user", userID)
	}
	sub := &Subscription{
		svc:    s,
		group:  g,
		userID: userID,
		ch:     make(chan chat.Event, s.cfg.eventBuffer),
	}
	sub.ch <- chat.Event{Kind: chat.EventSnapshot, Participants: g.participantsLocked()}
	g.subs[userID] = sub
	s.gauge(MetricSubscribers, id, len(g.subs))
	return sub, nil
}

// broadcastLocked delivers ev to every subscriber except skip. A full queue
// drops the event for that subscriber only.
func (s *Service) broadcastLocked(g *group, ev chat.Event, skip string) {
	for uid, sub := range g.subs {
		if uid == skip {
			continue
		}
		if !sub.offerLocked(ev) {
			s.incr(MetricEventsDropped, g.id)
			s.cfg.logger.Warn("event dropped, subscriber queue full",
				"group", g.id, "user", uid, "event", ev.Kind.String())
		}
	}
}

// LogMessage appends msg to its group's history.
func (s *Service) LogMessage(msg chat.Message) error {
	g, err := s.lookup(msg.GroupID)
	if err != nil {
		return err
	}
	g.mu.Lock()
	added := g.history.Append(msg)
	g.mu.Unlock()
	if added {
		s.incr(MetricMessagesLogged, g.id)
	}
	return nil
}

// Participants returns the members of a group ordered by identity.
func (s *Service) Participants(id string) ([]chat.Participant, error) {
	g, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.participantsLocked(), nil
}

// History returns the recent messages of a group, oldest first.
func (s *Service) History(id string) ([]chat.Message, error) {
	g, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.history.Snapshot(), nil
}

// Close ends every open subscription and rejects further calls. Users stay
// registered until their subscription is closed by its owner.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	groups := make([]*group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	s.mu.Unlock()

	for _, g := range groups {
		g.mu.Lock()
		for _, sub := range g.subs {
			sub.closeLocked()
		}
		g.mu.Unlock()
	}
	s.cfg.logger.Info("discovery service closed", "groups", len(groups))
}
