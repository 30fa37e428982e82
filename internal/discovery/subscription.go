package discovery

import (
	"sync"

	"groupchat/internal/chat"
)

// Subscription is one client's view of a group's membership events.
type Subscription struct {
	svc    *Service
	group  *group
	userID string
	ch     chan chat.Event

	once   sync.Once
	closed bool // guarded by group.mu
}

// Events returns the event channel. The first value is always an
// EventSnapshot. The channel is closed when the subscription ends, is
// replaced by a newer one for the same user, or the service shuts down.
func (s *Subscription) Events() <-chan chat.Event {
	return s.ch
}

// GroupID returns the group the subscription belongs to.
func (s *Subscription) GroupID() string { return s.group.id }

// UserID returns the subscribing user.
func (s *Subscription) UserID() string { return s.userID }

// Close ends the subscription. If it is still the user's registered
// subscription the user leaves the group, since a lost stream means a lost
// client. Close is idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		g := s.group
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.subs[s.userID] == s {
			s.svc.leaveLocked(g, s.userID, true)
		}
		s.closeLocked()
	})
}

func (s *Subscription) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// offerLocked queues ev without blocking. It reports false if the
// subscriber's queue is full and the event was dropped.
func (s *Subscription) offerLocked(ev chat.Event) bool {
	if s.closed {
		return true
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}
