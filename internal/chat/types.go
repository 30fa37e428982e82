// Package chat holds the domain types shared by the discovery service and the
// peer overlay.
package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"groupchat/internal/vclock"
)

// Message is a chat message stamped with its sender's vector clock.
// Treat it as immutable once built; use Clone before handing it to code that
// may keep it.
type Message struct {
	ID            uuid.UUID
	GroupID       string
	SenderID      string
	SenderProcess int
	Text          string
	Clock         vclock.Clock
	SentAt        time.Time
}

// NewMessage builds a message with a fresh ID. The clock is copied.
func NewMessage(groupID, senderID string, senderProcess int, text string, clock vclock.Clock) Message {
	return Message{
		ID:            uuid.New(),
		GroupID:       groupID,
		SenderID:      senderID,
		SenderProcess: senderProcess,
		Text:          text,
		Clock:         clock.Copy(),
		SentAt:        time.Now(),
	}
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	m.Clock = m.Clock.Copy()
	return m
}

func (m Message) String() string {
	return fmt.Sprintf("%s@%s p%d %s: %q", m.SenderID, m.GroupID, m.SenderProcess, m.Clock, m.Text)
}

// Participant is a group member as known by the discovery service.
type Participant struct {
	UserID    string
	Addr      string
	ProcessID int
}

// EventKind tags a membership event.
type EventKind int

const (
	EventUserJoined EventKind = iota
	EventUserLeft
	// EventSnapshot is the first event of every subscription and carries the
	// full participant list at registration time.
	EventSnapshot
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	switch k {
	case EventUserJoined:
		return "USER_JOINED"
	case EventUserLeft:
		return "USER_LEFT"
	case EventSnapshot:
		return "SNAPSHOT"
	default:
		return "UNKNOWN"
	}
}

// Event is a membership change broadcast to group subscribers.
type Event struct {
	Kind         EventKind
	Participant  Participant
	Participants []Participant
}

// JoinResult is what a client learns when entering a group.
type JoinResult struct {
	ProcessID    int
	Participants []Participant
	History      []Message
}

// EventStream yields membership events until the stream breaks or its
// context is cancelled.
type EventStream interface {
	Recv() (Event, error)
}
