package history

import (
	"sync"

	"github.com/google/uuid"

	"groupchat/internal/chat"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 50

// Log is a fixed-capacity ring of messages. It's thread-safe and hands out
// copies so callers never alias stored clocks.
type Log struct {
	mu    sync.RWMutex
	buf   []chat.Message
	start int // index of the oldest message
	size  int
	ids   map[uuid.UUID]struct{}
}

// New creates an empty log holding at most capacity messages.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		buf: make([]chat.Message, capacity),
		ids: make(map[uuid.UUID]struct{}, capacity),
	}
}

// Append stores a copy of msg, evicting the oldest message when full.
// It returns false without storing anything if a message with the same
// non-nil ID is already held.
func (l *Log) Append(msg chat.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if msg.ID != uuid.Nil {
		if _, dup := l.ids[msg.ID]; dup {
			return false
		}
	}

	if l.size == len(l.buf) {
		evicted := l.buf[l.start]
		delete(l.ids, evicted.ID)
		l.buf[l.start] = msg.Clone()
		l.start = (l.start + 1) % len(l.buf)
	} else {
		l.buf[(l.start+l.size)%len(l.buf)] = msg.Clone()
		l.size++
	}

	if msg.ID != uuid.Nil {
		l.ids[msg.ID] = struct{}{}
	}
	return true
}

// Contains reports whether a message with the given ID is held.
func (l *Log) Contains(id uuid.UUID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

// Snapshot returns the held messages, oldest first.
func (l *Log) Snapshot() []chat.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]chat.Message, 0, l.size)
	for i := 0; i < l.size; i++ {
		out = append(out, l.buf[(l.start+i)%len(l.buf)].Clone())
	}
	return out
}

// Len returns the number of held messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Cap returns the maximum number of messages the log keeps.
func (l *Log) Cap() int {
	return len(l.buf)
}
