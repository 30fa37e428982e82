package discovery

import (
	"sort"
	"sync"

	"groupchat/internal/chat"
	"groupchat/internal/history"
)

// group is one chat group. Every field below mu is guarded by it.
type group struct {
	id       string
	password string

	mu           sync.Mutex
	slots        []bool
	participants map[string]chat.Participant
	subs         map[string]*Subscription
	history      *history.Log
}

func newGroup(id, password string, size, historySize int) *group {
	return &group{
		id:           id,
		password:     password,
		slots:        make([]bool, size),
		participants: make(map[string]chat.Participant),
		subs:         make(map[string]*Subscription),
		history:      history.New(historySize),
	}
}

// acquireSlot returns the lowest free identity, or -1 if the group is full.
func (g *group) acquireSlot() int {
	for i, used := range g.slots {
		if !used {
			g.slots[i] = true
			return i
		}
	}
	return -1
}

func (g *group) releaseSlot(i int) {
	if i >= 0 && i < len(g.slots) {
		g.slots[i] = false
	}
}

// participantsLocked returns the current members ordered by identity.
func (g *group) participantsLocked() []chat.Participant {
	out := make([]chat.Participant, 0, len(g.participants))
	for _, p := range g.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProcessID < out[j].ProcessID })
	return out
}
