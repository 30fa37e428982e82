package vclock

import (
	"fmt"
	"sync"
)

// Manager owns the causal clock of one process. It is safe for concurrent
// use by the send path and the receive path of the same client.
type Manager struct {
	mu        sync.Mutex
	processID int
	clock     Clock
}

// NewManager creates a zeroed clock of the given size for processID.
func NewManager(processID, size int) (*Manager, error) {
	if processID < 0 || processID >= size {
		return nil, fmt.Errorf("%w: id=%d size=%d", ErrInvalidIdentity, processID, size)
	}
	return &Manager{
		processID: processID,
		clock:     make(Clock, size),
	}, nil
}

// ProcessID returns the slot owned by this manager.
func (m *Manager) ProcessID() int {
	return m.processID
}

// Len returns the number of slots currently tracked.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clock)
}

// Increment advances the local slot and returns the resulting snapshot.
func (m *Manager) Increment() Clock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock[m.processID]++
	return m.clock.Copy()
}

// Merge absorbs remote into the local clock without counting a local event.
// A longer remote grows the local clock first; a shorter one only merges
// over the shared prefix.
func (m *Manager) Merge(remote Clock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeLocked(remote)
}

// Update merges remote and then increments: receiving a message is itself a
// local event. It returns the resulting snapshot.
func (m *Manager) Update(remote Clock) Clock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeLocked(remote)
	m.clock[m.processID]++
	return m.clock.Copy()
}

// MergeWithoutIncrement is Merge under the name used by history replay, where
// absorbing past messages must not manufacture a new causal event.
func (m *Manager) MergeWithoutIncrement(remote Clock) {
	m.Merge(remote)
}

// Snapshot returns a copy of the current clock.
func (m *Manager) Snapshot() Clock {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.Copy()
}

// HappenedBefore reports whether the local clock happened before other.
func (m *Manager) HappenedBefore(other Clock) (bool, error) {
	return HappenedBefore(m.Snapshot(), other)
}

func (m *Manager) String() string {
	return fmt.Sprintf("p%d%s", m.processID, m.Snapshot())
}

// mergeLocked must be called with m.mu held.
func (m *Manager) mergeLocked(remote Clock) {
	if len(remote) > len(m.clock) {
		m.clock = m.clock.Grow(len(remote))
	}
	mergeInto(m.clock, remote)
}
