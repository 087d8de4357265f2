package engine

import (
	"sync"
	"time"

	"github.com/fgeck/nasboot/internal/models"
)

// Status is a snapshot of the published client state.
type Status struct {
	State           models.ClientState
	UpdatedAt       time.Time
	LastHeartbeat   time.Time
	LastWakeAttempt time.Time
}

// StateCell is the single-writer, multi-reader home of the client state.
// The lock is never held across I/O.
type StateCell struct {
	mu       sync.Mutex
	status   Status
	watchers []chan models.ClientState
}

// NewStateCell creates a cell in the Unknown state.
func NewStateCell(now time.Time) *StateCell {
	return &StateCell{status: Status{State: models.StateUnknown, UpdatedAt: now}}
}

// Snapshot returns a copy of the current status.
func (c *StateCell) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Publish stores next unconditionally and notifies watchers only when it differs
// from the previous state. It reports whether the state changed.
func (c *StateCell) Publish(next models.ClientState, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := c.status.State != next
	c.status.State = next
	c.status.UpdatedAt = at

	if changed {
		for _, w := range c.watchers {
			// Keep only the latest value for slow consumers.
			select {
			case <-w:
			default:
			}
			w <- next
		}
	}
	return changed
}

// RecordHeartbeat stores the time of the last successful heartbeat.
func (c *StateCell) RecordHeartbeat(at time.Time) {
	c.mu.Lock()
	c.status.LastHeartbeat = at
	c.mu.Unlock()
}

// RecordWakeAttempt stores the time of the last wake attempt.
func (c *StateCell) RecordWakeAttempt(at time.Time) {
	c.mu.Lock()
	c.status.LastWakeAttempt = at
	c.mu.Unlock()
}

// Watch returns a channel that receives the new state after every change.
// Only the most recent change is buffered.
func (c *StateCell) Watch() <-chan models.ClientState {
	ch := make(chan models.ClientState, 1)
	c.mu.Lock()
	c.watchers = append(c.watchers, ch)
	c.mu.Unlock()
	return ch
}
