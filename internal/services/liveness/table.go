// Package liveness tracks which clients have recently sent a heartbeat.
package liveness

import (
	"sort"
	"sync"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/rs/zerolog"
)

// Tracker defines the liveness operations used by the API and the arbiter.
type Tracker interface {
	Record(hostname string, at time.Time)
	Sweep(now time.Time) bool
	Snapshot() []models.LiveClient
	Len() int
}

// Table maps hostname to the time its last heartbeat was received.
// Every operation holds the lock for the duration of a map access only.
type Table struct {
	mu      sync.Mutex
	clients map[string]time.Time
	timeout time.Duration
	logger  zerolog.Logger
}

// New creates an empty table evicting clients silent for at least timeout.
func New(logger zerolog.Logger, timeout time.Duration) *Table {
	return &Table{
		clients: make(map[string]time.Time),
		timeout: timeout,
		logger:  logger,
	}
}

// Record upserts the last-seen time for hostname. Repeating it is idempotent
// apart from refreshing the timestamp.
func (t *Table) Record(hostname string, at time.Time) {
	t.mu.Lock()
	_, known := t.clients[hostname]
	t.clients[hostname] = at.UTC()
	t.mu.Unlock()

	if !known {
		t.logger.Info().Str("hostname", hostname).Msg("client registered")
	}
}

// Sweep removes every client whose age is at least the timeout and reports
// whether any client survived.
func (t *Table) Sweep(now time.Time) bool {
	var evicted []string

	t.mu.Lock()
	for host, seen := range t.clients {
		if now.Sub(seen) >= t.timeout {
			delete(t.clients, host)
			evicted = append(evicted, host)
		}
	}
	anyActive := len(t.clients) > 0
	t.mu.Unlock()

	sort.Strings(evicted)
	for _, host := range evicted {
		t.logger.Info().Str("hostname", host).Dur("timeout", t.timeout).Msg("client timed out")
	}
	return anyActive
}

// Snapshot returns the live clients sorted by hostname.
func (t *Table) Snapshot() []models.LiveClient {
	t.mu.Lock()
	out := make([]models.LiveClient, 0, len(t.clients))
	for host, seen := range t.clients {
		out = append(out, models.LiveClient{Hostname: host, LastSeen: seen})
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Hostname < out[j].Hostname })
	return out
}

// Len returns the number of tracked clients.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}
