// Package activity answers whether the local user is currently at the keyboard.
package activity

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const cacheDuration = 10 * time.Second

// Detector reports whether the user has produced input within the idle threshold.
type Detector interface {
	IsUserActive(threshold time.Duration) bool
}

// IdleSource returns how long the user has been idle.
type IdleSource interface {
	IdleTime() (time.Duration, error)
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its standard output.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// XPrintIdleSource reads the X11 idle time in milliseconds from xprintidle.
type XPrintIdleSource struct {
	executor CommandExecutor
}

// NewXPrintIdleSource creates an idle source backed by the given executor.
func NewXPrintIdleSource(executor CommandExecutor) *XPrintIdleSource {
	return &XPrintIdleSource{executor: executor}
}

// IdleTime returns the idle time reported by xprintidle.
func (s *XPrintIdleSource) IdleTime() (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	output, err := s.executor.Execute(ctx, "xprintidle")
	if err != nil {
		return 0, fmt.Errorf("failed to run xprintidle: %w", err)
	}

	ms, err := strconv.ParseInt(strings.TrimSpace(string(output)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse xprintidle output %q: %w", string(output), err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Impl implements Detector on top of an IdleSource, caching answers for ten seconds.
type Impl struct {
	source IdleSource
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	lastCheck time.Time
	lastIdle  time.Duration
	lastErr   error
	cacheFor  time.Duration
}

// New creates a detector for the current platform.
func New(logger zerolog.Logger) *Impl {
	return NewWithSource(logger, platformSource(), time.Now)
}

// NewWithSource creates a detector with a custom idle source and clock (for testing).
func NewWithSource(logger zerolog.Logger, source IdleSource, now func() time.Time) *Impl {
	return &Impl{
		source:   source,
		logger:   logger,
		now:      now,
		cacheFor: cacheDuration,
	}
}

// IsUserActive reports whether the idle time is below threshold. When the idle time
// cannot be determined the user is assumed active.
func (d *Impl) IsUserActive(threshold time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.lastCheck.IsZero() || now.Sub(d.lastCheck) >= d.cacheFor {
		d.lastIdle, d.lastErr = d.source.IdleTime()
		d.lastCheck = now
		if d.lastErr != nil {
			d.logger.Error().Err(d.lastErr).Msg("failed to get last input info")
		}
	}

	if d.lastErr != nil {
		return true
	}
	active := d.lastIdle < threshold
	d.logger.Debug().Dur("idle", d.lastIdle).Dur("threshold", threshold).Bool("active", active).Msg("checked user activity")
	return active
}
