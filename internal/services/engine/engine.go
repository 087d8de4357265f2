// Package engine runs the client's periodic wake/heartbeat decision loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/fgeck/nasboot/internal/services/activity"
	"github.com/fgeck/nasboot/internal/services/heartbeat"
	"github.com/fgeck/nasboot/internal/services/wol"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a manual trigger arrives too soon after the previous one.
var ErrRateLimited = errors.New("manual trigger rate limited")

const manualTriggerEvery = 2 * time.Second

// Engine combines user activity, wake mode, heartbeats and Wake-on-LAN into
// one serialized tick loop.
type Engine struct {
	detector activity.Detector
	wolSvc   wol.Service
	hbSvc    heartbeat.Service
	logger   zerolog.Logger
	now      func() time.Time

	cfgMu sync.Mutex
	cfg   models.ClientConfig

	cell    *StateCell
	trigger chan struct{}
	limiter *rate.Limiter
}

// New creates an engine wired to the platform activity detector and real network services.
func New(logger zerolog.Logger, cfg models.ClientConfig) *Engine {
	return NewWithServices(logger, cfg, activity.New(logger), wol.New(logger), heartbeat.New(logger), time.Now)
}

// NewWithServices creates an engine with custom collaborators (for testing).
func NewWithServices(
	logger zerolog.Logger,
	cfg models.ClientConfig,
	detector activity.Detector,
	wolSvc wol.Service,
	hbSvc heartbeat.Service,
	now func() time.Time,
) *Engine {
	return &Engine{
		detector: detector,
		wolSvc:   wolSvc,
		hbSvc:    hbSvc,
		logger:   logger,
		now:      now,
		cfg:      cfg,
		cell:     NewStateCell(now()),
		trigger:  make(chan struct{}, 1),
		limiter:  rate.NewLimiter(rate.Every(manualTriggerEvery), 1),
	}
}

// Config returns the configuration currently in effect.
func (e *Engine) Config() models.ClientConfig {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	return e.cfg
}

// SetConfig replaces the configuration; it takes effect on the next tick.
func (e *Engine) SetConfig(cfg models.ClientConfig) {
	e.cfgMu.Lock()
	old := e.cfg
	e.cfg = cfg
	e.cfgMu.Unlock()

	if old.WakeMode != cfg.WakeMode {
		e.logger.Info().Str("from", old.WakeMode.String()).Str("to", cfg.WakeMode.String()).Msg("wake mode changed")
	}
}

// Status returns the latest published status.
func (e *Engine) Status() Status {
	return e.cell.Snapshot()
}

// Watch returns a channel receiving state changes.
func (e *Engine) Watch() <-chan models.ClientState {
	return e.cell.Watch()
}

// TriggerCheck asks the run loop to tick now. It returns false when rate limited.
func (e *Engine) TriggerCheck() bool {
	if !e.limiter.Allow() {
		return false
	}
	select {
	case e.trigger <- struct{}{}:
	default:
	}
	return true
}

// WakeNow sends a magic packet immediately, independent of wake mode and state.
func (e *Engine) WakeNow(ctx context.Context) (*models.WakeResult, error) {
	if !e.limiter.Allow() {
		return nil, ErrRateLimited
	}
	cfg := e.Config()
	result, err := e.wolSvc.Wake(ctx, cfg.WakeConfig())
	if err != nil {
		return nil, fmt.Errorf("WOL failed: %w", err)
	}
	e.cell.RecordWakeAttempt(e.now())
	return result, nil
}

// Run ticks immediately and then on every check interval until ctx is cancelled.
// It returns nil on cancellation and an error only for configuration faults.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.Config().CheckInterval
	e.logger.Info().Dur("interval", interval).Msg("starting wake engine")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := e.Tick(ctx); err != nil && ctx.Err() == nil {
			return err
		}

		if next := e.Config().CheckInterval; next != interval && next > 0 {
			interval = next
			ticker.Reset(interval)
			e.logger.Info().Dur("interval", interval).Msg("check interval changed")
		}

		select {
		case <-ctx.Done():
			e.logger.Info().Str("state", e.Status().State.String()).Msg("wake engine stopped")
			return nil
		case <-ticker.C:
		case <-e.trigger:
			e.logger.Debug().Msg("manual check triggered")
		}
	}
}

// Tick runs one evaluation and publishes the resulting state.
func (e *Engine) Tick(ctx context.Context) (models.ClientState, error) {
	cfg := e.Config()

	active := e.detector.IsUserActive(cfg.IdleThreshold)
	need := cfg.WakeMode.NeedsDevice(active)

	e.logger.Debug().
		Bool("user_active", active).
		Str("wake_mode", cfg.WakeMode.String()).
		Bool("need_device", need).
		Msg("evaluated device need")

	next := models.StateIdle
	if need {
		var err error
		next, err = e.assertNeed(ctx, cfg)
		if err != nil {
			return e.Status().State, err
		}
	}

	at := e.now()
	if e.cell.Publish(next, at) {
		e.logger.Info().Str("state", next.String()).Msg("client state changed")
	}
	return next, nil
}

// assertNeed heartbeats the server and falls back to waking the device.
func (e *Engine) assertNeed(ctx context.Context, cfg models.ClientConfig) (models.ClientState, error) {
	hb, err := e.hbSvc.Send(ctx, cfg.HeartbeatURL, cfg.Hostname, cfg.HeartbeatTimeout)
	if err != nil {
		e.logger.Error().Err(err).Msg("could not build heartbeat request")
	}
	if ctx.Err() != nil {
		return models.StateUnknown, ctx.Err()
	}
	if err == nil && hb.Delivered {
		e.cell.RecordHeartbeat(e.now())
		return models.StateNasReady, nil
	}

	if _, err := e.wolSvc.Wake(ctx, cfg.WakeConfig()); err != nil {
		if errors.Is(err, wol.ErrInvalidMAC) {
			return models.StateUnknown, fmt.Errorf("wake transport: %w", err)
		}
		e.logger.Warn().Err(err).Msg("WOL failed")
	}
	e.cell.RecordWakeAttempt(e.now())
	return models.StateWakeUp, nil
}
