// Package arbiter decides when the NAS may power itself off.
package arbiter

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/fgeck/nasboot/internal/services/liveness"
	"github.com/fgeck/nasboot/internal/services/power"
	"github.com/fgeck/nasboot/internal/services/telegram"
	"github.com/fgeck/nasboot/internal/services/veto"
	"github.com/rs/zerolog"
)

const notifyTimeout = 10 * time.Second

// Status is a snapshot of the shutdown countdown.
type Status struct {
	PendingSince *time.Time `json:"pending_shutdown_since,omitempty"`
	PoweredOff   bool       `json:"powered_off"`
}

// Impl runs the debounced shutdown decision once per sweep tick.
type Impl struct {
	tracker     liveness.Tracker
	vetoSvc     veto.Service
	powerSvc    power.Service
	telegramSvc telegram.Service
	cfg         models.ServerConfig
	host        string
	logger      zerolog.Logger
	now         func() time.Time

	mu      sync.Mutex
	pending *time.Time
	done    bool
}

// New creates an arbiter with real veto, power and notification services.
func New(logger zerolog.Logger, cfg models.ServerConfig, tracker liveness.Tracker) *Impl {
	return NewWithServices(
		logger,
		cfg,
		tracker,
		veto.New(logger, cfg.KeepaliveFile, cfg.BackupProcessPattern),
		power.New(logger),
		telegram.New(logger),
		time.Now,
	)
}

// NewWithServices creates an arbiter with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	cfg models.ServerConfig,
	tracker liveness.Tracker,
	vetoSvc veto.Service,
	powerSvc power.Service,
	telegramSvc telegram.Service,
	now func() time.Time,
) *Impl {
	host, err := os.Hostname()
	if err != nil {
		host = "nas"
	}
	return &Impl{
		tracker:     tracker,
		vetoSvc:     vetoSvc,
		powerSvc:    powerSvc,
		telegramSvc: telegramSvc,
		cfg:         cfg,
		host:        host,
		logger:      logger,
		now:         now,
	}
}

// Status returns the current countdown state.
func (a *Impl) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := Status{PoweredOff: a.done}
	if a.pending != nil {
		since := *a.pending
		st.PendingSince = &since
	}
	return st
}

// Run evaluates immediately and then every check interval. It returns after
// the power-off has been issued or when ctx is cancelled.
func (a *Impl) Run(ctx context.Context) error {
	a.logger.Info().
		Dur("interval", a.cfg.CheckInterval).
		Dur("shutdown_delay", a.cfg.ShutdownDelay).
		Dur("heartbeat_timeout", a.cfg.HeartbeatTimeout).
		Msg("starting shutdown arbiter")

	ticker := time.NewTicker(a.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		if a.Tick(ctx, a.now()) {
			a.logger.Info().Msg("shutdown arbiter finished")
			return nil
		}

		select {
		case <-ctx.Done():
			a.logger.Info().Msg("shutdown arbiter stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one sweep and decision at now. It reports true once power-off
// has been issued; later calls do nothing and keep returning true.
func (a *Impl) Tick(ctx context.Context, now time.Time) bool {
	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return true
	}
	pending := a.pending
	a.mu.Unlock()

	if a.tracker.Sweep(now) {
		live := a.tracker.Len()
		if pending != nil {
			a.logger.Info().Int("clients", live).Msg("active clients, cancelling shutdown")
			a.setPending(nil)
		} else {
			a.logger.Debug().Int("clients", live).Msg("clients live")
		}
		return false
	}

	if pending == nil {
		start := now
		a.setPending(&start)
		a.logger.Info().
			Time("power_off_at", now.Add(a.cfg.ShutdownDelay)).
			Msg("no active clients, starting shutdown countdown")
		a.notify(ctx, models.TelegramMessage{
			Event:         models.EventCountdownStarted,
			Time:          now,
			ShutdownDelay: a.cfg.ShutdownDelay,
		})
		return false
	}

	elapsed := now.Sub(*pending)
	if elapsed < a.cfg.ShutdownDelay {
		a.logger.Debug().Dur("remaining", a.cfg.ShutdownDelay-elapsed).Msg("shutdown countdown running")
		return false
	}

	if ctx.Err() != nil {
		return false
	}

	if v := a.vetoSvc.Check(ctx); v.Vetoed {
		a.logger.Info().Str("veto", string(v.Reason)).Str("detail", v.Detail).Msg("shutdown vetoed, restarting countdown")
		a.setPending(nil)
		return false
	}

	// A cancelled process listing reads as "no backup running".
	if ctx.Err() != nil {
		a.logger.Info().Msg("cancelled before power-off")
		return false
	}

	a.powerOff(ctx, now)
	return true
}

func (a *Impl) setPending(at *time.Time) {
	a.mu.Lock()
	a.pending = at
	a.mu.Unlock()
}

func (a *Impl) powerOff(ctx context.Context, now time.Time) {
	a.mu.Lock()
	a.done = true
	a.mu.Unlock()

	a.logger.Info().Str("method", a.cfg.PowerOff.Method).Msg("no clients for the full delay, powering off")

	msg := models.TelegramMessage{Event: models.EventPowerOff, Time: now}

	result, err := a.powerSvc.PowerOff(ctx, a.cfg.PowerOff)
	switch {
	case err != nil:
		a.logger.Error().Err(err).Msg("invalid power-off configuration")
		msg.ErrorMessage = err.Error()
	case result.Error != nil:
		a.logger.Error().Err(result.Error).Msg("power-off failed")
		msg.ErrorMessage = result.Error.Error()
	}

	a.notify(ctx, msg)
}

// notify sends a Telegram message when configured. Failures are logged only.
func (a *Impl) notify(ctx context.Context, msg models.TelegramMessage) {
	if a.cfg.Telegram == nil || a.telegramSvc == nil {
		return
	}
	msg.Host = a.host

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	result, err := a.telegramSvc.SendNotification(ctx, *a.cfg.Telegram, msg)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to send notification")
		return
	}
	if result.Error != nil {
		a.logger.Warn().Err(result.Error).Msg("failed to send notification")
	}
}
