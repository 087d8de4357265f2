package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/nasboot/internal/services/engine"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the wake engine until interrupted",
	Long: `Run the wake engine. Every check interval it:
1. Checks whether the user is active
2. Decides from the wake mode whether the NAS is needed
3. Sends a heartbeat, or a Wake-on-LAN packet if the NAS does not answer

SIGHUP reloads the configuration file and triggers an immediate check.`,
	RunE: runClient,
}

func runClient(cmd *cobra.Command, args []string) error {
	path := configPath()
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	log.Info().
		Str("config", path).
		Str("device_mac", cfg.DeviceMAC).
		Str("heartbeat_url", cfg.HeartbeatURL).
		Str("wake_mode", cfg.WakeMode.String()).
		Msg("configuration loaded")

	eng := engine.New(log.Logger, *cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go func() {
		for sig := range sigChan {
			if sig == syscall.SIGHUP {
				reload(eng, path)
				continue
			}
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
			return
		}
	}()

	go func() {
		changes := eng.Watch()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				st := eng.Status()
				log.Debug().
					Str("state", st.State.String()).
					Time("last_heartbeat", st.LastHeartbeat).
					Time("last_wake_attempt", st.LastWakeAttempt).
					Msg("status updated")
			}
		}
	}()

	if err := eng.Run(ctx); err != nil {
		log.Error().Err(err).Msg("wake engine failed")
		return err
	}

	st := eng.Status()
	log.Info().
		Str("state", st.State.String()).
		Time("last_heartbeat", st.LastHeartbeat).
		Msg("client stopped")
	return nil
}

// reload applies a changed configuration file; an invalid file keeps the old one.
func reload(eng *engine.Engine, path string) {
	log.Info().Str("config", path).Msg("reloading configuration")

	cfg, err := loadConfig(path)
	if err != nil {
		log.Warn().Msg("keeping previous configuration")
		return
	}

	eng.SetConfig(*cfg)
	if !eng.TriggerCheck() {
		log.Debug().Msg("immediate check skipped, rate limited")
	}
}
