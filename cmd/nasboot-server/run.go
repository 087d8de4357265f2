package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/nasboot/internal/api"
	"github.com/fgeck/nasboot/internal/config"
	"github.com/fgeck/nasboot/internal/logging"
	"github.com/fgeck/nasboot/internal/models"
	"github.com/fgeck/nasboot/internal/services/arbiter"
	"github.com/fgeck/nasboot/internal/services/liveness"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve heartbeats and arbitrate shutdown",
	Long: `Serve client heartbeats and, every check interval:
1. Expire clients that have not sent a heartbeat within the timeout
2. Start a shutdown countdown when no client is left
3. After the shutdown delay, power off unless the keepalive file exists
   or a backup process is running`,
	RunE: runServer,
}

func loadConfig(path string) (*models.ServerConfig, error) {
	cfg, err := config.NewParser().LoadServerFile(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("failed to load config")
		return nil, err
	}

	if err := config.ValidateServer(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	path := configPath()
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	if cfg.LogTool != "" {
		log.Logger = logging.WithLogTool(logOptions(), cfg.LogTool, nil)
	}
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info().
		Str("config", path).
		Str("bind_address", cfg.BindAddress).
		Dur("shutdown_delay", cfg.ShutdownDelay).
		Str("power_off", cfg.PowerOff.Method).
		Bool("telegram", cfg.Telegram != nil).
		Msg("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	table := liveness.New(log.Logger, cfg.HeartbeatTimeout)
	arb := arbiter.New(log.Logger, *cfg, table)
	srv := api.New(log.Logger, table, arb)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, cfg.BindAddress)
	})
	g.Go(func() error {
		err := arb.Run(gctx)
		// Nothing left to serve once the arbiter has finished.
		cancel()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server failed")
		return err
	}

	log.Info().Bool("powered_off", arb.Status().PoweredOff).Msg("server stopped")
	return nil
}
