package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/nasboot/internal/services/engine"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Send a Wake-on-LAN packet now",
	Long:  `Send the magic packet over every wake path once, regardless of wake mode, and report each path's outcome.`,
	RunE:  wakeNow,
}

func wakeNow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := engine.New(log.Logger, *cfg).WakeNow(ctx)
	if err != nil {
		log.Error().Err(err).Msg("wake failed")
		return err
	}

	fmt.Printf("Wake-on-LAN for %s (%s):\n", cfg.DeviceMAC, result.Duration.Round(time.Millisecond))
	for _, p := range result.Paths {
		status := "sent"
		switch {
		case p.TimedOut:
			status = "timed out"
		case p.Error != nil:
			status = "failed: " + p.Error.Error()
		}
		fmt.Printf("  %-9s %-15s %s\n", p.Path, p.Target, status)
	}

	if !result.PacketSent() {
		return fmt.Errorf("no wake path succeeded")
	}
	return nil
}
