package main

import (
	"fmt"

	"github.com/fgeck/nasboot/internal/config"
	"github.com/fgeck/nasboot/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var setModeCmd = &cobra.Command{
	Use:       "set-mode <off|auto|always-on>",
	Short:     "Change and persist the wake mode",
	Long:      `Update wake_mode in the configuration file, leaving every other line untouched. A running client picks it up on SIGHUP.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"off", "auto", "always-on"},
	RunE:      setMode,
}

func setMode(cmd *cobra.Command, args []string) error {
	mode, err := models.ParseWakeMode(args[0])
	if err != nil {
		log.Error().Err(err).Msg("invalid wake mode")
		return err
	}

	path := configPath()
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	previous := cfg.WakeMode
	if err := config.SetWakeMode(path, mode); err != nil {
		log.Error().Err(err).Str("file", path).Msg("failed to save config")
		return err
	}

	fmt.Printf("Wake mode changed: %s -> %s\n", previous, mode)
	return nil
}
