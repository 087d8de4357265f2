package main

import (
	"fmt"
	"os"

	"github.com/fgeck/nasboot/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var force bool

var generateConfigCmd = &cobra.Command{
	Use:   "generate-config",
	Short: "Write a default configuration file",
	RunE:  generateConfig,
}

func init() {
	generateConfigCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
}

func generateConfig(cmd *cobra.Command, args []string) error {
	path := configPath()
	if _, err := os.Stat(path); err == nil && !force {
		log.Error().Str("file", path).Msg("config file already exists, use --force to overwrite")
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := config.WriteClient(path, config.DefaultClientConfig()); err != nil {
		log.Error().Err(err).Str("file", path).Msg("failed to write config")
		return err
	}

	fmt.Printf("Default configuration written to %s\n", path)
	return nil
}
