package main

import (
	"github.com/fgeck/nasboot/internal/config"
	"github.com/fgeck/nasboot/internal/models"
	"github.com/rs/zerolog/log"
)

// loadConfig parses and validates the client configuration at path.
func loadConfig(path string) (*models.ClientConfig, error) {
	cfg, err := config.NewParser().LoadClientFile(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("failed to load config")
		return nil, err
	}

	if err := config.ValidateClient(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}
	return cfg, nil
}
