package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without sending any heartbeat or wake packet.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Error().Str("file", path).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", path)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Device:")
	fmt.Printf("  MAC Address: %s\n", cfg.DeviceMAC)
	fmt.Printf("  IP Address: %s\n", cfg.DeviceIP)
	fmt.Printf("  Router IP: %s\n", cfg.RouterIP)
	fmt.Println()
	fmt.Println("Heartbeat:")
	fmt.Printf("  URL: %s\n", cfg.HeartbeatURL)
	fmt.Printf("  Hostname: %s\n", cfg.Hostname)
	fmt.Printf("  Timeout: %s\n", cfg.HeartbeatTimeout)
	fmt.Println()
	fmt.Println("Engine:")
	fmt.Printf("  Wake mode: %s\n", cfg.WakeMode)
	fmt.Printf("  Check interval: %s\n", cfg.CheckInterval)
	fmt.Printf("  Idle threshold: %s\n", cfg.IdleThreshold)

	return nil
}
