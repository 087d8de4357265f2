package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/fgeck/nasboot/internal/services/power"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var testSSH bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration file without binding the listener or powering anything off.
With --test-ssh, also verify that the SSH power-off target is reachable.`,
	RunE: validateConfig,
}

func init() {
	validateCmd.Flags().BoolVar(&testSSH, "test-ssh", false, "connect to the SSH power-off target and run a harmless command")
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
	fmt.Println("Summary:")
	fmt.Printf("  Bind address: %s\n", cfg.BindAddress)
	fmt.Printf("  Check interval: %s\n", cfg.CheckInterval)
	fmt.Printf("  Heartbeat timeout: %s\n", cfg.HeartbeatTimeout)
	fmt.Printf("  Shutdown delay: %s\n", cfg.ShutdownDelay)
	fmt.Println()
	fmt.Println("Vetoes:")
	fmt.Printf("  Keepalive file: %s\n", cfg.KeepaliveFile)
	fmt.Printf("  Backup process pattern: %s\n", cfg.BackupProcessPattern)
	fmt.Println()
	fmt.Println("Power-off:")
	fmt.Printf("  Method: %s\n", cfg.PowerOff.Method)
	if cfg.PowerOff.Method == models.PowerOffSSH {
		fmt.Printf("  Host: %s\n", cfg.PowerOff.SSH.Host)
		fmt.Printf("  Port: %d\n", cfg.PowerOff.SSH.Port)
		fmt.Printf("  Username: %s\n", cfg.PowerOff.SSH.Username)
		fmt.Printf("  OS: %s\n", cfg.PowerOff.SSH.OS)
	} else {
		fmt.Printf("  Command: %s\n", cfg.PowerOff.Command)
	}
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Telegram: %v\n", cfg.Telegram != nil)
	fmt.Printf("  NAS log tool: %v\n", cfg.LogTool != "")

	if cfg.Telegram != nil {
		fmt.Println()
		fmt.Println("Telegram Configuration:")
		fmt.Printf("  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Printf("  Bot Token: (configured)\n")
	}

	if testSSH {
		return testSSHConnection(cfg)
	}
	return nil
}

func testSSHConnection(cfg *models.ServerConfig) error {
	if cfg.PowerOff.SSH == nil {
		return fmt.Errorf("--test-ssh requires power_off.method: ssh")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	result, err := power.New(log.Logger).TestConnection(ctx, *cfg.PowerOff.SSH)
	if err != nil {
		return err
	}
	if result.Error != nil {
		log.Error().Err(result.Error).Msg("SSH connection test failed")
		return result.Error
	}

	fmt.Println()
	fmt.Println("SSH connection test succeeded.")
	return nil
}
