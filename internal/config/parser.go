// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/fgeck/nasboot/internal/services/wol"
	"github.com/spf13/viper"
)

// Defaults matching a typical single-NAS home network.
const (
	DefaultDeviceMAC            = "00:08:9B:DB:EF:9A"
	DefaultDeviceIP             = "192.168.42.2"
	DefaultRouterIP             = "192.168.42.1"
	DefaultHeartbeatURL         = "http://192.168.42.2:8090/heartbeat"
	DefaultClientCheckInterval  = 60 * time.Second
	DefaultIdleThreshold        = 5 * time.Minute
	DefaultClientHBTimeout      = 5 * time.Second
	DefaultBindAddress          = "0.0.0.0:8090"
	DefaultShutdownDelay        = 10 * time.Minute
	DefaultKeepaliveFile        = "/share/Public/keepalive.txt"
	DefaultBackupProcessPattern = "python /share/CACHEDEV1_DATA/.qpkg/AzureStorage/bin/engine.pyc backup"
	DefaultServerHBTimeout      = 2 * time.Minute
	DefaultServerCheckInterval  = 60 * time.Second
	DefaultPowerOffCommand      = "/sbin/poweroff"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadClientFile loads a client configuration from a file path.
func (p *Parser) LoadClientFile(path string) (*models.ClientConfig, error) {
	if err := p.readFile(path); err != nil {
		return nil, err
	}
	return p.parseClient()
}

// LoadClientReader loads a client configuration from YAML content (useful for testing).
func (p *Parser) LoadClientReader(content string) (*models.ClientConfig, error) {
	if err := p.readContent(content); err != nil {
		return nil, err
	}
	return p.parseClient()
}

// LoadServerFile loads a server configuration from a file path.
func (p *Parser) LoadServerFile(path string) (*models.ServerConfig, error) {
	if err := p.readFile(path); err != nil {
		return nil, err
	}
	return p.parseServer()
}

// LoadServerReader loads a server configuration from YAML content (useful for testing).
func (p *Parser) LoadServerReader(content string) (*models.ServerConfig, error) {
	if err := p.readContent(content); err != nil {
		return nil, err
	}
	return p.parseServer()
}

func (p *Parser) readFile(path string) error {
	p.v.SetConfigFile(path)
	if err := p.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

func (p *Parser) readContent(content string) error {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func (p *Parser) parseClient() (*models.ClientConfig, error) {
	cfg := &models.ClientConfig{
		DeviceMAC:        p.expandEnv(p.v.GetString("device_mac")),
		DeviceIP:         p.expandEnv(p.v.GetString("device_ip")),
		RouterIP:         p.expandEnv(p.v.GetString("router_ip")),
		HeartbeatURL:     p.expandEnv(p.v.GetString("heartbeat_url")),
		Hostname:         p.expandEnv(p.v.GetString("hostname")),
		CheckInterval:    time.Duration(p.v.GetInt("check_interval_secs")) * time.Second,
		IdleThreshold:    time.Duration(p.v.GetInt("idle_threshold_mins")) * time.Minute,
		HeartbeatTimeout: time.Duration(p.v.GetInt("heartbeat_timeout_secs")) * time.Second,
		WakeMode:         models.WakeModeAuto,
	}

	if cfg.DeviceMAC == "" {
		return nil, fmt.Errorf("device_mac is required")
	}
	if cfg.DeviceIP == "" {
		return nil, fmt.Errorf("device_ip is required")
	}
	if cfg.HeartbeatURL == "" {
		return nil, fmt.Errorf("heartbeat_url is required")
	}

	if raw := p.v.GetString("wake_mode"); raw != "" {
		mode, err := models.ParseWakeMode(raw)
		if err != nil {
			return nil, err
		}
		cfg.WakeMode = mode
	}

	// Set defaults.
	if cfg.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			cfg.Hostname = "unknown"
		} else {
			cfg.Hostname = hostname
		}
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = DefaultClientCheckInterval
	}
	if cfg.IdleThreshold == 0 {
		cfg.IdleThreshold = DefaultIdleThreshold
	}
	if cfg.HeartbeatTimeout == 0 {
		cfg.HeartbeatTimeout = DefaultClientHBTimeout
	}

	return cfg, nil
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parseServer() (*models.ServerConfig, error) {
	cfg := &models.ServerConfig{
		BindAddress:          p.expandEnv(p.v.GetString("bind_address")),
		ShutdownDelay:        time.Duration(p.v.GetInt("shutdown_delay_mins")) * time.Minute,
		KeepaliveFile:        p.expandEnv(p.v.GetString("keepalive_file")),
		BackupProcessPattern: p.v.GetString("backup_process_pattern"),
		HeartbeatTimeout:     time.Duration(p.v.GetInt("heartbeat_timeout_mins")) * time.Minute,
		CheckInterval:        time.Duration(p.v.GetInt("check_interval_secs")) * time.Second,
		LogTool:              p.expandEnv(p.v.GetString("logging.log_tool")),
		PowerOff: models.PowerOffConfig{
			Method:  p.v.GetString("power_off.method"),
			Command: p.expandEnv(p.v.GetString("power_off.command")),
		},
	}

	// Set defaults.
	if cfg.BindAddress == "" {
		cfg.BindAddress = DefaultBindAddress
	}
	if cfg.ShutdownDelay == 0 {
		cfg.ShutdownDelay = DefaultShutdownDelay
	}
	if cfg.HeartbeatTimeout == 0 {
		cfg.HeartbeatTimeout = DefaultServerHBTimeout
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = DefaultServerCheckInterval
	}
	if cfg.PowerOff.Method == "" {
		cfg.PowerOff.Method = models.PowerOffLocal
	}
	if cfg.PowerOff.Command == "" {
		cfg.PowerOff.Command = DefaultPowerOffCommand
	}

	validMethods := map[string]bool{models.PowerOffLocal: true, models.PowerOffSSH: true}
	if !validMethods[cfg.PowerOff.Method] {
		return nil, fmt.Errorf("power_off.method must be one of: local, ssh")
	}

	// Parse SSH power-off settings.
	if cfg.PowerOff.Method == models.PowerOffSSH { //nolint:nestif // config parsing with defaults
		sshCfg := &models.SSHShutdownConfig{
			Host:     p.v.GetString("power_off.ssh.host"),
			Port:     p.v.GetInt("power_off.ssh.port"),
			Username: p.v.GetString("power_off.ssh.username"),
			KeyPath:  p.expandEnv(p.v.GetString("power_off.ssh.key_path")),
			OS:       p.v.GetString("power_off.ssh.os"),
		}

		if sshCfg.Host == "" {
			return nil, fmt.Errorf("power_off.ssh.host is required when power_off.method is ssh")
		}
		if sshCfg.KeyPath == "" {
			return nil, fmt.Errorf("power_off.ssh.key_path is required when power_off.method is ssh")
		}
		if sshCfg.Port == 0 {
			sshCfg.Port = 22
		}
		if sshCfg.Username == "" {
			sshCfg.Username = "root"
		}
		if sshCfg.OS == "" {
			sshCfg.OS = "linux"
		}
		validOS := map[string]bool{"linux": true, "windows": true}
		if !validOS[sshCfg.OS] {
			return nil, fmt.Errorf("power_off.ssh.os must be one of: linux, windows")
		}
		cfg.PowerOff.SSH = sshCfg
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// ValidateClient performs validation on a loaded client configuration.
func ValidateClient(cfg *models.ClientConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if _, err := wol.ParseMAC(cfg.DeviceMAC); err != nil {
		return fmt.Errorf("device_mac: %w", err)
	}
	if net.ParseIP(cfg.DeviceIP) == nil {
		return fmt.Errorf("device_ip is not a valid IP address: %q", cfg.DeviceIP)
	}
	if cfg.RouterIP != "" && net.ParseIP(cfg.RouterIP) == nil {
		return fmt.Errorf("router_ip is not a valid IP address: %q", cfg.RouterIP)
	}

	u, err := url.Parse(cfg.HeartbeatURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("heartbeat_url must be an absolute http(s) URL: %q", cfg.HeartbeatURL)
	}

	if cfg.CheckInterval <= 0 {
		return fmt.Errorf("check_interval_secs must be positive")
	}
	if cfg.IdleThreshold <= 0 {
		return fmt.Errorf("idle_threshold_mins must be positive")
	}
	if cfg.HeartbeatTimeout <= 0 {
		return fmt.Errorf("heartbeat_timeout_secs must be positive")
	}

	return nil
}

// ValidateServer performs validation on a loaded server configuration.
func ValidateServer(cfg *models.ServerConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if _, _, err := net.SplitHostPort(cfg.BindAddress); err != nil {
		return fmt.Errorf("bind_address %q: %w", cfg.BindAddress, err)
	}
	if cfg.ShutdownDelay <= 0 {
		return fmt.Errorf("shutdown_delay_mins must be positive")
	}
	if cfg.HeartbeatTimeout <= 0 {
		return fmt.Errorf("heartbeat_timeout_mins must be positive")
	}
	if cfg.CheckInterval <= 0 {
		return fmt.Errorf("check_interval_secs must be positive")
	}

	return nil
}
