package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"gopkg.in/yaml.v3"
)

// clientFile is the on-disk layout of a client configuration.
type clientFile struct {
	DeviceMAC            string `yaml:"device_mac"`
	DeviceIP             string `yaml:"device_ip"`
	RouterIP             string `yaml:"router_ip"`
	HeartbeatURL         string `yaml:"heartbeat_url"`
	Hostname             string `yaml:"hostname,omitempty"`
	CheckIntervalSecs    int    `yaml:"check_interval_secs"`
	IdleThresholdMins    int    `yaml:"idle_threshold_mins"`
	HeartbeatTimeoutSecs int    `yaml:"heartbeat_timeout_secs"`
	WakeMode             string `yaml:"wake_mode"`
}

// serverFile is the on-disk layout of a server configuration.
type serverFile struct {
	BindAddress          string       `yaml:"bind_address"`
	ShutdownDelayMins    int          `yaml:"shutdown_delay_mins"`
	KeepaliveFile        string       `yaml:"keepalive_file"`
	BackupProcessPattern string       `yaml:"backup_process_pattern"`
	HeartbeatTimeoutMins int          `yaml:"heartbeat_timeout_mins"`
	CheckIntervalSecs    int          `yaml:"check_interval_secs"`
	PowerOff             powerOffFile `yaml:"power_off"`
}

type powerOffFile struct {
	Method  string `yaml:"method"`
	Command string `yaml:"command"`
}

// DefaultClientConfig returns the configuration written by generate-config.
func DefaultClientConfig() models.ClientConfig {
	return models.ClientConfig{
		DeviceMAC:        DefaultDeviceMAC,
		DeviceIP:         DefaultDeviceIP,
		RouterIP:         DefaultRouterIP,
		HeartbeatURL:     DefaultHeartbeatURL,
		CheckInterval:    DefaultClientCheckInterval,
		IdleThreshold:    DefaultIdleThreshold,
		HeartbeatTimeout: DefaultClientHBTimeout,
		WakeMode:         models.WakeModeAuto,
	}
}

// DefaultServerConfig returns the configuration written by generate-config.
func DefaultServerConfig() models.ServerConfig {
	return models.ServerConfig{
		BindAddress:          DefaultBindAddress,
		ShutdownDelay:        DefaultShutdownDelay,
		KeepaliveFile:        DefaultKeepaliveFile,
		BackupProcessPattern: DefaultBackupProcessPattern,
		HeartbeatTimeout:     DefaultServerHBTimeout,
		CheckInterval:        DefaultServerCheckInterval,
		PowerOff: models.PowerOffConfig{
			Method:  models.PowerOffLocal,
			Command: DefaultPowerOffCommand,
		},
	}
}

// WriteClient saves a client configuration as YAML, creating parent directories.
func WriteClient(path string, cfg models.ClientConfig) error {
	return writeYAML(path, clientFile{
		DeviceMAC:            cfg.DeviceMAC,
		DeviceIP:             cfg.DeviceIP,
		RouterIP:             cfg.RouterIP,
		HeartbeatURL:         cfg.HeartbeatURL,
		Hostname:             cfg.Hostname,
		CheckIntervalSecs:    int(cfg.CheckInterval / time.Second),
		IdleThresholdMins:    int(cfg.IdleThreshold / time.Minute),
		HeartbeatTimeoutSecs: int(cfg.HeartbeatTimeout / time.Second),
		WakeMode:             cfg.WakeMode.String(),
	})
}

// WriteServer saves the core server settings as YAML, creating parent directories.
// Optional blocks (ssh, telegram, logging) are left for the operator to add.
func WriteServer(path string, cfg models.ServerConfig) error {
	return writeYAML(path, serverFile{
		BindAddress:          cfg.BindAddress,
		ShutdownDelayMins:    int(cfg.ShutdownDelay / time.Minute),
		KeepaliveFile:        cfg.KeepaliveFile,
		BackupProcessPattern: cfg.BackupProcessPattern,
		HeartbeatTimeoutMins: int(cfg.HeartbeatTimeout / time.Minute),
		CheckIntervalSecs:    int(cfg.CheckInterval / time.Second),
		PowerOff: powerOffFile{
			Method:  cfg.PowerOff.Method,
			Command: cfg.PowerOff.Command,
		},
	})
}

// SetWakeMode rewrites only the wake_mode key of the client file at path.
// Every other key, ${VAR} reference and comment is kept as written.
func SetWakeMode(path string, mode models.WakeMode) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("config %s is not a YAML mapping", path)
	}
	setScalar(doc.Content[0], "wake_mode", mode.String())

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// setScalar sets key to a plain string value, appending the key if absent.
func setScalar(mapping *yaml.Node, key, value string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			v := mapping.Content[i+1]
			v.Kind = yaml.ScalarNode
			v.Tag = "!!str"
			v.Style = 0
			v.Value = value
			v.Content = nil
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
