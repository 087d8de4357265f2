// Package models contains the data structures shared by the nasboot client and server.
package models

import "time"

// ClientConfig holds the configuration of a workstation client.
type ClientConfig struct {
	DeviceMAC        string
	DeviceIP         string
	RouterIP         string
	HeartbeatURL     string
	Hostname         string
	CheckInterval    time.Duration
	IdleThreshold    time.Duration
	HeartbeatTimeout time.Duration
	WakeMode         WakeMode
}

// WakeConfig extracts the settings the wake transport needs.
func (c ClientConfig) WakeConfig() WakeConfig {
	return WakeConfig{
		MACAddress: c.DeviceMAC,
		DeviceIP:   c.DeviceIP,
	}
}

// ServerConfig holds the configuration of the device-side server.
type ServerConfig struct {
	BindAddress          string
	ShutdownDelay        time.Duration
	KeepaliveFile        string
	BackupProcessPattern string
	HeartbeatTimeout     time.Duration
	CheckInterval        time.Duration
	PowerOff             PowerOffConfig
	Telegram             *TelegramConfig // nil if not configured
	LogTool              string          // empty disables the NAS log sink
}
