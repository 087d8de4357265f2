package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_LoadClientReader_MinimalConfig(t *testing.T) {
	yaml := `
device_mac: "AA:BB:CC:DD:EE:FF"
device_ip: "192.168.1.10"
heartbeat_url: "http://192.168.1.10:8090/heartbeat"
`
	cfg, err := NewParser().LoadClientReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.DeviceMAC)
	assert.Equal(t, "192.168.1.10", cfg.DeviceIP)
	// Check defaults
	assert.Equal(t, 60*time.Second, cfg.CheckInterval)
	assert.Equal(t, 5*time.Minute, cfg.IdleThreshold)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatTimeout)
	assert.Equal(t, models.WakeModeAuto, cfg.WakeMode)
	assert.NotEmpty(t, cfg.Hostname)
	require.NoError(t, ValidateClient(cfg))
}

func TestParser_LoadClientReader_FullConfig(t *testing.T) {
	yaml := `
device_mac: "aa-bb-cc-dd-ee-ff"
device_ip: "10.0.3.7"
router_ip: "10.0.3.1"
heartbeat_url: "http://nas.lan:8090/heartbeat"
hostname: "workstation"
check_interval_secs: 30
idle_threshold_mins: 10
heartbeat_timeout_secs: 3
wake_mode: always-on
`
	cfg, err := NewParser().LoadClientReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "10.0.3.1", cfg.RouterIP)
	assert.Equal(t, "workstation", cfg.Hostname)
	assert.Equal(t, 30*time.Second, cfg.CheckInterval)
	assert.Equal(t, 10*time.Minute, cfg.IdleThreshold)
	assert.Equal(t, 3*time.Second, cfg.HeartbeatTimeout)
	assert.Equal(t, models.WakeModeAlwaysOn, cfg.WakeMode)
	require.NoError(t, ValidateClient(cfg))
}

func TestParser_LoadClientReader_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing mac",
			yaml:    "device_ip: 192.168.1.10\nheartbeat_url: http://x/heartbeat\n",
			wantErr: "device_mac is required",
		},
		{
			name:    "missing ip",
			yaml:    "device_mac: AA:BB:CC:DD:EE:FF\nheartbeat_url: http://x/heartbeat\n",
			wantErr: "device_ip is required",
		},
		{
			name:    "missing url",
			yaml:    "device_mac: AA:BB:CC:DD:EE:FF\ndevice_ip: 192.168.1.10\n",
			wantErr: "heartbeat_url is required",
		},
		{
			name:    "bad wake mode",
			yaml:    "device_mac: AA:BB:CC:DD:EE:FF\ndevice_ip: 192.168.1.10\nheartbeat_url: http://x/heartbeat\nwake_mode: maybe\n",
			wantErr: "wake_mode must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().LoadClientReader(tt.yaml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParser_LoadClientReader_EnvExpansion(t *testing.T) {
	t.Setenv("NAS_MAC", "11:22:33:44:55:66")

	yaml := `
device_mac: "${NAS_MAC}"
device_ip: "192.168.1.10"
heartbeat_url: "http://192.168.1.10:8090/heartbeat"
`
	cfg, err := NewParser().LoadClientReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "11:22:33:44:55:66", cfg.DeviceMAC)
}

func TestValidateClient(t *testing.T) {
	valid := DefaultClientConfig()
	require.NoError(t, ValidateClient(&valid))

	tests := []struct {
		name    string
		mutate  func(c *models.ClientConfig)
		wantErr string
	}{
		{"dotted mac", func(c *models.ClientConfig) { c.DeviceMAC = "aabb.ccdd.eeff" }, "device_mac"},
		{"short mac", func(c *models.ClientConfig) { c.DeviceMAC = "AA:BB:CC:DD:EE" }, "device_mac"},
		{"bad ip", func(c *models.ClientConfig) { c.DeviceIP = "nas" }, "device_ip"},
		{"bad router", func(c *models.ClientConfig) { c.RouterIP = "router" }, "router_ip"},
		{"relative url", func(c *models.ClientConfig) { c.HeartbeatURL = "/heartbeat" }, "heartbeat_url"},
		{"zero interval", func(c *models.ClientConfig) { c.CheckInterval = 0 }, "check_interval_secs"},
		{"zero timeout", func(c *models.ClientConfig) { c.HeartbeatTimeout = 0 }, "heartbeat_timeout_secs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultClientConfig()
			tt.mutate(&cfg)
			err := ValidateClient(&cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	require.Error(t, ValidateClient(nil))
}

func TestParser_LoadServerReader_Defaults(t *testing.T) {
	cfg, err := NewParser().LoadServerReader("keepalive_file: /tmp/keepalive\n")

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8090", cfg.BindAddress)
	assert.Equal(t, 10*time.Minute, cfg.ShutdownDelay)
	assert.Equal(t, 2*time.Minute, cfg.HeartbeatTimeout)
	assert.Equal(t, 60*time.Second, cfg.CheckInterval)
	assert.Equal(t, models.PowerOffLocal, cfg.PowerOff.Method)
	assert.Equal(t, "/sbin/poweroff", cfg.PowerOff.Command)
	assert.Nil(t, cfg.PowerOff.SSH)
	assert.Nil(t, cfg.Telegram)
	require.NoError(t, ValidateServer(cfg))
}

func TestParser_LoadServerReader_FullConfig(t *testing.T) {
	yaml := `
bind_address: "127.0.0.1:9000"
shutdown_delay_mins: 15
keepalive_file: "/share/Public/keepalive.txt"
backup_process_pattern: "rsync --server"
heartbeat_timeout_mins: 3
check_interval_secs: 30

power_off:
  method: ssh
  ssh:
    host: "192.168.1.100"
    key_path: "/root/.ssh/id_ed25519"

telegram:
  bot_token: "123:abc"
  chat_id: "42"

logging:
  log_tool: /sbin/log_tool
`
	cfg, err := NewParser().LoadServerReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.BindAddress)
	assert.Equal(t, 15*time.Minute, cfg.ShutdownDelay)
	assert.Equal(t, "rsync --server", cfg.BackupProcessPattern)
	assert.Equal(t, 3*time.Minute, cfg.HeartbeatTimeout)
	assert.Equal(t, 30*time.Second, cfg.CheckInterval)
	assert.Equal(t, "/sbin/log_tool", cfg.LogTool)

	require.NotNil(t, cfg.PowerOff.SSH)
	assert.Equal(t, models.PowerOffSSH, cfg.PowerOff.Method)
	assert.Equal(t, "192.168.1.100", cfg.PowerOff.SSH.Host)
	assert.Equal(t, 22, cfg.PowerOff.SSH.Port)
	assert.Equal(t, "root", cfg.PowerOff.SSH.Username)
	assert.Equal(t, "linux", cfg.PowerOff.SSH.OS)

	require.NotNil(t, cfg.Telegram)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
}

func TestParser_LoadServerReader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad method", "power_off:\n  method: ipmi\n", "power_off.method"},
		{"ssh without host", "power_off:\n  method: ssh\n  ssh:\n    key_path: /k\n", "power_off.ssh.host"},
		{"ssh without key", "power_off:\n  method: ssh\n  ssh:\n    host: nas\n", "power_off.ssh.key_path"},
		{"ssh bad os", "power_off:\n  method: ssh\n  ssh:\n    host: nas\n    key_path: /k\n    os: plan9\n", "power_off.ssh.os"},
		{"telegram without token", "telegram:\n  chat_id: \"1\"\n", "telegram.bot_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().LoadServerReader(tt.yaml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateServer_BadBindAddress(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.BindAddress = "8090"

	err := ValidateServer(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind_address")
}

func TestWriteClient_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.yaml")
	cfg := DefaultClientConfig()
	cfg.WakeMode = models.WakeModeOff
	cfg.Hostname = "desk"

	require.NoError(t, WriteClient(path, cfg))

	loaded, err := NewParser().LoadClientFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)
}

func TestWriteServer_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	cfg := DefaultServerConfig()

	require.NoError(t, WriteServer(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := NewParser().LoadServerFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)
}

func TestLoadClientFile_NotFound(t *testing.T) {
	_, err := NewParser().LoadClientFile(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}
