//go:build e2e

package e2e

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/fgeck/nasboot/internal/services/power"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getSSHConfig(t *testing.T) models.SSHShutdownConfig {
	t.Helper()

	host := os.Getenv("TEST_SSH_HOST")
	if host == "" {
		t.Skip("TEST_SSH_HOST not set")
	}

	portStr := os.Getenv("TEST_SSH_PORT")
	if portStr == "" {
		portStr = "22"
	}
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	user := os.Getenv("TEST_SSH_USER")
	if user == "" {
		user = "root"
	}

	keyPath := os.Getenv("TEST_SSH_KEY_PATH")
	if keyPath == "" {
		t.Skip("TEST_SSH_KEY_PATH not set")
	}

	targetOS := os.Getenv("TEST_SSH_OS")
	if targetOS == "" {
		targetOS = "linux"
	}

	return models.SSHShutdownConfig{
		Host:     host,
		Port:     port,
		Username: user,
		KeyPath:  keyPath,
		OS:       targetOS,
	}
}

func TestSSHTestConnection_E2E(t *testing.T) {
	cfg := getSSHConfig(t)

	result, err := power.New(testLogger()).TestConnection(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, result.CommandRun)
	assert.Contains(t, result.Output, "OK")
	assert.NoError(t, result.Error)
}

func TestSSHConnectionFailed_E2E(t *testing.T) {
	keyPath := os.Getenv("TEST_SSH_KEY_PATH")
	if keyPath == "" {
		t.Skip("TEST_SSH_KEY_PATH not set")
	}

	cfg := models.SSHShutdownConfig{
		Host:     "192.168.255.254", // non-routable
		Port:     22,
		Username: "root",
		KeyPath:  keyPath,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := power.New(testLogger()).TestConnection(ctx, cfg)

	require.NoError(t, err)
	assert.False(t, result.CommandRun)
	assert.Error(t, result.Error)
}

// WARNING: This test will actually power the target off!
func TestSSHPowerOff_E2E(t *testing.T) {
	if os.Getenv("TEST_SSH_SHUTDOWN_ENABLED") != "true" {
		t.Skip("TEST_SSH_SHUTDOWN_ENABLED is not true - skipping actual shutdown test")
	}

	cfg := getSSHConfig(t)

	result, err := power.New(testLogger()).PowerOff(context.Background(), models.PowerOffConfig{
		Method: models.PowerOffSSH,
		SSH:    &cfg,
	})

	require.NoError(t, err)
	assert.True(t, result.CommandRun)
}
