//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/fgeck/nasboot/internal/services/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTelegramConfig(t *testing.T) models.TelegramConfig {
	t.Helper()

	botToken := os.Getenv("TEST_TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		t.Skip("TEST_TELEGRAM_BOT_TOKEN not set")
	}

	chatID := os.Getenv("TEST_TELEGRAM_CHAT_ID")
	if chatID == "" {
		t.Skip("TEST_TELEGRAM_CHAT_ID not set")
	}

	return models.TelegramConfig{
		BotToken: botToken,
		ChatID:   chatID,
	}
}

func TestTelegramCountdownNotification_E2E(t *testing.T) {
	cfg := getTelegramConfig(t)

	result, err := telegram.New(testLogger()).SendNotification(context.Background(), cfg, models.TelegramMessage{
		Event:         models.EventCountdownStarted,
		Host:          "e2e-test-nas",
		Time:          time.Now(),
		ShutdownDelay: 10 * time.Minute,
	})

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.NoError(t, result.Error)
}

func TestTelegramPowerOffFailedNotification_E2E(t *testing.T) {
	cfg := getTelegramConfig(t)

	result, err := telegram.New(testLogger()).SendNotification(context.Background(), cfg, models.TelegramMessage{
		Event:        models.EventPowerOff,
		Host:         "e2e-test-nas",
		Time:         time.Now(),
		ErrorMessage: "permission denied",
	})

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
}

func TestTelegramInvalidToken_E2E(t *testing.T) {
	cfg := models.TelegramConfig{
		BotToken: "invalid:token",
		ChatID:   "-100123456789",
	}

	result, err := telegram.New(testLogger()).SendNotification(context.Background(), cfg, models.TelegramMessage{
		Event: models.EventPowerOff,
		Host:  "test",
	})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	assert.Error(t, result.Error)
}
