package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// ServerEvent identifies what a notification is about.
type ServerEvent string

// Server events worth notifying about.
const (
	EventCountdownStarted ServerEvent = "countdown_started"
	EventPowerOff         ServerEvent = "power_off"
)

// TelegramMessage holds the data for a server notification.
type TelegramMessage struct {
	Event         ServerEvent
	Host          string
	Time          time.Time
	ShutdownDelay time.Duration
	ErrorMessage  string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
