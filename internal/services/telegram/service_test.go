package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("{}")),
	}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testConfig() models.TelegramConfig {
	return models.TelegramConfig{
		BotToken: "123456:ABC-DEF",
		ChatID:   "-100123456789",
	}
}

var eventTime = time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)

func TestSendNotification_Success(t *testing.T) {
	var capturedRequest *http.Request
	var capturedBody sendMessageRequest

	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			capturedRequest = req
			body, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(body, &capturedBody)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"ok":true}`)),
			}, nil
		},
	}

	svc := NewWithClient(testLogger(), httpClient, "https://api.telegram.org")

	result, err := svc.SendNotification(context.Background(), testConfig(), models.TelegramMessage{
		Event:         models.EventCountdownStarted,
		Host:          "nas",
		Time:          eventTime,
		ShutdownDelay: 10 * time.Minute,
	})

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.NoError(t, result.Error)

	assert.Equal(t, http.MethodPost, capturedRequest.Method)
	assert.Contains(t, capturedRequest.URL.String(), "/bot123456:ABC-DEF/sendMessage")
	assert.Equal(t, "application/json", capturedRequest.Header.Get("Content-Type"))
	assert.Equal(t, "-100123456789", capturedBody.ChatID)
	assert.Equal(t, "HTML", capturedBody.ParseMode)
	assert.Contains(t, capturedBody.Text, "Shutdown Countdown Started")
}

func TestSendNotification_AgainstServer(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	svc := NewWithClient(testLogger(), server.Client(), server.URL)

	result, err := svc.SendNotification(context.Background(), testConfig(), models.TelegramMessage{Event: models.EventPowerOff, Host: "nas", Time: eventTime})

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.Equal(t, "/bot123456:ABC-DEF/sendMessage", path)
}

func TestSendNotification_HTTPError(t *testing.T) {
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("network unreachable")
		},
	}
	svc := NewWithClient(testLogger(), httpClient, "https://api.telegram.org")

	result, err := svc.SendNotification(context.Background(), testConfig(), models.TelegramMessage{Event: models.EventPowerOff})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	assert.Contains(t, result.Error.Error(), "network unreachable")
}

func TestSendNotification_APIError(t *testing.T) {
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusUnauthorized,
				Body:       io.NopCloser(strings.NewReader(`{"ok":false}`)),
			}, nil
		},
	}
	svc := NewWithClient(testLogger(), httpClient, "https://api.telegram.org")

	result, err := svc.SendNotification(context.Background(), testConfig(), models.TelegramMessage{Event: models.EventPowerOff})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	assert.Contains(t, result.Error.Error(), "401")
}

func TestSendNotification_ContextCancelled(t *testing.T) {
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return nil, req.Context().Err()
		},
	}
	svc := NewWithClient(testLogger(), httpClient, "https://api.telegram.org")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.SendNotification(ctx, testConfig(), models.TelegramMessage{Event: models.EventPowerOff})

	require.NoError(t, err)
	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name     string
		msg      models.TelegramMessage
		contains []string
		excludes []string
	}{
		{
			name: "countdown started",
			msg: models.TelegramMessage{
				Event:         models.EventCountdownStarted,
				Host:          "nas",
				Time:          eventTime,
				ShutdownDelay: 10 * time.Minute,
			},
			contains: []string{"Shutdown Countdown Started", "nas", "2024-06-01 23:30:00", "23:40:00", "10m0s"},
			excludes: []string{"Error"},
		},
		{
			name:     "power off",
			msg:      models.TelegramMessage{Event: models.EventPowerOff, Host: "nas", Time: eventTime},
			contains: []string{"NAS Powering Off"},
			excludes: []string{"Power-off at", "Error"},
		},
		{
			name: "power off failed",
			msg: models.TelegramMessage{
				Event:        models.EventPowerOff,
				Host:         "nas",
				Time:         eventTime,
				ErrorMessage: "exec: <poweroff> not found",
			},
			contains: []string{"Power-Off Failed", "exec: &lt;poweroff&gt; not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := formatMessage(tt.msg)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, text, unwanted)
			}
		})
	}
}

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"<script>", "&lt;script&gt;"},
		{"a & b", "a &amp; b"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, escapeHTML(tt.input))
	}
}
