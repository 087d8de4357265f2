// Package heartbeat posts liveness heartbeats from a client to the nasboot server.
package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/rs/zerolog"
)

// guardSlack is added to the request timeout for the outer guard, in case the
// transport does not honor the request context.
const guardSlack = time.Second

// Service defines the interface for heartbeat delivery.
type Service interface {
	Send(ctx context.Context, url, hostname string, timeout time.Duration) (*models.HeartbeatResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the heartbeat Service interface. The HTTP client is created once
// and reused so connections stay pooled across ticks.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates a new heartbeat service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{},
		logger:     logger,
		now:        time.Now,
	}
}

// NewWithClient creates a new heartbeat service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Send posts one heartbeat. Transport failures, timeouts and non-2xx statuses are
// reported in the result; the returned error is reserved for malformed requests.
func (s *Impl) Send(ctx context.Context, url, hostname string, timeout time.Duration) (*models.HeartbeatResult, error) {
	start := time.Now()

	body, err := json.Marshal(models.HeartbeatMessage{
		Timestamp: s.now().Format(time.RFC3339),
		Hostname:  hostname,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal heartbeat: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.logger.Debug().Str("hostname", hostname).Str("url", url).Msg("sending heartbeat")

	type response struct {
		status int
		err    error
	}
	respChan := make(chan response, 1)

	go func() {
		resp, err := s.httpClient.Do(req)
		if err != nil {
			respChan <- response{err: err}
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		respChan <- response{status: resp.StatusCode}
	}()

	guard := time.NewTimer(timeout + guardSlack)
	defer guard.Stop()

	result := &models.HeartbeatResult{}
	select {
	case <-ctx.Done():
		result.Error = ctx.Err()
	case <-guard.C:
		result.Error = fmt.Errorf("heartbeat to %s timed out after %s", url, timeout+guardSlack)
	case res := <-respChan:
		result.StatusCode = res.status
		switch {
		case res.err != nil:
			result.Error = fmt.Errorf("failed to send heartbeat: %w", res.err)
		case res.status >= 200 && res.status < 300:
			result.Delivered = true
		default:
			result.Error = fmt.Errorf("heartbeat rejected with status %d", res.status)
		}
	}
	result.Duration = time.Since(start)

	if result.Delivered {
		s.logger.Info().Str("url", url).Dur("duration", result.Duration).Msg("heartbeat sent successfully")
	} else {
		s.logger.Warn().Err(result.Error).Int("status", result.StatusCode).Msg("heartbeat failed")
	}

	return result, nil
}
