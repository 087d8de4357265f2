// Package api serves the heartbeat endpoint and read-only status routes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/fgeck/nasboot/internal/services/arbiter"
	"github.com/fgeck/nasboot/internal/services/liveness"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes      = 4 << 10
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// ShutdownStatus reports the arbiter countdown for the status route.
type ShutdownStatus interface {
	Status() arbiter.Status
}

// Server handles client heartbeats.
type Server struct {
	tracker  liveness.Tracker
	shutdown ShutdownStatus
	logger   zerolog.Logger
	now      func() time.Time
	router   *gin.Engine
}

// New creates a server recording heartbeats into tracker. shutdown may be nil.
func New(logger zerolog.Logger, tracker liveness.Tracker, shutdown ShutdownStatus) *Server {
	return NewWithClock(logger, tracker, shutdown, time.Now)
}

// NewWithClock creates a server with a custom clock (for testing).
func NewWithClock(logger zerolog.Logger, tracker liveness.Tracker, shutdown ShutdownStatus, now func() time.Time) *Server {
	s := &Server{
		tracker:  tracker,
		shutdown: shutdown,
		logger:   logger,
		now:      now,
	}

	r := gin.New()
	r.Use(gin.Recovery(), withRequestContext(logger))
	r.POST("/heartbeat", s.handleHeartbeat)
	r.GET("/health", s.handleHealth)
	r.GET("/clients", s.handleClients)
	s.router = r

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is cancelled. A bind failure is returned
// immediately.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	return s.serveListener(ctx, ln)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info().Str("address", ln.Addr().String()).Msg("heartbeat server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("heartbeat server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("heartbeat server shutdown incomplete")
	}
	s.logger.Info().Msg("heartbeat server stopped")
	return nil
}

// handleHeartbeat records the sender at server receipt time. The response is
// always 200 so clients never retry a malformed message.
func (s *Server) handleHeartbeat(c *gin.Context) {
	logger := requestLogger(c, s.logger)
	received := s.now().UTC()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read heartbeat body")
		c.String(http.StatusOK, "OK")
		return
	}

	var msg models.HeartbeatMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		logger.Warn().Err(err).Msg("dropping malformed heartbeat")
		c.String(http.StatusOK, "OK")
		return
	}

	sent, err := time.Parse(time.RFC3339, msg.Timestamp)
	if err != nil {
		logger.Warn().Str("timestamp", msg.Timestamp).Str("hostname", msg.Hostname).Msg("dropping heartbeat with invalid timestamp")
		c.String(http.StatusOK, "OK")
		return
	}

	hostname := strings.TrimSpace(msg.Hostname)
	if hostname == "" {
		logger.Warn().Msg("dropping heartbeat without hostname")
		c.String(http.StatusOK, "OK")
		return
	}

	s.tracker.Record(hostname, received)
	logger.Debug().
		Str("hostname", hostname).
		Dur("clock_skew", received.Sub(sent)).
		Msg("heartbeat received")

	c.String(http.StatusOK, "OK")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type clientsResponse struct {
	Clients              []models.LiveClient `json:"clients"`
	PendingShutdownSince *time.Time          `json:"pending_shutdown_since"`
	PoweredOff           bool                `json:"powered_off"`
	RequestID            string              `json:"request_id"`
}

func (s *Server) handleClients(c *gin.Context) {
	resp := clientsResponse{
		Clients:   s.tracker.Snapshot(),
		RequestID: requestID(c),
	}
	if s.shutdown != nil {
		st := s.shutdown.Status()
		resp.PendingShutdownSince = st.PendingSince
		resp.PoweredOff = st.PoweredOff
	}
	c.JSON(http.StatusOK, resp)
}
