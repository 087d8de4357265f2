// Package veto evaluates the advisory signals that block a pending shutdown.
package veto

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const processListTimeout = 10 * time.Second

// Service defines the veto check used before powering off.
type Service interface {
	Check(ctx context.Context) models.VetoResult
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its standard output.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Impl implements the veto Service interface.
type Impl struct {
	fs             afero.Fs
	executor       CommandExecutor
	keepaliveFile  string
	processPattern string
	logger         zerolog.Logger
}

// New creates a veto service using the OS filesystem and process list.
func New(logger zerolog.Logger, keepaliveFile, processPattern string) *Impl {
	return NewWith(logger, afero.NewOsFs(), &DefaultExecutor{}, keepaliveFile, processPattern)
}

// NewWith creates a veto service with a custom filesystem and executor (for testing).
func NewWith(logger zerolog.Logger, fs afero.Fs, executor CommandExecutor, keepaliveFile, processPattern string) *Impl {
	return &Impl{
		fs:             fs,
		executor:       executor,
		keepaliveFile:  keepaliveFile,
		processPattern: processPattern,
		logger:         logger,
	}
}

// Check reports the first active veto. The keepalive marker is checked first
// and short-circuits the process listing.
func (s *Impl) Check(ctx context.Context) models.VetoResult {
	if s.keepaliveFile != "" {
		exists, err := afero.Exists(s.fs, s.keepaliveFile)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", s.keepaliveFile).Msg("failed to stat keepalive file")
		}
		if exists {
			s.logger.Info().Str("path", s.keepaliveFile).Msg("keepalive file exists, not shutting down")
			return models.VetoResult{Vetoed: true, Reason: models.VetoKeepaliveFile, Detail: s.keepaliveFile}
		}
	}

	if s.processPattern == "" {
		return models.VetoResult{}
	}

	if line, ok := s.findProcess(ctx); ok {
		s.logger.Info().Str("pattern", s.processPattern).Str("process", line).Msg("backup process running, not shutting down")
		return models.VetoResult{Vetoed: true, Reason: models.VetoBackupProcess, Detail: line}
	}
	return models.VetoResult{}
}

// findProcess scans `ps aux` for the configured pattern. A failed listing
// counts as no match.
func (s *Impl) findProcess(ctx context.Context) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, processListTimeout)
	defer cancel()

	output, err := s.executor.Execute(ctx, "ps", "aux")
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to execute ps command")
		return "", false
	}

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, s.processPattern) {
			return strings.TrimSpace(line), true
		}
	}
	return "", false
}
