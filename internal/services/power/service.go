// Package power issues the device power-off, locally or over SSH.
package power

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

const dialTimeout = 30 * time.Second

// Service defines the power-off operations.
type Service interface {
	PowerOff(ctx context.Context, cfg models.PowerOffConfig) (*models.PowerOffResult, error)
	TestConnection(ctx context.Context, cfg models.SSHShutdownConfig) (*models.PowerOffResult, error)
}

// CommandStarter launches a local command without waiting for it.
type CommandStarter interface {
	Start(name string, args ...string) error
}

// DefaultStarter starts commands with os/exec and reaps them in the background.
type DefaultStarter struct{}

// Start launches the command and returns once it is running.
func (s *DefaultStarter) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Impl implements the power Service interface.
type Impl struct {
	starter       CommandStarter
	clientFactory ClientFactory
	logger        zerolog.Logger
}

// New creates a new power service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		starter:       &DefaultStarter{},
		clientFactory: &DefaultClientFactory{},
		logger:        logger,
	}
}

// NewWith creates a power service with custom collaborators (for testing).
func NewWith(logger zerolog.Logger, starter CommandStarter, factory ClientFactory) *Impl {
	return &Impl{
		starter:       starter,
		clientFactory: factory,
		logger:        logger,
	}
}

// PowerOff issues the configured power-off command once. Failures are
// reported in the result; the returned error is for invalid configuration.
func (s *Impl) PowerOff(ctx context.Context, cfg models.PowerOffConfig) (*models.PowerOffResult, error) {
	switch cfg.Method {
	case models.PowerOffSSH:
		if cfg.SSH == nil {
			return nil, fmt.Errorf("power_off.ssh settings are required for method %q", cfg.Method)
		}
		return s.remote(ctx, *cfg.SSH, ShutdownCommand(cfg.SSH.OS)), nil
	case models.PowerOffLocal, "":
		return s.local(cfg.Command)
	default:
		return nil, fmt.Errorf("unknown power_off method %q", cfg.Method)
	}
}

func (s *Impl) local(command string) (*models.PowerOffResult, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("power_off.command is empty")
	}

	s.logger.Info().Str("command", command).Msg("initiating system shutdown")

	result := &models.PowerOffResult{}
	if err := s.starter.Start(fields[0], fields[1:]...); err != nil {
		result.Error = fmt.Errorf("failed to issue shutdown command: %w", err)
		s.logger.Error().Err(result.Error).Msg("shutdown command failed")
		return result, nil
	}
	result.CommandRun = true
	s.logger.Info().Msg("shutdown command issued")
	return result, nil
}

// ShutdownCommand returns the immediate shutdown command for the target OS.
func ShutdownCommand(targetOS string) string {
	if targetOS == "windows" {
		return "shutdown /s /t 0"
	}
	return "sudo shutdown -h now"
}

// TestConnection verifies SSH connectivity without shutting anything down.
func (s *Impl) TestConnection(ctx context.Context, cfg models.SSHShutdownConfig) (*models.PowerOffResult, error) {
	s.logger.Debug().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Msg("testing SSH connection")

	result := s.remote(ctx, cfg, "echo OK")
	if result.Error == nil && strings.TrimSpace(result.Output) != "OK" {
		result.Error = fmt.Errorf("unexpected test output %q", strings.TrimSpace(result.Output))
	}
	return result, nil
}

func (s *Impl) remote(ctx context.Context, cfg models.SSHShutdownConfig, cmd string) *models.PowerOffResult {
	result := &models.PowerOffResult{}

	s.logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("user", cfg.Username).
		Str("command", cmd).
		Msg("running remote command")

	sshConfig, err := buildConfig(cfg)
	if err != nil {
		result.Error = err
		return result
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	type dialResult struct {
		client SSHClient
		err    error
	}
	dialed := make(chan dialResult, 1)
	go func() {
		client, err := s.clientFactory.NewClient("tcp", addr, sshConfig)
		dialed <- dialResult{client, err}
	}()

	var client SSHClient
	select {
	case <-ctx.Done():
		result.Error = ctx.Err()
		return result
	case res := <-dialed:
		if res.err != nil {
			result.Error = fmt.Errorf("failed to connect: %w", res.err)
			return result
		}
		client = res.client
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		return result
	}
	defer func() { _ = session.Close() }()

	output, err := session.CombinedOutput(cmd)
	result.Output = string(output)
	result.CommandRun = true

	if err != nil {
		// A shutdown usually drops the connection before the command exits cleanly.
		if ctx.Err() != nil {
			result.Error = ctx.Err()
		} else {
			s.logger.Warn().Err(err).Str("output", result.Output).Msg("remote command returned error (may be expected)")
		}
	}

	s.logger.Info().
		Bool("command_run", result.CommandRun).
		Str("output", result.Output).
		Msg("remote command completed")

	return result
}

func buildConfig(cfg models.SSHShutdownConfig) (*ssh.ClientConfig, error) {
	key := cfg.PrivateKey
	if len(key) == 0 {
		if cfg.KeyPath == "" {
			return nil, fmt.Errorf("no private key provided")
		}
		var err error
		key, err = os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key from %s: %w", cfg.KeyPath, err)
		}
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // LAN appliance
		Timeout:         dialTimeout,
	}, nil
}
