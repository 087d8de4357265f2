// Package wol provides Wake-on-LAN operations.
package wol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/fgeck/nasboot/internal/models"
	"github.com/mdlayher/wol"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// ErrInvalidMAC is returned when the configured hardware address cannot be parsed.
var ErrInvalidMAC = errors.New("invalid MAC address")

// Ports is the set of legacy Wake-on-LAN ports every path sends to.
var Ports = []int{7, 9}

const (
	globalBroadcast = "255.255.255.255"
	pathTimeout     = 2 * time.Second
)

var pathOrder = map[models.WakePath]int{
	models.WakePathBroadcast: 0,
	models.WakePathSubnet:    1,
	models.WakePathDirect:    2,
}

var macPattern = regexp.MustCompile(`^[0-9A-Fa-f]{2}([:-][0-9A-Fa-f]{2}){5}$`)

// Service defines the interface for Wake-on-LAN operations.
type Service interface {
	Wake(ctx context.Context, cfg models.WakeConfig) (*models.WakeResult, error)
}

// Client wraps the wol library for mocking.
type Client interface {
	Wake(addr string, mac net.HardwareAddr) error
}

// DefaultClient is the default implementation using mdlayher/wol.
type DefaultClient struct{}

// Wake sends a magic packet to addr (host:port) for the given MAC address.
func (c *DefaultClient) Wake(addr string, mac net.HardwareAddr) error {
	client, err := wol.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create WOL client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Wake(addr, mac); err != nil {
		return fmt.Errorf("failed to send WOL packet to %s: %w", addr, err)
	}

	return nil
}

// Impl implements the WOL Service interface.
type Impl struct {
	wolClient Client
	timeout   time.Duration
	logger    zerolog.Logger
}

// New creates a new WOL service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		wolClient: &DefaultClient{},
		timeout:   pathTimeout,
		logger:    logger,
	}
}

// NewWithClient creates a new WOL service with a custom client and per-path timeout (for testing).
func NewWithClient(logger zerolog.Logger, wolClient Client, timeout time.Duration) *Impl {
	return &Impl{
		wolClient: wolClient,
		timeout:   timeout,
		logger:    logger,
	}
}

// ParseMAC parses a hardware address of six ':'- or '-'-separated hex octets.
func ParseMAC(s string) (net.HardwareAddr, error) {
	if !macPattern.MatchString(s) {
		return nil, fmt.Errorf("%w %q: expected six ':' or '-' separated hex octets", ErrInvalidMAC, s)
	}
	mac, err := net.ParseMAC(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidMAC, s, err)
	}
	return mac, nil
}

// MagicPacket returns the 102-byte payload for the given hardware address.
func MagicPacket(mac net.HardwareAddr) ([]byte, error) {
	return (&wol.MagicPacket{Target: mac}).MarshalBinary()
}

// SubnetBroadcast returns the /24 directed broadcast address for recognized private
// ranges (192.168.0.0/16 and 10.0.0.0/8). ok is false for anything else.
func SubnetBroadcast(deviceIP string) (net.IP, bool) {
	ip := net.ParseIP(deviceIP).To4()
	if ip == nil {
		return nil, false
	}
	if (ip[0] == 192 && ip[1] == 168) || ip[0] == 10 {
		return net.IPv4(ip[0], ip[1], ip[2], 255), true
	}
	return nil, false
}

// Wake sends the magic packet over every applicable path. An error is returned only
// for an invalid MAC address; network failures are reported per path in the result.
func (s *Impl) Wake(ctx context.Context, cfg models.WakeConfig) (*models.WakeResult, error) {
	start := time.Now()

	mac, err := ParseMAC(cfg.MACAddress)
	if err != nil {
		return nil, err
	}

	type target struct {
		path models.WakePath
		ip   string
	}
	targets := []target{{models.WakePathBroadcast, globalBroadcast}}
	if subnet, ok := SubnetBroadcast(cfg.DeviceIP); ok {
		targets = append(targets, target{models.WakePathSubnet, subnet.String()})
	} else {
		s.logger.Debug().Str("device_ip", cfg.DeviceIP).Msg("no recognized private subnet, skipping directed broadcast")
	}
	if ip := net.ParseIP(cfg.DeviceIP).To4(); ip != nil {
		targets = append(targets, target{models.WakePathDirect, ip.String()})
	}

	s.logger.Info().
		Str("mac", mac.String()).
		Int("paths", len(targets)).
		Msg("sending WOL packet")

	p := pool.NewWithResults[models.WakePathResult]()
	for _, t := range targets {
		p.Go(func() models.WakePathResult {
			return s.sendPath(ctx, t.path, t.ip, mac)
		})
	}
	paths := p.Wait()
	slices.SortFunc(paths, func(a, b models.WakePathResult) int {
		return pathOrder[a.Path] - pathOrder[b.Path]
	})

	result := &models.WakeResult{Paths: paths, Duration: time.Since(start)}
	for _, r := range paths {
		event := s.logger.Debug()
		if r.Error != nil {
			event = s.logger.Warn().Err(r.Error)
		}
		event.
			Str("path", string(r.Path)).
			Str("target", r.Target).
			Bool("sent", r.Sent).
			Bool("timed_out", r.TimedOut).
			Msg("WOL path finished")
	}

	if result.PacketSent() {
		s.logger.Info().Dur("duration", result.Duration).Msg("WOL packet sent successfully")
	} else {
		s.logger.Warn().Msg("WOL packet could not be sent through any path")
	}

	return result, nil
}

// sendPath delivers the packet to ip on every port, bounded by the per-path timeout.
func (s *Impl) sendPath(ctx context.Context, path models.WakePath, ip string, mac net.HardwareAddr) models.WakePathResult {
	result := models.WakePathResult{Path: path, Target: ip}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var firstErr error
		for _, port := range Ports {
			addr := net.JoinHostPort(ip, strconv.Itoa(port))
			if err := s.wolClient.Wake(addr, mac); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			s.logger.Debug().Str("addr", addr).Msg("sent WOL packet")
		}
		done <- firstErr
	}()

	select {
	case <-ctx.Done():
		result.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		result.Error = fmt.Errorf("%s path: %w", path, ctx.Err())
	case err := <-done:
		if err != nil {
			result.Error = fmt.Errorf("%s path: %w", path, err)
		} else {
			result.Sent = true
		}
	}

	return result
}
