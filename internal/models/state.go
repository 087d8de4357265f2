package models

import (
	"fmt"
	"strings"
)

// WakeMode decides whether the device is needed while the user is idle.
type WakeMode int

// Wake modes.
const (
	WakeModeOff WakeMode = iota
	WakeModeAuto
	WakeModeAlwaysOn
)

var wakeModeNames = map[WakeMode]string{
	WakeModeOff:      "off",
	WakeModeAuto:     "auto",
	WakeModeAlwaysOn: "always-on",
}

func (m WakeMode) String() string {
	if name, ok := wakeModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("WakeMode(%d)", int(m))
}

// ParseWakeMode parses the kebab-case configuration form of a wake mode.
func ParseWakeMode(s string) (WakeMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for mode, name := range wakeModeNames {
		if name == s {
			return mode, nil
		}
	}
	return WakeModeOff, fmt.Errorf("wake_mode must be one of: off, auto, always-on (got %q)", s)
}

// NeedsDevice reports whether the device must be kept on for the given user activity.
func (m WakeMode) NeedsDevice(userActive bool) bool {
	switch m {
	case WakeModeAlwaysOn:
		return true
	case WakeModeAuto:
		return userActive
	default:
		return false
	}
}

// ClientState is the client's view of the device.
type ClientState int

// Client states.
const (
	StateUnknown ClientState = iota
	StateIdle                // device not needed
	StateWakeUp              // needed, not yet confirmed reachable
	StateNasReady            // needed and confirmed by a heartbeat
)

func (s ClientState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWakeUp:
		return "wake-up"
	case StateNasReady:
		return "nas-ready"
	default:
		return "unknown"
	}
}
