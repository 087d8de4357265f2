package models

import "time"

// WakeConfig holds Wake-on-LAN target settings.
type WakeConfig struct {
	MACAddress string
	DeviceIP   string
}

// WakePath names one of the delivery routes for a magic packet.
type WakePath string

// Wake paths, in the order they are attempted.
const (
	WakePathBroadcast WakePath = "broadcast"
	WakePathSubnet    WakePath = "subnet"
	WakePathDirect    WakePath = "direct"
)

// WakePathResult holds the outcome of a single wake path.
type WakePathResult struct {
	Path     WakePath
	Target   string
	Sent     bool
	TimedOut bool
	Error    error
}

// WakeResult holds the result of a Wake-on-LAN attempt over all paths.
type WakeResult struct {
	Paths    []WakePathResult
	Duration time.Duration
}

// PacketSent reports whether any path delivered the packet to the network.
func (r *WakeResult) PacketSent() bool {
	for _, p := range r.Paths {
		if p.Sent {
			return true
		}
	}
	return false
}
