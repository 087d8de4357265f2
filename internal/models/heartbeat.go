package models

import "time"

// HeartbeatMessage is the wire body posted by a client.
type HeartbeatMessage struct {
	Timestamp string `json:"timestamp"`
	Hostname  string `json:"hostname"`
}

// HeartbeatResult holds the outcome of a heartbeat attempt.
type HeartbeatResult struct {
	Delivered  bool // server answered with a 2xx status
	StatusCode int  // zero when no response was received
	Duration   time.Duration
	Error      error
}

// LiveClient is one entry of the server's liveness table.
type LiveClient struct {
	Hostname string    `json:"hostname"`
	LastSeen time.Time `json:"last_seen"`
}
