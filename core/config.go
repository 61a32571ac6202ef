package core

import (
	"fmt"
	"time"
)

// DefaultSessionIdleTTL is how long an untouched edit session survives.
const DefaultSessionIdleTTL = 30 * time.Minute

// Config is the high-level service configuration. Zero durations pick the
// defaults.
type Config struct {
	// GateTicketTTL bounds the gap between passing the password gate and
	// opening an edit session.
	GateTicketTTL time.Duration
	// SessionIdleTTL is the idle time after which the sweeper closes a session.
	SessionIdleTTL time.Duration
}

// NewFromConfig creates a Service from Config.
func NewFromConfig(cfg Config) (*Service, error) {
	if cfg.GateTicketTTL < 0 {
		return nil, fmt.Errorf("profilekit: GateTicketTTL must not be negative")
	}
	if cfg.SessionIdleTTL < 0 {
		return nil, fmt.Errorf("profilekit: SessionIdleTTL must not be negative")
	}
	opts := Options{
		GateTicketTTL:  cfg.GateTicketTTL,
		SessionIdleTTL: cfg.SessionIdleTTL,
	}
	return NewService(opts), nil
}
