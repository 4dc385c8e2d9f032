package session

import "time"

// Config holds the time budgets for backend session calls.
type Config struct {
	// SessionTimeout bounds session and token fetches (default: 5s)
	SessionTimeout time.Duration `env:"DIRECTAUTH_SESSION_TIMEOUT" envDefault:"5s"`

	// ProbeTimeout bounds the connectivity liveness probe (default: 3s)
	ProbeTimeout time.Duration `env:"DIRECTAUTH_PROBE_TIMEOUT" envDefault:"3s"`
}

// DefaultConfig returns the default time budgets.
func DefaultConfig() Config {
	return Config{
		SessionTimeout: 5 * time.Second,
		ProbeTimeout:   3 * time.Second,
	}
}
