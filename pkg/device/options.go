package device

import (
	"io"
	"log/slog"
	"time"
)

// Config holds the Handle configuration.
type Config struct {
	// Logger receives transfer logs at Debug and lifecycle events at Info.
	Logger *slog.Logger

	// RestoreTimeout bounds how long RestoreDefaults waits for the device
	// to come back initialized.
	RestoreTimeout time.Duration

	// PollInterval is the delay between polls while restoring defaults.
	PollInterval time.Duration
}

// DefaultConfig returns the default Handle configuration.
func DefaultConfig() Config {
	return Config{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		RestoreTimeout: 3 * time.Second,
		PollInterval:   100 * time.Millisecond,
	}
}

// Option is a functional option for configuring a Handle.
type Option func(*Config)

// WithLogger sets the logger used by the Handle.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithRestoreTimeout overrides the restore-defaults deadline.
func WithRestoreTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.RestoreTimeout = d
	}
}

// WithPollInterval overrides the restore-defaults poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		c.PollInterval = d
	}
}
