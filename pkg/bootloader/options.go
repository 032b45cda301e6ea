package bootloader

import (
	"io"
	"log/slog"
)

// Config holds the Handle configuration.
type Config struct {
	Logger *slog.Logger

	// MaxEraseSteps bounds the number of erase-flash requests issued
	// before giving up on a bootloader that never reports completion.
	MaxEraseSteps int
}

// DefaultConfig returns the default Handle configuration.
func DefaultConfig() Config {
	return Config{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxEraseSteps: 65536,
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

// WithMaxEraseSteps overrides the erase-flash request bound.
func WithMaxEraseSteps(n int) Option {
	return func(c *Config) {
		c.MaxEraseSteps = n
	}
}

// Progress reports how far a long operation has come.
type Progress struct {
	Status  string
	Current int
	Max     int
}

// Percent returns the completion percentage, 0 when Max is unknown.
func (p Progress) Percent() float64 {
	if p.Max <= 0 {
		return 0
	}
	return float64(p.Current) * 100 / float64(p.Max)
}

// ProgressFunc receives progress updates. It is called on the goroutine
// running the operation.
type ProgressFunc func(Progress)
