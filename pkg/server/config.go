package server

import "time"

// Config configures the browse API HTTP server.
type Config struct {
	// Listen is the TCP address, e.g. ":8089".
	Listen string

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration

	// WriteTimeout bounds a whole response, including content downloads.
	// Default: 5m
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown once the context is done.
	// Default: 30s
	ShutdownTimeout time.Duration

	// Version is reported by /health.
	Version string
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8089"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}
