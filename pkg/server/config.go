package server

import (
	"log/slog"

	"github.com/teslashibe/medi-voice/pkg/inference"
	"github.com/teslashibe/medi-voice/pkg/knowledge"
)

// DefaultRateLimit is the per-client request budget for the stateless
// endpoint, per minute.
const DefaultRateLimit = 60

// Config configures the HTTP server.
type Config struct {
	// StaticDir serves a browser UI from / when set.
	StaticDir string

	// RateLimit caps POST /api/medical-ai per client IP per minute.
	// Zero disables the limiter.
	RateLimit int

	// Debug enables per-request logging.
	Debug bool

	// Provider is checked by /health. Nil reports the remote service as
	// not configured.
	Provider inference.Provider

	// Panel is served at /api/knowledge.
	Panel knowledge.Panel

	Logger *slog.Logger
}

// Option configures the server.
type Option func(*Config)

// WithStaticDir serves files from dir.
func WithStaticDir(dir string) Option {
	return func(c *Config) { c.StaticDir = dir }
}

// WithRateLimit sets requests per minute for the stateless endpoint.
func WithRateLimit(n int) Option {
	return func(c *Config) { c.RateLimit = n }
}

// WithDebug enables request logging.
func WithDebug(on bool) Option {
	return func(c *Config) { c.Debug = on }
}

// WithProvider sets the provider reported by /health.
func WithProvider(p inference.Provider) Option {
	return func(c *Config) { c.Provider = p }
}

// WithPanel replaces the knowledge panel.
func WithPanel(p knowledge.Panel) Option {
	return func(c *Config) { c.Panel = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the server defaults.
func DefaultConfig() *Config {
	return &Config{
		RateLimit: DefaultRateLimit,
		Panel:     knowledge.Default(),
		Logger:    slog.Default(),
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
