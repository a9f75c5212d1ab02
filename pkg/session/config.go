package session

import (
	"log/slog"
	"time"

	"github.com/teslashibe/medi-voice/pkg/assistant"
	"github.com/teslashibe/medi-voice/pkg/hub"
	"github.com/teslashibe/medi-voice/pkg/tts"
)

// Default configuration values.
const (
	DefaultTTL              = 30 * time.Minute
	DefaultReapInterval     = time.Minute
	DefaultOutboundBuffer   = 64
	DefaultSynthesisTimeout = 15 * time.Second
)

// Config configures a Manager.
type Config struct {
	// TTL is how long a session may sit idle before it is reaped.
	TTL time.Duration

	// ReapInterval is how often idle sessions are looked for.
	ReapInterval time.Duration

	// OutboundBuffer is the capacity of each session's event channel.
	// Events are dropped when a client falls this far behind.
	OutboundBuffer int

	// Stores creates the conversation store for a new session.
	Stores StoreFactory

	// TTS attaches synthesized audio to playback requests when set.
	TTS              tts.Provider
	SynthesisTimeout time.Duration

	// Hub receives every session's events for observers when set.
	Hub *hub.Hub

	// DispatchOptions are passed to each session's Dispatcher.
	DispatchOptions []assistant.Option

	Logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Config)

// WithTTL sets the idle timeout.
func WithTTL(d time.Duration) Option {
	return func(c *Config) { c.TTL = d }
}

// WithReapInterval sets how often idle sessions are collected.
func WithReapInterval(d time.Duration) Option {
	return func(c *Config) { c.ReapInterval = d }
}

// WithOutboundBuffer sets the per-session event buffer.
func WithOutboundBuffer(n int) Option {
	return func(c *Config) { c.OutboundBuffer = n }
}

// WithStores sets the conversation store factory.
func WithStores(f StoreFactory) Option {
	return func(c *Config) { c.Stores = f }
}

// WithTTS enables server-side synthesis.
func WithTTS(p tts.Provider) Option {
	return func(c *Config) { c.TTS = p }
}

// WithSynthesisTimeout bounds each synthesis request.
func WithSynthesisTimeout(d time.Duration) Option {
	return func(c *Config) { c.SynthesisTimeout = d }
}

// WithHub mirrors session events to an observer hub.
func WithHub(h *hub.Hub) Option {
	return func(c *Config) { c.Hub = h }
}

// WithDispatchOptions sets options for every session's Dispatcher.
func WithDispatchOptions(opts ...assistant.Option) Option {
	return func(c *Config) { c.DispatchOptions = append(c.DispatchOptions, opts...) }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns a Config with in-memory stores and no synthesis.
func DefaultConfig() *Config {
	return &Config{
		TTL:              DefaultTTL,
		ReapInterval:     DefaultReapInterval,
		OutboundBuffer:   DefaultOutboundBuffer,
		Stores:           MemoryStores(),
		SynthesisTimeout: DefaultSynthesisTimeout,
		Logger:           slog.Default(),
	}
}

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.OutboundBuffer <= 0 {
		c.OutboundBuffer = DefaultOutboundBuffer
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = DefaultReapInterval
	}
	if c.Stores == nil {
		c.Stores = MemoryStores()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
