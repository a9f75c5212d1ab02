package assistant

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/teslashibe/medi-voice/pkg/conversation"
	"github.com/teslashibe/medi-voice/pkg/inference"
)

// SystemPrompt instructs the remote model to act as a cautious medical assistant.
const SystemPrompt = `You are Medi-Voice AI, a professional medical assistant that helps healthcare professionals and patients with medical information.

IMPORTANT MEDICAL DISCLAIMERS:
- Always remind users that this is not a substitute for professional medical advice
- For emergencies, advise users to call emergency services immediately
- Encourage users to consult qualified healthcare professionals
- Never provide specific diagnoses or treatment recommendations

Your capabilities include:
- Explaining medical symptoms and conditions in simple terms
- Providing general health information
- Discussing medication information and interactions
- Offering wellness and prevention advice
- Helping with medical terminology
- Providing first aid guidance

Guidelines:
- Be accurate, helpful, and empathetic
- Use clear, understandable language
- Always prioritize patient safety
- Include appropriate disclaimers
- Stay within the scope of general medical information
- Redirect requests for specific medical advice to healthcare professionals

Respond conversationally while maintaining medical accuracy and safety. Your replies are read aloud, so keep them reasonably short.`

// Policy controls how overlapping utterances are handled.
type Policy int

const (
	// PolicyConcurrent lets exchanges overlap. Replies are appended in
	// completion order, which may differ from the order utterances arrived.
	PolicyConcurrent Policy = iota

	// PolicySerial runs one exchange at a time. Later utterances wait and are
	// served in arrival order, so the log always alternates user/assistant.
	PolicySerial
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicySerial:
		return "serial"
	default:
		return "concurrent"
	}
}

// ParsePolicy parses "concurrent" or "serial".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "concurrent":
		return PolicyConcurrent, nil
	case "serial":
		return PolicySerial, nil
	}
	return PolicyConcurrent, fmt.Errorf("assistant: unknown dispatch policy %q", s)
}

// Config holds resolver and dispatcher settings.
type Config struct {
	SystemPrompt  string
	ContextWindow int

	// Request constraints passed to the provider.
	Model       string
	MaxTokens   int
	Temperature float64

	Policy Policy
	Logger *slog.Logger
}

// Option is a functional option for Resolver and Dispatcher.
type Option func(*Config)

// WithSystemPrompt replaces the system instructions.
func WithSystemPrompt(p string) Option {
	return func(c *Config) { c.SystemPrompt = p }
}

// WithContextWindow sets how many prior messages are sent as context.
func WithContextWindow(n int) Option {
	return func(c *Config) { c.ContextWindow = n }
}

// WithModel overrides the provider's default model.
func WithModel(m string) Option {
	return func(c *Config) { c.Model = m }
}

// WithMaxTokens sets the response length limit.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

// WithPolicy sets the overlapping-utterance policy.
func WithPolicy(p Policy) Option {
	return func(c *Config) { c.Policy = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the settings used by the medical assistant.
func DefaultConfig() *Config {
	return &Config{
		SystemPrompt:  SystemPrompt,
		ContextWindow: conversation.ContextWindow,
		MaxTokens:     inference.DefaultMaxTokens,
		Temperature:   inference.DefaultTemperature,
		Policy:        PolicyConcurrent,
		Logger:        slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
