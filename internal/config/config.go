// Package config provides configuration helpers for medi-voice commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultPort       = 8080
	DefaultModel      = "gpt-3.5-turbo"
	DefaultSessionTTL = 30 * time.Minute
	DefaultTTSVoice   = "shimmer"
	DefaultDispatch   = "concurrent"
	DefaultLogLevel   = "info"
	DefaultServerURL  = "http://localhost:8080"
	DefaultRateLimit  = 60
)

// Config holds all configuration for the medi-voice server.
// Flag parsing is done in cmd/; this struct is data only.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// Debug enables request logging.
	Debug bool

	// OpenAI credentials and model. An empty key is allowed: every
	// exchange then resolves through the fallback responder.
	OpenAIKey     string
	OpenAIBaseURL string
	Model         string

	// Redis session store. Empty address keeps sessions in process memory.
	RedisAddr string
	RedisDB   int

	// SessionTTL is how long an idle session is kept.
	SessionTTL time.Duration

	// Dispatch selects how overlapping utterances are handled:
	// "concurrent" or "serial".
	Dispatch string

	// Server-side speech synthesis.
	TTSEnabled bool
	TTSVoice   string

	// StaticDir serves a browser UI when set.
	StaticDir string

	// RateLimit is requests per minute per client on the stateless
	// endpoint. Zero disables it.
	RateLimit int
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:       DefaultPort,
		LogLevel:   DefaultLogLevel,
		Model:      DefaultModel,
		SessionTTL: DefaultSessionTTL,
		Dispatch:   DefaultDispatch,
		TTSVoice:   DefaultTTSVoice,
		RateLimit:  DefaultRateLimit,
	}
}

// Load reads an optional env file, then applies the process environment
// on top of Default. A missing env file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if v := get("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, &Error{Field: "PORT", Message: "must be an integer"}
		}
		cfg.Port = port
	}
	if v := get("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.OpenAIKey = get("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = get("OPENAI_BASE_URL")
	if v := get("MEDIVOICE_MODEL"); v != "" {
		cfg.Model = v
	}
	cfg.RedisAddr = get("REDIS_ADDR")
	if v := get("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, &Error{Field: "REDIS_DB", Message: "must be an integer"}
		}
		cfg.RedisDB = db
	}
	if v := get("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, &Error{Field: "SESSION_TTL", Message: "must be a duration like 30m"}
		}
		cfg.SessionTTL = ttl
	}
	if v := get("MEDIVOICE_DISPATCH"); v != "" {
		cfg.Dispatch = strings.ToLower(v)
	}
	if v := get("TTS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, &Error{Field: "TTS_ENABLED", Message: "must be a boolean"}
		}
		cfg.TTSEnabled = enabled
	}
	if v := get("TTS_VOICE"); v != "" {
		cfg.TTSVoice = v
	}
	cfg.StaticDir = get("STATIC_DIR")
	if v := get("RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, &Error{Field: "RATE_LIMIT", Message: "must be an integer"}
		}
		cfg.RateLimit = n
	}
	if v := get("DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, &Error{Field: "DEBUG", Message: "must be a boolean"}
		}
		cfg.Debug = debug
	}

	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return &Error{Field: "PORT", Message: "must be between 1 and 65535"}
	}
	if c.SessionTTL <= 0 {
		return &Error{Field: "SESSION_TTL", Message: "must be positive"}
	}
	switch c.Dispatch {
	case "concurrent", "serial":
	default:
		return &Error{Field: "MEDIVOICE_DISPATCH", Message: `must be "concurrent" or "serial"`}
	}
	if c.RateLimit < 0 {
		return &Error{Field: "RATE_LIMIT", Message: "must not be negative"}
	}
	if c.TTSEnabled && c.OpenAIKey == "" {
		return &Error{Field: "TTS_ENABLED", Message: "OPENAI_API_KEY is required for server-side speech"}
	}
	return nil
}

// ServerURL returns the base URL a client should use, from MEDIVOICE_URL
// or the local default.
func ServerURL() string {
	if u := os.Getenv("MEDIVOICE_URL"); u != "" {
		return strings.TrimSuffix(u, "/")
	}
	return DefaultServerURL
}

// Error represents a configuration validation error.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Message)
}
