// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Nested sections map to koanf paths, e.g. llm.api_key.
// - Errors returned from Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	LLM       LLMConfig       `koanf:"llm"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	Mentor    MentorConfig    `koanf:"mentor"`
	Content   ContentConfig   `koanf:"content"`
	Redis     RedisConfig     `koanf:"redis"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
}

// LLMConfig configures the text-generation backend.
type LLMConfig struct {
	// APIKey falls back to GEMINI_API_KEY when empty.
	APIKey      string  `koanf:"api_key"`
	Model       string  `koanf:"model"`
	Temperature float64 `koanf:"temperature"`
	TimeoutMS   int     `koanf:"timeout_ms"`

	// Required makes a missing key fatal at startup. When false the
	// model-backed endpoints answer 503 instead.
	Required bool `koanf:"required"`
}

// Timeout returns the per-call timeout.
func (c LLMConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }

// ScoringConfig weights the two halves of the global score.
type ScoringConfig struct {
	LikertWeight float64 `koanf:"likert_weight"`
	OpenWeight   float64 `koanf:"open_weight"`

	// FallbackOpenScore is used when the model's open-ended score cannot be recovered.
	FallbackOpenScore int `koanf:"fallback_open_score"`
}

// MentorConfig configures the mentor conversation.
type MentorConfig struct {
	// PhasePolicy is "intent" or "optimistic".
	PhasePolicy string `koanf:"phase_policy"`
}

// ContentConfig locates the served documents.
type ContentConfig struct {
	// Dir overrides the embedded questions.json and rubrics.json.
	Dir string `koanf:"dir"`
}

// RedisConfig configures the rate limiter backend. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// RateLimitConfig sets the per-client token refill rate. X-Forwarded-For is
// honoured only for requests arriving from TrustedProxies (addresses or CIDRs).
type RateLimitConfig struct {
	QPS            int      `koanf:"qps"`
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// CORSConfig lists allowed browser origins. "*" allows any.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		ShutdownTimeoutMS: 10_000,
		LLM: LLMConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.7,
			TimeoutMS:   20_000,
			Required:    true,
		},
		Scoring: ScoringConfig{
			LikertWeight:      0.6,
			OpenWeight:        0.4,
			FallbackOpenScore: 50,
		},
		Mentor:    MentorConfig{PhasePolicy: "intent"},
		RateLimit: RateLimitConfig{QPS: 2},
		CORS:      CORSConfig{AllowedOrigins: []string{"*"}},
	}
}
