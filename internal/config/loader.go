package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/skillcheck/internal/domain/phase"
)

const (
	envPrefix     = "SKILLCHECK_"
	envConfigFile = envPrefix + "CONFIG"
	envSeparator  = "__"

	// GeminiKeyEnv is read when llm.api_key is not set.
	GeminiKeyEnv = "GEMINI_API_KEY"

	maxScore = 100
)

// listKeys are comma-separated when read from the environment.
var listKeys = map[string]struct{}{ //nolint:gochecknoglobals // fixed set
	"cors.allowed_origins":       {},
	"rate_limit.trusted_proxies": {},
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if SKILLCHECK_CONFIG is set
//  3. env (prefix SKILLCHECK_, "__" between sections: SKILLCHECK_LLM__API_KEY)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		key = strings.ReplaceAll(key, envSeparator, ".")
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", ErrLoadConfig, err)
	}

	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		cfg.LLM.APIKey = os.Getenv(GeminiKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values Load cannot coerce.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Scoring.LikertWeight < 0 || c.Scoring.OpenWeight < 0:
		return fmt.Errorf("%w: scoring weights must not be negative", ErrInvalidConfig)
	case c.Scoring.FallbackOpenScore < 0 || c.Scoring.FallbackOpenScore > maxScore:
		return fmt.Errorf("%w: scoring.fallback_open_score must be within 0..100", ErrInvalidConfig)
	case c.LLM.TimeoutMS <= 0:
		return fmt.Errorf("%w: llm.timeout_ms must be positive", ErrInvalidConfig)
	case c.RateLimit.QPS < 0:
		return fmt.Errorf("%w: rate_limit.qps must not be negative", ErrInvalidConfig)
	}
	if _, err := phase.ParsePolicy(c.Mentor.PhasePolicy); err != nil {
		return fmt.Errorf("%w: mentor.phase_policy: %w", ErrInvalidConfig, err)
	}
	return nil
}
