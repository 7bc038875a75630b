package config

import "errors"

// Sentinel error kinds returned by Load and Validate.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	// ErrMissingAPIKey is reported when llm.required is set and no key was found.
	ErrMissingAPIKey = errors.New("llm.api_key (or " + GeminiKeyEnv + ") is required")
)
