package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/skillcheck/pkg/logger"
	"github.com/okian/skillcheck/pkg/metrics"
	"google.golang.org/genai"
)

const (
	defaultModel       = "gemini-2.0-flash"
	defaultTemperature = 0.7
	defaultTimeout     = 20 * time.Second
)

// Call outcomes recorded in metrics.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
	outcomeEmpty = "empty"
)

// contentGenerator is the slice of *genai.Models used by the client.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient calls the Gemini API. One client is built at startup and
// shared by every request.
type GeminiClient struct {
	models      contentGenerator
	model       string
	temperature float32
	timeout     time.Duration
	logger      logger.Logger
}

// Option configures a GeminiClient.
type Option func(*GeminiClient)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *GeminiClient) {
		if strings.TrimSpace(model) != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *GeminiClient) {
		if t >= 0 {
			c.temperature = float32(t)
		}
	}
}

// WithTimeout bounds every call.
func WithTimeout(d time.Duration) Option {
	return func(c *GeminiClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *GeminiClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewGemini validates apiKey and builds the shared client. An empty key
// yields ErrNotConfigured.
func NewGemini(ctx context.Context, apiKey string, opts ...Option) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiClient(client.Models, opts...), nil
}

func newGeminiClient(models contentGenerator, opts ...Option) *GeminiClient {
	c := &GeminiClient{
		models:      models,
		model:       defaultModel,
		temperature: defaultTemperature,
		timeout:     defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("llm")
	}
	return c
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string { return c.model }

// Generate sends the conversation and returns the concatenated text of the
// first candidate.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	const op = "llm.generate"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	temperature := c.temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.System != "" {
		cfg.SystemInstruction = textContent(string(genai.RoleUser), req.System)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, toContents(req.Turns), cfg)
	elapsed := time.Since(start)
	metrics.RecordLLMLatency(string(req.Purpose), float64(elapsed.Milliseconds()))

	if err != nil {
		metrics.RecordLLMCall(string(req.Purpose), outcomeError)
		c.logger.Warn(ctx, "generation failed",
			logger.String("purpose", string(req.Purpose)),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Text())
	}
	if text == "" {
		metrics.RecordLLMCall(string(req.Purpose), outcomeEmpty)
		return "", fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}

	metrics.RecordLLMCall(string(req.Purpose), outcomeOK)
	c.logger.Debug(ctx, "generation done",
		logger.String("purpose", string(req.Purpose)),
		logger.Duration("elapsed", elapsed),
		logger.Int("chars", len(text)))
	return text, nil
}

func toContents(turns []Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := string(genai.RoleUser)
		if t.Speaker == SpeakerModel {
			role = string(genai.RoleModel)
		}
		out = append(out, textContent(role, t.Text))
	}
	return out
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{Role: role, Parts: []*genai.Part{{Text: text}}}
}
