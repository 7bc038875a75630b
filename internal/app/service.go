// Package service orchestrates scoring, model calls and fallbacks behind
// the HTTP API.
package service

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okian/skillcheck/internal/adapters/llm"
	"github.com/okian/skillcheck/internal/domain/extract"
	"github.com/okian/skillcheck/internal/domain/model"
	"github.com/okian/skillcheck/internal/domain/phase"
	"github.com/okian/skillcheck/internal/domain/scoring"
	"github.com/okian/skillcheck/pkg/logger"
)

const (
	defaultFallbackOpenScore = 50
	openScoreField           = "score"
	openJustificationField   = "justification"
)

// RubricSource looks up the rubric used to score an open-ended answer.
type RubricSource interface {
	Rubric(skillID string) string
}

// Service implements the API dependencies. It keeps no conversation state;
// every request carries the full history.
type Service struct {
	generator llm.Generator
	engine    *scoring.Engine
	tracker   *phase.Tracker
	openScore *extract.Extractor
	exercise  *extract.Extractor
	rubrics   RubricSource

	fallbackOpenScore int
	model             string
	startedAt         time.Time

	counters counters
	logger   logger.Logger
}

type counters struct {
	scored          atomic.Int64
	tips            atomic.Int64
	mentorTurns     atomic.Int64
	strategistTurns atomic.Int64
	feedback        atomic.Int64
	fallbacks       atomic.Int64
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithGenerator injects the language model client. Without one, model-backed
// operations return ErrNotConfigured.
func WithGenerator(g llm.Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

// WithModelName records the model name for stats.
func WithModelName(name string) Option {
	return func(s *Service) {
		s.model = name
	}
}

// WithScoringEngine sets the scoring engine.
func WithScoringEngine(e *scoring.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithPhaseTracker sets the mentor phase tracker.
func WithPhaseTracker(t *phase.Tracker) Option {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithRubrics sets the rubric source for open-ended scoring.
func WithRubrics(r RubricSource) Option {
	return func(s *Service) {
		if r != nil {
			s.rubrics = r
		}
	}
}

// WithFallbackOpenScore sets the open-ended score used when the model's
// answer cannot be recovered.
func WithFallbackOpenScore(score int) Option {
	return func(s *Service) {
		if score >= 0 && score <= 100 {
			s.fallbackOpenScore = score
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default components.
func New(opts ...Option) *Service {
	s := &Service{
		engine:            scoring.NewEngine(),
		tracker:           phase.NewTracker(),
		openScore:         extract.New(extract.WithFields(openScoreField, openJustificationField)),
		exercise:          extract.New(),
		rubrics:           noRubrics{},
		fallbackOpenScore: defaultFallbackOpenScore,
		startedAt:         time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	if w := s.engine.Weights(); !w.Normalized() {
		s.logger.Warn(context.Background(), "scoring weights do not sum to 1",
			logger.Float64("likert", w.Likert),
			logger.Float64("open", w.Open))
	}
	return s
}

// Configured reports whether a language model client is available.
func (s *Service) Configured() bool { return s.generator != nil }

// GetStats returns a configuration and activity snapshot for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	w := s.engine.Weights()
	return map[string]interface{}{
		"llmConfigured":     s.Configured(),
		"model":             s.model,
		"phasePolicy":       string(s.tracker.Policy()),
		"likertWeight":      w.Likert,
		"openWeight":        w.Open,
		"fallbackOpenScore": s.fallbackOpenScore,
		"uptimeSeconds":     int64(time.Since(s.startedAt).Seconds()),
		"scored":            s.counters.scored.Load(),
		"tipsGenerated":     s.counters.tips.Load(),
		"mentorTurns":       s.counters.mentorTurns.Load(),
		"strategistTurns":   s.counters.strategistTurns.Load(),
		"feedbackReceived":  s.counters.feedback.Load(),
		"fallbacks":         s.counters.fallbacks.Load(),
	}
}

type noRubrics struct{}

func (noRubrics) Rubric(string) string { return "" }

// toTurns maps a chat history to model turns. The model expects the
// conversation to open with the user and to alternate, so a synthetic
// opening is prepended when needed and consecutive turns of one speaker
// are merged.
func toTurns(messages []model.Message, opening string) []llm.Turn {
	turns := make([]llm.Turn, 0, len(messages)+1)
	for _, m := range messages {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		speaker := llm.SpeakerModel
		if m.Sender == model.RoleUser {
			speaker = llm.SpeakerUser
		}
		if n := len(turns); n > 0 && turns[n-1].Speaker == speaker {
			turns[n-1].Text += "\n\n" + text
			continue
		}
		turns = append(turns, llm.Turn{Speaker: speaker, Text: text})
	}
	if len(turns) == 0 || turns[0].Speaker != llm.SpeakerUser {
		turns = append([]llm.Turn{{Speaker: llm.SpeakerUser, Text: opening}}, turns...)
	}
	return turns
}
