// Package scoring maps questionnaire answers to 0-100 scores and aggregates
// them into a global skill score.
package scoring

import (
	"math"

	"github.com/okian/skillcheck/internal/domain/model"
)

const (
	minRating     = 1
	maxRating     = 5
	pointsPerStep = 20
	maxScoreValue = 100

	defaultLikertWeight = 0.6
	defaultOpenWeight   = 0.4
	weightTolerance     = 1e-6
)

// LikertScore maps a rating in 1..5 to 20..100. Anything else scores 0.
func LikertScore(rating int) int {
	if rating < minRating || rating > maxRating {
		return 0
	}
	return rating * pointsPerStep
}

// Average returns the arithmetic mean of scores, or 0 when there are none.
func Average(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores))
}

// Weights balances the Likert part against the open-ended part.
// They are expected to sum to 1; Normalized reports whether they do.
type Weights struct {
	Likert float64 `json:"likert"`
	Open   float64 `json:"open"`
}

// DefaultWeights returns the 60/40 Likert/open split.
func DefaultWeights() Weights {
	return Weights{Likert: defaultLikertWeight, Open: defaultOpenWeight}
}

// Sum returns Likert + Open.
func (w Weights) Sum() float64 { return w.Likert + w.Open }

// Normalized reports whether the weights sum to 1.
func (w Weights) Normalized() bool { return math.Abs(w.Sum()-1) <= weightTolerance }

// GlobalScore computes round(likertAvg*w.Likert + openScore*w.Open).
func GlobalScore(likertAvg, openScore float64, w Weights) int {
	return int(math.Round(likertAvg*w.Likert + openScore*w.Open))
}

// Rating is one answered Likert item.
type Rating struct {
	IndicatorID string
	Name        string
	Description string
	Value       int
}

// Input is everything needed to score one skill.
type Input struct {
	SkillID   string
	SkillName string
	Ratings   []Rating

	// OpenEnded is the indicator produced by the open-ended item. Its
	// score is clamped to 0..100; a zero-value ID leaves it out of the list.
	OpenEnded model.IndicatorScore
}

// Result is the outcome of scoring one skill.
type Result struct {
	Indicators    []model.IndicatorScore
	LikertAverage float64
	OpenScore     int
	GlobalScore   int
}

// SkillResult converts r into the domain aggregate.
func (r Result) SkillResult(in Input) model.SkillResult {
	return model.SkillResult{
		SkillID:     in.SkillID,
		SkillName:   in.SkillName,
		GlobalScore: r.GlobalScore,
		Indicators:  r.Indicators,
	}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights overrides the default weights. Negative weights are ignored.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		if w.Likert >= 0 && w.Open >= 0 {
			e.weights = w
		}
	}
}

// Engine scores questionnaires. It is stateless and safe for concurrent use.
type Engine struct {
	weights Weights
}

// NewEngine creates an engine with default weights.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the weights in use.
func (e *Engine) Weights() Weights { return e.weights }

// Score maps every rating, averages them and combines the average with the
// open-ended score.
func (e *Engine) Score(in Input) Result {
	indicators := make([]model.IndicatorScore, 0, len(in.Ratings)+1)
	scores := make([]int, 0, len(in.Ratings))
	for _, r := range in.Ratings {
		s := LikertScore(r.Value)
		scores = append(scores, s)
		indicators = append(indicators, model.IndicatorScore{
			ID:          r.IndicatorID,
			Name:        r.Name,
			Score:       s,
			Description: r.Description,
		})
	}

	open := Clamp(in.OpenEnded.Score)
	if in.OpenEnded.ID != "" {
		item := in.OpenEnded
		item.Score = open
		indicators = append(indicators, item)
	}

	avg := Average(scores)
	return Result{
		Indicators:    indicators,
		LikertAverage: avg,
		OpenScore:     open,
		GlobalScore:   GlobalScore(avg, float64(open), e.weights),
	}
}

// Clamp bounds a score to 0..100.
func Clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > maxScoreValue:
		return maxScoreValue
	}
	return score
}
