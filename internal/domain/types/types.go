// Package types contains the JSON request and response shapes shared by the
// HTTP API and its clients.
package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/okian/skillcheck/internal/domain/model"
	"github.com/okian/skillcheck/internal/domain/phase"
)

// ErrValidation is wrapped by every Validate error.
var ErrValidation = errors.New("validation failed")

const (
	// MaxTextLength bounds any free-text field sent to the model.
	MaxTextLength = 4000
	// MaxMessages bounds a replayed conversation history.
	MaxMessages = 100
	// MaxCommentLength bounds a feedback comment.
	MaxCommentLength = 2000
	// MaxResults bounds the skill results sent to the strategist.
	MaxResults = 20

	MinRating = 1
	MaxRating = 5
)

// Sources for model-backed values.
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
	SourceEmpty    = "empty"
)

// StatusReceived acknowledges a feedback submission.
const StatusReceived = "received"

// ValidationError carries the reason a request was rejected. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return ErrValidation.Error() + ": " + e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func tooLong(s string, limit int) bool { return utf8.RuneCountInString(s) > limit }

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// LikertAnswer is one rated questionnaire item.
type LikertAnswer struct {
	IndicatorID string `json:"indicatorId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Rating      int    `json:"rating"`
}

// OpenEndedAnswer is the free-text item scored by the model.
type OpenEndedAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ScoreRequest is the body of POST /api/v1/assessments/score.
// Ratings outside 1..5 are accepted and score 0.
type ScoreRequest struct {
	SkillID   string          `json:"skillId"`
	SkillName string          `json:"skillName"`
	Likert    []LikertAnswer  `json:"likert"`
	OpenEnded OpenEndedAnswer `json:"openEnded"`
}

// Validate checks required fields and size limits.
func (r ScoreRequest) Validate() error {
	if blank(r.SkillID) {
		return invalid("missing skillId")
	}
	if len(r.Likert) == 0 && blank(r.OpenEnded.Question) {
		return invalid("no answers submitted")
	}
	seen := make(map[string]struct{}, len(r.Likert))
	for i, a := range r.Likert {
		if blank(a.IndicatorID) {
			return invalid("likert[%d]: missing indicatorId", i)
		}
		if _, dup := seen[a.IndicatorID]; dup {
			return invalid("likert[%d]: duplicate indicatorId %q", i, a.IndicatorID)
		}
		seen[a.IndicatorID] = struct{}{}
	}
	if !blank(r.OpenEnded.Answer) && blank(r.OpenEnded.Question) {
		return invalid("openEnded: answer without question")
	}
	if tooLong(r.OpenEnded.Answer, MaxTextLength) || tooLong(r.OpenEnded.Question, MaxTextLength) {
		return invalid("openEnded: text longer than %d characters", MaxTextLength)
	}
	return nil
}

// ScoreResponse carries the computed scores for one skill.
type ScoreResponse struct {
	SkillID         string                 `json:"skillId"`
	SkillName       string                 `json:"skillName"`
	Indicators      []model.IndicatorScore `json:"indicators"`
	LikertAverage   float64                `json:"likertAverage"`
	OpenScore       int                    `json:"openScore"`
	OpenScoreSource string                 `json:"openScoreSource"`
	GlobalScore     int                    `json:"globalScore"`
}

// TipsRequest is the body of POST /api/v1/assessments/tips.
type TipsRequest struct {
	Result  model.SkillResult `json:"result"`
	Profile model.Profile     `json:"profile"`
}

// Validate checks that a scored result is present.
func (r TipsRequest) Validate() error {
	if blank(r.Result.SkillID) {
		return invalid("result: missing skillId")
	}
	return validateProfile(r.Profile)
}

// TipsResponse always holds exactly three tips.
type TipsResponse struct {
	Tips   []string `json:"tips"`
	Source string   `json:"source"`
}

// MentorTurnRequest is the body of POST /api/v1/mentor/turn. Messages is the
// whole history so far; the server keeps no session.
type MentorTurnRequest struct {
	SkillID   string             `json:"skillId"`
	SkillName string             `json:"skillName"`
	Result    *model.SkillResult `json:"result,omitempty"`
	Phase     string             `json:"phase"`
	Messages  []model.Message    `json:"messages"`
}

// Validate checks the phase label and the history.
func (r MentorTurnRequest) Validate() error {
	if blank(r.SkillID) {
		return invalid("missing skillId")
	}
	if _, err := phase.Parse(r.Phase); err != nil {
		return invalid("%v", err)
	}
	return validateMessages(r.Messages, model.RoleMentor)
}

// MentorTurnResponse is the mentor's next message and the phase it leaves
// the conversation in.
type MentorTurnResponse struct {
	Message                    string `json:"message"`
	Phase                      string `json:"phase"`
	PreviousPhase              string `json:"previousPhase"`
	Intent                     string `json:"intent,omitempty"`
	ExerciseScore              *int   `json:"exerciseScore,omitempty"`
	ExerciseScoreJustification string `json:"exerciseScoreJustification,omitempty"`
	Fallback                   bool   `json:"fallback"`
}

// StrategistTurnRequest is the body of POST /api/v1/strategist/turn.
type StrategistTurnRequest struct {
	Results  []model.SkillResult `json:"results"`
	Profile  model.Profile       `json:"profile"`
	Messages []model.Message     `json:"messages"`
}

// Validate checks the result set and the history.
func (r StrategistTurnRequest) Validate() error {
	if len(r.Results) == 0 {
		return invalid("no results")
	}
	if len(r.Results) > MaxResults {
		return invalid("more than %d results", MaxResults)
	}
	for i, res := range r.Results {
		if blank(res.SkillID) {
			return invalid("results[%d]: missing skillId", i)
		}
	}
	if err := validateProfile(r.Profile); err != nil {
		return err
	}
	return validateMessages(r.Messages, model.RoleStrategist)
}

// StrategistTurnResponse is the strategist's next message.
type StrategistTurnResponse struct {
	Message  string `json:"message"`
	Fallback bool   `json:"fallback"`
}

// FeedbackRequest is the body of POST /api/v1/feedback.
type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// Validate checks the rating range.
func (r FeedbackRequest) Validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return invalid("rating must be between %d and %d", MinRating, MaxRating)
	}
	if tooLong(r.Comment, MaxCommentLength) {
		return invalid("comment longer than %d characters", MaxCommentLength)
	}
	return nil
}

// FeedbackResponse acknowledges a rating. Nothing is stored.
type FeedbackResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	LLMConfigured bool   `json:"llmConfigured"`
}

func validateMessages(messages []model.Message, assistant model.Role) error {
	if len(messages) > MaxMessages {
		return invalid("more than %d messages", MaxMessages)
	}
	if err := model.ValidateHistory(messages, assistant); err != nil {
		return invalid("%v", err)
	}
	for i, m := range messages {
		if tooLong(m.Text, MaxTextLength) {
			return invalid("messages[%d]: text longer than %d characters", i, MaxTextLength)
		}
	}
	return nil
}

func validateProfile(p model.Profile) error {
	for name, v := range map[string]string{"name": p.Name, "role": p.Role, "experience": p.Experience, "goals": p.Goals} {
		if tooLong(v, MaxTextLength) {
			return invalid("profile.%s longer than %d characters", name, MaxTextLength)
		}
	}
	return nil
}
