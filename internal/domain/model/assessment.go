// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// IndicatorScore is the score of one questionnaire indicator (0-100).
type IndicatorScore struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	Description string `json:"description,omitempty"`
	Feedback    string `json:"feedback,omitempty"`
}

// Label is the display name of the indicator, its ID when the name is blank.
func (s IndicatorScore) Label() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return strings.TrimSpace(s.ID)
}

// SkillResult aggregates every score produced for one skill.
// Mentoring is set once, when a mentor session reaches the completed phase.
type SkillResult struct {
	SkillID     string            `json:"skillId"`
	SkillName   string            `json:"skillName"`
	GlobalScore int               `json:"globalScore"`
	Indicators  []IndicatorScore  `json:"indicators"`
	Tips        []string          `json:"tips,omitempty"`
	Mentoring   *MentoringSession `json:"mentoring,omitempty"`
}

// Weakest returns up to n indicators ordered by ascending score.
// Ties keep questionnaire order.
func (r SkillResult) Weakest(n int) []IndicatorScore {
	return r.ranked(n, func(a, b IndicatorScore) bool { return a.Score < b.Score })
}

// Strongest returns up to n indicators ordered by descending score.
func (r SkillResult) Strongest(n int) []IndicatorScore {
	return r.ranked(n, func(a, b IndicatorScore) bool { return a.Score > b.Score })
}

func (r SkillResult) ranked(n int, less func(a, b IndicatorScore) bool) []IndicatorScore {
	out := make([]IndicatorScore, len(r.Indicators))
	copy(out, r.Indicators)
	// insertion sort keeps ties stable and the slices are tiny
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// MentoringSession records a finished mentor conversation.
type MentoringSession struct {
	Messages                   []Message `json:"messages"`
	ExerciseScore              *int      `json:"exerciseScore,omitempty"`
	ExerciseScoreJustification string    `json:"exerciseScoreJustification,omitempty"`
	CompletedAt                time.Time `json:"completedAt"`
}

// Profile describes the person taking the assessment.
type Profile struct {
	Name       string `json:"name,omitempty"`
	Role       string `json:"role,omitempty"`
	Experience string `json:"experience,omitempty"`
	Goals      string `json:"goals,omitempty"`
}
