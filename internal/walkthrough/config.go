// Package walkthrough drives complete assessment sessions against a running
// server and checks every response against the API contract.
package walkthrough

import (
	"time"

	"github.com/okian/skillcheck/internal/domain/types"
)

// Config holds configuration for a walkthrough run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Sessions       int           // Number of complete sessions to run
	Workers        int           // Number of concurrent sessions
	Timeout        time.Duration // HTTP request timeout
	MaxMentorTurns int           // Safety bound on the mentor loop
	OutputFile     string        // Transcript file, none when empty
	Verbose        bool          // Enable verbose logging
}

// Questionnaire is the subset of the question bank the walkthrough needs.
type Questionnaire struct {
	Skills []Skill `json:"skills"`
}

// Skill is one assessed skill of the question bank.
type Skill struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Likert    []types.LikertAnswer `json:"likert"`
	OpenEnded struct {
		Question string `json:"question"`
	} `json:"openEnded"`
}

// Weights are read from /stats to recompute the global score.
type Weights struct {
	Likert float64 `json:"likertWeight"`
	Open   float64 `json:"openWeight"`
}

// Stats holds run statistics.
type Stats struct {
	SessionsStarted   int
	SessionsCompleted int
	SessionsFailed    int
	Requests          int
	Fallbacks         int
	MentorTurns       int
	Violations        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// Transcript records one session for the output file.
type Transcript struct {
	SessionID  string                        `json:"sessionId"`
	Scores     []types.ScoreResponse         `json:"scores"`
	Tips       []types.TipsResponse          `json:"tips"`
	Mentor     []types.MentorTurnResponse    `json:"mentor"`
	Strategist *types.StrategistTurnResponse `json:"strategist,omitempty"`
	Violations []string                      `json:"violations,omitempty"`
}
