package walkthrough

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/skillcheck/internal/domain/phase"
	"github.com/okian/skillcheck/internal/domain/types"
)

const (
	likertStep = 20
	maxScore   = 100
	epsilon    = 1e-9
)

// verifyScore recomputes the Likert mapping and the weighted global score.
func verifyScore(req types.ScoreRequest, resp types.ScoreResponse, w Weights) []string {
	var out []string
	if resp.SkillID != req.SkillID {
		out = append(out, fmt.Sprintf("score: skillId %q, want %q", resp.SkillID, req.SkillID))
	}
	if len(resp.Indicators) < len(req.Likert) {
		return append(out, fmt.Sprintf("score: %d indicators for %d ratings", len(resp.Indicators), len(req.Likert)))
	}

	sum := 0
	for i, a := range req.Likert {
		want := 0
		if a.Rating >= types.MinRating && a.Rating <= types.MaxRating {
			want = a.Rating * likertStep
		}
		sum += want
		if got := resp.Indicators[i]; got.ID != a.IndicatorID || got.Score != want {
			out = append(out, fmt.Sprintf("score: indicator %s=%d, want %s=%d", got.ID, got.Score, a.IndicatorID, want))
		}
	}
	avg := 0.0
	if len(req.Likert) > 0 {
		avg = float64(sum) / float64(len(req.Likert))
	}
	if math.Abs(resp.LikertAverage-avg) > epsilon {
		out = append(out, fmt.Sprintf("score: likertAverage %.2f, want %.2f", resp.LikertAverage, avg))
	}

	if resp.OpenScore < 0 || resp.OpenScore > maxScore {
		out = append(out, fmt.Sprintf("score: openScore %d out of range", resp.OpenScore))
	}
	switch resp.OpenScoreSource {
	case types.SourceModel, types.SourceFallback:
		if strings.TrimSpace(req.OpenEnded.Answer) == "" {
			out = append(out, "score: blank answer was not scored as empty")
		}
	case types.SourceEmpty:
		if resp.OpenScore != 0 {
			out = append(out, fmt.Sprintf("score: empty answer scored %d", resp.OpenScore))
		}
	default:
		out = append(out, fmt.Sprintf("score: unknown openScoreSource %q", resp.OpenScoreSource))
	}

	if want := int(math.Round(avg*w.Likert + float64(resp.OpenScore)*w.Open)); resp.GlobalScore != want {
		out = append(out, fmt.Sprintf("score: globalScore %d, want %d", resp.GlobalScore, want))
	}
	return out
}

// verifyTips checks the three-tip contract.
func verifyTips(resp types.TipsResponse) []string {
	var out []string
	if len(resp.Tips) != 3 {
		out = append(out, fmt.Sprintf("tips: got %d tips, want 3", len(resp.Tips)))
	}
	for i, t := range resp.Tips {
		if strings.TrimSpace(t) == "" {
			out = append(out, fmt.Sprintf("tips: tip %d is blank", i))
		}
	}
	if resp.Source != types.SourceModel && resp.Source != types.SourceFallback {
		out = append(out, fmt.Sprintf("tips: unknown source %q", resp.Source))
	}
	return out
}

// verifyMentorTurn checks that the phase moved forward by at most one step.
func verifyMentorTurn(sent string, resp types.MentorTurnResponse) []string {
	var out []string
	from, err := phase.Parse(sent)
	if err != nil {
		return []string{fmt.Sprintf("mentor: sent unknown phase %q", sent)}
	}
	if resp.PreviousPhase != string(from) {
		out = append(out, fmt.Sprintf("mentor: previousPhase %q, want %q", resp.PreviousPhase, from))
	}
	to, err := phase.Parse(resp.Phase)
	if err != nil {
		return append(out, fmt.Sprintf("mentor: unknown phase %q", resp.Phase))
	}
	if step := to.Index() - from.Index(); step < 0 || step > 1 {
		out = append(out, fmt.Sprintf("mentor: phase moved %s -> %s", from, to))
	}
	if strings.TrimSpace(resp.Message) == "" {
		out = append(out, "mentor: empty message")
	}
	if s := resp.ExerciseScore; s != nil && (*s < 0 || *s > maxScore) {
		out = append(out, fmt.Sprintf("mentor: exerciseScore %d out of range", *s))
	}
	return out
}

// verifyStrategistTurn checks that a message came back.
func verifyStrategistTurn(resp types.StrategistTurnResponse) []string {
	if strings.TrimSpace(resp.Message) == "" {
		return []string{"strategist: empty message"}
	}
	return nil
}
