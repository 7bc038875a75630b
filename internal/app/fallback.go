package service

import (
	"fmt"

	"github.com/okian/skillcheck/internal/domain/model"
	"github.com/okian/skillcheck/internal/domain/phase"
)

const (
	tipCount = 3

	openFallbackFeedback = "The answer could not be evaluated automatically; a neutral score was assigned."
	openEmptyFeedback    = "No answer was provided."
	mentorClosing        = "This mentoring session is complete. Well done, and good luck putting your action plan into practice!"
)

// Fallback reasons recorded in metrics.
const (
	reasonUpstream   = "upstream_error"
	reasonShape      = "invalid_shape"
	reasonNoScore    = "no_score"
	reasonEmptyReply = "empty_reply"
)

// fallbackTips fills three of four templates from the result. With fewer
// than two indicators the second-weakest template is skipped, otherwise the
// generic one is.
func fallbackTips(r model.SkillResult, p model.Profile) []string {
	skill := r.SkillName
	if skill == "" {
		skill = r.SkillID
	}
	weak := r.Weakest(2)
	strong := r.Strongest(1)
	if len(weak) == 0 {
		self := model.IndicatorScore{Name: skill, Score: r.GlobalScore}
		weak = []model.IndicatorScore{self}
		strong = []model.IndicatorScore{self}
	}

	goal := "your goals"
	if p.Goals != "" {
		goal = fmt.Sprintf("your goal (%s)", p.Goals)
	}

	tips := []string{
		fmt.Sprintf("Focus on %s first: at %d/100 it is your lowest area in %s, so set one concrete practice goal for it this week.",
			weak[0].Label(), weak[0].Score, skill),
		fmt.Sprintf("Use your strength in %s (%d/100) as a lever and apply it deliberately in situations that also stretch your weaker areas.",
			strong[0].Label(), strong[0].Score),
	}
	if len(weak) > 1 {
		tips = append(tips, fmt.Sprintf("Schedule a short weekly review of %s (%d/100) and note one situation where you practised it.",
			weak[1].Label(), weak[1].Score))
	} else {
		tips = append(tips, fmt.Sprintf("After your next real situation involving %s, ask a colleague for feedback and compare it with %s.",
			skill, goal))
	}
	return tips[:tipCount]
}

var mentorFallbacks = map[phase.Phase]string{ //nolint:gochecknoglobals // fixed table
	phase.Start:      "Welcome! Let's work on this skill with a short practice scenario. Tell me about a recent situation where you needed it.",
	phase.Scenario:   "Thanks for your answer. Could you walk me through the steps you would take, one at a time?",
	phase.Feedback:   "Let's build on that. What are two or three concrete actions you could take in the coming weeks?",
	phase.ActionPlan: "Good. How will you know each action worked? Try attaching a date or a measurable signal to it.",
	phase.Synthesis:  "Let's wrap up: what is the one thing you will do differently starting tomorrow?",
	phase.Completed:  mentorClosing,
}

func mentorFallback(p phase.Phase) string {
	if msg, ok := mentorFallbacks[p]; ok {
		return msg
	}
	return mentorFallbacks[phase.Start]
}

func strategistFallback(results []model.SkillResult) string {
	if len(results) == 0 {
		return "I could not prepare your debrief right now. Please try again in a moment."
	}
	low, high := results[0], results[0]
	for _, r := range results[1:] {
		if r.GlobalScore < low.GlobalScore {
			low = r
		}
		if r.GlobalScore > high.GlobalScore {
			high = r
		}
	}
	name := func(r model.SkillResult) string {
		if r.SkillName != "" {
			return r.SkillName
		}
		return r.SkillID
	}
	if low.SkillID == high.SkillID {
		return fmt.Sprintf("Your %s score is %d/100. Pick one indicator to improve this month and review your progress at the end of it.",
			name(low), low.GlobalScore)
	}
	return fmt.Sprintf("Your strongest area is %s (%d/100) and your biggest opportunity is %s (%d/100). "+
		"Lean on the first while you build a focused practice plan for the second.",
		name(high), high.GlobalScore, name(low), low.GlobalScore)
}
