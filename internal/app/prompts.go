package service

import (
	"fmt"
	"strings"

	"github.com/okian/skillcheck/internal/domain/model"
	"github.com/okian/skillcheck/internal/domain/phase"
)

const (
	mentorOpening     = "Hi, I'm ready to start the mentoring session."
	strategistOpening = "Please give me a strategic debrief of my results."
	tipsInstruction   = "Write my three tips now."
)

func openScorePrompt(skillName, question, rubric string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You evaluate answers to an open-ended question about the skill %q.\n", skillName)
	fmt.Fprintf(&b, "Question: %s\n", question)
	if rubric != "" {
		fmt.Fprintf(&b, "Rubric (JSON):\n%s\n", rubric)
	}
	b.WriteString("Score the user's answer from 0 to 100 against the rubric. ")
	b.WriteString(`Reply only with {"score": <integer>, "justification": "<two sentences>"}.`)
	return b.String()
}

func tipsPrompt(result model.SkillResult, profile model.Profile) string {
	var b strings.Builder
	b.WriteString("You are a career coach. Based on the assessment below, write exactly three short, ")
	b.WriteString("personalised and actionable improvement tips.\n")
	writeProfile(&b, profile)
	writeResult(&b, result)
	b.WriteString(`Reply only with a JSON array of three strings: ["tip 1", "tip 2", "tip 3"].`)
	return b.String()
}

// phaseGoals is what the mentor's reply should achieve while the session is
// in a given phase.
var phaseGoals = map[phase.Phase]string{ //nolint:gochecknoglobals // fixed table
	phase.Start:      "Greet the user briefly and present one realistic workplace scenario that exercises the skill. End by asking how they would handle it.",
	phase.Scenario:   "The user has answered the scenario. Evaluate the answer, name one strength and one gap.",
	phase.Feedback:   "Discuss the feedback and ask the user to draft a concrete action plan with two or three steps.",
	phase.ActionPlan: "Help the user make the action plan specific and measurable, then ask them what they take away from the session.",
	phase.Synthesis:  "Summarise the key takeaways of the session in a few sentences and close warmly.",
}

func mentorPrompt(skillName string, result *model.SkillResult, current phase.Phase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a supportive mentor running a short coaching session on the skill %q.\n", skillName)
	if result != nil {
		writeResult(&b, *result)
	}
	fmt.Fprintf(&b, "Current phase: %s. Goal of your reply: %s\n", current, phaseGoals[current])
	if current == phase.Scenario {
		b.WriteString("After your message add, on its own line, ")
		b.WriteString(`{"exerciseScore": <integer 0-100>, "exerciseScoreJustification": "<one sentence>"}.` + "\n")
	}
	b.WriteString("If the user's last message asks for clarification instead of doing what the phase asks, ")
	b.WriteString("answer the question and stay in the phase. ")
	b.WriteString(`End your reply with {"intent": "clarify"} in that case and {"intent": "advance"} otherwise.`)
	return b.String()
}

func strategistPrompt(results []model.SkillResult, profile model.Profile) string {
	var b strings.Builder
	b.WriteString("You are a career strategist. Give the user a frank, structured debrief of their ")
	b.WriteString("self-assessment and answer follow-up questions. Connect the skills to each other ")
	b.WriteString("and to the user's goals. Keep replies under 200 words.\n")
	writeProfile(&b, profile)
	for _, r := range results {
		writeResult(&b, r)
	}
	return b.String()
}

func writeProfile(b *strings.Builder, p model.Profile) {
	if p == (model.Profile{}) {
		return
	}
	b.WriteString("User profile:\n")
	for _, f := range []struct{ label, value string }{
		{"Name", p.Name}, {"Role", p.Role}, {"Experience", p.Experience}, {"Goals", p.Goals},
	} {
		if f.value != "" {
			fmt.Fprintf(b, "- %s: %s\n", f.label, f.value)
		}
	}
}

func writeResult(b *strings.Builder, r model.SkillResult) {
	name := r.SkillName
	if name == "" {
		name = r.SkillID
	}
	fmt.Fprintf(b, "Skill %s: global score %d/100\n", name, r.GlobalScore)
	for _, ind := range r.Indicators {
		fmt.Fprintf(b, "- %s: %d\n", ind.Label(), ind.Score)
	}
}
