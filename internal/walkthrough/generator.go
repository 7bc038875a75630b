package walkthrough

import (
	"math/rand/v2"

	"github.com/okian/skillcheck/internal/domain/model"
	"github.com/okian/skillcheck/internal/domain/types"
)

// Canned answers. Each mentor phase asks for something different, so the
// replies are cycled in order.
var (
	openAnswers = []string{ //nolint:gochecknoglobals // fixed table
		"I would first ask what is blocking them, agree on one next step and follow up the next day.",
		"I would meet the team, list what caused the delays, and agree on a smaller scope for the next milestone.",
		"I would split the problem, test the riskiest assumption first and share progress daily.",
		"",
	}
	mentorReplies = []string{ //nolint:gochecknoglobals // fixed table
		"Hi! I'm ready.",
		"I would talk to them in private, describe the impact and ask how I can help.",
		"What exactly should the action plan contain?",
		"One: schedule a weekly check-in. Two: agree on a definition of done. Three: ask for feedback after a month.",
		"I will review progress every Friday and ask my lead for feedback.",
		"My main takeaway is to address issues early and specifically.",
	}
	profiles = []model.Profile{ //nolint:gochecknoglobals // fixed table
		{Name: "Alex", Role: "Software engineer", Experience: "4 years", Goals: "become a tech lead"},
		{Role: "Product manager", Goals: "run better stakeholder meetings"},
		{},
	}
)

// generator produces answers for one session.
type generator struct {
	rnd *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// scoreRequest rates every indicator of the skill and sometimes leaves the
// open-ended answer blank.
func (g *generator) scoreRequest(s Skill) types.ScoreRequest {
	likert := make([]types.LikertAnswer, len(s.Likert))
	for i, item := range s.Likert {
		item.Rating = types.MinRating + g.rnd.IntN(types.MaxRating-types.MinRating+1)
		likert[i] = item
	}
	return types.ScoreRequest{
		SkillID:   s.ID,
		SkillName: s.Name,
		Likert:    likert,
		OpenEnded: types.OpenEndedAnswer{
			Question: s.OpenEnded.Question,
			Answer:   openAnswers[g.rnd.IntN(len(openAnswers))],
		},
	}
}

func (g *generator) profile() model.Profile {
	return profiles[g.rnd.IntN(len(profiles))]
}

func (g *generator) rating() int {
	return types.MinRating + g.rnd.IntN(types.MaxRating-types.MinRating+1)
}

// mentorReply returns the user's message for the given turn.
func mentorReply(turn int) string {
	return mentorReplies[turn%len(mentorReplies)]
}

// toSkillResult folds a score response into the shape sent back by clients.
func toSkillResult(resp types.ScoreResponse) model.SkillResult {
	return model.SkillResult{
		SkillID:     resp.SkillID,
		SkillName:   resp.SkillName,
		GlobalScore: resp.GlobalScore,
		Indicators:  resp.Indicators,
	}
}
