package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/okian/skillcheck/internal/adapters/llm"
	"github.com/okian/skillcheck/internal/domain/model"
	"github.com/okian/skillcheck/internal/domain/scoring"
	"github.com/okian/skillcheck/internal/domain/types"
	"github.com/okian/skillcheck/pkg/logger"
	"github.com/okian/skillcheck/pkg/metrics"
)

const (
	openIndicatorID   = "open_ended"
	openIndicatorName = "Open-ended answer"
)

// Score maps the Likert answers, scores the open-ended answer with the model
// and combines both into the global score. A blank answer scores 0 without a
// model call; an unrecoverable model answer gets the fallback score.
func (s *Service) Score(ctx context.Context, req types.ScoreRequest) (types.ScoreResponse, error) {
	const op = "service.score"
	if err := req.Validate(); err != nil {
		return types.ScoreResponse{}, invalidInput(op, err)
	}

	open := model.IndicatorScore{}
	source := types.SourceEmpty
	if q := strings.TrimSpace(req.OpenEnded.Question); q != "" {
		open = model.IndicatorScore{ID: openIndicatorID, Name: openIndicatorName, Description: q, Feedback: openEmptyFeedback}
		if strings.TrimSpace(req.OpenEnded.Answer) != "" {
			if !s.Configured() {
				return types.ScoreResponse{}, ErrNotConfigured
			}
			open.Score, open.Feedback, source = s.scoreOpenEnded(ctx, req)
		}
	}

	ratings := make([]scoring.Rating, 0, len(req.Likert))
	for _, a := range req.Likert {
		ratings = append(ratings, scoring.Rating{
			IndicatorID: a.IndicatorID,
			Name:        a.Name,
			Description: a.Description,
			Value:       a.Rating,
		})
	}
	res := s.engine.Score(scoring.Input{
		SkillID:   req.SkillID,
		SkillName: req.SkillName,
		Ratings:   ratings,
		OpenEnded: open,
	})

	s.counters.scored.Add(1)
	metrics.ObserveGlobalScore(res.GlobalScore)
	s.logger.Info(ctx, "skill scored",
		logger.String("skill", req.SkillID),
		logger.Int("global", res.GlobalScore),
		logger.Int("open", res.OpenScore),
		logger.String("openSource", source))

	return types.ScoreResponse{
		SkillID:         req.SkillID,
		SkillName:       req.SkillName,
		Indicators:      res.Indicators,
		LikertAverage:   res.LikertAverage,
		OpenScore:       res.OpenScore,
		OpenScoreSource: source,
		GlobalScore:     res.GlobalScore,
	}, nil
}

func (s *Service) scoreOpenEnded(ctx context.Context, req types.ScoreRequest) (int, string, string) {
	purpose := string(llm.PurposeOpenScore)
	text, err := s.generator.Generate(ctx, llm.Request{
		Purpose: llm.PurposeOpenScore,
		System:  openScorePrompt(req.SkillName, req.OpenEnded.Question, s.rubrics.Rubric(req.SkillID)),
		Turns:   []llm.Turn{{Speaker: llm.SpeakerUser, Text: req.OpenEnded.Answer}},
		JSON:    true,
	})
	if err != nil {
		s.fallback(ctx, purpose, reasonUpstream, err)
		return s.fallbackOpenScore, openFallbackFeedback, types.SourceFallback
	}

	res, ok := s.openScore.Extract(text)
	metrics.RecordExtraction(purpose, string(res.Strategy))
	if !ok {
		s.fallback(ctx, purpose, reasonNoScore, nil)
		return s.fallbackOpenScore, openFallbackFeedback, types.SourceFallback
	}
	feedback := res.Justification
	if feedback == "" {
		feedback = res.Text
	}
	return res.Score, feedback, types.SourceModel
}

// Tips asks the model for three tips and returns them only when the reply is
// exactly three non-empty strings. Anything else yields the templated tips.
func (s *Service) Tips(ctx context.Context, req types.TipsRequest) (types.TipsResponse, error) {
	const op = "service.tips"
	if err := req.Validate(); err != nil {
		return types.TipsResponse{}, invalidInput(op, err)
	}
	if !s.Configured() {
		return types.TipsResponse{}, ErrNotConfigured
	}
	s.counters.tips.Add(1)
	purpose := string(llm.PurposeTips)

	text, err := s.generator.Generate(ctx, llm.Request{
		Purpose: llm.PurposeTips,
		System:  tipsPrompt(req.Result, req.Profile),
		Turns:   []llm.Turn{{Speaker: llm.SpeakerUser, Text: tipsInstruction}},
		JSON:    true,
	})
	if err != nil {
		s.fallback(ctx, purpose, reasonUpstream, err)
		return types.TipsResponse{Tips: fallbackTips(req.Result, req.Profile), Source: types.SourceFallback}, nil
	}

	tips, ok := parseTips(text)
	if !ok {
		s.fallback(ctx, purpose, reasonShape, nil)
		return types.TipsResponse{Tips: fallbackTips(req.Result, req.Profile), Source: types.SourceFallback}, nil
	}
	return types.TipsResponse{Tips: tips, Source: types.SourceModel}, nil
}

// parseTips accepts a JSON array of strings or an object with a "tips"
// array, optionally wrapped in surrounding prose.
func parseTips(text string) ([]string, bool) {
	candidates := []string{strings.TrimSpace(text)}
	if i, j := strings.Index(text, "["), strings.LastIndex(text, "]"); i >= 0 && j > i {
		candidates = append(candidates, text[i:j+1])
	}
	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		candidates = append(candidates, text[i:j+1])
	}

	for _, c := range candidates {
		var list []string
		if err := json.Unmarshal([]byte(c), &list); err == nil {
			return validTips(list)
		}
		var obj struct {
			Tips []string `json:"tips"`
		}
		if err := json.Unmarshal([]byte(c), &obj); err == nil && obj.Tips != nil {
			return validTips(obj.Tips)
		}
	}
	return nil, false
}

func validTips(list []string) ([]string, bool) {
	if len(list) != tipCount {
		return nil, false
	}
	out := make([]string, 0, tipCount)
	for _, t := range list {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, false
		}
		out = append(out, t)
	}
	return out, true
}

func (s *Service) fallback(ctx context.Context, purpose, reason string, err error) {
	s.counters.fallbacks.Add(1)
	metrics.RecordFallback(purpose, reason)
	fields := []logger.Field{logger.String("purpose", purpose), logger.String("reason", reason)}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	s.logger.Warn(ctx, "using fallback response", fields...)
}
