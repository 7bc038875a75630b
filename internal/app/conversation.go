package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/skillcheck/internal/adapters/llm"
	"github.com/okian/skillcheck/internal/domain/extract"
	"github.com/okian/skillcheck/internal/domain/phase"
	"github.com/okian/skillcheck/internal/domain/types"
	"github.com/okian/skillcheck/pkg/logger"
	"github.com/okian/skillcheck/pkg/metrics"
)

// MentorTurn produces the mentor's next message and the phase it leaves the
// conversation in. A completed session gets the closing message without a
// model call; a failed call keeps the phase and returns a canned message.
func (s *Service) MentorTurn(ctx context.Context, req types.MentorTurnRequest) (types.MentorTurnResponse, error) {
	const op = "service.mentor_turn"
	if err := req.Validate(); err != nil {
		return types.MentorTurnResponse{}, invalidInput(op, err)
	}
	current, err := phase.Parse(req.Phase)
	if err != nil {
		return types.MentorTurnResponse{}, invalidInput(op, err)
	}

	if current.Terminal() {
		return types.MentorTurnResponse{
			Message:       mentorClosing,
			Phase:         string(current),
			PreviousPhase: string(current),
		}, nil
	}
	if !s.Configured() {
		return types.MentorTurnResponse{}, ErrNotConfigured
	}
	s.counters.mentorTurns.Add(1)
	purpose := string(llm.PurposeMentor)

	skill := req.SkillName
	if skill == "" {
		skill = req.SkillID
	}
	text, err := s.generator.Generate(ctx, llm.Request{
		Purpose: llm.PurposeMentor,
		System:  mentorPrompt(skill, req.Result, current),
		Turns:   toTurns(req.Messages, mentorOpening),
	})
	if err != nil {
		s.fallback(ctx, purpose, reasonUpstream, err)
		return types.MentorTurnResponse{
			Message:       mentorFallback(current),
			Phase:         string(current),
			PreviousPhase: string(current),
			Fallback:      true,
		}, nil
	}

	resp := types.MentorTurnResponse{PreviousPhase: string(current)}

	rawIntent, text, _ := extract.ExtractIntent(text)
	intent := phase.ParseIntent(rawIntent)
	resp.Intent = string(intent)

	if res, ok := s.exercise.Extract(text); ok && (res.Strategy != extract.StrategyFraction || current == phase.Scenario) {
		metrics.RecordExtraction(purpose, string(res.Strategy))
		score := res.Score
		resp.ExerciseScore = &score
		resp.ExerciseScoreJustification = res.Justification
		text = res.Text
	} else if current == phase.Scenario {
		metrics.RecordExtraction(purpose, string(extract.StrategyNone))
	}

	tr, err := s.tracker.Advance(current, intent)
	if err != nil {
		return types.MentorTurnResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	if tr.Advanced {
		metrics.RecordPhaseTransition(string(tr.From), string(tr.To))
	}
	resp.Phase = string(tr.To)

	resp.Message = strings.TrimSpace(text)
	if resp.Message == "" {
		s.fallback(ctx, purpose, reasonEmptyReply, nil)
		resp.Message = mentorFallback(tr.To)
		resp.Fallback = true
	}

	s.logger.Debug(ctx, "mentor turn",
		logger.String("skill", req.SkillID),
		logger.String("from", string(tr.From)),
		logger.String("to", string(tr.To)),
		logger.String("reason", tr.Reason),
		logger.Bool("scored", resp.ExerciseScore != nil))
	return resp, nil
}

// StrategistTurn continues the free-form debrief. No phase is tracked.
func (s *Service) StrategistTurn(ctx context.Context, req types.StrategistTurnRequest) (types.StrategistTurnResponse, error) {
	const op = "service.strategist_turn"
	if err := req.Validate(); err != nil {
		return types.StrategistTurnResponse{}, invalidInput(op, err)
	}
	if !s.Configured() {
		return types.StrategistTurnResponse{}, ErrNotConfigured
	}
	s.counters.strategistTurns.Add(1)

	text, err := s.generator.Generate(ctx, llm.Request{
		Purpose: llm.PurposeStrategist,
		System:  strategistPrompt(req.Results, req.Profile),
		Turns:   toTurns(req.Messages, strategistOpening),
	})
	if err != nil {
		s.fallback(ctx, string(llm.PurposeStrategist), reasonUpstream, err)
		return types.StrategistTurnResponse{Message: strategistFallback(req.Results), Fallback: true}, nil
	}
	return types.StrategistTurnResponse{Message: strings.TrimSpace(text)}, nil
}

// RecordFeedback acknowledges a rating. Nothing is persisted; the rating is
// logged and counted.
func (s *Service) RecordFeedback(ctx context.Context, req types.FeedbackRequest) (types.FeedbackResponse, error) {
	const op = "service.feedback"
	if err := req.Validate(); err != nil {
		return types.FeedbackResponse{}, invalidInput(op, err)
	}
	s.counters.feedback.Add(1)
	metrics.RecordFeedbackRating(req.Rating)
	s.logger.Info(ctx, "feedback received",
		logger.Int("rating", req.Rating),
		logger.Int("commentLength", len(req.Comment)))
	return types.FeedbackResponse{Status: types.StatusReceived}, nil
}
