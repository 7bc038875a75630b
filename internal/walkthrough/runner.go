package walkthrough

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/skillcheck/internal/domain/model"
	"github.com/okian/skillcheck/internal/domain/phase"
	"github.com/okian/skillcheck/internal/domain/types"
	"github.com/okian/skillcheck/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

const (
	pathHealth     = "/healthz"
	pathStats      = "/stats"
	pathQuestions  = "/api/v1/content/questions"
	pathScore      = "/api/v1/assessments/score"
	pathTips       = "/api/v1/assessments/tips"
	pathMentor     = "/api/v1/mentor/turn"
	pathStrategist = "/api/v1/strategist/turn"
	pathFeedback   = "/api/v1/feedback"

	strategistQuestion = "Where should I focus first?"
)

// Sentinel errors.
var (
	ErrNotConfigured = errors.New("service has no language model configured")
	ErrNoSkills      = errors.New("question bank has no skills")
	ErrViolations    = errors.New("contract violations found")
)

// Run executes the configured number of sessions and returns the statistics.
// It fails when a session errors or any response breaks the contract.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("walkthrough")

	log.Info(ctx, "starting walkthrough",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.Sessions),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	var health types.HealthResponse
	if err := client.getJSON(ctx, "setup", pathHealth, &health); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	if !health.LLMConfigured {
		return stats, ErrNotConfigured
	}

	// Step 2: Load the question bank and the scoring weights
	var questions Questionnaire
	if err := client.getJSON(ctx, "setup", pathQuestions, &questions); err != nil {
		return stats, fmt.Errorf("question bank retrieval failed: %w", err)
	}
	if len(questions.Skills) == 0 {
		return stats, ErrNoSkills
	}
	var weights Weights
	if err := client.getJSON(ctx, "setup", pathStats, &weights); err != nil {
		return stats, fmt.Errorf("stats retrieval failed: %w", err)
	}

	// Step 3: Run sessions concurrently
	transcripts := runSessions(ctx, config, client, questions, weights, stats, log)

	// Step 4: Save transcripts
	if config.OutputFile != "" {
		if err := saveTranscripts(config.OutputFile, transcripts); err != nil {
			log.Warn(ctx, "failed to save transcripts", logger.Error(err))
		} else {
			log.Info(ctx, "transcripts saved", logger.String("file", config.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	switch {
	case stats.SessionsFailed > 0:
		return stats, fmt.Errorf("%d of %d sessions failed", stats.SessionsFailed, stats.SessionsStarted)
	case stats.Violations > 0:
		return stats, fmt.Errorf("%w: %d", ErrViolations, stats.Violations)
	}
	log.Info(ctx, "walkthrough completed successfully")
	return stats, nil
}

func runSessions(ctx context.Context, config *Config, client *HTTPClient, q Questionnaire, w Weights, stats *Stats, log logger.Logger) []Transcript {
	workers := max(config.Workers, 1)
	jobs := make(chan int, workers)
	var (
		mu          sync.Mutex
		wg          sync.WaitGroup
		transcripts = make([]Transcript, 0, config.Sessions)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				s := &session{
					id:      uuid.NewString(),
					client:  client,
					gen:     newGenerator(uint64(n) + 1),
					weights: w,
					config:  config,
				}
				err := s.run(ctx, q)

				mu.Lock()
				stats.Requests += s.requests
				stats.Fallbacks += s.fallbacks
				stats.MentorTurns += s.mentorTurns
				stats.Violations += len(s.transcript.Violations)
				if err != nil {
					stats.SessionsFailed++
					s.transcript.Violations = append(s.transcript.Violations, "error: "+err.Error())
				} else {
					stats.SessionsCompleted++
				}
				transcripts = append(transcripts, s.transcript)
				mu.Unlock()

				fields := []logger.Field{
					logger.String("session", s.id),
					logger.Int("violations", len(s.transcript.Violations)),
					logger.Int("fallbacks", s.fallbacks),
				}
				switch {
				case err != nil:
					log.Warn(ctx, "session failed", append(fields, logger.Error(err))...)
				case config.Verbose:
					log.Info(ctx, "session completed", fields...)
				}
			}
		}()
	}

	for n := 0; n < config.Sessions; n++ {
		if ctx.Err() != nil {
			break
		}
		stats.SessionsStarted++
		jobs <- n
	}
	close(jobs)
	wg.Wait()
	return transcripts
}

// session is one simulated user going through every step.
type session struct {
	id      string
	client  *HTTPClient
	gen     *generator
	weights Weights
	config  *Config

	transcript  Transcript
	requests    int
	fallbacks   int
	mentorTurns int
}

func (s *session) violate(v []string) {
	s.transcript.Violations = append(s.transcript.Violations, v...)
}

func (s *session) post(ctx context.Context, path string, in, out any) error {
	s.requests++
	return s.client.postJSON(ctx, s.id, path, in, out)
}

func (s *session) run(ctx context.Context, q Questionnaire) error {
	s.transcript.SessionID = s.id
	profile := s.gen.profile()

	results := make([]model.SkillResult, 0, len(q.Skills))
	for _, skill := range q.Skills {
		req := s.gen.scoreRequest(skill)
		var score types.ScoreResponse
		if err := s.post(ctx, pathScore, req, &score); err != nil {
			return err
		}
		s.violate(verifyScore(req, score, s.weights))
		if score.OpenScoreSource == types.SourceFallback {
			s.fallbacks++
		}
		s.transcript.Scores = append(s.transcript.Scores, score)

		result := toSkillResult(score)
		var tips types.TipsResponse
		if err := s.post(ctx, pathTips, types.TipsRequest{Result: result, Profile: profile}, &tips); err != nil {
			return err
		}
		s.violate(verifyTips(tips))
		if tips.Source == types.SourceFallback {
			s.fallbacks++
		}
		s.transcript.Tips = append(s.transcript.Tips, tips)
		result.Tips = tips.Tips
		results = append(results, result)
	}

	if err := s.mentor(ctx, results[0]); err != nil {
		return err
	}

	var debrief types.StrategistTurnResponse
	err := s.post(ctx, pathStrategist, types.StrategistTurnRequest{
		Results:  results,
		Profile:  profile,
		Messages: []model.Message{{Sender: model.RoleUser, Text: strategistQuestion}},
	}, &debrief)
	if err != nil {
		return err
	}
	s.violate(verifyStrategistTurn(debrief))
	if debrief.Fallback {
		s.fallbacks++
	}
	s.transcript.Strategist = &debrief

	var ack types.FeedbackResponse
	if err := s.post(ctx, pathFeedback, types.FeedbackRequest{Rating: s.gen.rating(), Comment: "walkthrough " + s.id}, &ack); err != nil {
		return err
	}
	if ack.Status != types.StatusReceived {
		s.violate([]string{fmt.Sprintf("feedback: status %q", ack.Status)})
	}
	return nil
}

// mentor plays the mentor conversation until it completes or the turn bound
// is reached.
func (s *session) mentor(ctx context.Context, result model.SkillResult) error {
	current := string(phase.Start)
	messages := []model.Message{{Sender: model.RoleUser, Text: mentorReply(0)}}
	for turn := 0; turn < s.config.MaxMentorTurns; turn++ {
		var resp types.MentorTurnResponse
		err := s.post(ctx, pathMentor, types.MentorTurnRequest{
			SkillID:   result.SkillID,
			SkillName: result.SkillName,
			Result:    &result,
			Phase:     current,
			Messages:  messages,
		}, &resp)
		if err != nil {
			return err
		}
		s.mentorTurns++
		s.violate(verifyMentorTurn(current, resp))
		if resp.Fallback {
			s.fallbacks++
		}
		s.transcript.Mentor = append(s.transcript.Mentor, resp)

		current = resp.Phase
		if current == string(phase.Completed) {
			return nil
		}
		messages = append(messages,
			model.Message{Sender: model.RoleMentor, Text: resp.Message},
			model.Message{Sender: model.RoleUser, Text: mentorReply(turn + 1)},
		)
		if len(messages) > types.MaxMessages {
			break
		}
	}
	logger.Named("walkthrough").Warn(ctx, "mentor session did not complete",
		logger.String("session", s.id),
		logger.String("phase", current),
		logger.Int("turns", s.config.MaxMentorTurns))
	return nil
}

// saveTranscripts writes the transcripts as an indented JSON array.
func saveTranscripts(filename string, transcripts []Transcript) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(transcripts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcripts: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var requestsPerSecond float64
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.Requests) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("sessionsStarted", stats.SessionsStarted),
		logger.Int("sessionsCompleted", stats.SessionsCompleted),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("requests", stats.Requests),
		logger.Int("mentorTurns", stats.MentorTurns),
		logger.Int("fallbacks", stats.Fallbacks),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
