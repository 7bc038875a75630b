package walkthrough_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/skillcheck/internal/adapters/content"
	"github.com/okian/skillcheck/internal/adapters/http/api"
	"github.com/okian/skillcheck/internal/adapters/llm"
	service "github.com/okian/skillcheck/internal/app"
	"github.com/okian/skillcheck/internal/walkthrough"
	"github.com/okian/skillcheck/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// scriptedGenerator answers each purpose with a well-formed reply.
type scriptedGenerator struct {
	failMentor atomic.Bool
	calls      atomic.Int64
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	g.calls.Add(1)
	switch req.Purpose {
	case llm.PurposeOpenScore:
		return `{"score": 70, "justification": "Concrete and structured."}`, nil
	case llm.PurposeTips:
		return `["Summarise before replying.", "Ask one open question per meeting.", "Write down the agreed next step."]`, nil
	case llm.PurposeMentor:
		if g.failMentor.Load() {
			return "", errors.New("upstream unavailable")
		}
		return "Good, let's continue.\n{\"exerciseScore\": 75, \"exerciseScoreJustification\": \"Clear.\"}\n{\"intent\": \"advance\"}", nil
	default:
		return "Focus on listening first, then on delegation.", nil
	}
}

func newServer(gen llm.Generator) *httptest.Server {
	store, err := content.New()
	if err != nil {
		panic(err)
	}
	opts := []service.Option{service.WithRubrics(store)}
	if gen != nil {
		opts = append(opts, service.WithGenerator(gen))
	}
	router := mux.NewRouter()
	api.NewServer(service.New(opts...), store).Register(context.Background(), router)
	return httptest.NewServer(router)
}

func testConfig(url string) *walkthrough.Config {
	return &walkthrough.Config{
		BaseURL:        url,
		Sessions:       3,
		Workers:        2,
		Timeout:        5 * time.Second,
		MaxMentorTurns: 12,
	}
}

func TestRun(t *testing.T) {
	Convey("Given a server with a working model", t, func() {
		gen := &scriptedGenerator{}
		srv := newServer(gen)
		defer srv.Close()

		Convey("When every session is played", func() {
			cfg := testConfig(srv.URL)
			cfg.OutputFile = filepath.Join(t.TempDir(), "out", "transcripts.json")
			stats, err := walkthrough.Run(context.Background(), cfg)

			Convey("Then all sessions complete without violations", func() {
				So(err, ShouldBeNil)
				So(stats.SessionsStarted, ShouldEqual, 3)
				So(stats.SessionsCompleted, ShouldEqual, 3)
				So(stats.Violations, ShouldEqual, 0)
				So(stats.Fallbacks, ShouldEqual, 0)
				So(stats.MentorTurns, ShouldEqual, 15)
				So(gen.calls.Load(), ShouldBeGreaterThan, 0)
			})

			Convey("Then the transcripts are written", func() {
				data, err := os.ReadFile(cfg.OutputFile)
				So(err, ShouldBeNil)
				var transcripts []walkthrough.Transcript
				So(json.Unmarshal(data, &transcripts), ShouldBeNil)
				So(transcripts, ShouldHaveLength, 3)
				So(transcripts[0].Mentor, ShouldHaveLength, 5)
				So(transcripts[0].Mentor[4].Phase, ShouldEqual, "completed")
				So(transcripts[0].Strategist, ShouldNotBeNil)
			})
		})

		Convey("When the mentor model fails", func() {
			gen.failMentor.Store(true)
			cfg := testConfig(srv.URL)
			cfg.Sessions = 1
			cfg.MaxMentorTurns = 3
			stats, err := walkthrough.Run(context.Background(), cfg)

			Convey("Then fallbacks are counted and the phase never moves", func() {
				So(err, ShouldBeNil)
				So(stats.MentorTurns, ShouldEqual, 3)
				So(stats.Fallbacks, ShouldEqual, 3)
				So(stats.Violations, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a server without a model", t, func() {
		srv := newServer(nil)
		defer srv.Close()

		Convey("When the walkthrough starts", func() {
			_, err := walkthrough.Run(context.Background(), testConfig(srv.URL))

			Convey("Then it stops at the health check", func() {
				So(errors.Is(err, walkthrough.ErrNotConfigured), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unreachable server", t, func() {
		srv := newServer(nil)
		srv.Close()

		Convey("When the walkthrough starts", func() {
			_, err := walkthrough.Run(context.Background(), testConfig(srv.URL))

			Convey("Then the health check fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "health check failed")
			})
		})
	})
}
