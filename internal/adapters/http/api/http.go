// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	service "github.com/okian/skillcheck/internal/app"
	"github.com/okian/skillcheck/internal/domain/dedupe"
	"github.com/okian/skillcheck/internal/domain/types"
	"github.com/okian/skillcheck/pkg/logger"
	"github.com/okian/skillcheck/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds a request body. The largest request is a replayed
// conversation of types.MaxMessages messages.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AssessmentDependencies
	MentorDependencies
	StrategistDependencies
	FeedbackDependencies
	StatsProvider
	Configured() bool
}

// Middleware decorates a handler.
type Middleware func(http.Handler) http.Handler

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	assessmentHandler *AssessmentHandler
	mentorHandler     *MentorHandler
	strategistHandler *StrategistHandler
	feedbackHandler   *FeedbackHandler
	contentHandler    *ContentHandler

	rateLimit Middleware
	cors      []string
	feedback  dedupe.Deduper
}

// Option configures the Server.
type Option func(*Server)

// WithRateLimit guards the model-backed routes.
func WithRateLimit(m Middleware) Option {
	return func(s *Server) {
		if m != nil {
			s.rateLimit = m
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins ("*" for any).
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.cors = origins
	}
}

// WithFeedbackDeduper replaces the default in-memory replay guard of the
// feedback route.
func WithFeedbackDeduper(d dedupe.Deduper) Option {
	return func(s *Server) {
		s.feedback = d
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, content ContentSource, opts ...Option) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(deps),
		statsHandler:      NewStatsHandler(deps),
		assessmentHandler: NewAssessmentHandler(deps),
		mentorHandler:     NewMentorHandler(deps),
		strategistHandler: NewStrategistHandler(deps),
		contentHandler:    NewContentHandler(content),
		rateLimit:         func(next http.Handler) http.Handler { return next },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.feedbackHandler = NewFeedbackHandler(deps, s.feedback)
	return s
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(_ context.Context, router *mux.Router) {
	router.Use(RequestIDMiddleware)
	if len(s.cors) > 0 {
		router.Use(CORSMiddleware(s.cors))
		router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}

	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/content/{kind}", MetricsMiddleware(s.contentHandler.HandleGetContent, "content")).Methods(http.MethodGet)
	v1.HandleFunc("/feedback", MetricsMiddleware(s.feedbackHandler.HandlePostFeedback, "feedback")).Methods(http.MethodPost)

	model := func(h http.HandlerFunc, endpoint string) http.Handler {
		return s.rateLimit(MetricsMiddleware(h, endpoint))
	}
	v1.Handle("/assessments/score", model(s.assessmentHandler.HandleScore, "score")).Methods(http.MethodPost)
	v1.Handle("/assessments/tips", model(s.assessmentHandler.HandleTips, "tips")).Methods(http.MethodPost)
	v1.Handle("/mentor/turn", model(s.mentorHandler.HandleTurn, "mentor")).Methods(http.MethodPost)
	v1.Handle("/strategist/turn", model(s.strategistHandler.HandleTurn, "strategist")).Methods(http.MethodPost)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Short client-facing messages per error code.
var errorMessages = map[string]string{ //nolint:gochecknoglobals // fixed table
	"bad_request":      "invalid request",
	"not_found":        "not found",
	"llm_unconfigured": "language model not configured",
	"internal":         "internal error",
}

// writeError answers with a short message for code. Client errors carry
// their cause in Details; server errors are logged and not echoed.
func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	msg, ok := errorMessages[code]
	if !ok {
		msg = http.StatusText(status)
	}
	resp := types.ErrorResponse{Code: code, Message: msg}
	if status < http.StatusInternalServerError {
		resp.Details = details(err)
	} else if err != nil {
		logger.Named("http").Error(r.Context(), "request failed",
			logger.String("requestId", RequestID(r.Context())),
			logger.String("code", code),
			logger.Error(err))
	}
	writeJSON(w, status, resp)
}

// details returns the cause of a client error without operation names.
func details(err error) string {
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Err != nil && !errors.Is(ae.Err, service.ErrInvalidInput) {
		return ae.Err.Error()
	}
	return ""
}

// writeServiceError maps service error kinds to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNotConfigured):
		writeError(w, r, http.StatusServiceUnavailable, "llm_unconfigured", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, r, http.StatusInternalServerError, "internal", Wrap(op, err))
	}
}

// decode reads a single JSON value from the body into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}
