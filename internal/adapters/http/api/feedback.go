package api

import (
	"context"
	"net/http"

	"github.com/okian/skillcheck/internal/domain/dedupe"
	"github.com/okian/skillcheck/internal/domain/types"
	"github.com/okian/skillcheck/pkg/logger"
)

// FeedbackDependencies acknowledges user ratings.
type FeedbackDependencies interface {
	RecordFeedback(ctx context.Context, req types.FeedbackRequest) (types.FeedbackResponse, error)
}

// FeedbackHandler handles feedback submissions. A submission that repeats
// a client-supplied request ID is acknowledged without being recorded again.
type FeedbackHandler struct {
	deps FeedbackDependencies
	seen dedupe.Deduper
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(deps FeedbackDependencies, seen dedupe.Deduper) *FeedbackHandler {
	if seen == nil {
		seen = dedupe.New()
	}
	return &FeedbackHandler{deps: deps, seen: seen}
}

// HandlePostFeedback handles POST /api/v1/feedback requests.
func (h *FeedbackHandler) HandlePostFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "api.feedback"
	var req types.FeedbackRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ctx := r.Context()
	var key string
	if r.Header.Get(RequestIDHeader) != "" {
		key = RequestID(ctx)
	}
	if key != "" && h.seen.SeenAndRecord(ctx, key) {
		logger.Named("http").Debug(ctx, "duplicate feedback acknowledged", logger.String("requestId", key))
		writeJSON(w, http.StatusOK, types.FeedbackResponse{Status: types.StatusReceived})
		return
	}
	resp, err := h.deps.RecordFeedback(ctx, req)
	if err != nil {
		if key != "" {
			h.seen.Unrecord(ctx, key)
		}
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
