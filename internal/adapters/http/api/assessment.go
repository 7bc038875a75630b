package api

import (
	"context"
	"net/http"

	"github.com/okian/skillcheck/internal/domain/types"
)

// AssessmentDependencies scores answers and generates tips.
type AssessmentDependencies interface {
	Score(ctx context.Context, req types.ScoreRequest) (types.ScoreResponse, error)
	Tips(ctx context.Context, req types.TipsRequest) (types.TipsResponse, error)
}

// AssessmentHandler handles scoring and tips requests.
type AssessmentHandler struct {
	deps AssessmentDependencies
}

// NewAssessmentHandler creates a new assessment handler.
func NewAssessmentHandler(deps AssessmentDependencies) *AssessmentHandler {
	return &AssessmentHandler{deps: deps}
}

// HandleScore handles POST /api/v1/assessments/score requests.
func (h *AssessmentHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	var req types.ScoreRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	resp, err := h.deps.Score(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleTips handles POST /api/v1/assessments/tips requests.
func (h *AssessmentHandler) HandleTips(w http.ResponseWriter, r *http.Request) {
	const op = "api.tips"
	var req types.TipsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	resp, err := h.deps.Tips(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
