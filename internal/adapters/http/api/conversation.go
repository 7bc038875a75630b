package api

import (
	"context"
	"net/http"

	"github.com/okian/skillcheck/internal/domain/types"
)

// MentorDependencies runs one mentor turn.
type MentorDependencies interface {
	MentorTurn(ctx context.Context, req types.MentorTurnRequest) (types.MentorTurnResponse, error)
}

// StrategistDependencies runs one strategist turn.
type StrategistDependencies interface {
	StrategistTurn(ctx context.Context, req types.StrategistTurnRequest) (types.StrategistTurnResponse, error)
}

// MentorHandler handles mentor chat turns.
type MentorHandler struct {
	deps MentorDependencies
}

// NewMentorHandler creates a new mentor handler.
func NewMentorHandler(deps MentorDependencies) *MentorHandler {
	return &MentorHandler{deps: deps}
}

// HandleTurn handles POST /api/v1/mentor/turn requests.
func (h *MentorHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	const op = "api.mentor_turn"
	var req types.MentorTurnRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	resp, err := h.deps.MentorTurn(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// StrategistHandler handles strategist chat turns.
type StrategistHandler struct {
	deps StrategistDependencies
}

// NewStrategistHandler creates a new strategist handler.
func NewStrategistHandler(deps StrategistDependencies) *StrategistHandler {
	return &StrategistHandler{deps: deps}
}

// HandleTurn handles POST /api/v1/strategist/turn requests.
func (h *StrategistHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	const op = "api.strategist_turn"
	var req types.StrategistTurnRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	resp, err := h.deps.StrategistTurn(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
