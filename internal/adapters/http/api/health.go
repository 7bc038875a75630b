package api

import (
	"net/http"

	"github.com/okian/skillcheck/internal/domain/types"
)

// ConfigurationReporter reports whether the model client is available.
type ConfigurationReporter interface {
	Configured() bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps ConfigurationReporter
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps ConfigurationReporter) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HandleHealth handles GET /healthz requests. The process is live even
// without a model client; llmConfigured tells the two states apart.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:        "ok",
		LLMConfigured: h.deps.Configured(),
	})
}
