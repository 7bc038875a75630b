package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/okian/skillcheck/internal/adapters/content"
)

// ContentSource serves the static documents.
type ContentSource interface {
	Document(k content.Kind) ([]byte, error)
}

// ContentHandler serves the question bank and the rubrics verbatim.
type ContentHandler struct {
	source ContentSource
}

// NewContentHandler creates a new content handler.
func NewContentHandler(source ContentSource) *ContentHandler {
	return &ContentHandler{source: source}
}

// HandleGetContent handles GET /api/v1/content/{kind} requests.
func (h *ContentHandler) HandleGetContent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_content"
	kind := content.Kind(mux.Vars(r)["kind"])
	doc, err := h.source.Document(kind)
	switch {
	case errors.Is(err, content.ErrUnknownKind):
		writeError(w, r, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "internal", Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
