package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/slaide-studio/slaide/internal/extract"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/storage"
)

type Handler struct {
	templateStore *storage.TemplateStore
	extractor     *extract.Client
}

func New() *Handler {
	return &Handler{
		templateStore: storage.New(),
		extractor:     extract.NewClient(),
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Template helpers
func (h *Handler) getTemplateOrError(w http.ResponseWriter, id string) (*geometry.Template, bool) {
	t, exists := h.templateStore.Get(id)
	if !exists {
		h.writeError(w, "Template not found", http.StatusNotFound)
		return nil, false
	}
	return t, true
}
