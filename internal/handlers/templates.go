package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/slaide-studio/slaide/internal/extract"
	"github.com/slaide-studio/slaide/internal/geometry"
)

// HandleTemplates serves POST /api/templates (register a template from
// geometry JSON or an uploaded pptx) and GET /api/templates (list).
func (h *Handler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		templates := h.templateStore.GetAll()
		list := make([]*geometry.Template, 0, len(templates))
		for _, t := range templates {
			list = append(list, t)
		}
		h.writeJSON(w, list)
	case "POST":
		h.handleTemplateUpload(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleTemplateUpload(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")

	var t *geometry.Template
	switch {
	case strings.Contains(contentType, "application/json"):
		body, err := io.ReadAll(r.Body)
		if err != nil {
			h.writeError(w, "Failed to read request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		t, err = geometry.Parse(body)
		if err != nil {
			h.writeError(w, "Invalid template geometry: "+err.Error(), http.StatusBadRequest)
			return
		}
	default:
		// pptx upload, handed to the extraction service
		file, header, err := r.FormFile("file")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
		t, err = h.extractor.Extract(r.Context(), header.Filename, data)
		if err != nil {
			if errors.Is(err, extract.ErrMalformedTemplate) {
				h.writeError(w, "Not a usable PowerPoint template: "+err.Error(), http.StatusUnprocessableEntity)
				return
			}
			h.writeError(w, "Template extraction failed: "+err.Error(), http.StatusBadGateway)
			return
		}
	}

	t.ID = uuid.NewString()
	h.templateStore.Set(t.ID, t)
	h.writeJSON(w, t)
}

// HandleTemplateDetail serves GET /api/templates/{id} and
// PUT /api/templates/{id}/reclassify.
func (h *Handler) HandleTemplateDetail(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	id, action, _ := strings.Cut(path, "/")

	t, ok := h.getTemplateOrError(w, id)
	if !ok {
		return
	}

	switch {
	case r.Method == "GET" && action == "":
		h.writeJSON(w, t)
	case r.Method == "PUT" && action == "reclassify":
		h.handleReclassify(w, r, id)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleReclassify(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Layout   string            `json:"layout"`
		Category geometry.Category `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Layout == "" || req.Category.Label == "" {
		h.writeError(w, "layout and category.label are required", http.StatusBadRequest)
		return
	}

	t, err := h.templateStore.Reclassify(id, req.Layout, req.Category)
	if err != nil {
		h.writeError(w, "Reclassification failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, t)
}
