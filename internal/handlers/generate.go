package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/slaide-studio/slaide/internal/assets"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/pipeline"
)

const maxUploadBytes = 64 << 20

// HandleGenerate serves POST /api/generate: multipart form with template_id,
// text, optional mode/provider/model/accept_overflow fields and image files.
// Success returns the .pptx binary; allocation metadata travels in
// X-Slaide-* headers so binary and report fit one response.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, "Failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	templateID := r.FormValue("template_id")
	t, ok := h.getTemplateOrError(w, templateID)
	if !ok {
		return
	}

	pool, err := h.readImages(r)
	if err != nil {
		h.writeError(w, "Failed to read images: "+err.Error(), http.StatusBadRequest)
		return
	}

	acceptOverflow, _ := strconv.ParseBool(r.FormValue("accept_overflow"))
	mode := pipeline.Mode(r.FormValue("mode"))

	engine, err := pipeline.New(r.FormValue("provider"), r.FormValue("model"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := engine.Generate(r.Context(), pipeline.Request{
		Template:       t,
		Text:           r.FormValue("text"),
		Pool:           pool,
		Mode:           mode,
		AcceptOverflow: acceptOverflow,
	})
	if err != nil {
		var overflowErr *pipeline.UnresolvedOverflowError
		switch {
		case errors.As(err, &overflowErr):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			h.writeJSON(w, map[string]any{
				"error":    overflowErr.Error(),
				"overflow": overflowErr.Report,
			})
		case errors.Is(err, geometry.ErrInvalidGeometry):
			h.writeError(w, err.Error(), http.StatusBadRequest)
		default:
			h.writeError(w, "Generation failed: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.presentationml.presentation")
	w.Header().Set("Content-Disposition", `attachment; filename="presentation.pptx"`)
	w.Header().Set("X-Slaide-Slides", strconv.Itoa(len(result.Slides)))
	w.Header().Set("X-Slaide-Recoveries", strconv.Itoa(len(result.Recoveries)))
	w.Header().Set("X-Slaide-Overflow-Resolved", strconv.FormatBool(result.Resolved))
	if _, err := w.Write(result.Deck); err != nil {
		h.writeError(w, "Failed to write deck: "+err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) readImages(r *http.Request) (*assets.Pool, error) {
	pool := &assets.Pool{}
	if r.MultipartForm == nil {
		return pool, nil
	}
	for _, header := range r.MultipartForm.File["images"] {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		asset, err := assets.NewAsset(header.Filename, data)
		if err != nil {
			return nil, err
		}
		pool.Assets = append(pool.Assets, asset)
	}
	return pool, nil
}
