package assets

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/slaide-studio/slaide/internal/providers"
)

const visionPrompt = `You are analyzing an image that will be placed in a presentation slide.

Describe the image so a presentation designer can decide where it belongs.

Respond with ONLY a JSON object:

{
  "description": "one or two sentences describing what the image shows",
  "labels": ["short", "topic", "labels"],
  "recommended_layout_style": "one of: full-bleed, side-by-side, thumbnail"
}`

// Analyzer enriches assets with vision metadata.
type Analyzer struct {
	Provider providers.Vision
	Model    string
	Timeout  time.Duration
}

// AnalyzeAll runs vision analysis for every asset in the pool concurrently.
// Failures are logged and leave the asset without metadata; they never fail
// the request. Each analysis is independent, so ordering does not matter.
func (a *Analyzer) AnalyzeAll(ctx context.Context, pool *Pool) {
	if a == nil || a.Provider == nil {
		return
	}

	var wg sync.WaitGroup
	for i := range pool.Assets {
		wg.Add(1)
		go func(asset *Asset) {
			defer wg.Done()
			meta, err := a.analyze(ctx, asset)
			if err != nil {
				slog.Warn("Image analysis failed, continuing without metadata",
					"image_id", asset.ID, "filename", asset.Filename, "error", err)
				return
			}
			asset.Vision = meta
			slog.Debug("Image analyzed", "image_id", asset.ID, "labels", meta.Labels)
		}(&pool.Assets[i])
	}
	wg.Wait()
}

func (a *Analyzer) analyze(ctx context.Context, asset *Asset) (*VisionMetadata, error) {
	raw, err := a.Provider.AnalyzeImage(ctx, providers.Config{
		Model:       a.Model,
		Temperature: 0.1,
		Prompt:      visionPrompt,
		Images:      []providers.ImageInput{{Data: asset.Bytes, MimeType: asset.MimeType}},
		Timeout:     a.Timeout,
	})
	if err != nil {
		return nil, err
	}

	var meta VisionMetadata
	if err := providers.DecodeJSON(raw, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
