// Package eval runs the generation engine over a dataset of cases and
// scores allocation quality. Runs use a provider that always declines, so
// every case goes through the deterministic paths and results are
// reproducible without network access.
package eval

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"

	"github.com/slaide-studio/slaide/internal/assets"
	"github.com/slaide-studio/slaide/internal/capacity"
	"github.com/slaide-studio/slaide/internal/eval/dataset"
	"github.com/slaide-studio/slaide/internal/eval/metrics"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/pipeline"
	"github.com/slaide-studio/slaide/internal/providers"
	"github.com/slaide-studio/slaide/internal/render"
	"github.com/slaide-studio/slaide/internal/segment"
)

// offlineProvider declines every call, forcing the engine's deterministic
// fallbacks: manual segmentation stays manual, allocation falls back to
// smallest-fit, and compression skips.
type offlineProvider struct{}

func (offlineProvider) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	return "", fmt.Errorf("%w: offline evaluation provider", providers.ErrExternalCall)
}

func (offlineProvider) AnalyzeImage(ctx context.Context, config providers.Config) (string, error) {
	return "", fmt.Errorf("%w: offline evaluation provider", providers.ErrExternalCall)
}

// Runner executes cases and collects scored results.
type Runner struct {
	engine *pipeline.Engine
}

func NewRunner() *Runner {
	fonts := capacity.DefaultFonts()
	return &Runner{
		engine: &pipeline.Engine{
			Provider: offlineProvider{},
			Vision:   offlineProvider{},
			Fonts:    fonts,
			Renderer: &render.Renderer{Fonts: fonts, Title: "Evaluation Deck", Creator: "slaide-eval"},
		},
	}
}

// Run executes every case and returns per-case results in dataset order.
func (r *Runner) Run(ctx context.Context, cases []dataset.GenerationCase) []metrics.CaseResult {
	results := make([]metrics.CaseResult, 0, len(cases))
	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			break
		}
		result := r.runCase(ctx, c)
		results = append(results, result)
		if result.Error != "" {
			slog.Warn("Case failed", "case", c.ID, "error", result.Error)
		}
		if (i+1)%10 == 0 {
			slog.Info("Evaluation progress", "completed", i+1, "total", len(cases))
		}
	}
	return results
}

func (r *Runner) runCase(ctx context.Context, c dataset.GenerationCase) metrics.CaseResult {
	t, err := geometry.Parse([]byte(c.TemplateJSON))
	if err != nil {
		return metrics.CaseResult{CaseID: c.ID, Error: err.Error()}
	}

	numChunks := len(segment.Manual(c.Content))
	pool, links, err := syntheticPool(c.ImageCount, numChunks)
	if err != nil {
		return metrics.CaseResult{CaseID: c.ID, Error: err.Error()}
	}

	result, err := r.engine.Generate(ctx, pipeline.Request{
		Template:       t,
		Text:           c.Content,
		Pool:           pool,
		Mode:           pipeline.ModeManual,
		ManualLinks:    links,
		AcceptOverflow: true,
	})
	if err != nil {
		return metrics.CaseResult{CaseID: c.ID, Error: err.Error()}
	}

	return metrics.Score(c.ID, result.Slides, result.Recoveries, result.Overflow, result.Resolved, t, c.MinSlides, c.MaxSlides)
}

// syntheticPool builds n tiny generated images, spread round-robin over the
// deck's chunks.
func syntheticPool(n, numChunks int) (*assets.Pool, map[int][]string, error) {
	pool := &assets.Pool{}
	links := make(map[int][]string)
	if n > 0 && numChunks == 0 {
		return nil, nil, fmt.Errorf("case has %d images but no content chunks to link them to", n)
	}
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 4, 3))
		for x := 0; x < 4; x++ {
			for y := 0; y < 3; y++ {
				img.Set(x, y, color.RGBA{R: uint8(40 * i), G: 120, B: 200, A: 255})
			}
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, nil, fmt.Errorf("failed to synthesize image: %w", err)
		}
		asset, err := assets.NewAsset(fmt.Sprintf("eval-%d.png", i), buf.Bytes())
		if err != nil {
			return nil, nil, err
		}
		pool.Assets = append(pool.Assets, asset)
		chunk := i % numChunks
		links[chunk] = append(links[chunk], asset.ID)
	}
	return pool, links, nil
}
