// Package pipeline orchestrates one generation request end to end:
// feasibility check, segmentation, allocation, overflow verification, the
// compression loop, and rendering. It owns the order and the cancellation
// semantics; each stage package owns its own rules.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/slaide-studio/slaide/internal/allocate"
	"github.com/slaide-studio/slaide/internal/assets"
	"github.com/slaide-studio/slaide/internal/capacity"
	"github.com/slaide-studio/slaide/internal/gemini"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/models"
	"github.com/slaide-studio/slaide/internal/ollama"
	"github.com/slaide-studio/slaide/internal/openai"
	"github.com/slaide-studio/slaide/internal/providers"
	"github.com/slaide-studio/slaide/internal/render"
	"github.com/slaide-studio/slaide/internal/repair"
	"github.com/slaide-studio/slaide/internal/segment"
	"github.com/slaide-studio/slaide/internal/verify"
)

// Mode selects how raw text is segmented into chunks.
type Mode string

const (
	// ModeAI segments holistically through the model, with deck-level
	// narrative planning.
	ModeAI Mode = "ai"
	// ModeManual splits on blank lines and uses only explicit image links.
	ModeManual Mode = "manual"
)

// Request is one generation job: a validated template, raw content, and an
// optional image pool.
type Request struct {
	Template *geometry.Template
	Text     string
	Pool     *assets.Pool
	Mode     Mode

	// ManualLinks maps a manual-mode chunk ordinal to the asset IDs that
	// belong on its slide. Ignored in AI mode.
	ManualLinks map[int][]string

	// AcceptOverflow renders the deck even when the compression loop could
	// not resolve every overflow. Without it, unresolved overflow fails the
	// request and the report says where.
	AcceptOverflow bool
}

// Result is a finished generation: the deck plus everything a caller needs
// to explain what happened.
type Result struct {
	Deck       []byte
	Slides     []models.SlideSpec
	Summary    models.DeckSummary
	Recoveries []models.Recovery
	Overflow   models.OverflowReport
	Resolved   bool
	Passes     int
}

// UnresolvedOverflowError fails a request whose overflow survived the
// compression loop and whose caller did not opt into rendering anyway.
type UnresolvedOverflowError struct {
	Report models.OverflowReport
}

func (e *UnresolvedOverflowError) Error() string {
	return fmt.Sprintf("deck still overflows in %d placeholder(s) after compression", len(e.Report.Entries))
}

// Engine wires the stages together around one provider.
type Engine struct {
	Provider providers.Text
	Vision   providers.Vision
	Model    string
	Timeout  time.Duration
	Fonts    capacity.Fonts
	Renderer *render.Renderer
}

// New builds an Engine for the named provider, resolving defaults from the
// environment: SLAIDE_PROVIDER (default gemini) and SLAIDE_MODEL.
func New(provider, model string) (*Engine, error) {
	if provider == "" {
		provider = os.Getenv("SLAIDE_PROVIDER")
		if provider == "" {
			provider = "gemini"
		}
	}
	if model == "" {
		model = os.Getenv("SLAIDE_MODEL")
	}

	e := &Engine{
		Model:   model,
		Timeout: 120 * time.Second,
		Fonts:   capacity.DefaultFonts(),
	}
	switch provider {
	case "gemini":
		p := gemini.New()
		e.Provider, e.Vision = p, p
	case "openai":
		p := openai.New()
		e.Provider, e.Vision = p, p
	case "ollama":
		p := ollama.New()
		e.Provider, e.Vision = p, p
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	e.Renderer = &render.Renderer{Fonts: e.Fonts, Title: "Generated Presentation", Creator: "slaide"}
	return e, nil
}

// Generate runs the full pipeline. Cancellation is checked before every
// stage that calls out; a canceled request returns the context error and
// never a partial deck.
func (e *Engine) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Template == nil {
		return nil, fmt.Errorf("no template provided")
	}
	if req.Pool == nil {
		req.Pool = &assets.Pool{}
	}
	if req.Mode == "" {
		req.Mode = ModeAI
	}

	numImages := len(req.Pool.IDs())
	hasText := req.Text != ""
	if err := geometry.CheckFeasibility(req.Template, numImages, hasText); err != nil {
		return nil, err
	}

	slog.Info("Starting generation", "mode", req.Mode, "images", numImages, "layouts", len(req.Template.Layouts))

	// Vision metadata sharpens segmentation and allocation prompts but is
	// never required; failures degrade to no signal.
	if req.Mode == ModeAI && numImages > 0 && e.Vision != nil {
		analyzer := &assets.Analyzer{Provider: e.Vision, Model: e.Model, Timeout: e.Timeout}
		analyzer.AnalyzeAll(ctx, req.Pool)
	}

	chunks, summary, err := e.segmentStage(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	allocator := &allocate.Allocator{Provider: e.Provider, Model: e.Model, Timeout: e.Timeout, Fonts: e.Fonts}
	plan, err := allocator.Allocate(ctx, chunks, req.Template, req.Pool)
	if err != nil {
		return nil, err
	}

	report := verify.Verify(plan.Slides, req.Template, e.Fonts)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repairer := &repair.Repairer{Provider: e.Provider, Model: e.Model, Timeout: e.Timeout, Fonts: e.Fonts}
	repaired, err := repairer.Repair(ctx, plan.Slides, report, req.Template)
	if err != nil {
		return nil, err
	}

	if !repaired.Resolved && !req.AcceptOverflow {
		return nil, &UnresolvedOverflowError{Report: repaired.Report}
	}

	deck, err := e.Renderer.Render(repaired.Slides, req.Template, req.Pool)
	if err != nil {
		return nil, err
	}

	slog.Info("Generation complete",
		"slides", len(repaired.Slides),
		"recoveries", len(plan.Recoveries),
		"overflow_resolved", repaired.Resolved,
		"compression_passes", repaired.Passes)

	return &Result{
		Deck:       deck,
		Slides:     repaired.Slides,
		Summary:    summary,
		Recoveries: plan.Recoveries,
		Overflow:   repaired.Report,
		Resolved:   repaired.Resolved,
		Passes:     repaired.Passes,
	}, nil
}

func (e *Engine) segmentStage(ctx context.Context, req Request) ([]models.ContentChunk, models.DeckSummary, error) {
	switch req.Mode {
	case ModeManual:
		chunks := segment.Manual(req.Text)
		for ordinal, ids := range req.ManualLinks {
			if ordinal < 0 || ordinal >= len(chunks) {
				return nil, models.DeckSummary{}, fmt.Errorf("manual image link targets chunk %d, deck has %d chunks", ordinal, len(chunks))
			}
			for _, id := range ids {
				if _, ok := req.Pool.ByID(id); !ok {
					return nil, models.DeckSummary{}, fmt.Errorf("manual image link references unknown image %q", id)
				}
				segment.LinkImage(&chunks[ordinal], id)
			}
		}
		return chunks, models.DeckSummary{}, nil
	case ModeAI:
		if err := ctx.Err(); err != nil {
			return nil, models.DeckSummary{}, err
		}
		segmenter := &segment.AISegmenter{Provider: e.Provider, Model: e.Model, Timeout: e.Timeout}
		return segmenter.Segment(ctx, req.Text, req.Pool, req.Template, e.Fonts)
	default:
		return nil, models.DeckSummary{}, fmt.Errorf("unsupported segmentation mode: %s", req.Mode)
	}
}
