package allocate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slaide-studio/slaide/internal/assets"
	"github.com/slaide-studio/slaide/internal/catalog"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/models"
	"github.com/slaide-studio/slaide/internal/providers"
)

const proposalSystemPrompt = `You are a presentation designer expert assigning content chunks to slide layouts.

CRITICAL CONSTRAINTS:
1. You can ONLY use layout names explicitly listed in "Available Layouts".
2. The chosen layout must have enough TEXT placeholders for the chunk's text and enough IMAGE placeholders for its linked images.
3. Layouts marked as reserved for title/closing slides may only be chosen for chunks labeled "title" or "closing".
4. Use different layouts for variety; do not repeat the same layout excessively.

Respond with ONLY a JSON object:

{
  "assignments": [
    {"chunk_id": "chunk_1", "layout_name": "Title Slide"},
    {"chunk_id": "chunk_2", "layout_name": "Content with Picture"}
  ]
}`

type proposalResponse struct {
	Assignments []struct {
		ChunkID    string `json:"chunk_id"`
		LayoutName string `json:"layout_name"`
	} `json:"assignments"`
}

// propose asks the model for a layout name per chunk in a single call.
// Every failure mode — transport, timeout, malformed output — degrades to
// an empty proposal set, which routes every chunk through the deterministic
// fallback. Proposals are hints; nothing here is trusted unvalidated.
func (a *Allocator) propose(ctx context.Context, chunks []models.ContentChunk, t *geometry.Template) map[string]string {
	proposals := make(map[string]string)
	if a.Provider == nil {
		return proposals
	}
	if err := ctx.Err(); err != nil {
		return proposals
	}

	raw, err := a.Provider.GenerateText(ctx, providers.Config{
		Model:       a.Model,
		Temperature: 0.2,
		System:      proposalSystemPrompt,
		Prompt:      a.buildProposalPrompt(chunks, t),
		Timeout:     a.Timeout,
	})
	if err != nil {
		slog.Warn("Layout proposal call failed, falling back to deterministic selection", "error", err)
		return proposals
	}

	var resp proposalResponse
	if err := providers.DecodeJSON(raw, &resp); err != nil {
		slog.Warn("Layout proposal response rejected, falling back to deterministic selection", "error", err)
		return proposals
	}

	for _, assignment := range resp.Assignments {
		if assignment.ChunkID != "" && assignment.LayoutName != "" {
			proposals[assignment.ChunkID] = assignment.LayoutName
		}
	}
	return proposals
}

func (a *Allocator) buildProposalPrompt(chunks []models.ContentChunk, t *geometry.Template) string {
	var b strings.Builder

	b.WriteString("Available Layouts:\n")
	b.WriteString(catalog.Format(t, a.Fonts))

	b.WriteString("\nContent chunks to place (one slide each, in order):\n")
	for _, chunk := range chunks {
		fmt.Fprintf(&b, "\n--- %s", chunk.ID)
		if chunk.SlideType != "" {
			fmt.Fprintf(&b, " (slide_type: %s)", chunk.SlideType)
		}
		fmt.Fprintf(&b, " | linked images: %d ---\n", len(chunk.LinkedImages))
		b.WriteString(preview(chunk.Text, 400))
		b.WriteString("\n")
	}

	b.WriteString("\nAssign a layout to every chunk. Return ONLY valid JSON (no markdown, no explanation).")
	return b.String()
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// ReallocateSlide re-runs allocation for a single chunk, given the
// surrounding slides as context, without touching segmentation or the rest
// of the deck. The result satisfies the same invariants as Allocate output.
func (a *Allocator) ReallocateSlide(ctx context.Context, chunk models.ContentChunk, t *geometry.Template, pool *assets.Pool, before, after []models.SlideSpec) (models.SlideSpec, []models.Recovery, error) {
	if err := ctx.Err(); err != nil {
		return models.SlideSpec{}, nil, err
	}

	proposed := ""
	if a.Provider != nil {
		proposed = a.proposeSingle(ctx, chunk, t, before, after)
	}

	plan := &Plan{}
	layout, viaFallback, err := a.selectLayout(t, chunk, proposed, len(before), plan)
	if err != nil {
		return models.SlideSpec{}, nil, err
	}

	spec, _, err := a.bind(layout, []models.ContentChunk{chunk}, viaFallback, pool, len(before), plan, nil)
	if err != nil {
		return models.SlideSpec{}, nil, err
	}
	if err := ValidateSpec(spec, t); err != nil {
		return models.SlideSpec{}, nil, fmt.Errorf("reallocated slide failed validation: %w", err)
	}
	return spec, plan.Recoveries, nil
}

func (a *Allocator) proposeSingle(ctx context.Context, chunk models.ContentChunk, t *geometry.Template, before, after []models.SlideSpec) string {
	var b strings.Builder
	b.WriteString("Available Layouts:\n")
	b.WriteString(catalog.Format(t, a.Fonts))

	b.WriteString("\nDeck context (layouts already in use, in order):\n")
	for _, s := range before {
		fmt.Fprintf(&b, "  before: %s\n", s.LayoutName)
	}
	b.WriteString("  << the slide being regenerated goes here >>\n")
	for _, s := range after {
		fmt.Fprintf(&b, "  after: %s\n", s.LayoutName)
	}

	fmt.Fprintf(&b, "\nChunk %s", chunk.ID)
	if chunk.SlideType != "" {
		fmt.Fprintf(&b, " (slide_type: %s)", chunk.SlideType)
	}
	fmt.Fprintf(&b, " | linked images: %d\n%s\n", len(chunk.LinkedImages), preview(chunk.Text, 400))
	b.WriteString("\nAssign a layout to this single chunk. Return ONLY valid JSON (no markdown, no explanation).")

	raw, err := a.Provider.GenerateText(ctx, providers.Config{
		Model:       a.Model,
		Temperature: 0.2,
		System:      proposalSystemPrompt,
		Prompt:      b.String(),
		Timeout:     a.Timeout,
	})
	if err != nil {
		slog.Warn("Single-slide proposal call failed, falling back", "chunk_id", chunk.ID, "error", err)
		return ""
	}

	var resp proposalResponse
	if err := providers.DecodeJSON(raw, &resp); err != nil {
		slog.Warn("Single-slide proposal response rejected, falling back", "chunk_id", chunk.ID, "error", err)
		return ""
	}
	if len(resp.Assignments) == 0 {
		return ""
	}
	return resp.Assignments[0].LayoutName
}
