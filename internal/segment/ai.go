package segment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/slaide-studio/slaide/internal/assets"
	"github.com/slaide-studio/slaide/internal/capacity"
	"github.com/slaide-studio/slaide/internal/catalog"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/models"
	"github.com/slaide-studio/slaide/internal/providers"
)

const segmentSystemPrompt = `You are a presentation designer expert. Your task is to segment raw content into slide-sized chunks for a deck built from a rigid template.

Given:
1. Raw text content (may be a topic, notes, or pre-written content)
2. The available slide layouts with their placeholder capacities
3. Metadata about the provided images

Rules:
- Each chunk becomes exactly one slide, in the order you return them.
- Keep each chunk small enough to fit the text capacities listed in the layout catalog.
- If images are provided, link EVERY image index (0 to N-1) to exactly one chunk.
- Label each chunk with a slide_type: "title", "content", "divider", or "closing".
- Provide a deck summary: the key message and a one-sentence flow description.

Respond with ONLY a JSON object:

{
  "summary": {"key_message": "...", "flow": "..."},
  "chunks": [
    {"text": "chunk text", "slide_type": "title", "image_indices": []},
    {"text": "chunk text", "slide_type": "content", "image_indices": [0]}
  ]
}`

// AISegmenter produces chunks through one holistic model call.
type AISegmenter struct {
	Provider providers.Text
	Model    string
	Timeout  time.Duration
}

type aiChunk struct {
	Text         string `json:"text"`
	SlideType    string `json:"slide_type"`
	ImageIndices []int  `json:"image_indices"`
}

type aiSegmentResponse struct {
	Summary models.DeckSummary `json:"summary"`
	Chunks  []aiChunk          `json:"chunks"`
}

// UnmarshalJSON tolerates a bare chunk array, which some models emit even
// when the prompt asks for the wrapped object. Validation stays strict.
func (r *aiSegmentResponse) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &r.Chunks)
	}
	type plain aiSegmentResponse
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = aiSegmentResponse(p)
	return nil
}

// Segment makes a single holistic request carrying the full raw text, the
// layout catalog with precomputed capacities, and image metadata. The model
// output is a hypothesis: it is schema-validated before use and rejected
// with ErrMalformedResponse on any violation. There is no deterministic
// fallback for AI segmentation — failures propagate.
func (s *AISegmenter) Segment(ctx context.Context, rawText string, pool *assets.Pool, t *geometry.Template, fonts capacity.Fonts) ([]models.ContentChunk, models.DeckSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.DeckSummary{}, err
	}

	raw, err := s.Provider.GenerateText(ctx, providers.Config{
		Model:       s.Model,
		Temperature: 0.2,
		System:      segmentSystemPrompt,
		Prompt:      s.buildPrompt(rawText, pool, t, fonts),
		Timeout:     s.Timeout,
	})
	if err != nil {
		return nil, models.DeckSummary{}, fmt.Errorf("segmentation call failed: %w", err)
	}

	var resp aiSegmentResponse
	if err := providers.DecodeJSON(raw, &resp); err != nil {
		return nil, models.DeckSummary{}, fmt.Errorf("segmentation response: %w", err)
	}

	chunks, err := s.validate(resp, pool)
	if err != nil {
		return nil, models.DeckSummary{}, err
	}
	return chunks, resp.Summary, nil
}

func (s *AISegmenter) buildPrompt(rawText string, pool *assets.Pool, t *geometry.Template, fonts capacity.Fonts) string {
	var b strings.Builder

	b.WriteString("Available Layouts:\n")
	b.WriteString(catalog.Format(t, fonts))

	b.WriteString("\nContent:\n")
	if rawText == "" {
		b.WriteString("(no base content - generate from the images)\n")
	} else {
		b.WriteString(rawText)
		b.WriteString("\n")
	}

	n := len(pool.Assets)
	fmt.Fprintf(&b, "\nNumber of Images: %d\n", n)
	if n > 0 {
		fmt.Fprintf(&b, "You MUST link all %d images (indices 0-%d), each to exactly one chunk.\n", n, n-1)
		for i, a := range pool.Assets {
			fmt.Fprintf(&b, "  Image %d: %s", i, a.Filename)
			if a.Vision != nil && a.Vision.Description != "" {
				fmt.Fprintf(&b, " - %s", a.Vision.Description)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nSegment the content. Return ONLY valid JSON (no markdown, no explanation).")
	return b.String()
}

// validate enforces the chunk schema: at least one chunk, image indices in
// range, and every image linked exactly once.
func (s *AISegmenter) validate(resp aiSegmentResponse, pool *assets.Pool) ([]models.ContentChunk, error) {
	if len(resp.Chunks) == 0 {
		return nil, fmt.Errorf("%w: segmentation returned no chunks", providers.ErrMalformedResponse)
	}

	numImages := len(pool.Assets)
	used := make(map[int]int)

	chunks := make([]models.ContentChunk, 0, len(resp.Chunks))
	for i, c := range resp.Chunks {
		if strings.TrimSpace(c.Text) == "" && len(c.ImageIndices) == 0 {
			return nil, fmt.Errorf("%w: chunk %d has neither text nor images", providers.ErrMalformedResponse, i)
		}

		chunk := models.ContentChunk{
			ID:        fmt.Sprintf("chunk_%d", i+1),
			Text:      strings.TrimSpace(c.Text),
			SlideType: c.SlideType,
		}
		for _, idx := range c.ImageIndices {
			if idx < 0 || idx >= numImages {
				return nil, fmt.Errorf("%w: chunk %d references image index %d, only indices 0-%d exist",
					providers.ErrMalformedResponse, i, idx, numImages-1)
			}
			used[idx]++
			chunk.LinkedImages = append(chunk.LinkedImages, pool.Assets[idx].ID)
		}
		chunks = append(chunks, chunk)
	}

	for idx := 0; idx < numImages; idx++ {
		switch used[idx] {
		case 0:
			return nil, fmt.Errorf("%w: image index %d was never linked to a chunk", providers.ErrMalformedResponse, idx)
		case 1:
		default:
			return nil, fmt.Errorf("%w: image index %d linked %d times, must be exactly once",
				providers.ErrMalformedResponse, idx, used[idx])
		}
	}

	return chunks, nil
}
