// Package allocate assigns content chunks and their linked images to
// template layouts, producing validated slide specifications. Model
// proposals are hypotheses: every choice is mechanically validated and
// falls back to deterministic selection when rejected.
package allocate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slaide-studio/slaide/internal/assets"
	"github.com/slaide-studio/slaide/internal/capacity"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/models"
	"github.com/slaide-studio/slaide/internal/providers"
)

// ErrInsufficientPlaceholders indicates no layout in the template can hold a
// chunk's content even after fallback. Cannot be auto-resolved; the caller
// must restructure the content.
var ErrInsufficientPlaceholders = errors.New("no layout satisfies the chunk's placeholder requirements")

// titleLineMax is the longest first line that is still treated as a slide
// title when a chunk is split across a title + body placeholder pair.
const titleLineMax = 90

// Plan is the allocator's output: ordered slide specs plus the traceable
// records of every locally recovered decision.
type Plan struct {
	Slides     []models.SlideSpec
	Recoveries []models.Recovery
}

// Allocator assigns chunks to layouts. Provider is optional: without one,
// every slide takes the deterministic path.
type Allocator struct {
	Provider providers.Text
	Model    string
	Timeout  time.Duration
	Fonts    capacity.Fonts
}

// Allocate maps every chunk (plus its linked images) to a best-fit layout.
// Chunks are consumed in order; a chunk may pull following imageless chunks
// into the same slide to fill a fallback layout's spare text placeholders.
// The returned specs all satisfy the slide-spec invariants.
func (a *Allocator) Allocate(ctx context.Context, chunks []models.ContentChunk, t *geometry.Template, pool *assets.Pool) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proposals := a.propose(ctx, chunks, t)

	plan := &Plan{}
	i := 0
	for i < len(chunks) {
		chunk := chunks[i]
		slideIdx := len(plan.Slides)

		layout, viaFallback, err := a.selectLayout(t, chunk, proposals[chunk.ID], slideIdx, plan)
		if err != nil {
			return nil, err
		}

		spec, consumed, err := a.bind(layout, chunks[i:], viaFallback, pool, slideIdx, plan, proposals)
		if err != nil {
			return nil, err
		}

		if err := ValidateSpec(spec, t); err != nil {
			return nil, fmt.Errorf("allocated slide %d failed validation: %w", slideIdx, err)
		}
		plan.Slides = append(plan.Slides, spec)
		i += consumed
	}

	return plan, nil
}

// selectLayout resolves a chunk's layout: the model proposal when it
// passes mechanical validation, the deterministic fallback otherwise.
func (a *Allocator) selectLayout(t *geometry.Template, chunk models.ContentChunk, proposed string, slideIdx int, plan *Plan) (*geometry.Layout, bool, error) {
	if proposed != "" {
		layout, ok := t.Layout(proposed)
		if ok && satisfies(layout, chunk) {
			return layout, false, nil
		}

		reason := fmt.Sprintf("proposed layout %q does not exist in the template", proposed)
		if ok {
			reason = fmt.Sprintf("proposed layout %q cannot hold the chunk (%d text placeholder(s), %d image placeholder(s) available)",
				proposed, layout.CountKind(geometry.KindText), layout.CountKind(geometry.KindImage))
		}
		slog.Warn("Layout proposal rejected, using deterministic fallback",
			"chunk_id", chunk.ID, "proposed", proposed, "reason", reason)
		plan.Recoveries = append(plan.Recoveries, models.Recovery{
			Kind:       models.RecoveryUnresolvedLayout,
			ChunkID:    chunk.ID,
			SlideIndex: slideIdx,
			Detail:     reason,
		})
	}

	layout, err := Fallback(t, chunk)
	if err != nil {
		return nil, false, err
	}
	return layout, true, nil
}

// satisfies reports whether a layout can hold the chunk under the hard
// constraints: enough text placeholders for the chunk's text segments and
// enough image placeholders for every linked image.
func satisfies(layout *geometry.Layout, chunk models.ContentChunk) bool {
	if chunk.Text != "" && layout.CountKind(geometry.KindText) == 0 {
		return false
	}
	return layout.CountKind(geometry.KindImage) >= len(chunk.LinkedImages)
}

// Fallback deterministically selects the smallest layout (by placeholder
// count) that satisfies the chunk's type constraints, tie-broken by lowest
// layout index. Special layouts are excluded unless the chunk is tagged
// "title" or "closing". When no layout has enough image placeholders the
// image constraint is relaxed to "at least one" and the excess is deferred
// by the caller; a chunk that cannot be held at all is an error.
func Fallback(t *geometry.Template, chunk models.ContentChunk) (*geometry.Layout, error) {
	allowSpecial := chunk.SlideType == "title" || chunk.SlideType == "closing"

	needText := 0
	if chunk.Text != "" {
		needText = 1
	}
	needImages := len(chunk.LinkedImages)

	if best := pickSmallest(t, needText, needImages, allowSpecial); best != nil {
		return best, nil
	}
	// Relax the image requirement: bind what fits, defer the rest.
	if needImages > 1 {
		if best := pickSmallest(t, needText, 1, allowSpecial); best != nil {
			return best, nil
		}
	}
	if needImages > 0 && chunk.Text != "" {
		// Last resort: a text-only layout; all images get deferred.
		if best := pickSmallest(t, needText, 0, allowSpecial); best != nil {
			return best, nil
		}
	}

	return nil, fmt.Errorf("%w: chunk %q needs %d text and %d image placeholder(s)",
		ErrInsufficientPlaceholders, chunk.ID, needText, needImages)
}

func pickSmallest(t *geometry.Template, minText, minImages int, allowSpecial bool) *geometry.Layout {
	var best *geometry.Layout
	for i := range t.Layouts {
		layout := &t.Layouts[i]
		if layout.IsSpecial && !allowSpecial {
			continue
		}
		if layout.CountKind(geometry.KindText) < minText || layout.CountKind(geometry.KindImage) < minImages {
			continue
		}
		if best == nil ||
			len(layout.Placeholders) < len(best.Placeholders) ||
			(len(layout.Placeholders) == len(best.Placeholders) && layout.LayoutIndex < best.LayoutIndex) {
			best = layout
		}
	}
	return best
}

// textSegments splits a chunk's text into the segments it needs. A chunk
// whose first line is short and followed by more text splits across a
// title + body pair when the layout has room for both; otherwise the whole
// text is one segment.
func textSegments(chunk models.ContentChunk, textSlots int) []string {
	if chunk.Text == "" {
		return nil
	}
	if textSlots >= 2 {
		if head, rest, found := strings.Cut(chunk.Text, "\n"); found {
			head = strings.TrimSpace(head)
			rest = strings.TrimSpace(rest)
			if head != "" && rest != "" && len([]rune(head)) <= titleLineMax {
				return []string{head, rest}
			}
		}
	}
	return []string{chunk.Text}
}

// bind fills the layout's placeholders from the head chunk, deferring excess
// images, and — on the deterministic path only — pulls following imageless
// chunks into remaining text placeholders so slides come out full the way
// the template intends. A follower with its own layout proposal is never
// pulled in: the proposal gets its chance on the follower's own slide.
// Returns the spec and how many chunks were consumed.
func (a *Allocator) bind(layout *geometry.Layout, chunks []models.ContentChunk, viaFallback bool, pool *assets.Pool, slideIdx int, plan *Plan, proposals map[string]string) (models.SlideSpec, int, error) {
	head := chunks[0]
	spec := models.SlideSpec{
		ID:         uuid.NewString(),
		LayoutName: layout.Name,
		Bindings:   make(map[int]models.Binding),
	}

	// Images first: bind in placeholder order, defer the excess with a
	// traceable record. Never silently dropped.
	imagePHs := layout.PlaceholdersOfKind(geometry.KindImage)
	bound := 0
	for _, ph := range imagePHs {
		if bound >= len(head.LinkedImages) {
			break
		}
		id := head.LinkedImages[bound]
		if pool != nil {
			if _, ok := pool.ByID(id); !ok {
				return models.SlideSpec{}, 0, fmt.Errorf("chunk %q links unknown image %q", head.ID, id)
			}
		}
		spec.Bindings[ph.Index] = models.Binding{Kind: geometry.KindImage, ImageID: id}
		bound++
	}
	if deferred := head.LinkedImages[bound:]; len(deferred) > 0 {
		slog.Info("Deferring images beyond layout capacity",
			"chunk_id", head.ID, "layout", layout.Name, "deferred", len(deferred))
		plan.Recoveries = append(plan.Recoveries, models.Recovery{
			Kind:       models.RecoveryImageDeferral,
			ChunkID:    head.ID,
			SlideIndex: slideIdx,
			Detail:     fmt.Sprintf("layout %q has %d image placeholder(s); %d linked image(s) deferred", layout.Name, len(imagePHs), len(deferred)),
			ImageIDs:   append([]string(nil), deferred...),
		})
	}

	textPHs := layout.PlaceholdersOfKind(geometry.KindText)
	segments := textSegments(head, len(textPHs))
	next := 0
	for _, seg := range segments {
		if next >= len(textPHs) {
			break
		}
		spec.Bindings[textPHs[next].Index] = models.Binding{Kind: geometry.KindText, Content: seg}
		next++
	}

	consumed := 1
	if viaFallback {
		for next < len(textPHs) && consumed < len(chunks) {
			follower := chunks[consumed]
			if len(follower.LinkedImages) > 0 || follower.Text == "" || proposals[follower.ID] != "" {
				break
			}
			spec.Bindings[textPHs[next].Index] = models.Binding{Kind: geometry.KindText, Content: follower.Text}
			next++
			consumed++
		}
	}

	return spec, consumed, nil
}

// ValidateSpec enforces the slide-spec invariants against the template:
// the layout exists, every bound placeholder index exists in it, and every
// binding's kind matches the layout's declared kind at that index. This
// check is mandatory before a spec is handed downstream.
func ValidateSpec(spec models.SlideSpec, t *geometry.Template) error {
	layout, ok := t.Layout(spec.LayoutName)
	if !ok {
		return fmt.Errorf("slide references unknown layout %q", spec.LayoutName)
	}
	for idx, binding := range spec.Bindings {
		ph, ok := layout.Placeholder(idx)
		if !ok {
			return fmt.Errorf("layout %q has no placeholder idx %d", spec.LayoutName, idx)
		}
		if ph.Kind != binding.Kind {
			return fmt.Errorf("layout %q placeholder %d expects %s, binding is %s",
				spec.LayoutName, idx, ph.Kind, binding.Kind)
		}
		if binding.Kind == geometry.KindImage && binding.ImageID == "" {
			return fmt.Errorf("layout %q placeholder %d: image binding without image id", spec.LayoutName, idx)
		}
	}
	return nil
}
