package models

import "github.com/slaide-studio/slaide/internal/geometry"

// ContentChunk is a contiguous unit of source content destined for one slide.
type ContentChunk struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	SourceStart  int      `json:"source_start"`
	SourceEnd    int      `json:"source_end"`
	LinkedImages []string `json:"linked_image_ids,omitempty"`

	// SlideType is an advisory label ("title", "content", "closing", ...)
	// from AI segmentation or user tagging. It unlocks special layouts in
	// fallback selection; it is never a hard constraint.
	SlideType string `json:"slide_type,omitempty"`
}

// Binding is one placeholder assignment within a slide.
type Binding struct {
	Kind    geometry.PlaceholderKind `json:"kind"`
	Content string                   `json:"content,omitempty"`
	ImageID string                   `json:"image_id,omitempty"`
}

// SlideSpec is the fully-resolved description of one slide: a layout choice
// plus content bindings, validated and ready for rendering.
type SlideSpec struct {
	ID         string          `json:"id"`
	LayoutName string          `json:"layout_name"`
	Bindings   map[int]Binding `json:"placeholder_bindings"`
}

// DeckSummary is the deck-level narrative produced by AI segmentation.
type DeckSummary struct {
	KeyMessage string `json:"key_message,omitempty"`
	Flow       string `json:"flow,omitempty"`
}

// Overflow describes one placeholder whose bound content exceeds its
// estimated capacity.
type Overflow struct {
	SlideIndex       int     `json:"slide_index"`
	LayoutName       string  `json:"layout_name"`
	PlaceholderIndex int     `json:"placeholder_index"`
	Ratio            float64 `json:"overflow_ratio"`
	OriginalContent  string  `json:"original_content"`
	MaxChars         int     `json:"max_chars"`
}

// OverflowReport lists every overflowing placeholder in a draft deck.
type OverflowReport struct {
	Entries []Overflow `json:"entries,omitempty"`
}

// Empty reports whether no placeholder overflows.
func (r OverflowReport) Empty() bool { return len(r.Entries) == 0 }

// RecoveryKind labels a recorded, non-fatal recovery during allocation.
type RecoveryKind string

const (
	// RecoveryUnresolvedLayout records an AI-proposed layout that did not
	// exist or could not hold the chunk, resolved by deterministic fallback.
	RecoveryUnresolvedLayout RecoveryKind = "unresolved_layout"
	// RecoveryImageDeferral records linked images beyond the chosen layout's
	// image placeholder count, deferred rather than silently dropped.
	RecoveryImageDeferral RecoveryKind = "image_deferral"
)

// Recovery is a traceable record of a locally recovered allocation decision.
type Recovery struct {
	Kind       RecoveryKind `json:"kind"`
	ChunkID    string       `json:"chunk_id"`
	SlideIndex int          `json:"slide_index"`
	Detail     string       `json:"detail"`
	ImageIDs   []string     `json:"image_ids,omitempty"`
}
