package geometry

import (
	"errors"
	"fmt"
)

// PlaceholderKind is the content type a placeholder accepts.
type PlaceholderKind string

const (
	KindText  PlaceholderKind = "text"
	KindImage PlaceholderKind = "image"
)

// ErrInvalidGeometry indicates a template with non-positive or out-of-bounds
// shape dimensions. Fatal for the template; never worked around.
var ErrInvalidGeometry = errors.New("invalid template geometry")

// Box is an absolute EMU rectangle.
type Box struct {
	Left   int64 `json:"left"`
	Top    int64 `json:"top"`
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}

// Placeholder is a typed, positioned content slot within a layout.
type Placeholder struct {
	Index    int             `json:"idx"`
	Kind     PlaceholderKind `json:"type"`
	Name     string          `json:"name,omitempty"`
	Position Box             `json:"position"`
}

// Category is a semantic tag for a layout, assigned by an external
// classifier. Advisory only: the allocator uses it as a ranking hint,
// never as a hard constraint.
type Category struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale,omitempty"`
}

// Layout is a named template slide pattern with fixed placeholder geometry.
type Layout struct {
	Name         string        `json:"name"`
	MasterName   string        `json:"master_name"`
	LayoutIndex  int           `json:"layout_idx"`
	Placeholders []Placeholder `json:"placeholders"`
	Category     *Category     `json:"category,omitempty"`
	IsSpecial    bool          `json:"is_special,omitempty"`
}

// SlideSize is the absolute slide dimensions in EMU.
type SlideSize struct {
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}

// Template is the normalized geometry of one uploaded template:
// slide size plus an ordered set of layouts unique by name.
// Immutable after Validate except for category edits, which go through
// Reclassify and never touch geometry.
type Template struct {
	ID        string    `json:"id,omitempty"`
	SlideSize SlideSize `json:"slide_size"`
	Layouts   []Layout  `json:"layouts"`

	// Revision counts category edits so concurrent readers can detect
	// a reclassification happened between reads.
	Revision int `json:"revision,omitempty"`
}

// Layout returns the layout with the given name.
func (t *Template) Layout(name string) (*Layout, bool) {
	for i := range t.Layouts {
		if t.Layouts[i].Name == name {
			return &t.Layouts[i], true
		}
	}
	return nil, false
}

// Placeholder returns the placeholder with the given index.
func (l *Layout) Placeholder(idx int) (*Placeholder, bool) {
	for i := range l.Placeholders {
		if l.Placeholders[i].Index == idx {
			return &l.Placeholders[i], true
		}
	}
	return nil, false
}

// CountKind returns how many placeholders of the given kind the layout has.
func (l *Layout) CountKind(kind PlaceholderKind) int {
	n := 0
	for _, ph := range l.Placeholders {
		if ph.Kind == kind {
			n++
		}
	}
	return n
}

// PlaceholdersOfKind returns the layout's placeholders of one kind,
// in declaration order.
func (l *Layout) PlaceholdersOfKind(kind PlaceholderKind) []Placeholder {
	var out []Placeholder
	for _, ph := range l.Placeholders {
		if ph.Kind == kind {
			out = append(out, ph)
		}
	}
	return out
}

// Validate enforces the template invariants: positive slide size, unique
// layout names, positive placeholder dimensions, placeholders inside the
// slide bounds, and placeholder indices unique within each layout.
func (t *Template) Validate() error {
	if t.SlideSize.Width <= 0 || t.SlideSize.Height <= 0 {
		return fmt.Errorf("%w: slide size %dx%d EMU", ErrInvalidGeometry, t.SlideSize.Width, t.SlideSize.Height)
	}
	if len(t.Layouts) == 0 {
		return fmt.Errorf("%w: template has no layouts", ErrInvalidGeometry)
	}

	names := make(map[string]bool, len(t.Layouts))
	for li := range t.Layouts {
		layout := &t.Layouts[li]
		if layout.Name == "" {
			return fmt.Errorf("%w: layout %d has no name", ErrInvalidGeometry, li)
		}
		if names[layout.Name] {
			return fmt.Errorf("%w: duplicate layout name %q", ErrInvalidGeometry, layout.Name)
		}
		names[layout.Name] = true

		seen := make(map[int]bool, len(layout.Placeholders))
		for _, ph := range layout.Placeholders {
			if seen[ph.Index] {
				return fmt.Errorf("%w: layout %q has duplicate placeholder idx %d", ErrInvalidGeometry, layout.Name, ph.Index)
			}
			seen[ph.Index] = true

			if ph.Kind != KindText && ph.Kind != KindImage {
				return fmt.Errorf("%w: layout %q placeholder %d has unknown kind %q", ErrInvalidGeometry, layout.Name, ph.Index, ph.Kind)
			}
			if ph.Position.Width <= 0 || ph.Position.Height <= 0 {
				return fmt.Errorf("%w: layout %q placeholder %d has non-positive box %dx%d",
					ErrInvalidGeometry, layout.Name, ph.Index, ph.Position.Width, ph.Position.Height)
			}
			if ph.Position.Left < 0 || ph.Position.Top < 0 ||
				ph.Position.Left+ph.Position.Width > t.SlideSize.Width ||
				ph.Position.Top+ph.Position.Height > t.SlideSize.Height {
				return fmt.Errorf("%w: layout %q placeholder %d extends outside slide bounds",
					ErrInvalidGeometry, layout.Name, ph.Index)
			}
		}
	}
	return nil
}

// Reclassify replaces a layout's category tag. This is the only sanctioned
// mutation after validation; it bumps the template revision and leaves
// geometry untouched.
func (t *Template) Reclassify(layoutName string, category Category) error {
	layout, ok := t.Layout(layoutName)
	if !ok {
		return fmt.Errorf("layout %q not found in template", layoutName)
	}
	layout.Category = &category
	t.Revision++
	return nil
}
