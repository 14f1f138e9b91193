package allocate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/slaide-studio/slaide/internal/assets"
	"github.com/slaide-studio/slaide/internal/capacity"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/models"
	"github.com/slaide-studio/slaide/internal/providers"
)

// scriptedProvider returns a canned response once, then errors.
type scriptedProvider struct {
	response string
	err      error
	calls    int
}

func (p *scriptedProvider) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func box(left, top int64) geometry.Box {
	return geometry.Box{Left: left, Top: top, Width: 3000000, Height: 1000000}
}

func testTemplate() *geometry.Template {
	return &geometry.Template{
		SlideSize: geometry.SlideSize{Width: 12192000, Height: 6858000},
		Layouts: []geometry.Layout{
			{
				Name: "Title Slide", LayoutIndex: 0, IsSpecial: true,
				Placeholders: []geometry.Placeholder{
					{Index: 0, Kind: geometry.KindText, Name: "Title 1", Position: box(1000000, 1000000)},
					{Index: 1, Kind: geometry.KindText, Name: "Subtitle 2", Position: box(1000000, 2500000)},
				},
			},
			{
				Name: "Section Header", LayoutIndex: 1,
				Placeholders: []geometry.Placeholder{
					{Index: 0, Kind: geometry.KindText, Name: "Title 1", Position: box(1000000, 1000000)},
				},
			},
			{
				Name: "Title and Content", LayoutIndex: 2,
				Placeholders: []geometry.Placeholder{
					{Index: 0, Kind: geometry.KindText, Name: "Title 1", Position: box(1000000, 500000)},
					{Index: 1, Kind: geometry.KindText, Name: "Content 2", Position: box(1000000, 2000000)},
				},
			},
			{
				Name: "Picture with Caption", LayoutIndex: 3,
				Placeholders: []geometry.Placeholder{
					{Index: 0, Kind: geometry.KindText, Name: "Title 1", Position: box(1000000, 500000)},
					{Index: 1, Kind: geometry.KindImage, Name: "Picture 2", Position: box(1000000, 2000000)},
					{Index: 2, Kind: geometry.KindText, Name: "Caption 3", Position: box(4500000, 2000000)},
				},
			},
		},
	}
}

func TestFallback(t *testing.T) {
	tpl := testTemplate()

	tests := []struct {
		name       string
		chunk      models.ContentChunk
		wantLayout string
		wantErr    error
	}{
		{
			name:       "text-only chunk takes smallest text layout",
			chunk:      models.ContentChunk{ID: "c1", Text: "hello"},
			wantLayout: "Section Header",
		},
		{
			name:       "chunk with image needs an image placeholder",
			chunk:      models.ContentChunk{ID: "c2", Text: "hello", LinkedImages: []string{"img-1"}},
			wantLayout: "Picture with Caption",
		},
		{
			name:       "title-tagged chunk unlocks special layouts",
			chunk:      models.ContentChunk{ID: "c3", Text: "Deck Title", SlideType: "title"},
			wantLayout: "Section Header", // still smallest; special merely allowed
		},
		{
			name:       "excess images relax to the largest image capacity",
			chunk:      models.ContentChunk{ID: "c4", Text: "hello", LinkedImages: []string{"a", "b", "c"}},
			wantLayout: "Picture with Caption",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := Fallback(tpl, tt.chunk)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if layout.Name != tt.wantLayout {
				t.Errorf("Fallback() = %q, want %q", layout.Name, tt.wantLayout)
			}
		})
	}
}

func TestFallbackSpecialExcluded(t *testing.T) {
	// A template whose only two-text layout is special: an untagged chunk
	// must not take it.
	tpl := &geometry.Template{
		SlideSize: geometry.SlideSize{Width: 12192000, Height: 6858000},
		Layouts: []geometry.Layout{
			{
				Name: "Closing", LayoutIndex: 0, IsSpecial: true,
				Placeholders: []geometry.Placeholder{
					{Index: 0, Kind: geometry.KindText, Position: box(1000000, 1000000)},
				},
			},
		},
	}

	if _, err := Fallback(tpl, models.ContentChunk{ID: "c1", Text: "hi"}); !errors.Is(err, ErrInsufficientPlaceholders) {
		t.Fatalf("untagged chunk should not reach special layouts, got %v", err)
	}
	layout, err := Fallback(tpl, models.ContentChunk{ID: "c2", Text: "bye", SlideType: "closing"})
	if err != nil {
		t.Fatalf("closing-tagged chunk: %v", err)
	}
	if layout.Name != "Closing" {
		t.Errorf("layout = %q, want Closing", layout.Name)
	}
}

func TestFallbackTieBreakByLayoutIndex(t *testing.T) {
	tpl := &geometry.Template{
		SlideSize: geometry.SlideSize{Width: 12192000, Height: 6858000},
		Layouts: []geometry.Layout{
			{
				Name: "B", LayoutIndex: 5,
				Placeholders: []geometry.Placeholder{{Index: 0, Kind: geometry.KindText, Position: box(1000000, 1000000)}},
			},
			{
				Name: "A", LayoutIndex: 2,
				Placeholders: []geometry.Placeholder{{Index: 0, Kind: geometry.KindText, Position: box(1000000, 1000000)}},
			},
		},
	}

	layout, err := Fallback(tpl, models.ContentChunk{ID: "c1", Text: "x"})
	if err != nil {
		t.Fatalf("Fallback: %v", err)
	}
	if layout.Name != "A" {
		t.Errorf("equal-size tie should break on lowest layout index, got %q", layout.Name)
	}
}

func TestAllocateDeterministicPath(t *testing.T) {
	// Provider down: every chunk takes the fallback and each paragraph gets
	// its own slide on the smallest fitting layout.
	a := &Allocator{Provider: &scriptedProvider{err: fmt.Errorf("offline")}, Fonts: capacity.DefaultFonts()}
	chunks := []models.ContentChunk{
		{ID: "chunk_1", Text: "Quarterly Review"},
		{ID: "chunk_2", Text: "Revenue grew in all regions."},
	}

	plan, err := a.Allocate(context.Background(), chunks, testTemplate(), &assets.Pool{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(plan.Slides) != 2 {
		t.Fatalf("got %d slides, want 2", len(plan.Slides))
	}
	for i, spec := range plan.Slides {
		if spec.LayoutName != "Section Header" {
			t.Errorf("slide %d layout = %q, want smallest text layout", i, spec.LayoutName)
		}
		if err := ValidateSpec(spec, testTemplate()); err != nil {
			t.Errorf("slide %d invalid: %v", i, err)
		}
	}
}

func TestAllocateSingleLayoutPacksTitleAndBody(t *testing.T) {
	// One Title+Body layout in the whole template: two paragraphs come out
	// as one slide, first paragraph in the title, second in the body.
	tpl := &geometry.Template{
		SlideSize: geometry.SlideSize{Width: 12192000, Height: 6858000},
		Layouts: []geometry.Layout{
			{
				Name: "Title+Body", LayoutIndex: 0,
				Placeholders: []geometry.Placeholder{
					{Index: 0, Kind: geometry.KindText, Name: "Title 1", Position: geometry.Box{Left: 1000000, Top: 500000, Width: 9144000, Height: 1143000}},
					{Index: 1, Kind: geometry.KindText, Name: "Body 2", Position: geometry.Box{Left: 1000000, Top: 2000000, Width: 9144000, Height: 4572000}},
				},
			},
		},
	}
	a := &Allocator{Fonts: capacity.DefaultFonts()}
	chunks := []models.ContentChunk{
		{ID: "chunk_1", Text: "Quarterly Review"},
		{ID: "chunk_2", Text: "Revenue grew in all regions."},
	}

	plan, err := a.Allocate(context.Background(), chunks, tpl, &assets.Pool{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(plan.Slides) != 1 {
		t.Fatalf("got %d slides, want 1", len(plan.Slides))
	}
	spec := plan.Slides[0]
	if got := spec.Bindings[0].Content; got != "Quarterly Review" {
		t.Errorf("title binding = %q", got)
	}
	if got := spec.Bindings[1].Content; got != "Revenue grew in all regions." {
		t.Errorf("body binding = %q", got)
	}
}

func TestAllocatePackingSkipsChunkWithOwnProposal(t *testing.T) {
	// Same single Title+Body template as above, but the model assigned the
	// second chunk a layout of its own. The fallback slide for chunk 1 must
	// not absorb it; the proposal plays out on chunk 2's own slide.
	tpl := &geometry.Template{
		SlideSize: geometry.SlideSize{Width: 12192000, Height: 6858000},
		Layouts: []geometry.Layout{
			{
				Name: "Title+Body", LayoutIndex: 0,
				Placeholders: []geometry.Placeholder{
					{Index: 0, Kind: geometry.KindText, Name: "Title 1", Position: geometry.Box{Left: 1000000, Top: 500000, Width: 9144000, Height: 1143000}},
					{Index: 1, Kind: geometry.KindText, Name: "Body 2", Position: geometry.Box{Left: 1000000, Top: 2000000, Width: 9144000, Height: 4572000}},
				},
			},
		},
	}
	p := &scriptedProvider{response: `{"assignments": [{"chunk_id": "chunk_2", "layout_name": "Title+Body"}]}`}
	a := &Allocator{Provider: p, Fonts: capacity.DefaultFonts()}
	chunks := []models.ContentChunk{
		{ID: "chunk_1", Text: "Quarterly Review"},
		{ID: "chunk_2", Text: "Revenue grew in all regions."},
	}

	plan, err := a.Allocate(context.Background(), chunks, tpl, &assets.Pool{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(plan.Slides) != 2 {
		t.Fatalf("got %d slides, want 2: a proposed chunk must keep its own slide", len(plan.Slides))
	}
	if got := plan.Slides[0].Bindings[0].Content; got != "Quarterly Review" {
		t.Errorf("slide 0 title binding = %q", got)
	}
	if _, ok := plan.Slides[0].Bindings[1]; ok {
		t.Error("slide 0 body must stay empty instead of absorbing the proposed chunk")
	}
	if got := plan.Slides[1].Bindings[0].Content; got != "Revenue grew in all regions." {
		t.Errorf("slide 1 binding = %q", got)
	}
	if len(plan.Recoveries) != 0 {
		t.Errorf("no recoveries expected, got %+v", plan.Recoveries)
	}
}

func TestAllocateProposalAccepted(t *testing.T) {
	p := &scriptedProvider{response: `{"assignments": [{"chunk_id": "chunk_1", "layout_name": "Title and Content"}]}`}
	a := &Allocator{Provider: p, Fonts: capacity.DefaultFonts()}
	chunks := []models.ContentChunk{{ID: "chunk_1", Text: "Overview\nSome details follow."}}

	plan, err := a.Allocate(context.Background(), chunks, testTemplate(), &assets.Pool{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(plan.Slides) != 1 {
		t.Fatalf("got %d slides, want 1", len(plan.Slides))
	}
	if plan.Slides[0].LayoutName != "Title and Content" {
		t.Errorf("layout = %q, want the accepted proposal", plan.Slides[0].LayoutName)
	}
	if len(plan.Recoveries) != 0 {
		t.Errorf("accepted proposal should record no recoveries, got %+v", plan.Recoveries)
	}
	// Short first line followed by body text splits across the pair.
	if got := plan.Slides[0].Bindings[0].Content; got != "Overview" {
		t.Errorf("title binding = %q, want %q", got, "Overview")
	}
}

func TestAllocateProposalRejected(t *testing.T) {
	p := &scriptedProvider{response: `{"assignments": [{"chunk_id": "chunk_1", "layout_name": "Imaginary Layout"}]}`}
	a := &Allocator{Provider: p, Fonts: capacity.DefaultFonts()}
	chunks := []models.ContentChunk{{ID: "chunk_1", Text: "hello"}}

	plan, err := a.Allocate(context.Background(), chunks, testTemplate(), &assets.Pool{})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(plan.Recoveries) != 1 || plan.Recoveries[0].Kind != models.RecoveryUnresolvedLayout {
		t.Fatalf("rejected proposal must record an unresolved-layout recovery, got %+v", plan.Recoveries)
	}
	if plan.Slides[0].LayoutName != "Section Header" {
		t.Errorf("layout = %q, want deterministic fallback", plan.Slides[0].LayoutName)
	}
}

func TestAllocateDefersExcessImages(t *testing.T) {
	pool := &assets.Pool{Assets: []assets.Asset{
		{ID: "img-1", Filename: "a.png", MimeType: "image/png"},
		{ID: "img-2", Filename: "b.png", MimeType: "image/png"},
		{ID: "img-3", Filename: "c.png", MimeType: "image/png"},
	}}
	a := &Allocator{Fonts: capacity.DefaultFonts()}
	chunks := []models.ContentChunk{{
		ID:           "chunk_1",
		Text:         "Gallery",
		LinkedImages: []string{"img-1", "img-2", "img-3"},
	}}

	plan, err := a.Allocate(context.Background(), chunks, testTemplate(), pool)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	var deferral *models.Recovery
	for i := range plan.Recoveries {
		if plan.Recoveries[i].Kind == models.RecoveryImageDeferral {
			deferral = &plan.Recoveries[i]
		}
	}
	if deferral == nil {
		t.Fatal("excess images must be recorded as a deferral, not dropped")
	}
	if len(deferral.ImageIDs) != 2 {
		t.Errorf("deferred %d images, want 2", len(deferral.ImageIDs))
	}
	// The one image placeholder holds the first linked image.
	spec := plan.Slides[0]
	if b := spec.Bindings[1]; b.Kind != geometry.KindImage || b.ImageID != "img-1" {
		t.Errorf("image binding = %+v, want img-1", b)
	}
}

func TestAllocateUnknownImage(t *testing.T) {
	a := &Allocator{Fonts: capacity.DefaultFonts()}
	chunks := []models.ContentChunk{{ID: "chunk_1", Text: "x", LinkedImages: []string{"ghost"}}}

	if _, err := a.Allocate(context.Background(), chunks, testTemplate(), &assets.Pool{}); err == nil {
		t.Fatal("linking an image absent from the pool must fail allocation")
	}
}

func TestValidateSpec(t *testing.T) {
	tpl := testTemplate()

	tests := []struct {
		name    string
		spec    models.SlideSpec
		wantErr bool
	}{
		{
			name: "valid spec",
			spec: models.SlideSpec{
				LayoutName: "Title and Content",
				Bindings: map[int]models.Binding{
					0: {Kind: geometry.KindText, Content: "Title"},
					1: {Kind: geometry.KindText, Content: "Body"},
				},
			},
		},
		{
			name:    "unknown layout",
			spec:    models.SlideSpec{LayoutName: "Nope"},
			wantErr: true,
		},
		{
			name: "unknown placeholder index",
			spec: models.SlideSpec{
				LayoutName: "Section Header",
				Bindings:   map[int]models.Binding{7: {Kind: geometry.KindText, Content: "x"}},
			},
			wantErr: true,
		},
		{
			name: "kind mismatch",
			spec: models.SlideSpec{
				LayoutName: "Picture with Caption",
				Bindings:   map[int]models.Binding{1: {Kind: geometry.KindText, Content: "not an image"}},
			},
			wantErr: true,
		},
		{
			name: "image binding without id",
			spec: models.SlideSpec{
				LayoutName: "Picture with Caption",
				Bindings:   map[int]models.Binding{1: {Kind: geometry.KindImage}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpec(tt.spec, tpl)
			if tt.wantErr && err == nil {
				t.Fatal("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestReallocateSlide(t *testing.T) {
	a := &Allocator{Fonts: capacity.DefaultFonts()}
	chunk := models.ContentChunk{ID: "chunk_2", Text: "Replacement content."}
	before := []models.SlideSpec{{LayoutName: "Section Header"}}

	spec, recoveries, err := a.ReallocateSlide(context.Background(), chunk, testTemplate(), &assets.Pool{}, before, nil)
	if err != nil {
		t.Fatalf("ReallocateSlide: %v", err)
	}
	if err := ValidateSpec(spec, testTemplate()); err != nil {
		t.Errorf("reallocated spec invalid: %v", err)
	}
	for _, r := range recoveries {
		if r.SlideIndex != len(before) {
			t.Errorf("recovery slide index = %d, want %d", r.SlideIndex, len(before))
		}
	}
}
