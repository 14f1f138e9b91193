package capacity

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/slaide-studio/slaide/internal/geometry"
)

// Body defaults: char width = 18 * 0.6 * 12700 = 137160 EMU,
// line height = 18 * 1.5 * 1.1 * 12700 = 377190 EMU.
const (
	bodyCharWidth  = 137160
	bodyLineHeight = 377190
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name    string
		box     geometry.Box
		want    Capacity
		wantErr bool
	}{
		{
			name: "exact 10x10 grid",
			box:  geometry.Box{Width: 10 * bodyCharWidth, Height: 10 * bodyLineHeight},
			want: Capacity{MaxChars: 100, MaxLines: 10, CharsPerLine: 10},
		},
		{
			name: "partial cells floor down",
			box:  geometry.Box{Width: 10*bodyCharWidth + 100, Height: 10*bodyLineHeight + 100},
			want: Capacity{MaxChars: 100, MaxLines: 10, CharsPerLine: 10},
		},
		{
			// 18*1.5*1.1 is inexact in binary floats; an exactly-full box
			// must not lose its last line to that error.
			name: "exactly full box keeps its last line",
			box:  geometry.Box{Width: bodyCharWidth, Height: bodyLineHeight},
			want: Capacity{MaxChars: 1, MaxLines: 1, CharsPerLine: 1},
		},
		{
			name: "just under a full line still floors down",
			box:  geometry.Box{Width: 10 * bodyCharWidth, Height: 10*bodyLineHeight - 1000},
			want: Capacity{MaxChars: 90, MaxLines: 9, CharsPerLine: 10},
		},
		{
			name: "tiny box yields zero capacity without error",
			box:  geometry.Box{Width: 100, Height: 100},
			want: Capacity{MaxChars: 0, MaxLines: 0, CharsPerLine: 0},
		},
		{
			name:    "zero width is invalid geometry",
			box:     geometry.Box{Width: 0, Height: 1000},
			wantErr: true,
		},
		{
			name:    "negative height is invalid geometry",
			box:     geometry.Box{Width: 1000, Height: -5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Estimate(tt.box, DefaultFonts().Body)
			if tt.wantErr {
				if !errors.Is(err, geometry.ErrInvalidGeometry) {
					t.Fatalf("expected ErrInvalidGeometry, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Estimate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEstimateTitleRoleUsesLargerFont(t *testing.T) {
	box := geometry.Box{Width: 10 * bodyCharWidth, Height: 10 * bodyLineHeight}
	fonts := DefaultFonts()

	body, err := Estimate(box, fonts.ForRole(RoleBody))
	if err != nil {
		t.Fatalf("body estimate: %v", err)
	}
	title, err := Estimate(box, fonts.ForRole(RoleTitle))
	if err != nil {
		t.Fatalf("title estimate: %v", err)
	}
	if title.MaxChars >= body.MaxChars {
		t.Errorf("title capacity %d should be smaller than body capacity %d in the same box", title.MaxChars, body.MaxChars)
	}
}

func TestMeasureAndRatio(t *testing.T) {
	grid := Capacity{MaxChars: 100, MaxLines: 10, CharsPerLine: 10}
	wide := Capacity{MaxChars: 600, MaxLines: 10, CharsPerLine: 60}

	tests := []struct {
		name      string
		text      string
		c         Capacity
		wantLines int
		wantRatio float64
	}{
		{
			name:      "exactly full content fits",
			text:      strings.Repeat("a", 100),
			c:         grid,
			wantLines: 10,
			wantRatio: 1.0,
		},
		{
			name:      "one character over overflows",
			text:      strings.Repeat("a", 101),
			c:         grid,
			wantLines: 11,
			wantRatio: 1.1,
		},
		{
			name:      "900 chars in a 600 char box",
			text:      strings.Repeat("a", 900),
			c:         wide,
			wantLines: 15,
			wantRatio: 1.5,
		},
		{
			name:      "explicit newlines consume whole rows",
			text:      "ab\ncd\nef",
			c:         grid,
			wantLines: 3,
			wantRatio: 0.3,
		},
		{
			name:      "empty text needs nothing",
			text:      "",
			c:         grid,
			wantLines: 0,
			wantRatio: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Measure(tt.text, tt.c)
			if m.Lines != tt.wantLines {
				t.Errorf("Measure() lines = %d, want %d", m.Lines, tt.wantLines)
			}
			got := Ratio(m, tt.c)
			if math.Abs(got-tt.wantRatio) > 1e-9 {
				t.Errorf("Ratio() = %v, want %v", got, tt.wantRatio)
			}
		})
	}
}

func TestRatioZeroCapacity(t *testing.T) {
	m := Measure("hello", Capacity{})
	ratio := Ratio(m, Capacity{})
	if !math.IsInf(ratio, 1) {
		t.Errorf("nonempty text in a zero-capacity box should overflow infinitely, got %v", ratio)
	}
}

func TestMeasureMatchesEstimateAtBoundary(t *testing.T) {
	// Content sized exactly to an estimated capacity must never be flagged
	// as overflow: the estimator and the measurer share one heuristic.
	box := geometry.Box{Width: 23 * bodyCharWidth, Height: 7 * bodyLineHeight}
	c, err := Estimate(box, DefaultFonts().Body)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	exact := strings.Repeat("x", c.MaxChars)
	if ratio := Ratio(Measure(exact, c), c); ratio > 1.0 {
		t.Errorf("content at exactly MaxChars reported overflow, ratio %v", ratio)
	}
	over := strings.Repeat("x", c.MaxChars+1)
	if ratio := Ratio(Measure(over, c), c); ratio <= 1.0 {
		t.Errorf("content one char past MaxChars should overflow, ratio %v", ratio)
	}
}

func TestFitImage(t *testing.T) {
	box := geometry.Box{Left: 1000, Top: 2000, Width: 4000, Height: 4000}

	tests := []struct {
		name   string
		aspect float64
		want   ImageFit
	}{
		{
			name:   "wide image letterboxes vertically",
			aspect: 2.0,
			want:   ImageFit{Width: 4000, Height: 2000, Left: 1000, Top: 3000},
		},
		{
			name:   "tall image pillarboxes horizontally",
			aspect: 0.5,
			want:   ImageFit{Width: 2000, Height: 4000, Left: 2000, Top: 2000},
		},
		{
			name:   "matching aspect fills the box",
			aspect: 1.0,
			want:   ImageFit{Width: 4000, Height: 4000, Left: 1000, Top: 2000},
		},
		{
			name:   "unknown aspect fills the box",
			aspect: 0,
			want:   ImageFit{Width: 4000, Height: 4000, Left: 1000, Top: 2000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FitImage(box, tt.aspect)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FitImage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFitImageInvalidBox(t *testing.T) {
	if _, err := FitImage(geometry.Box{Width: 0, Height: 100}, 1.0); !errors.Is(err, geometry.ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry, got %v", err)
	}
}
