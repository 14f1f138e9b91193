// Package capacity estimates how much text a placeholder box can hold and
// measures how much a given string needs, using one shared heuristic so the
// two numbers are always comparable.
package capacity

import (
	"fmt"
	"math"
	"strings"

	"github.com/slaide-studio/slaide/internal/geometry"
)

// EMUPerPoint converts font points to EMU (914400 EMU per inch / 72).
const EMUPerPoint = 12700

// floorEpsilon absorbs binary float error when flooring EMU quotients; it is
// far below one EMU relative to any real box dimension.
const floorEpsilon = 1e-9

// Default heuristic constants. These are approximations, not font metrics:
// they only need to be applied identically during estimation and
// verification. All are overridable through FontSpec.
const (
	DefaultFontSizePt     = 18.0
	DefaultTitleSizePt    = 36.0
	DefaultLineSpacing    = 1.5
	DefaultCharWidthRatio = 0.6
	DefaultHeightBuffer   = 1.1
)

// Role selects the font profile for a placeholder's semantic role.
type Role string

const (
	RoleTitle Role = "title"
	RoleBody  Role = "body"
)

// FontSpec carries the sizing parameters for one placeholder role.
type FontSpec struct {
	Family         string  `json:"family,omitempty" yaml:"family,omitempty"`
	SizePt         float64 `json:"size_pt" yaml:"size_pt"`
	LineSpacing    float64 `json:"line_spacing" yaml:"line_spacing"`
	CharWidthRatio float64 `json:"char_width_ratio" yaml:"char_width_ratio"`
	HeightBuffer   float64 `json:"height_buffer" yaml:"height_buffer"`
}

// Fonts maps placeholder roles to their font profiles.
type Fonts struct {
	Title FontSpec `json:"title" yaml:"title"`
	Body  FontSpec `json:"body" yaml:"body"`
}

// DefaultFonts returns the stock title/body profiles.
func DefaultFonts() Fonts {
	return Fonts{
		Title: FontSpec{SizePt: DefaultTitleSizePt, LineSpacing: DefaultLineSpacing, CharWidthRatio: DefaultCharWidthRatio, HeightBuffer: DefaultHeightBuffer},
		Body:  FontSpec{SizePt: DefaultFontSizePt, LineSpacing: DefaultLineSpacing, CharWidthRatio: DefaultCharWidthRatio, HeightBuffer: DefaultHeightBuffer},
	}
}

// ForRole returns the font profile for a role, defaulting to body.
func (f Fonts) ForRole(role Role) FontSpec {
	if role == RoleTitle {
		return f.Title
	}
	return f.Body
}

func (f FontSpec) withDefaults() FontSpec {
	if f.SizePt <= 0 {
		f.SizePt = DefaultFontSizePt
	}
	if f.LineSpacing <= 0 {
		f.LineSpacing = DefaultLineSpacing
	}
	if f.CharWidthRatio <= 0 {
		f.CharWidthRatio = DefaultCharWidthRatio
	}
	if f.HeightBuffer <= 0 {
		f.HeightBuffer = DefaultHeightBuffer
	}
	return f
}

// Capacity is the estimated maximum text volume for one placeholder box.
type Capacity struct {
	MaxChars     int `json:"max_chars"`
	MaxLines     int `json:"max_lines"`
	CharsPerLine int `json:"chars_per_line"`
}

// Estimate computes a conservative capacity for a placeholder box. It is a
// pure function of geometry and font. Non-positive box dimensions are a
// template bug and return geometry.ErrInvalidGeometry rather than a zero
// capacity, so malformed templates cannot masquerade as tiny ones.
func Estimate(box geometry.Box, font FontSpec) (Capacity, error) {
	if box.Width <= 0 || box.Height <= 0 {
		return Capacity{}, fmt.Errorf("%w: placeholder box %dx%d EMU", geometry.ErrInvalidGeometry, box.Width, box.Height)
	}
	font = font.withDefaults()

	charWidth := font.SizePt * font.CharWidthRatio * EMUPerPoint
	lineHeight := font.SizePt * font.LineSpacing * font.HeightBuffer * EMUPerPoint

	// The products above are not exact in binary floats (18*1.5*1.1 is
	// 29.700000000000003), so flooring the raw quotient would cost an
	// exactly-full box its last line. Tolerate that error before flooring.
	charsPerLine := int(math.Floor(float64(box.Width)/charWidth + floorEpsilon))
	maxLines := int(math.Floor(float64(box.Height)/lineHeight + floorEpsilon))

	// A legitimately tiny box yields zero capacity; that is a valid answer
	// and distinct from malformed geometry above.
	if charsPerLine < 0 {
		charsPerLine = 0
	}
	if maxLines < 0 {
		maxLines = 0
	}

	return Capacity{
		MaxChars:     charsPerLine * maxLines,
		MaxLines:     maxLines,
		CharsPerLine: charsPerLine,
	}, nil
}

// Measurement is the simulated footprint of a string inside a box: the
// number of rows the text occupies once wrapped at the box's line width.
type Measurement struct {
	Lines int `json:"lines"`
}

// Measure simulates wrapping text into a box with the given capacity. This
// is the single sizing function shared by the estimator and the verifier.
func Measure(text string, c Capacity) Measurement {
	if text == "" {
		return Measurement{}
	}
	lines := 0
	for _, line := range strings.Split(text, "\n") {
		n := len([]rune(line))
		switch {
		case n == 0:
			lines++ // blank line still occupies a row
		case c.CharsPerLine <= 0:
			lines += n // no width at all: every rune spills
		default:
			lines += (n + c.CharsPerLine - 1) / c.CharsPerLine
		}
	}
	return Measurement{Lines: lines}
}

// Ratio computes measured size over capacity. > 1.0 means overflow.
// Content in a zero-capacity box overflows infinitely.
func Ratio(m Measurement, c Capacity) float64 {
	if m.Lines == 0 {
		return 0
	}
	if c.MaxLines <= 0 || c.MaxChars <= 0 {
		return math.Inf(1)
	}
	return float64(m.Lines) / float64(c.MaxLines)
}

// ImageFit is the aspect-ratio-fit result for an image placeholder.
type ImageFit struct {
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
	Left   int64 `json:"left"`
	Top    int64 `json:"top"`
}

// FitImage scales an image of the given aspect ratio (width/height) to fit
// inside the box, centered, preserving aspect.
func FitImage(box geometry.Box, aspectRatio float64) (ImageFit, error) {
	if box.Width <= 0 || box.Height <= 0 {
		return ImageFit{}, fmt.Errorf("%w: image box %dx%d EMU", geometry.ErrInvalidGeometry, box.Width, box.Height)
	}
	if aspectRatio <= 0 {
		// Unknown aspect: fill the box.
		return ImageFit{Width: box.Width, Height: box.Height, Left: box.Left, Top: box.Top}, nil
	}

	boxRatio := float64(box.Width) / float64(box.Height)
	fit := ImageFit{}
	if aspectRatio >= boxRatio {
		fit.Width = box.Width
		fit.Height = int64(float64(box.Width) / aspectRatio)
	} else {
		fit.Height = box.Height
		fit.Width = int64(float64(box.Height) * aspectRatio)
	}
	fit.Left = box.Left + (box.Width-fit.Width)/2
	fit.Top = box.Top + (box.Height-fit.Height)/2
	return fit, nil
}
