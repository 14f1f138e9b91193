package geometry

import "fmt"

// LayoutSummary describes one layout's slot counts.
type LayoutSummary struct {
	Name       string `json:"name"`
	TextSlots  int    `json:"text_slots"`
	ImageSlots int    `json:"image_slots"`
}

// Analysis describes what a template is capable of holding.
type Analysis struct {
	TextOnlyLayouts        []LayoutSummary `json:"text_only_layouts"`
	ImageOnlyLayouts       []LayoutSummary `json:"image_only_layouts"`
	MixedLayouts           []LayoutSummary `json:"mixed_layouts"`
	TotalTextPlaceholders  int             `json:"total_text_placeholders"`
	TotalImagePlaceholders int             `json:"total_image_placeholders"`
	TotalLayouts           int             `json:"total_layouts"`
}

// Analyze buckets the template's layouts by capability and totals the
// placeholder counts.
func Analyze(t *Template) Analysis {
	a := Analysis{TotalLayouts: len(t.Layouts)}

	for _, layout := range t.Layouts {
		textCount := layout.CountKind(KindText)
		imageCount := layout.CountKind(KindImage)
		a.TotalTextPlaceholders += textCount
		a.TotalImagePlaceholders += imageCount

		summary := LayoutSummary{Name: layout.Name, TextSlots: textCount, ImageSlots: imageCount}
		switch {
		case textCount > 0 && imageCount > 0:
			a.MixedLayouts = append(a.MixedLayouts, summary)
		case textCount > 0:
			a.TextOnlyLayouts = append(a.TextOnlyLayouts, summary)
		case imageCount > 0:
			a.ImageOnlyLayouts = append(a.ImageOnlyLayouts, summary)
		}
	}
	return a
}

// CheckFeasibility rejects generation requests the template cannot possibly
// satisfy, before any AI call is made. The returned error is user-actionable.
func CheckFeasibility(t *Template, numImages int, hasText bool) error {
	if len(t.Layouts) == 0 {
		return fmt.Errorf("no layouts available: upload a template presentation first")
	}

	a := Analyze(t)

	if numImages > 0 {
		if a.TotalImagePlaceholders == 0 {
			return fmt.Errorf("%d image(s) provided but the template has no image placeholders", numImages)
		}
		if numImages > a.TotalImagePlaceholders {
			return fmt.Errorf("%d image(s) provided but the template only has %d image placeholder(s) total",
				numImages, a.TotalImagePlaceholders)
		}
		if !hasText && len(a.ImageOnlyLayouts) == 0 && len(a.MixedLayouts) == 0 {
			return fmt.Errorf("images provided without text content, but the template has no image-only or mixed layouts")
		}
		return nil
	}

	if a.TotalTextPlaceholders == 0 {
		return fmt.Errorf("no images provided and the template has no text placeholders")
	}
	if hasText && len(a.TextOnlyLayouts) == 0 && len(a.MixedLayouts) == 0 {
		return fmt.Errorf("text content provided without images, but every layout requires images")
	}
	return nil
}
