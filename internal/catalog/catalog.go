// Package catalog renders a template's layout inventory into the prompt
// fragment shared by the segmentation and layout-selection model calls.
package catalog

import (
	"fmt"
	"strings"

	"github.com/slaide-studio/slaide/internal/capacity"
	"github.com/slaide-studio/slaide/internal/geometry"
)

// Format describes every layout with its placeholder indices, types, and
// precomputed text capacities, so the model can only be steered toward
// choices that mechanical validation will also accept.
func Format(t *geometry.Template, fonts capacity.Fonts) string {
	var b strings.Builder

	for i, layout := range t.Layouts {
		fmt.Fprintf(&b, "\n%s\n", strings.Repeat("=", 60))
		fmt.Fprintf(&b, "Layout %d: %q", i+1, layout.Name)
		if layout.Category != nil {
			fmt.Fprintf(&b, " (category: %s, confidence %.2f)", layout.Category.Label, layout.Category.Confidence)
		}
		if layout.IsSpecial {
			b.WriteString(" [reserved for title/closing slides]")
		}
		fmt.Fprintf(&b, "\n%s\n", strings.Repeat("=", 60))
		fmt.Fprintf(&b, "Total Placeholders: %d\n", len(layout.Placeholders))
		b.WriteString("\nAVAILABLE PLACEHOLDERS (these are the ONLY valid idx values):\n")

		var textIdxs, imageIdxs []int
		for _, ph := range layout.Placeholders {
			switch ph.Kind {
			case geometry.KindText:
				textIdxs = append(textIdxs, ph.Index)
				role := roleFor(ph)
				est, err := capacity.Estimate(ph.Position, fonts.ForRole(role))
				if err != nil {
					fmt.Fprintf(&b, "  - idx=%d: TEXT | name=%q\n", ph.Index, ph.Name)
					continue
				}
				fmt.Fprintf(&b, "  - idx=%d: TEXT | name=%q | max ~%d chars over %d line(s)\n",
					ph.Index, ph.Name, est.MaxChars, est.MaxLines)
			case geometry.KindImage:
				imageIdxs = append(imageIdxs, ph.Index)
				fmt.Fprintf(&b, "  - idx=%d: IMAGE | name=%q\n", ph.Index, ph.Name)
			}
		}

		b.WriteString("\nCONSTRAINTS:\n")
		if len(textIdxs) > 0 {
			fmt.Fprintf(&b, "  * Text placeholders: %v\n", textIdxs)
		}
		if len(imageIdxs) > 0 {
			fmt.Fprintf(&b, "  * Image placeholders: %v\n", imageIdxs)
		}
		fmt.Fprintf(&b, "  * BEST FOR: %s\n", useCase(len(textIdxs), len(imageIdxs)))
	}

	fmt.Fprintf(&b, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(&b, "TOTAL: %d layouts available\n", len(t.Layouts))
	b.WriteString("REMINDER: use different layouts for variety; do not repeat the same layout excessively.\n")

	return b.String()
}

// roleFor infers the font role for a placeholder from its name and index.
// The first placeholder of a layout, or any placeholder named like a title,
// sizes as a title; everything else sizes as body.
func roleFor(ph geometry.Placeholder) capacity.Role {
	name := strings.ToLower(ph.Name)
	if ph.Index == 0 || strings.Contains(name, "title") || strings.Contains(name, "heading") {
		return capacity.RoleTitle
	}
	return capacity.RoleBody
}

// Role is the exported form of the placeholder role inference, shared with
// the verifier so estimation and verification always agree.
func Role(ph geometry.Placeholder) capacity.Role {
	return roleFor(ph)
}

func useCase(textCount, imageCount int) string {
	switch {
	case imageCount > 0 && textCount > 0:
		return "text + image combination"
	case imageCount > 0:
		return "image-focused layout"
	case textCount > 2:
		return "multiple text sections"
	default:
		return "text-only layout"
	}
}
