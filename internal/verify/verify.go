// Package verify measures draft slide specifications against placeholder
// capacities and reports geometric overflow. It is fully deterministic:
// identical inputs always produce an identical report, with no model calls.
package verify

import (
	"log/slog"
	"sort"

	"github.com/slaide-studio/slaide/internal/capacity"
	"github.com/slaide-studio/slaide/internal/catalog"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/models"
)

// Verify checks every text binding in every slide spec against its
// placeholder's estimated capacity, using the same measurement heuristic
// the estimator uses. Runs on every generation — a hand-edited slide can
// introduce overflow just as easily as a generated one.
func Verify(specs []models.SlideSpec, t *geometry.Template, fonts capacity.Fonts) models.OverflowReport {
	var report models.OverflowReport

	for slideIdx, spec := range specs {
		layout, ok := t.Layout(spec.LayoutName)
		if !ok {
			// Specs are validated before they reach the verifier; an
			// unknown layout here means the caller skipped validation.
			slog.Error("Verifier saw spec with unknown layout", "slide", slideIdx, "layout", spec.LayoutName)
			continue
		}

		// Sorted placeholder order keeps the report identical across runs.
		indices := make([]int, 0, len(spec.Bindings))
		for idx := range spec.Bindings {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		for _, idx := range indices {
			binding := spec.Bindings[idx]
			if binding.Kind != geometry.KindText || binding.Content == "" {
				continue
			}
			ph, ok := layout.Placeholder(idx)
			if !ok {
				continue
			}

			est, err := capacity.Estimate(ph.Position, fonts.ForRole(catalog.Role(*ph)))
			if err != nil {
				slog.Error("Capacity estimation failed during verification",
					"slide", slideIdx, "layout", spec.LayoutName, "placeholder", idx, "error", err)
				continue
			}

			m := capacity.Measure(binding.Content, est)
			ratio := capacity.Ratio(m, est)
			if ratio > 1.0 {
				report.Entries = append(report.Entries, models.Overflow{
					SlideIndex:       slideIdx,
					LayoutName:       spec.LayoutName,
					PlaceholderIndex: idx,
					Ratio:            ratio,
					OriginalContent:  binding.Content,
					MaxChars:         est.MaxChars,
				})
			}
		}
	}

	return report
}
