// Package metrics scores allocation quality for evaluation runs.
package metrics

import (
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/models"
)

// CaseResult is the scored outcome of one generation case.
type CaseResult struct {
	CaseID string
	Error  string

	Slides           int
	Fallbacks        int
	Deferrals        int
	OverflowEntries  int
	OverflowResolved bool

	// PlaceholderFill is bound placeholders over available placeholders
	// across the chosen layouts. Low fill means the allocator picked
	// oversized layouts.
	PlaceholderFill float64

	SlideCountOK bool
}

// Summary aggregates case results into the rates the harness reports.
type Summary struct {
	Cases    int     `yaml:"cases"`
	Failures int     `yaml:"failures"`
	Slides   int     `yaml:"slides"`

	// FallbackRate is deterministic-fallback selections per slide.
	FallbackRate float64 `yaml:"fallback_rate"`
	// DeferralRate is image deferrals per slide.
	DeferralRate float64 `yaml:"deferral_rate"`
	// OverflowResolutionRate is the share of cases whose overflow, if any,
	// was fully resolved.
	OverflowResolutionRate float64 `yaml:"overflow_resolution_rate"`
	// MeanPlaceholderFill averages per-case fill over successful cases.
	MeanPlaceholderFill float64 `yaml:"mean_placeholder_fill"`
	// SlideCountAccuracy is the share of successful cases inside their
	// expected slide-count bounds.
	SlideCountAccuracy float64 `yaml:"slide_count_accuracy"`
}

// Score derives the per-case numbers from a finished generation.
func Score(caseID string, slides []models.SlideSpec, recoveries []models.Recovery, overflow models.OverflowReport, resolved bool, t *geometry.Template, minSlides, maxSlides int) CaseResult {
	r := CaseResult{
		CaseID:           caseID,
		Slides:           len(slides),
		OverflowEntries:  len(overflow.Entries),
		OverflowResolved: resolved,
	}

	for _, rec := range recoveries {
		switch rec.Kind {
		case models.RecoveryUnresolvedLayout:
			r.Fallbacks++
		case models.RecoveryImageDeferral:
			r.Deferrals++
		}
	}

	bound, available := 0, 0
	for _, spec := range slides {
		layout, ok := t.Layout(spec.LayoutName)
		if !ok {
			continue
		}
		bound += len(spec.Bindings)
		available += len(layout.Placeholders)
	}
	if available > 0 {
		r.PlaceholderFill = float64(bound) / float64(available)
	}

	r.SlideCountOK = len(slides) >= minSlides && (maxSlides == 0 || len(slides) <= maxSlides)
	return r
}

// Aggregate folds case results into a run summary.
func Aggregate(results []CaseResult) Summary {
	s := Summary{Cases: len(results)}

	succeeded := 0
	resolvedCases := 0
	countOK := 0
	fillSum := 0.0
	fallbacks, deferrals := 0, 0

	for _, r := range results {
		if r.Error != "" {
			s.Failures++
			continue
		}
		succeeded++
		s.Slides += r.Slides
		fallbacks += r.Fallbacks
		deferrals += r.Deferrals
		fillSum += r.PlaceholderFill
		if r.OverflowResolved {
			resolvedCases++
		}
		if r.SlideCountOK {
			countOK++
		}
	}

	if s.Slides > 0 {
		s.FallbackRate = float64(fallbacks) / float64(s.Slides)
		s.DeferralRate = float64(deferrals) / float64(s.Slides)
	}
	if succeeded > 0 {
		s.OverflowResolutionRate = float64(resolvedCases) / float64(succeeded)
		s.MeanPlaceholderFill = fillSum / float64(succeeded)
		s.SlideCountAccuracy = float64(countOK) / float64(succeeded)
	}
	return s
}
