// Package repair resolves geometric overflow by AI-assisted content
// compression, bounded by deterministic rules: a fixed pass budget, a
// shrinking per-pass target ratio, and re-verification after every pass.
// The loop shrinks content only; it never changes a slide's layout or the
// structure of its bindings.
package repair

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slaide-studio/slaide/internal/capacity"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/models"
	"github.com/slaide-studio/slaide/internal/providers"
	"github.com/slaide-studio/slaide/internal/verify"
)

// CompressionRatios is the per-pass target: pass n asks the model to rewrite
// within ratio[n] of the current length (and never above the placeholder's
// char budget). The ladder tightens as passes accumulate.
var CompressionRatios = []float64{0.75, 0.65, 0.55, 0.45, 0.35}

// MaxPasses bounds the loop. After this many compression passes the
// remaining overflow is surfaced to the caller, who may render as-is.
const MaxPasses = 5

// State names one phase of the repair loop, for logging and results.
type State string

const (
	StateDetected         State = "detected"
	StateCompressing      State = "compressing"
	StateReverified       State = "reverified"
	StateResolved         State = "resolved"
	StateStillOverflowing State = "still_overflowing"
)

const compressSystemPrompt = `You are an expert presentation copy editor. Shorten the given slide text so it fits its placeholder, preserving the key message and tone.

Rules:
- Stay under the character budget. This is a hard limit.
- Keep the original language and any essential numbers or names.
- Do not add new information or commentary.

Respond with ONLY a JSON object:

{"text": "the shortened text"}`

// Repairer runs the compression loop.
type Repairer struct {
	Provider providers.Text
	Model    string
	Timeout  time.Duration
	Fonts    capacity.Fonts
}

// Result is the loop's outcome: the (possibly modified) specs, whether all
// overflow was resolved, and the final report when it was not.
type Result struct {
	Slides   []models.SlideSpec
	Resolved bool
	Report   models.OverflowReport
	Passes   int
	State    State
}

// Repair takes the verifier's report and compresses each offending
// placeholder's content in place, re-verifying after every pass. It
// terminates in at most MaxPasses passes. resolved is true only when the
// final re-verification is empty.
func (r *Repairer) Repair(ctx context.Context, specs []models.SlideSpec, report models.OverflowReport, t *geometry.Template) (Result, error) {
	if report.Empty() {
		return Result{Slides: specs, Resolved: true, State: StateResolved}, nil
	}

	slog.Info("Overflow detected, starting compression loop",
		"offending_placeholders", len(report.Entries), "max_passes", MaxPasses)

	passes := 0
	for pass := 0; pass < MaxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return Result{Slides: specs, Report: report, Passes: passes, State: StateStillOverflowing}, err
		}
		passes = pass + 1

		ratio := CompressionRatios[min(pass, len(CompressionRatios)-1)]
		compressedAny := false

		for _, entry := range report.Entries {
			if entry.SlideIndex < 0 || entry.SlideIndex >= len(specs) {
				continue
			}
			spec := &specs[entry.SlideIndex]
			binding, ok := spec.Bindings[entry.PlaceholderIndex]
			if !ok || binding.Kind != geometry.KindText {
				continue
			}

			shortened, err := r.compress(ctx, binding.Content, entry.MaxChars, ratio)
			if err != nil {
				// No deterministic way to shrink prose safely: skip this
				// placeholder for this pass and let re-verification decide.
				slog.Warn("Compression call failed, skipping placeholder this pass",
					"slide", entry.SlideIndex, "placeholder", entry.PlaceholderIndex, "pass", pass+1, "error", err)
				continue
			}
			// Compression must shrink. A longer rewrite is rejected outright.
			if len([]rune(shortened)) >= len([]rune(binding.Content)) {
				slog.Warn("Compression returned text no shorter than the original, rejected",
					"slide", entry.SlideIndex, "placeholder", entry.PlaceholderIndex, "pass", pass+1)
				continue
			}

			binding.Content = shortened
			spec.Bindings[entry.PlaceholderIndex] = binding
			compressedAny = true
		}

		report = verify.Verify(specs, t, r.Fonts)
		if report.Empty() {
			slog.Info("Overflow resolved", "passes", pass+1)
			return Result{Slides: specs, Resolved: true, Passes: pass + 1, State: StateResolved}, nil
		}
		if !compressedAny {
			// Nothing changed this pass; further passes would spin on the
			// same failures.
			break
		}
	}

	slog.Warn("Compression loop exhausted with overflow remaining",
		"passes", passes, "remaining", len(report.Entries))
	return Result{Slides: specs, Resolved: false, Report: report, Passes: passes, State: StateStillOverflowing}, nil
}

func (r *Repairer) compress(ctx context.Context, content string, maxChars int, ratio float64) (string, error) {
	if r.Provider == nil {
		return "", fmt.Errorf("%w: no compression provider configured", providers.ErrExternalCall)
	}

	budget := int(float64(len([]rune(content))) * ratio)
	if maxChars > 0 && maxChars < budget {
		budget = maxChars
	}

	prompt := fmt.Sprintf("Character budget: %d\n\nText to shorten (%d characters):\n%s",
		budget, len([]rune(content)), content)

	raw, err := r.Provider.GenerateText(ctx, providers.Config{
		Model:       r.Model,
		Temperature: 0.2,
		System:      compressSystemPrompt,
		Prompt:      prompt,
		Timeout:     r.Timeout,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := providers.DecodeJSON(raw, &resp); err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", fmt.Errorf("%w: compression returned empty text", providers.ErrMalformedResponse)
	}
	return resp.Text, nil
}
