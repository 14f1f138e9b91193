package repair

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/slaide-studio/slaide/internal/capacity"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/models"
	"github.com/slaide-studio/slaide/internal/providers"
	"github.com/slaide-studio/slaide/internal/verify"
)

// compressTo answers every compression request with a fixed-length string.
type compressTo struct {
	length int
	err    error
	calls  int
}

func (p *compressTo) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	out, _ := json.Marshal(map[string]string{"text": strings.Repeat("b", p.length)})
	return string(out), nil
}

// Body box holding exactly 60 chars per line over 10 lines (600 chars).
func repairTemplate() *geometry.Template {
	return &geometry.Template{
		SlideSize: geometry.SlideSize{Width: 12192000, Height: 6858000},
		Layouts: []geometry.Layout{
			{
				Name: "Content", LayoutIndex: 0,
				Placeholders: []geometry.Placeholder{
					{Index: 1, Kind: geometry.KindText, Name: "Body 1", Position: geometry.Box{Left: 500000, Top: 500000, Width: 60 * 137160, Height: 10 * 377190}},
				},
			},
		},
	}
}

func overflowingSpecs() []models.SlideSpec {
	return []models.SlideSpec{{
		LayoutName: "Content",
		Bindings: map[int]models.Binding{
			1: {Kind: geometry.KindText, Content: strings.Repeat("a", 900)},
		},
	}}
}

func TestRepairEmptyReportIsResolved(t *testing.T) {
	r := &Repairer{Fonts: capacity.DefaultFonts()}
	result, err := r.Repair(context.Background(), overflowingSpecs(), models.OverflowReport{}, repairTemplate())
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if !result.Resolved || result.State != StateResolved || result.Passes != 0 {
		t.Errorf("empty report should resolve immediately: %+v", result)
	}
}

func TestRepairResolvesInOnePass(t *testing.T) {
	tpl := repairTemplate()
	fonts := capacity.DefaultFonts()
	specs := overflowingSpecs()
	report := verify.Verify(specs, tpl, fonts)
	if report.Empty() {
		t.Fatal("fixture must overflow before repair")
	}

	provider := &compressTo{length: 480}
	r := &Repairer{Provider: provider, Fonts: fonts}
	result, err := r.Repair(context.Background(), specs, report, tpl)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if !result.Resolved {
		t.Fatalf("expected resolution, report: %+v", result.Report)
	}
	if result.Passes != 1 {
		t.Errorf("Passes = %d, want 1", result.Passes)
	}
	if got := result.Slides[0].Bindings[1].Content; len(got) != 480 {
		t.Errorf("compressed content length = %d, want 480", len(got))
	}
	if re := verify.Verify(result.Slides, tpl, fonts); !re.Empty() {
		t.Errorf("resolved=true but re-verification still reports: %+v", re.Entries)
	}
}

func TestRepairTerminatesWhenProviderFails(t *testing.T) {
	tpl := repairTemplate()
	fonts := capacity.DefaultFonts()
	specs := overflowingSpecs()
	report := verify.Verify(specs, tpl, fonts)

	provider := &compressTo{err: fmt.Errorf("model unavailable")}
	r := &Repairer{Provider: provider, Fonts: fonts}
	result, err := r.Repair(context.Background(), specs, report, tpl)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if result.Resolved || result.State != StateStillOverflowing {
		t.Errorf("unresolvable overflow must come back StillOverflowing: %+v", result.State)
	}
	if result.Report.Empty() {
		t.Error("resolved=false must carry a non-empty report")
	}
	// A pass that compresses nothing ends the loop; no unbounded retries.
	if provider.calls > MaxPasses {
		t.Errorf("provider called %d times, bound is %d", provider.calls, MaxPasses)
	}
	if got := result.Slides[0].Bindings[1].Content; got != strings.Repeat("a", 900) {
		t.Error("failed compression must leave the original content untouched")
	}
}

func TestRepairRejectsLongerRewrite(t *testing.T) {
	tpl := repairTemplate()
	fonts := capacity.DefaultFonts()
	specs := overflowingSpecs()
	report := verify.Verify(specs, tpl, fonts)

	provider := &compressTo{length: 1200}
	r := &Repairer{Provider: provider, Fonts: fonts}
	result, err := r.Repair(context.Background(), specs, report, tpl)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if result.Resolved {
		t.Fatal("a longer rewrite cannot resolve overflow")
	}
	if got := result.Slides[0].Bindings[1].Content; got != strings.Repeat("a", 900) {
		t.Error("longer rewrite must be rejected outright")
	}
}

func TestRepairBoundedPasses(t *testing.T) {
	// Rewrites shrink a little each call but never enough to fit: the loop
	// must stop at MaxPasses with the overflow reported.
	tpl := repairTemplate()
	fonts := capacity.DefaultFonts()
	specs := overflowingSpecs()
	report := verify.Verify(specs, tpl, fonts)

	provider := &shrinkSlightly{length: 890}
	r := &Repairer{Provider: provider, Fonts: fonts}
	result, err := r.Repair(context.Background(), specs, report, tpl)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if result.Resolved {
		t.Fatal("content never fits in this fixture")
	}
	if result.Passes != MaxPasses {
		t.Errorf("Passes = %d, want %d", result.Passes, MaxPasses)
	}
}

// shrinkSlightly returns text 10 runes shorter than the previous call, so
// progress never stalls but the content never fits.
type shrinkSlightly struct {
	length int
}

func (p *shrinkSlightly) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	out, _ := json.Marshal(map[string]string{"text": strings.Repeat("b", p.length)})
	p.length -= 10
	return string(out), nil
}
