package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/slaide-studio/slaide/internal/eval/metrics"
	"gopkg.in/yaml.v3"
)

// EvalConfig records the run parameters alongside the results.
type EvalConfig struct {
	DatasetPath string `yaml:"datasetpath"`
	SampleSize  int    `yaml:"samplesize"`
	Timestamp   string `yaml:"timestamp"`
}

// EvalResult is a single case's scores in the report.
type EvalResult struct {
	Identifier       string  `yaml:"identifier"`
	Error            string  `yaml:"error,omitempty"`
	Slides           int     `yaml:"slides"`
	Fallbacks        int     `yaml:"fallbacks"`
	Deferrals        int     `yaml:"deferrals"`
	OverflowEntries  int     `yaml:"overflowentries"`
	OverflowResolved bool    `yaml:"overflowresolved"`
	PlaceholderFill  float64 `yaml:"placeholderfill"`
	SlideCountOK     bool    `yaml:"slidecountok"`
}

// EvalSpec is the complete report document.
type EvalSpec struct {
	Config  EvalConfig      `yaml:"config"`
	Summary metrics.Summary `yaml:"summary"`
	Results []EvalResult    `yaml:"results"`
}

// SaveToYAML writes the run report into the evals/ directory.
func SaveToYAML(datasetPath string, sampleSize int, caseResults []metrics.CaseResult) error {
	if err := os.MkdirAll("evals", 0755); err != nil {
		return fmt.Errorf("failed to create evals directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	spec := EvalSpec{
		Config: EvalConfig{
			DatasetPath: datasetPath,
			SampleSize:  sampleSize,
			Timestamp:   timestamp,
		},
		Summary: metrics.Aggregate(caseResults),
		Results: make([]EvalResult, 0, len(caseResults)),
	}

	for _, r := range caseResults {
		spec.Results = append(spec.Results, EvalResult{
			Identifier:       r.CaseID,
			Error:            r.Error,
			Slides:           r.Slides,
			Fallbacks:        r.Fallbacks,
			Deferrals:        r.Deferrals,
			OverflowEntries:  r.OverflowEntries,
			OverflowResolved: r.OverflowResolved,
			PlaceholderFill:  r.PlaceholderFill,
			SlideCountOK:     r.SlideCountOK,
		})
	}

	filename := fmt.Sprintf("evals/allocation-%s.yaml", timestamp)
	data, err := yaml.Marshal(&spec)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}

	absPath, _ := filepath.Abs(filename)
	fmt.Printf("\nEvaluation results saved to: %s\n", absPath)
	return nil
}
