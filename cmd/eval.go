package cmd

import (
	"fmt"
	"log/slog"

	"github.com/slaide-studio/slaide/internal/eval"
	"github.com/slaide-studio/slaide/internal/eval/dataset"
	"github.com/slaide-studio/slaide/internal/eval/results"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	var (
		datasetPath string
		sampleSize  int
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Allocation quality evaluation",
		Long: `Runs the generation engine over a dataset of cases (template geometry plus
content) with a provider that always declines, so every case exercises the
deterministic allocation path. Reports fallback rate, image deferral rate,
overflow resolution rate, and placeholder fill as a YAML document.`,
		Example: `  # Run the full dataset
  slaide eval --dataset cases.parquet

  # Quick sample
  slaide eval --dataset cases.jsonl --sample 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := dataset.NewLoader(datasetPath)
			cases, err := loader.LoadSample(sampleSize)
			if err != nil {
				return err
			}
			if len(cases) == 0 {
				return fmt.Errorf("dataset %s contains no cases", datasetPath)
			}

			runner := eval.NewRunner()
			caseResults := runner.Run(cmd.Context(), cases)

			return results.SaveToYAML(datasetPath, sampleSize, caseResults)
		},
	}

	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Dataset file (.parquet or .jsonl) of generation cases (required)")
	cmd.Flags().IntVarP(&sampleSize, "sample", "s", 0, "Evaluate only the first N cases (0 = all)")

	if err := cmd.MarkFlagRequired("dataset"); err != nil {
		slog.Error("Unable to mark flag required", "err", err)
	}

	return cmd
}
