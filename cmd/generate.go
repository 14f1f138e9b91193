package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/slaide-studio/slaide/internal/assets"
	"github.com/slaide-studio/slaide/internal/geometry"
	"github.com/slaide-studio/slaide/internal/pipeline"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		templatePath   string
		contentPath    string
		imagePaths     []string
		outputPath     string
		provider       string
		model          string
		mode           string
		acceptOverflow bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a deck from a template and content file",
		Long: `Runs one generation end to end: loads template geometry, segments the
content, allocates it onto the template's layouts, verifies and compresses
any overflow, and writes the finished .pptx.`,
		Example: `  # AI-assisted generation with Gemini
  slaide generate --template theme.json --content talk.txt -o talk.pptx

  # Deterministic manual segmentation, render even if text still overflows
  slaide generate --template theme.json --content talk.txt --mode manual --accept-overflow -o talk.pptx

  # Attach images
  slaide generate --template theme.json --content talk.txt --image chart.png --image team.jpg -o talk.pptx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := geometry.Load(templatePath)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(contentPath)
			if err != nil {
				return fmt.Errorf("failed to read content file: %w", err)
			}

			pool, err := assets.LoadPool(imagePaths)
			if err != nil {
				return err
			}

			engine, err := pipeline.New(provider, model)
			if err != nil {
				return err
			}

			result, err := engine.Generate(cmd.Context(), pipeline.Request{
				Template:       t,
				Text:           string(content),
				Pool:           pool,
				Mode:           pipeline.Mode(mode),
				AcceptOverflow: acceptOverflow,
			})
			if err != nil {
				var overflowErr *pipeline.UnresolvedOverflowError
				if errors.As(err, &overflowErr) {
					for _, e := range overflowErr.Report.Entries {
						slog.Error("Unresolved overflow",
							"slide", e.SlideIndex, "layout", e.LayoutName,
							"placeholder", e.PlaceholderIndex, "ratio", e.Ratio)
					}
					return fmt.Errorf("%w (rerun with --accept-overflow to render anyway)", err)
				}
				return err
			}

			if err := os.WriteFile(outputPath, result.Deck, 0644); err != nil {
				return fmt.Errorf("failed to write deck: %w", err)
			}

			slog.Info("Deck written", "path", outputPath, "slides", len(result.Slides),
				"recoveries", len(result.Recoveries), "overflow_resolved", result.Resolved)
			return nil
		},
	}

	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "Template geometry JSON file (required)")
	cmd.Flags().StringVarP(&contentPath, "content", "c", "", "Raw content text file (required)")
	cmd.Flags().StringArrayVarP(&imagePaths, "image", "i", nil, "Image file to include (repeatable)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "presentation.pptx", "Output .pptx path")
	cmd.Flags().StringVar(&provider, "provider", "", "AI provider: gemini, openai, or ollama (default from SLAIDE_PROVIDER)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default from SLAIDE_MODEL)")
	cmd.Flags().StringVar(&mode, "mode", "ai", "Segmentation mode: ai or manual")
	cmd.Flags().BoolVar(&acceptOverflow, "accept-overflow", false, "Render the deck even when overflow could not be fully compressed")

	if err := cmd.MarkFlagRequired("template"); err != nil {
		slog.Error("Unable to mark flag required", "err", err)
	}
	if err := cmd.MarkFlagRequired("content"); err != nil {
		slog.Error("Unable to mark flag required", "err", err)
	}

	return cmd
}
