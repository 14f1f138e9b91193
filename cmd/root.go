package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slaide",
		Short: "Template-constrained presentation generator",
		Long: `Slaide turns raw text and images into a PowerPoint deck that conforms
to an extracted template: every slide uses one of the template's layouts and
every piece of content lands in a real placeholder.

Allocation is AI-assisted with a deterministic fallback; overflowing text is
detected geometrically and compressed in bounded passes before rendering.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}
