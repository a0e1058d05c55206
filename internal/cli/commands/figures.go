package commands

import (
	"github.com/spf13/cobra"
)

// NewFiguresCommand creates the figures command.
func NewFiguresCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "figures",
		Short: "Generate figures and tables from the analysis results",
		Long: `Generate publication outputs from analysis.json.

Writes the event-study plot, group polarization trends, the 4G rollout
histogram, a markdown table file, and an Excel workbook to the output
directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSingleStage(cmd, StageFigures, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run even when inputs are unchanged")
	return cmd
}
