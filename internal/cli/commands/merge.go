package commands

import (
	"github.com/spf13/cobra"
)

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge cleaned sources into the analysis panel",
		Long: `Merge the cleaned TSE and ANATEL outputs with IBGE demographics
into the final municipality-by-year panel.

Loads the three CSVs into DuckDB, derives the treatment cohort, treated,
post, and event-time variables, stores the panel as final_dataset in the
project database, and exports final_dataset.csv.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSingleStage(cmd, StageMerge, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run even when inputs are unchanged")
	return cmd
}
