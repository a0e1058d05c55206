package commands

import (
	"github.com/spf13/cobra"
)

// NewCleanTSECommand creates the clean-tse command.
func NewCleanTSECommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clean-tse",
		Short: "Clean TSE electoral results and compute polarization",
		Long: `Clean the raw TSE vote files and compute the Esteban-Ray
polarization index per municipality and election year.

Reads votacao_candidato_munzona_<year>.csv for each configured year, keeps
first-round presidential votes, joins party ideology scores, and writes
tse_cleaned.csv to the processed directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSingleStage(cmd, StageCleanTSE, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run even when inputs are unchanged")
	return cmd
}

// NewCleanAnatelCommand creates the clean-anatel command.
func NewCleanAnatelCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clean-anatel",
		Short: "Clean ANATEL station licensing into 4G coverage",
		Long: `Clean the raw ANATEL station licensing export into one coverage
row per municipality.

Reads licenciamento_estacoes.csv, classifies each station's technology
generation, and writes anatel_4g_by_municipality.csv with the first 4G
licensing year, 3G presence, and 4G station count.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSingleStage(cmd, StageCleanAnatel, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run even when inputs are unchanged")
	return cmd
}
