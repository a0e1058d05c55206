package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/censolab/polarbr/internal/analysis"
)

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Estimate the effect of 4G rollout on polarization",
		Long: `Run the econometric analysis over the merged panel.

Estimates staggered difference-in-differences group-time effects with
event-study, cohort, and overall aggregations, a two-way fixed effects
robustness regression, and a placebo test. Writes analysis.json to the
output directory and prints a summary.`,
		Example: `  polarbr analyze

  # More bootstrap replications for tighter intervals
  polarbr analyze --bootstrap 5000

  # Use not-yet-treated municipalities as additional controls
  polarbr analyze --not-yet-treated`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSingleStage(cmd, StageAnalyze, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run even when inputs are unchanged")
	return cmd
}

// renderAnalysisSummary prints the headline estimates after an analyze run.
func renderAnalysisSummary(w io.Writer, res *analysis.Result) {
	if res.DiD != nil {
		fmt.Fprintln(w, "Event study (ATT by years since first 4G):")
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Event time", "ATT", "SE", "95% CI", "Treated"})
		for _, e := range res.DiD.EventStudy {
			t.AppendRow(table.Row{
				e.EventTime,
				fmt.Sprintf("%.4f", e.ATT),
				fmt.Sprintf("%.4f", e.SE),
				fmt.Sprintf("[%.4f, %.4f]", e.CILower, e.CIUpper),
				e.NTreated,
			})
		}
		t.Render()

		o := res.DiD.Overall
		fmt.Fprintf(w, "Overall ATT: %.4f (SE %.4f, 95%% CI [%.4f, %.4f])\n",
			o.ATT, o.SE, o.CILower, o.CIUpper)
	}
	if res.TWFE != nil {
		fmt.Fprintf(w, "TWFE post coefficient: %.4f (SE %.4f, t %.2f, N %d)\n",
			res.TWFE.Coef, res.TWFE.SE, res.TWFE.TStat, res.TWFE.N)
	}
	if res.Placebo != nil {
		fmt.Fprintf(w, "Placebo ATT: %.4f (SE %.4f)\n",
			res.Placebo.Overall.ATT, res.Placebo.Overall.SE)
	}
}
