package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/censolab/polarbr/internal/state"
)

// StatusOptions holds options for the status command.
type StatusOptions struct {
	Format string
	Limit  int
	Run    string
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent pipeline runs",
		Long: `Show recent pipeline runs recorded in the state database.

Without arguments, lists the most recent runs. With --run, shows the
stage-by-stage breakdown of one run.`,
		Example: `  # Recent runs
  polarbr status

  # Stage detail for one run
  polarbr status --run 3f2a...

  # Machine readable
  polarbr status --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "Maximum number of runs to show")
	cmd.Flags().StringVar(&opts.Run, "run", "", "Show stages for this run ID")

	return cmd
}

func runStatus(cmd *cobra.Command, opts *StatusOptions) error {
	cmdCtx := NewCommandContext(cmd)

	if _, err := os.Stat(cmdCtx.Cfg.StatePath); os.IsNotExist(err) {
		return fmt.Errorf("state database not found at %s (run 'polarbr run' first)", cmdCtx.Cfg.StatePath)
	}

	store, err := openStateStore(cmdCtx.Cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if opts.Run != "" {
		return showRunDetail(cmd, store, opts)
	}
	return showRunList(cmd, store, opts)
}

func showRunList(cmd *cobra.Command, store *state.SQLiteStore, opts *StatusOptions) error {
	runs, err := store.ListRuns(opts.Limit)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Status", "Started", "Duration", "Error"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			shortID(r.ID),
			string(r.Status),
			r.StartedAt.Format(time.RFC3339),
			runDuration(r),
			truncate(r.Error, 60),
		})
	}
	t.Render()
	return nil
}

func showRunDetail(cmd *cobra.Command, store *state.SQLiteStore, opts *StatusOptions) error {
	run, err := store.GetRun(opts.Run)
	if err != nil {
		return err
	}
	stages, err := store.ListStageRuns(run.ID)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		out := struct {
			Run    *state.Run        `json:"run"`
			Stages []*state.StageRun `json:"stages"`
		}{run, stages}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %s (started %s)\n",
		shortID(run.ID), run.Status, run.StartedAt.Format(time.RFC3339))
	if run.Error != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Error: %s\n", run.Error)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stage", "Status", "Rows", "Duration", "Error"})
	for _, s := range stages {
		t.AppendRow(table.Row{
			s.Stage,
			string(s.Status),
			s.RowsOut,
			fmt.Sprintf("%dms", s.DurationMS),
			truncate(s.Error, 60),
		})
	}
	t.Render()
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runDuration(r *state.Run) string {
	if r.CompletedAt == nil {
		return "-"
	}
	return r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
