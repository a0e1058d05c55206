package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/censolab/polarbr/internal/pipeline"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	From     string
	Only     string
	Force    bool
	Watch    bool
	Debounce time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the replication pipeline",
		Long: `Run the replication pipeline end to end.

Stages execute in order: clean-tse, clean-anatel, merge, analyze, figures.
Each stage records its input hash in the state database and is skipped when
its inputs have not changed since the last successful run.`,
		Example: `  # Full pipeline
  polarbr run

  # Re-run everything regardless of input hashes
  polarbr run --force

  # Resume from the merge stage
  polarbr run --from merge

  # Re-run whenever a raw CSV changes
  polarbr run --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "First stage to run (later stages included)")
	cmd.Flags().StringVar(&opts.Only, "only", "", "Run a single stage")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Run stages even when inputs are unchanged")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Watch the raw data directory and re-run on changes")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 500*time.Millisecond, "Delay before a file change triggers a re-run")

	_ = cmd.RegisterFlagCompletionFunc("from", completeStageNames)
	_ = cmd.RegisterFlagCompletionFunc("only", completeStageNames)

	return cmd
}

func completeStageNames(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return StageOrder, cobra.ShellCompDirectiveNoFileComp
}

// selectStages resolves --from and --only into a stage name list.
func selectStages(opts *RunOptions) ([]string, error) {
	if opts.From != "" && opts.Only != "" {
		return nil, fmt.Errorf("--from and --only are mutually exclusive")
	}
	if opts.Only != "" {
		return []string{opts.Only}, nil
	}
	if opts.From == "" {
		return StageOrder, nil
	}
	for i, name := range StageOrder {
		if name == opts.From {
			return StageOrder[i:], nil
		}
	}
	return nil, fmt.Errorf("unknown stage %q (valid: %v)", opts.From, StageOrder)
}

func runPipeline(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx := NewCommandContext(cmd)

	names, err := selectStages(opts)
	if err != nil {
		return err
	}
	stages, err := BuildStages(cmdCtx.Cfg, cmdCtx.Logger, cmd.OutOrStdout(), names)
	if err != nil {
		return err
	}

	store, err := openStateStore(cmdCtx.Cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runner := &pipeline.Runner{
		Store:  store,
		Logger: cmdCtx.Logger,
		Force:  opts.Force,
	}

	if err := runner.Run(cmd.Context(), stages); err != nil {
		return err
	}

	if !opts.Watch {
		return nil
	}

	// Watch mode: later runs are incremental, never forced.
	runner.Force = false
	rerun := func(ctx context.Context) {
		if err := runner.Run(ctx, stages); err != nil {
			cmdCtx.Logger.Error("pipeline run failed", "error", err)
		}
	}
	return pipeline.Watch(cmd.Context(), []string{cmdCtx.Cfg.RawDir}, opts.Debounce, cmdCtx.Logger, rerun)
}

// runSingleStage executes one named stage through the state-tracked runner.
// Used by the per-stage commands.
func runSingleStage(cmd *cobra.Command, name string, force bool) error {
	cmdCtx := NewCommandContext(cmd)

	stages, err := BuildStages(cmdCtx.Cfg, cmdCtx.Logger, cmd.OutOrStdout(), []string{name})
	if err != nil {
		return err
	}

	store, err := openStateStore(cmdCtx.Cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runner := &pipeline.Runner{
		Store:  store,
		Logger: cmdCtx.Logger,
		Force:  force,
	}
	return runner.Run(cmd.Context(), stages)
}
