// Package cli provides the command-line interface for polarbr.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/censolab/polarbr/internal/cli/commands"
	"github.com/censolab/polarbr/internal/cli/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "polarbr",
		Short: "polarbr - 4G rollout and electoral polarization in Brazil",
		Long: `polarbr is the replication package for a study of mobile internet
rollout and electoral polarization across Brazilian municipalities.

It cleans TSE electoral results and ANATEL station licensing data, merges
them with IBGE demographics into a municipality-by-year panel, estimates
staggered difference-in-differences effects of 4G arrival on the
Esteban-Ray polarization index, and renders the paper's figures and
tables.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cmd.SetContext(context.WithValue(cmd.Context(), config.LoggerKey(), logger))

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Built with Go, DuckDB, and gonum
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./polarbr.yaml)")
	rootCmd.PersistentFlags().String("raw-dir", "", "Path to raw data directory")
	rootCmd.PersistentFlags().String("processed-dir", "", "Path to processed data directory")
	rootCmd.PersistentFlags().String("output-dir", "", "Path to figure and table output directory")
	rootCmd.PersistentFlags().String("database", "", "Path to DuckDB analysis database")
	rootCmd.PersistentFlags().String("state", "", "Path to run state database")
	rootCmd.PersistentFlags().String("ideology-path", "", "Path to party ideology CSV")
	rootCmd.PersistentFlags().String("crosswalk-path", "", "Path to TSE-IBGE municipality crosswalk CSV")
	rootCmd.PersistentFlags().Float64("alpha", 0, "Esteban-Ray polarization sensitivity parameter")
	rootCmd.PersistentFlags().Int("bootstrap", 0, "Cluster bootstrap replications")
	rootCmd.PersistentFlags().Int64("seed", 0, "Bootstrap random seed")
	rootCmd.PersistentFlags().Bool("not-yet-treated", false, "Include not-yet-treated municipalities as controls")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (table|json|csv|md)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "csv", "md"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewCleanTSECommand())
	rootCmd.AddCommand(commands.NewCleanAnatelCommand())
	rootCmd.AddCommand(commands.NewMergeCommand())
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewFiguresCommand())
	rootCmd.AddCommand(commands.NewStatusCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for polarbr.

To load completions:

Bash:
  $ source <(polarbr completion bash)

Zsh:
  $ polarbr completion zsh > "${fpath[1]}/_polarbr"

Fish:
  $ polarbr completion fish | source

PowerShell:
  PS> polarbr completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
