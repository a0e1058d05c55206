package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/censolab/polarbr/internal/brcsv"
	"github.com/censolab/polarbr/internal/cli/config"
)

// checkResult is one doctor check outcome.
type checkResult struct {
	Name   string
	OK     bool
	Detail string
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that raw data and directories are in place",
		Long: `Check the project setup before running the pipeline.

Verifies that the raw TSE, ANATEL, and IBGE files exist and carry the
expected columns, and that the processed, output, and state directories
are writable.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
	return cmd
}

func runDoctor(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	var checks []checkResult

	for _, path := range tseRawPaths(cfg) {
		checks = append(checks, checkBRCSV("TSE "+filepath.Base(path), path,
			"CD_MUNICIPIO", "NR_TURNO", "DS_CARGO", "SG_PARTIDO", "QT_VOTOS"))
	}
	checks = append(checks, checkBRCSV("ANATEL licensing", anatelRawPath(cfg),
		"CodMunicipio", "Tecnologia", "AnoLicenciamento"))
	checks = append(checks, checkFile("IBGE demographics", ibgeRawPath(cfg)))
	checks = append(checks, checkFile("Party ideology", cfg.IdeologyPath))
	if cfg.CrosswalkPath != "" {
		checks = append(checks, checkFile("Municipality crosswalk", cfg.CrosswalkPath))
	}

	checks = append(checks, checkWritableDir("Processed directory", cfg.ProcessedDir))
	checks = append(checks, checkWritableDir("Output directory", cfg.OutputDir))
	checks = append(checks, checkWritableDir("State directory", filepath.Dir(cfg.StatePath)))

	renderChecks(cmd, cfg, checks)

	for _, c := range checks {
		if !c.OK {
			return fmt.Errorf("doctor found problems")
		}
	}
	return nil
}

// checkFile verifies the file exists and is readable.
func checkFile(name, path string) checkResult {
	f, err := os.Open(path)
	if err != nil {
		return checkResult{Name: name, OK: false, Detail: err.Error()}
	}
	_ = f.Close()
	return checkResult{Name: name, OK: true, Detail: path}
}

// checkBRCSV verifies the file opens as a semicolon CSV and carries the
// required columns.
func checkBRCSV(name, path string, columns ...string) checkResult {
	f, err := brcsv.Open(path)
	if err != nil {
		return checkResult{Name: name, OK: false, Detail: err.Error()}
	}
	defer f.Close()

	if _, err := f.Columns(columns...); err != nil {
		return checkResult{Name: name, OK: false, Detail: err.Error()}
	}
	return checkResult{Name: name, OK: true, Detail: path}
}

// checkWritableDir verifies the directory exists (creating it if needed)
// and accepts writes.
func checkWritableDir(name, dir string) checkResult {
	if dir == "" || dir == "." {
		return checkResult{Name: name, OK: true, Detail: "current directory"}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return checkResult{Name: name, OK: false, Detail: err.Error()}
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return checkResult{Name: name, OK: false, Detail: err.Error()}
	}
	probeName := probe.Name()
	_ = probe.Close()
	_ = os.Remove(probeName)
	return checkResult{Name: name, OK: true, Detail: dir}
}

func renderChecks(cmd *cobra.Command, cfg *config.Config, checks []checkResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Project root: %s\n", cfg.ProjectRoot)
	if used := config.GetConfigFileUsed(); used != "" {
		fmt.Fprintf(w, "Config file: %s\n", used)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, c := range checks {
		status := "ok"
		if !c.OK {
			status = "FAIL"
		}
		t.AppendRow(table.Row{c.Name, status, c.Detail})
	}
	t.Render()
}
