package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/censolab/polarbr/internal/analysis"
	"github.com/censolab/polarbr/internal/anatel"
	"github.com/censolab/polarbr/internal/cli/config"
	"github.com/censolab/polarbr/internal/dataset"
	"github.com/censolab/polarbr/internal/figures"
	"github.com/censolab/polarbr/internal/mun"
	"github.com/censolab/polarbr/internal/pipeline"
	"github.com/censolab/polarbr/internal/tse"
)

// Stage names, in pipeline order.
const (
	StageCleanTSE    = "clean-tse"
	StageCleanAnatel = "clean-anatel"
	StageMerge       = "merge"
	StageAnalyze     = "analyze"
	StageFigures     = "figures"
)

// StageOrder is the canonical execution order.
var StageOrder = []string{StageCleanTSE, StageCleanAnatel, StageMerge, StageAnalyze, StageFigures}

// Stage output file names.
const (
	tseOutputFile    = "tse_cleaned.csv"
	anatelOutputFile = "anatel_4g_by_municipality.csv"
	mergedOutputFile = "final_dataset.csv"
	analysisFile     = "analysis.json"
)

func tseOutputPath(cfg *config.Config) string {
	return filepath.Join(cfg.ProcessedDir, tseOutputFile)
}

func anatelOutputPath(cfg *config.Config) string {
	return filepath.Join(cfg.ProcessedDir, anatelOutputFile)
}

func mergedOutputPath(cfg *config.Config) string {
	return filepath.Join(cfg.ProcessedDir, mergedOutputFile)
}

func analysisOutputPath(cfg *config.Config) string {
	return filepath.Join(cfg.OutputDir, analysisFile)
}

func anatelRawPath(cfg *config.Config) string {
	return filepath.Join(cfg.RawDir, "licenciamento_estacoes.csv")
}

func ibgeRawPath(cfg *config.Config) string {
	return filepath.Join(cfg.RawDir, "ibge_demographics.csv")
}

func tseRawPaths(cfg *config.Config) []string {
	paths := make([]string, 0, len(cfg.Years))
	for _, year := range cfg.Years {
		paths = append(paths, filepath.Join(cfg.RawDir, fmt.Sprintf("votacao_candidato_munzona_%d.csv", year)))
	}
	return paths
}

// loadCrosswalk loads the optional TSE-to-IBGE code crosswalk.
func loadCrosswalk(cfg *config.Config) (mun.Crosswalk, error) {
	if cfg.CrosswalkPath == "" {
		return nil, nil
	}
	return mun.LoadCrosswalk(cfg.CrosswalkPath)
}

// BuildStages constructs the pipeline stages named in names, preserving
// canonical order. Analysis tables render to out when not nil.
func BuildStages(cfg *config.Config, logger *slog.Logger, out io.Writer, names []string) ([]pipeline.Stage, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		found := false
		for _, known := range StageOrder {
			if n == known {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown stage %q (valid: %v)", n, StageOrder)
		}
		wanted[n] = true
	}

	var stages []pipeline.Stage
	for _, name := range StageOrder {
		if !wanted[name] {
			continue
		}
		switch name {
		case StageCleanTSE:
			stages = append(stages, &tseStage{cfg: cfg, logger: logger})
		case StageCleanAnatel:
			stages = append(stages, &anatelStage{cfg: cfg, logger: logger})
		case StageMerge:
			stages = append(stages, &mergeStage{cfg: cfg, logger: logger})
		case StageAnalyze:
			stages = append(stages, &analyzeStage{cfg: cfg, logger: logger, out: out})
		case StageFigures:
			stages = append(stages, &figuresStage{cfg: cfg, logger: logger})
		}
	}
	return stages, nil
}

// --- clean-tse ---

type tseStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (s *tseStage) Name() string { return StageCleanTSE }

func (s *tseStage) Inputs() []string {
	inputs := tseRawPaths(s.cfg)
	inputs = append(inputs, s.cfg.IdeologyPath)
	if s.cfg.CrosswalkPath != "" {
		inputs = append(inputs, s.cfg.CrosswalkPath)
	}
	return inputs
}

func (s *tseStage) Run(ctx context.Context) (int64, error) {
	ideologies, err := tse.LoadIdeologies(s.cfg.IdeologyPath)
	if err != nil {
		return 0, err
	}
	crosswalk, err := loadCrosswalk(s.cfg)
	if err != nil {
		return 0, err
	}

	cleaner := tse.NewCleaner(s.cfg.RawDir, s.logger)
	cleaner.Years = s.cfg.Years
	cleaner.Alpha = s.cfg.Alpha
	cleaner.Crosswalk = crosswalk

	rows, err := cleaner.Clean(ctx, ideologies)
	if err != nil {
		return 0, err
	}
	if err := tse.WriteCSV(tseOutputPath(s.cfg), rows); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// --- clean-anatel ---

type anatelStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (s *anatelStage) Name() string { return StageCleanAnatel }

func (s *anatelStage) Inputs() []string {
	inputs := []string{anatelRawPath(s.cfg)}
	if s.cfg.CrosswalkPath != "" {
		inputs = append(inputs, s.cfg.CrosswalkPath)
	}
	return inputs
}

func (s *anatelStage) Run(ctx context.Context) (int64, error) {
	crosswalk, err := loadCrosswalk(s.cfg)
	if err != nil {
		return 0, err
	}

	cleaner := anatel.NewCleaner(s.cfg.RawDir, s.logger)
	cleaner.Crosswalk = crosswalk

	rows, err := cleaner.Clean(ctx)
	if err != nil {
		return 0, err
	}
	if err := anatel.WriteCSV(anatelOutputPath(s.cfg), rows); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// --- merge ---

type mergeStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (s *mergeStage) Name() string { return StageMerge }

func (s *mergeStage) Inputs() []string {
	return []string{tseOutputPath(s.cfg), anatelOutputPath(s.cfg), ibgeRawPath(s.cfg)}
}

func (s *mergeStage) Run(ctx context.Context) (int64, error) {
	dbPath := s.cfg.Database
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return 0, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := dataset.Open(ctx, dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	m := &dataset.Merger{
		TSEPath:    tseOutputPath(s.cfg),
		AnatelPath: anatelOutputPath(s.cfg),
		IBGEPath:   ibgeRawPath(s.cfg),
		OutputPath: mergedOutputPath(s.cfg),
		Years:      s.cfg.Years,
		Logger:     s.logger,
	}
	report, err := m.Merge(ctx, db)
	if err != nil {
		return 0, err
	}
	return report.Rows, nil
}

// --- analyze ---

type analyzeStage struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

func (s *analyzeStage) Name() string { return StageAnalyze }

func (s *analyzeStage) Inputs() []string {
	return []string{mergedOutputPath(s.cfg)}
}

func (s *analyzeStage) Run(context.Context) (int64, error) {
	panel, err := analysis.LoadPanel(mergedOutputPath(s.cfg))
	if err != nil {
		return 0, err
	}

	opts := analysis.Options{
		NotYetTreated: s.cfg.NotYetTreated,
		BootstrapReps: s.cfg.Bootstrap,
		Seed:          s.cfg.Seed,
	}
	res, err := analysis.Run(panel, opts, s.logger)
	if err != nil {
		return 0, err
	}
	if err := res.WriteJSON(analysisOutputPath(s.cfg)); err != nil {
		return 0, err
	}

	if s.out != nil {
		renderAnalysisSummary(s.out, res)
	}
	return int64(len(res.DiD.GroupTime)), nil
}

// --- figures ---

type figuresStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (s *figuresStage) Name() string { return StageFigures }

func (s *figuresStage) Inputs() []string {
	return []string{analysisOutputPath(s.cfg), mergedOutputPath(s.cfg)}
}

func (s *figuresStage) Run(context.Context) (int64, error) {
	res, err := analysis.ReadJSON(analysisOutputPath(s.cfg))
	if err != nil {
		return 0, err
	}
	gen := figures.NewGenerator(s.cfg.OutputDir, s.logger)
	if err := gen.Generate(res); err != nil {
		return 0, err
	}
	return 5, nil
}
