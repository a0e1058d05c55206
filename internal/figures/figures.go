// Package figures renders the publication outputs: event-study and trend
// plots, the rollout chart, and the summary tables in markdown and xlsx.
package figures

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/censolab/polarbr/internal/analysis"
)

// Generator writes all figure and table outputs for one analysis result.
type Generator struct {
	OutputDir string
	Logger    *slog.Logger
}

// NewGenerator returns a Generator writing into outputDir.
func NewGenerator(outputDir string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{OutputDir: outputDir, Logger: logger}
}

// Generate renders every output file.
func (g *Generator) Generate(res *analysis.Result) error {
	if err := os.MkdirAll(g.OutputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	steps := []struct {
		name string
		fn   func(*analysis.Result) error
	}{
		{"event_study.png", g.eventStudy},
		{"polarization_trends.png", g.trends},
		{"rollout.png", g.rollout},
		{"tables.md", g.markdownTables},
		{"analysis_tables.xlsx", g.workbook},
	}
	for _, s := range steps {
		if err := s.fn(res); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		g.Logger.Info("figure written", "file", filepath.Join(g.OutputDir, s.name))
	}
	return nil
}

func (g *Generator) path(name string) string { return filepath.Join(g.OutputDir, name) }

// attSeries feeds the event-study plot: points with asymmetric error bars.
type attSeries struct {
	plotter.XYs
	plotter.YErrors
}

// eventStudy plots the aggregated ATT by event time with 95% intervals.
func (g *Generator) eventStudy(res *analysis.Result) error {
	if res.DiD == nil || len(res.DiD.EventStudy) == 0 {
		return fmt.Errorf("no event-study estimates")
	}

	series := attSeries{
		XYs:     make(plotter.XYs, len(res.DiD.EventStudy)),
		YErrors: make(plotter.YErrors, len(res.DiD.EventStudy)),
	}
	for i, e := range res.DiD.EventStudy {
		series.XYs[i].X = float64(e.EventTime)
		series.XYs[i].Y = e.ATT
		lo, hi := e.CILower, e.CIUpper
		if lo == 0 && hi == 0 {
			lo, hi = e.ATT-1.96*e.SE, e.ATT+1.96*e.SE
		}
		series.YErrors[i].Low = e.ATT - lo
		series.YErrors[i].High = hi - e.ATT
	}

	p := plot.New()
	p.Title.Text = "Effect of 4G Rollout on Polarization"
	p.X.Label.Text = "Years since first post-4G election"
	p.Y.Label.Text = "ATT (Esteban-Ray index)"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(series.XYs)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}

	bars, err := plotter.NewYErrorBars(series)
	if err != nil {
		return err
	}

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.LineStyle.Color = color.Gray{Y: 120}
	zero.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(zero, bars, scatter)
	return p.Save(8*vg.Inch, 5*vg.Inch, g.path("event_study.png"))
}

// trends plots mean polarization per election year for ever-treated and
// never-treated municipalities.
func (g *Generator) trends(res *analysis.Result) error {
	if len(res.GroupMeans) == 0 {
		return fmt.Errorf("no group means")
	}

	treated := make(plotter.XYs, len(res.GroupMeans))
	control := make(plotter.XYs, len(res.GroupMeans))
	for i, gm := range res.GroupMeans {
		treated[i].X = float64(gm.Year)
		treated[i].Y = gm.TreatedMean
		control[i].X = float64(gm.Year)
		control[i].Y = gm.ControlMean
	}

	p := plot.New()
	p.Title.Text = "Polarization by Treatment Group"
	p.X.Label.Text = "Election year"
	p.Y.Label.Text = "Mean Esteban-Ray index"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	treatedLine, err := plotter.NewLine(treated)
	if err != nil {
		return err
	}
	treatedLine.LineStyle.Width = vg.Points(2)
	treatedLine.LineStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}

	controlLine, err := plotter.NewLine(control)
	if err != nil {
		return err
	}
	controlLine.LineStyle.Width = vg.Points(2)
	controlLine.LineStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	controlLine.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}

	p.Add(treatedLine, controlLine)
	p.Legend.Add("4G by 2022", treatedLine)
	p.Legend.Add("Never 4G", controlLine)
	return p.Save(8*vg.Inch, 5*vg.Inch, g.path("polarization_trends.png"))
}

// rollout plots how many municipalities enter treatment at each cohort.
func (g *Generator) rollout(res *analysis.Result) error {
	if res.DiD == nil || len(res.DiD.ByCohort) == 0 {
		return fmt.Errorf("no cohort estimates")
	}

	values := make(plotter.Values, len(res.DiD.ByCohort))
	labels := make([]string, len(res.DiD.ByCohort))
	for i, c := range res.DiD.ByCohort {
		values[i] = float64(c.NTreated)
		labels[i] = strconv.Itoa(c.Group)
	}

	p := plot.New()
	p.Title.Text = "4G Rollout by Electoral Cohort"
	p.X.Label.Text = "First post-4G election"
	p.Y.Label.Text = "Municipalities"

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return err
	}
	bars.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(labels...)
	return p.Save(6*vg.Inch, 4*vg.Inch, g.path("rollout.png"))
}
