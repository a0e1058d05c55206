package figures

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xuri/excelize/v2"

	"github.com/censolab/polarbr/internal/analysis"
)

// tableSpec is one rendered table, shared between markdown and xlsx output.
type tableSpec struct {
	title  string
	sheet  string
	header []any
	rows   [][]any
}

func buildTables(res *analysis.Result) []tableSpec {
	var specs []tableSpec

	desc := tableSpec{
		title:  "Polarization by Election Year",
		sheet:  "Descriptives",
		header: []any{"Year", "N", "Mean", "SD", "Min", "Median", "Max"},
	}
	for _, s := range res.Descriptives {
		desc.rows = append(desc.rows, []any{
			s.Year, s.N, f4(s.Mean), f4(s.SD), f4(s.Min), f4(s.Median), f4(s.Max),
		})
	}
	specs = append(specs, desc)

	groups := tableSpec{
		title:  "Group Means by Year",
		sheet:  "Group Means",
		header: []any{"Year", "Treated N", "Treated Mean", "Control N", "Control Mean", "Gap"},
	}
	for _, gm := range res.GroupMeans {
		groups.rows = append(groups.rows, []any{
			gm.Year, gm.TreatedN, f4(gm.TreatedMean), gm.ControlN, f4(gm.ControlMean), f4(gm.MeanGap),
		})
	}
	specs = append(specs, groups)

	if res.DiD != nil {
		gt := tableSpec{
			title:  "Group-Time Treatment Effects",
			sheet:  "ATT",
			header: []any{"Cohort", "Year", "Event Time", "ATT", "SE", "CI Lower", "CI Upper", "N Treated", "N Control"},
		}
		for _, e := range res.DiD.GroupTime {
			gt.rows = append(gt.rows, []any{
				e.Group, e.Year, e.EventTime, f4(e.ATT), f4(e.SE),
				f4(e.CILower), f4(e.CIUpper), e.NTreated, e.NControl,
			})
		}
		specs = append(specs, gt)

		agg := tableSpec{
			title:  "Aggregated Effects",
			sheet:  "Aggregates",
			header: []any{"Estimate", "ATT", "SE", "CI Lower", "CI Upper"},
		}
		agg.rows = append(agg.rows, []any{
			"Overall", f4(res.DiD.Overall.ATT), f4(res.DiD.Overall.SE),
			f4(res.DiD.Overall.CILower), f4(res.DiD.Overall.CIUpper),
		})
		for _, c := range res.DiD.ByCohort {
			agg.rows = append(agg.rows, []any{
				fmt.Sprintf("Cohort %d", c.Group), f4(c.ATT), f4(c.SE), f4(c.CILower), f4(c.CIUpper),
			})
		}
		for _, e := range res.DiD.EventStudy {
			agg.rows = append(agg.rows, []any{
				fmt.Sprintf("Event time %+d", e.EventTime), f4(e.ATT), f4(e.SE), f4(e.CILower), f4(e.CIUpper),
			})
		}
		specs = append(specs, agg)
	}

	robust := tableSpec{
		title:  "Robustness",
		sheet:  "Robustness",
		header: []any{"Check", "Estimate", "SE", "Detail"},
	}
	if res.TWFE != nil {
		robust.rows = append(robust.rows, []any{
			"TWFE (post)", f4(res.TWFE.Coef), f4(res.TWFE.SE),
			fmt.Sprintf("t=%.2f, N=%d", res.TWFE.TStat, res.TWFE.N),
		})
	}
	if res.Placebo != nil {
		robust.rows = append(robust.rows, []any{
			"Placebo (shifted cohorts)", f4(res.Placebo.Overall.ATT), f4(res.Placebo.Overall.SE),
			fmt.Sprintf("treated=%d, dropped=%d", res.Placebo.NTreated, res.Placebo.NDropped),
		})
	}
	if len(robust.rows) > 0 {
		specs = append(specs, robust)
	}

	return specs
}

func f4(v float64) string { return fmt.Sprintf("%.4f", v) }

// markdownTables writes tables.md with one markdown table per section.
func (g *Generator) markdownTables(res *analysis.Result) error {
	f, err := os.Create(g.path("tables.md"))
	if err != nil {
		return err
	}
	defer f.Close()

	for _, spec := range buildTables(res) {
		if _, err := fmt.Fprintf(f, "## %s\n\n", spec.title); err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(f)
		t.AppendHeader(table.Row(spec.header))
		for _, row := range spec.rows {
			t.AppendRow(table.Row(row))
		}
		t.RenderMarkdown()
		if _, err := fmt.Fprint(f, "\n\n"); err != nil {
			return err
		}
	}
	return f.Close()
}

// workbook writes the same tables as an xlsx workbook, one sheet each.
func (g *Generator) workbook(res *analysis.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	specs := buildTables(res)
	for i, spec := range specs {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", spec.sheet); err != nil {
				return err
			}
		} else {
			if _, err := f.NewSheet(spec.sheet); err != nil {
				return err
			}
		}

		for col, h := range spec.header {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(spec.sheet, cell, h); err != nil {
				return err
			}
		}
		for r, row := range spec.rows {
			for col, v := range row {
				cell, err := excelize.CoordinatesToCellName(col+1, r+2)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(spec.sheet, cell, v); err != nil {
					return err
				}
			}
		}
	}

	return f.SaveAs(g.path("analysis_tables.xlsx"))
}
