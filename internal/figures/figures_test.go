package figures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/censolab/polarbr/internal/analysis"
)

func sampleResult() *analysis.Result {
	return &analysis.Result{
		Descriptives: []analysis.YearStats{
			{Year: 2010, N: 100, Mean: 1.2, SD: 0.3, Min: 0.1, Median: 1.1, Max: 2.5},
			{Year: 2014, N: 100, Mean: 1.4, SD: 0.35, Min: 0.2, Median: 1.3, Max: 2.8},
		},
		GroupMeans: []analysis.GroupMeans{
			{Year: 2010, TreatedN: 60, TreatedMean: 1.3, ControlN: 40, ControlMean: 1.1, MeanGap: 0.2},
			{Year: 2014, TreatedN: 60, TreatedMean: 1.6, ControlN: 40, ControlMean: 1.2, MeanGap: 0.4},
		},
		DiD: &analysis.DiDResult{
			GroupTime: []analysis.GroupTimeATT{
				{Group: 2014, Year: 2014, BasePeriod: 2010, EventTime: 0, ATT: 0.2, SE: 0.05, NTreated: 60, NControl: 40, CILower: 0.1, CIUpper: 0.3},
			},
			EventStudy: []analysis.EventTimeATT{
				{EventTime: -4, AggregateATT: analysis.AggregateATT{ATT: 0.01, SE: 0.04, CILower: -0.07, CIUpper: 0.09}, NTreated: 60},
				{EventTime: 0, AggregateATT: analysis.AggregateATT{ATT: 0.2, SE: 0.05, CILower: 0.1, CIUpper: 0.3}, NTreated: 60},
			},
			ByCohort: []analysis.CohortATT{
				{Group: 2014, AggregateATT: analysis.AggregateATT{ATT: 0.2, SE: 0.05, CILower: 0.1, CIUpper: 0.3}, NTreated: 60},
			},
			Overall: analysis.AggregateATT{ATT: 0.2, SE: 0.05, CILower: 0.1, CIUpper: 0.3},
		},
		TWFE: &analysis.TWFEResult{Coef: 0.18, SE: 0.06, TStat: 3.0, N: 200, NUnits: 100, NYears: 2},
		Placebo: &analysis.PlaceboResult{
			Overall:  analysis.AggregateATT{ATT: 0.01, SE: 0.03},
			NTreated: 50,
		},
	}
}

func TestGenerator_WritesAllOutputs(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, nil)

	require.NoError(t, g.Generate(sampleResult()))

	for _, name := range []string{
		"event_study.png",
		"polarization_trends.png",
		"rollout.png",
		"tables.md",
		"analysis_tables.xlsx",
	} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

func TestGenerator_MarkdownContent(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, nil)
	require.NoError(t, g.markdownTables(sampleResult()))

	data, err := os.ReadFile(filepath.Join(dir, "tables.md"))
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "## Polarization by Election Year")
	assert.Contains(t, md, "## Group-Time Treatment Effects")
	assert.Contains(t, md, "0.2000")
	assert.Contains(t, md, "Placebo (shifted cohorts)")
}

func TestGenerator_WorkbookSheets(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, nil)
	require.NoError(t, g.workbook(sampleResult()))

	f, err := excelize.OpenFile(filepath.Join(dir, "analysis_tables.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.ElementsMatch(t, []string{"Descriptives", "Group Means", "ATT", "Aggregates", "Robustness"}, sheets)

	v, err := f.GetCellValue("Descriptives", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2010", v)
}

func TestGenerator_FailsWithoutEstimates(t *testing.T) {
	g := NewGenerator(t.TempDir(), nil)
	err := g.Generate(&analysis.Result{})
	assert.Error(t, err)
}
