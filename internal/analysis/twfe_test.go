package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTWFE_RecoversHomogeneousEffect(t *testing.T) {
	// One common effect across cohorts makes the post coefficient exact.
	p := additivePanel(map[int]float64{2014: 0.5, 2018: 0.5}, 6)

	res, err := EstimateTWFE(p)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Coef, 1e-9)
	assert.Equal(t, 18*4, res.N)
	assert.Equal(t, 18, res.NUnits)
	assert.Equal(t, 4, res.NYears)
}

func TestEstimateTWFE_DropsInvariantControls(t *testing.T) {
	p := additivePanel(map[int]float64{2014: 0.5}, 5)
	// Demographics are one snapshot per municipality, so they carry no
	// within-unit variation and must be absorbed by the fixed effects.
	for i, u := range p.Units {
		u.LogPop, u.HasLogPop = 10+float64(i), true
		u.GDP, u.HasGDP = 30000+float64(i)*100, true
	}

	res, err := EstimateTWFE(p)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Coef, 1e-9)
	assert.Empty(t, res.Controls)
	assert.ElementsMatch(t, []string{"log_populacao", "pib_per_capita"}, res.DroppedControls)
}

func TestEstimateTWFE_NoVariationFails(t *testing.T) {
	// Nobody treated: the post indicator is identically zero.
	p := additivePanel(map[int]float64{}, 4)

	_, err := EstimateTWFE(p)
	assert.ErrorContains(t, err, "no within-panel variation")
}

func TestEstimateTWFE_ReportsUncertainty(t *testing.T) {
	p := additivePanel(map[int]float64{2014: 0.5, 2018: 0.3}, 6)
	// Break the exact fit so residuals are non-zero.
	p.Units[0].Outcome[2018] += 0.2
	p.Units[3].Outcome[2022] -= 0.1

	res, err := EstimateTWFE(p)
	require.NoError(t, err)
	assert.Greater(t, res.SE, 0.0)
	assert.NotZero(t, res.TStat)
}
