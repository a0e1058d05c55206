package tse

import (
	"math"
	"testing"
)

func TestEstebanRay_TwoPartySplit(t *testing.T) {
	// Even split at ideological extremes: ER = 2 * 0.5^2.6 * 0.5 * 10.
	got := EstebanRay([]float64{0.5, 0.5}, []float64{0, 10}, DefaultAlpha)
	want := 2 * math.Pow(0.5, 2.6) * 0.5 * 10
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("EstebanRay = %v, want %v", got, want)
	}
}

func TestEstebanRay_ZeroSharesMasked(t *testing.T) {
	// A zero-share party must not affect the index.
	with := EstebanRay([]float64{0.5, 0.5, 0}, []float64{0, 10, 5}, DefaultAlpha)
	without := EstebanRay([]float64{0.5, 0.5}, []float64{0, 10}, DefaultAlpha)
	if with != without {
		t.Errorf("zero share changed index: %v != %v", with, without)
	}
}

func TestEstebanRay_Renormalizes(t *testing.T) {
	// Shares not summing to one are renormalized before computing.
	raw := EstebanRay([]float64{300, 300}, []float64{0, 10}, DefaultAlpha)
	norm := EstebanRay([]float64{0.5, 0.5}, []float64{0, 10}, DefaultAlpha)
	if math.Abs(raw-norm) > 1e-12 {
		t.Errorf("unnormalized input gave %v, want %v", raw, norm)
	}
}

func TestEstebanRay_DegenerateCases(t *testing.T) {
	cases := []struct {
		name   string
		shares []float64
		scores []float64
	}{
		{"single party", []float64{1}, []float64{5}},
		{"one effective party", []float64{1, 0}, []float64{0, 10}},
		{"all zero", []float64{0, 0}, []float64{0, 10}},
		{"empty", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EstebanRay(tc.shares, tc.scores, DefaultAlpha); got != 0 {
				t.Errorf("EstebanRay = %v, want 0", got)
			}
		})
	}
}

func TestEstebanRay_IdenticalPositions(t *testing.T) {
	// No ideological distance means no polarization.
	if got := EstebanRay([]float64{0.4, 0.6}, []float64{5, 5}, DefaultAlpha); got != 0 {
		t.Errorf("EstebanRay = %v, want 0", got)
	}
}

func TestEstebanRay_HigherAlphaLowersEvenSplit(t *testing.T) {
	shares := []float64{0.5, 0.5}
	scores := []float64{0, 10}
	lo := EstebanRay(shares, scores, 1.0)
	hi := EstebanRay(shares, scores, 1.6)
	if hi >= lo {
		t.Errorf("alpha 1.6 gave %v, expected less than alpha 1.0 value %v", hi, lo)
	}
}
