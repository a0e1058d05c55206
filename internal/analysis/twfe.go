package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// TWFEResult is the two-way fixed effects robustness regression: the
// outcome on a post-treatment indicator with unit and year fixed effects
// absorbed by the within transformation.
type TWFEResult struct {
	Coef            float64  `json:"coef"`
	SE              float64  `json:"se"`
	TStat           float64  `json:"t_stat"`
	N               int      `json:"n"`
	NUnits          int      `json:"n_units"`
	NYears          int      `json:"n_years"`
	Controls        []string `json:"controls"`
	DroppedControls []string `json:"dropped_controls,omitempty"`
}

type twfeObs struct {
	unit int
	year int
	y    float64
	x    []float64
}

// EstimateTWFE runs the fixed effects regression with log population and
// GDP per capita as candidate controls. Controls without within-panel
// variation are absorbed by the unit effects and dropped from the design.
// Standard errors are clustered by municipality.
func EstimateTWFE(p *Panel) (*TWFEResult, error) {
	candidates := []string{"log_populacao", "pib_per_capita"}
	nvars := 1 + len(candidates)

	var obs []twfeObs
	yearIdx := make(map[int]int, len(p.Years))
	for i, y := range p.Years {
		yearIdx[y] = i
	}
	for ui, u := range p.Units {
		for _, year := range p.Years {
			yv, ok := u.Outcome[year]
			if !ok {
				continue
			}
			post := 0.0
			if u.Treated() && year >= u.Cohort {
				post = 1.0
			}
			x := make([]float64, nvars)
			x[0] = post
			if u.HasLogPop {
				x[1] = u.LogPop
			}
			if u.HasGDP {
				x[2] = u.GDP
			}
			obs = append(obs, twfeObs{unit: ui, year: yearIdx[year], y: yv, x: x})
		}
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("no observations for fixed effects regression")
	}

	nUnits := len(p.Units)
	nYears := len(p.Years)
	withinTransform(obs, nUnits, nYears, nvars)

	// Drop columns with no within variation, the post indicator included:
	// a panel where everyone is treated at once cannot identify it.
	kept, dropped := activeColumns(obs, nvars, candidates)
	if len(kept) == 0 || kept[0] != 0 {
		return nil, fmt.Errorf("post indicator has no within-panel variation")
	}

	X := mat.NewDense(len(obs), len(kept), nil)
	yv := mat.NewVecDense(len(obs), nil)
	for i, o := range obs {
		for j, col := range kept {
			X.Set(i, j, o.x[col])
		}
		yv.SetVec(i, o.y)
	}

	var beta mat.VecDense
	if err := beta.SolveVec(X, yv); err != nil {
		return nil, fmt.Errorf("fixed effects solve failed: %w", err)
	}

	se, err := clusteredSE(X, yv, &beta, obs, nUnits, nYears)
	if err != nil {
		return nil, err
	}

	res := &TWFEResult{
		Coef:   beta.AtVec(0),
		SE:     se,
		N:      len(obs),
		NUnits: nUnits,
		NYears: nYears,
	}
	if res.SE > 0 {
		res.TStat = res.Coef / res.SE
	}
	for _, col := range kept[1:] {
		res.Controls = append(res.Controls, candidates[col-1])
	}
	res.DroppedControls = dropped
	return res, nil
}

// withinTransform demeans outcome and regressors by unit and by year.
func withinTransform(obs []twfeObs, nUnits, nYears, nvars int) {
	type acc struct {
		sum []float64
		n   float64
	}
	newAcc := func(n int) []acc {
		a := make([]acc, n)
		for i := range a {
			a[i].sum = make([]float64, nvars+1)
		}
		return a
	}
	unitAcc, yearAcc := newAcc(nUnits), newAcc(nYears)
	grand := acc{sum: make([]float64, nvars+1)}

	add := func(a *acc, o *twfeObs) {
		a.sum[0] += o.y
		for j, v := range o.x {
			a.sum[j+1] += v
		}
		a.n++
	}
	for i := range obs {
		add(&unitAcc[obs[i].unit], &obs[i])
		add(&yearAcc[obs[i].year], &obs[i])
		add(&grand, &obs[i])
	}

	mean := func(a *acc, j int) float64 {
		if a.n == 0 {
			return 0
		}
		return a.sum[j] / a.n
	}
	for i := range obs {
		o := &obs[i]
		u, t := &unitAcc[o.unit], &yearAcc[o.year]
		o.y += -mean(u, 0) - mean(t, 0) + mean(&grand, 0)
		for j := range o.x {
			o.x[j] += -mean(u, j+1) - mean(t, j+1) + mean(&grand, j+1)
		}
	}
}

// activeColumns keeps design columns with non-negligible variation after
// the within transformation.
func activeColumns(obs []twfeObs, nvars int, candidates []string) (kept []int, dropped []string) {
	const tol = 1e-9
	for col := 0; col < nvars; col++ {
		var ss float64
		for i := range obs {
			v := obs[i].x[col]
			ss += v * v
		}
		if ss > tol {
			kept = append(kept, col)
		} else if col > 0 {
			dropped = append(dropped, candidates[col-1])
		}
	}
	return kept, dropped
}

// clusteredSE computes the cluster-robust standard error of the first
// coefficient, clustering on municipality.
func clusteredSE(X *mat.Dense, y *mat.VecDense, beta *mat.VecDense, obs []twfeObs, nUnits, nYears int) (float64, error) {
	n, k := X.Dims()

	var fitted mat.VecDense
	fitted.MulVec(X, beta)
	resid := make([]float64, n)
	for i := 0; i < n; i++ {
		resid[i] = y.AtVec(i) - fitted.AtVec(i)
	}

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return 0, fmt.Errorf("singular design in fixed effects regression: %w", err)
	}

	// Meat: sum over clusters of (X_c' u_c)(X_c' u_c)'.
	scores := make(map[int][]float64)
	for i, o := range obs {
		s := scores[o.unit]
		if s == nil {
			s = make([]float64, k)
			scores[o.unit] = s
		}
		for j := 0; j < k; j++ {
			s[j] += X.At(i, j) * resid[i]
		}
	}
	meat := mat.NewDense(k, k, nil)
	for _, s := range scores {
		for a := 0; a < k; a++ {
			for b := 0; b < k; b++ {
				meat.Set(a, b, meat.At(a, b)+s[a]*s[b])
			}
		}
	}

	var sandwich, tmp mat.Dense
	tmp.Mul(&xtxInv, meat)
	sandwich.Mul(&tmp, &xtxInv)

	// Small-sample correction with degrees of freedom net of the
	// absorbed fixed effects.
	g := float64(len(scores))
	df := float64(n - k - nUnits - nYears + 1)
	if g < 2 || df < 1 {
		return 0, fmt.Errorf("too few clusters or observations for standard errors")
	}
	correction := (g / (g - 1)) * (float64(n-1) / df)

	return math.Sqrt(correction * sandwich.At(0, 0)), nil
}

// PlaceboResult is the falsification check with treatment shifted one
// election earlier, estimated only on genuinely pre-treatment outcomes.
type PlaceboResult struct {
	Overall  AggregateATT `json:"overall"`
	NTreated int          `json:"n_treated"`
	NDropped int          `json:"n_dropped"`
}

// EstimatePlacebo shifts every cohort one election earlier and re-runs the
// estimator on outcomes observed before actual treatment. Units already
// treated at the first sample election cannot be shifted and are dropped.
// An effect near zero supports the parallel trends assumption.
func EstimatePlacebo(p *Panel, opts Options) (*PlaceboResult, error) {
	shifted := &Panel{Years: p.Years}
	res := &PlaceboResult{}
	for _, u := range p.Units {
		if !u.Treated() {
			shifted.Units = append(shifted.Units, u)
			continue
		}
		prev := p.BasePeriod(u.Cohort)
		if prev == 0 {
			res.NDropped++
			continue
		}
		// Keep only outcomes before real treatment.
		trimmed := &Unit{Code: u.Code, Cohort: prev, Outcome: make(map[int]float64)}
		for year, yv := range u.Outcome {
			if year < u.Cohort {
				trimmed.Outcome[year] = yv
			}
		}
		if len(trimmed.Outcome) < 2 {
			res.NDropped++
			continue
		}
		shifted.Units = append(shifted.Units, trimmed)
		res.NTreated++
	}

	did, err := EstimateDiD(shifted, opts)
	if err != nil {
		return nil, fmt.Errorf("placebo estimation: %w", err)
	}
	res.Overall = did.Overall
	return res, nil
}
