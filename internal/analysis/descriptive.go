package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// YearStats summarizes the polarization distribution for one election year.
type YearStats struct {
	Year   int     `json:"year"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	SD     float64 `json:"sd"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// GroupMeans holds treated and never-treated outcome means for one year.
type GroupMeans struct {
	Year        int     `json:"year"`
	TreatedN    int     `json:"treated_n"`
	TreatedMean float64 `json:"treated_mean"`
	ControlN    int     `json:"control_n"`
	ControlMean float64 `json:"control_mean"`
	MeanGap     float64 `json:"mean_gap"`
}

// Describe computes per-year distribution statistics of the outcome.
func (p *Panel) Describe() []YearStats {
	out := make([]YearStats, 0, len(p.Years))
	for _, year := range p.Years {
		var xs []float64
		for _, u := range p.Units {
			if y, ok := u.Outcome[year]; ok {
				xs = append(xs, y)
			}
		}
		if len(xs) == 0 {
			continue
		}
		sort.Float64s(xs)
		out = append(out, YearStats{
			Year:   year,
			N:      len(xs),
			Mean:   stat.Mean(xs, nil),
			SD:     stat.StdDev(xs, nil),
			Min:    xs[0],
			Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
			Max:    xs[len(xs)-1],
		})
	}
	return out
}

// DescribeGroups computes per-year outcome means for units that are ever
// treated in sample against never-treated units.
func (p *Panel) DescribeGroups() []GroupMeans {
	out := make([]GroupMeans, 0, len(p.Years))
	for _, year := range p.Years {
		var treated, control []float64
		for _, u := range p.Units {
			y, ok := u.Outcome[year]
			if !ok {
				continue
			}
			if u.Treated() {
				treated = append(treated, y)
			} else {
				control = append(control, y)
			}
		}
		gm := GroupMeans{Year: year, TreatedN: len(treated), ControlN: len(control)}
		if len(treated) > 0 {
			gm.TreatedMean = stat.Mean(treated, nil)
		}
		if len(control) > 0 {
			gm.ControlMean = stat.Mean(control, nil)
		}
		gm.MeanGap = gm.TreatedMean - gm.ControlMean
		out = append(out, gm)
	}
	return out
}
