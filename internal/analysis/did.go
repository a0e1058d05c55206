package analysis

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Options controls the difference-in-differences estimation.
type Options struct {
	// NotYetTreated adds units whose cohort lies after the comparison year
	// to the control group.
	NotYetTreated bool
	// BootstrapReps is the number of cluster bootstrap replications for
	// percentile confidence intervals. Zero disables the bootstrap.
	BootstrapReps int
	// Seed makes the bootstrap deterministic.
	Seed int64
	// ConfidenceLevel for intervals, default 0.95.
	ConfidenceLevel float64
}

func (o Options) confidence() float64 {
	if o.ConfidenceLevel == 0 {
		return 0.95
	}
	return o.ConfidenceLevel
}

// GroupTimeATT is the estimated average treatment effect for cohort Group
// at election year Year, relative to the base period.
type GroupTimeATT struct {
	Group      int     `json:"group"`
	Year       int     `json:"year"`
	BasePeriod int     `json:"base_period"`
	EventTime  int     `json:"event_time"`
	ATT        float64 `json:"att"`
	SE         float64 `json:"se"`
	NTreated   int     `json:"n_treated"`
	NControl   int     `json:"n_control"`
	CILower    float64 `json:"ci_lower"`
	CIUpper    float64 `json:"ci_upper"`
}

// AggregateATT is a weighted summary over group-time effects.
type AggregateATT struct {
	ATT     float64 `json:"att"`
	SE      float64 `json:"se"`
	CILower float64 `json:"ci_lower"`
	CIUpper float64 `json:"ci_upper"`
}

// EventTimeATT is the event-study point at one event time.
type EventTimeATT struct {
	EventTime int `json:"event_time"`
	AggregateATT
	NTreated int `json:"n_treated"`
}

// CohortATT is the per-cohort average of post-treatment effects.
type CohortATT struct {
	Group int `json:"group"`
	AggregateATT
	NTreated int `json:"n_treated"`
}

// DiDResult bundles the staggered difference-in-differences estimates.
type DiDResult struct {
	GroupTime  []GroupTimeATT `json:"group_time"`
	EventStudy []EventTimeATT `json:"event_study"`
	ByCohort   []CohortATT    `json:"by_cohort"`
	Overall    AggregateATT   `json:"overall"`
}

// EstimateDiD computes group-time average treatment effects for every
// cohort and election year, then aggregates them into event-study,
// per-cohort, and overall summaries. Post-treatment comparisons use the
// last pre-treatment election as base period; pre-treatment placebo
// comparisons difference consecutive elections.
func EstimateDiD(p *Panel, opts Options) (*DiDResult, error) {
	cohorts := p.Cohorts()
	if len(cohorts) == 0 {
		return nil, fmt.Errorf("no treated cohorts in panel")
	}
	if !p.hasControls(opts) {
		return nil, fmt.Errorf("no control units available")
	}

	res := estimate(p, opts)
	if opts.BootstrapReps > 0 {
		bootstrapCIs(p, opts, res)
	}
	return res, nil
}

// hasControls reports whether any comparison group exists.
func (p *Panel) hasControls(opts Options) bool {
	for _, u := range p.Units {
		if !u.Treated() {
			return true
		}
		if opts.NotYetTreated && u.Cohort > p.Years[0] {
			return true
		}
	}
	return false
}

// estimate runs the point estimation on the given panel.
func estimate(p *Panel, opts Options) *DiDResult {
	res := &DiDResult{}
	for _, g := range p.Cohorts() {
		base := p.BasePeriod(g)
		if base == 0 {
			// Cohort treated from the first sample year has no
			// pre-period and cannot be estimated.
			continue
		}
		for _, t := range p.Years {
			ref := base
			if t < g {
				// Placebo comparison against the previous election.
				ref = p.BasePeriod(t)
				if ref == 0 {
					continue
				}
			}
			if t == ref {
				continue
			}
			att, ok := groupTimeATT(p, g, t, ref, opts)
			if !ok {
				continue
			}
			res.GroupTime = append(res.GroupTime, att)
		}
	}
	aggregate(res)
	return res
}

// groupTimeATT computes one ATT(g,t) with analytic standard error.
func groupTimeATT(p *Panel, g, t, ref int, opts Options) (GroupTimeATT, bool) {
	var treatDeltas, controlDeltas []float64
	for _, u := range p.Units {
		yt, okT := u.Outcome[t]
		yb, okB := u.Outcome[ref]
		if !okT || !okB {
			continue
		}
		delta := yt - yb
		switch {
		case u.Cohort == g:
			treatDeltas = append(treatDeltas, delta)
		case !u.Treated():
			controlDeltas = append(controlDeltas, delta)
		case opts.NotYetTreated && u.Cohort > t:
			controlDeltas = append(controlDeltas, delta)
		}
	}
	if len(treatDeltas) == 0 || len(controlDeltas) == 0 {
		return GroupTimeATT{}, false
	}

	att := stat.Mean(treatDeltas, nil) - stat.Mean(controlDeltas, nil)
	se := math.Sqrt(
		sampleVar(treatDeltas)/float64(len(treatDeltas)) +
			sampleVar(controlDeltas)/float64(len(controlDeltas)))

	return GroupTimeATT{
		Group:      g,
		Year:       t,
		BasePeriod: ref,
		EventTime:  t - g,
		ATT:        att,
		SE:         se,
		NTreated:   len(treatDeltas),
		NControl:   len(controlDeltas),
	}, true
}

func sampleVar(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.Variance(xs, nil)
}

// aggregate fills the event-study, cohort, and overall summaries from the
// group-time estimates. Weights are cohort sizes.
func aggregate(res *DiDResult) {
	byEvent := make(map[int][]GroupTimeATT)
	byCohort := make(map[int][]GroupTimeATT)
	for _, gt := range res.GroupTime {
		byEvent[gt.EventTime] = append(byEvent[gt.EventTime], gt)
		if gt.EventTime >= 0 {
			byCohort[gt.Group] = append(byCohort[gt.Group], gt)
		}
	}

	var eventTimes []int
	for e := range byEvent {
		eventTimes = append(eventTimes, e)
	}
	sort.Ints(eventTimes)
	res.EventStudy = res.EventStudy[:0]
	for _, e := range eventTimes {
		att, se := weightedATT(byEvent[e])
		res.EventStudy = append(res.EventStudy, EventTimeATT{
			EventTime:    e,
			AggregateATT: AggregateATT{ATT: att, SE: se},
			NTreated:     sumTreated(byEvent[e]),
		})
	}

	var groups []int
	for g := range byCohort {
		groups = append(groups, g)
	}
	sort.Ints(groups)
	res.ByCohort = res.ByCohort[:0]
	for _, g := range groups {
		att, se := weightedATT(byCohort[g])
		res.ByCohort = append(res.ByCohort, CohortATT{
			Group:        g,
			AggregateATT: AggregateATT{ATT: att, SE: se},
			NTreated:     maxTreated(byCohort[g]),
		})
	}

	var post []GroupTimeATT
	for _, gt := range res.GroupTime {
		if gt.EventTime >= 0 {
			post = append(post, gt)
		}
	}
	att, se := weightedATT(post)
	res.Overall = AggregateATT{ATT: att, SE: se}
}

// weightedATT averages group-time effects weighted by treated-group size.
// The SE treats components as independent, which is conservative for
// overlapping cohorts; the bootstrap interval is authoritative.
func weightedATT(gts []GroupTimeATT) (att, se float64) {
	if len(gts) == 0 {
		return 0, 0
	}
	var wsum, asum, vsum float64
	for _, gt := range gts {
		w := float64(gt.NTreated)
		wsum += w
		asum += w * gt.ATT
		vsum += w * w * gt.SE * gt.SE
	}
	return asum / wsum, math.Sqrt(vsum) / wsum
}

// sumTreated counts treated units across cells from distinct cohorts, as in
// an event-time aggregation where each cohort contributes one cell.
func sumTreated(gts []GroupTimeATT) int {
	n := 0
	for _, gt := range gts {
		n += gt.NTreated
	}
	return n
}

// maxTreated counts treated units across cells sharing one cohort, where
// the same municipalities appear at every year.
func maxTreated(gts []GroupTimeATT) int {
	n := 0
	for _, gt := range gts {
		if gt.NTreated > n {
			n = gt.NTreated
		}
	}
	return n
}

// bootstrapCIs attaches percentile confidence intervals from a cluster
// bootstrap resampling municipalities with replacement.
func bootstrapCIs(p *Panel, opts Options, res *DiDResult) {
	rng := rand.New(rand.NewSource(opts.Seed))
	alpha := 1 - opts.confidence()

	type key struct{ g, t int }
	gtDraws := make(map[key][]float64)
	eventDraws := make(map[int][]float64)
	cohortDraws := make(map[int][]float64)
	var overallDraws []float64

	for rep := 0; rep < opts.BootstrapReps; rep++ {
		sample := &Panel{Years: p.Years, Units: make([]*Unit, len(p.Units))}
		for i := range sample.Units {
			sample.Units[i] = p.Units[rng.Intn(len(p.Units))]
		}
		if !sample.hasControls(opts) || len(sample.Cohorts()) == 0 {
			continue
		}
		draw := estimate(sample, opts)
		for _, gt := range draw.GroupTime {
			k := key{gt.Group, gt.Year}
			gtDraws[k] = append(gtDraws[k], gt.ATT)
		}
		for _, e := range draw.EventStudy {
			eventDraws[e.EventTime] = append(eventDraws[e.EventTime], e.ATT)
		}
		for _, c := range draw.ByCohort {
			cohortDraws[c.Group] = append(cohortDraws[c.Group], c.ATT)
		}
		overallDraws = append(overallDraws, draw.Overall.ATT)
	}

	for i := range res.GroupTime {
		gt := &res.GroupTime[i]
		gt.CILower, gt.CIUpper = percentileCI(gtDraws[key{gt.Group, gt.Year}], alpha, gt.ATT, gt.SE)
	}
	for i := range res.EventStudy {
		e := &res.EventStudy[i]
		e.CILower, e.CIUpper = percentileCI(eventDraws[e.EventTime], alpha, e.ATT, e.SE)
	}
	for i := range res.ByCohort {
		c := &res.ByCohort[i]
		c.CILower, c.CIUpper = percentileCI(cohortDraws[c.Group], alpha, c.ATT, c.SE)
	}
	res.Overall.CILower, res.Overall.CIUpper = percentileCI(overallDraws, alpha, res.Overall.ATT, res.Overall.SE)
}

// percentileCI returns the percentile bootstrap interval, falling back to
// a normal approximation when too few replications produced the estimate.
func percentileCI(draws []float64, alpha, att, se float64) (lo, hi float64) {
	if len(draws) < 20 {
		z := 1.959963984540054
		if alpha != 0.05 {
			z = normalQuantile(1 - alpha/2)
		}
		return att - z*se, att + z*se
	}
	sorted := append([]float64(nil), draws...)
	sort.Float64s(sorted)
	lo = stat.Quantile(alpha/2, stat.Empirical, sorted, nil)
	hi = stat.Quantile(1-alpha/2, stat.Empirical, sorted, nil)
	return lo, hi
}

// normalQuantile is the standard normal quantile by bisection on erf.
func normalQuantile(q float64) float64 {
	lo, hi := -10.0, 10.0
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if 0.5*(1+math.Erf(mid/math.Sqrt2)) < q {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
