// Package analysis estimates the effect of 4G rollout on electoral
// polarization from the merged municipality-year panel: descriptive
// statistics, staggered difference-in-differences, and robustness checks.
package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Unit is one municipality's trajectory through the panel.
type Unit struct {
	Code    string
	Cohort  int // first election year treated; 0 = never treated in sample
	Outcome map[int]float64

	LogPop    float64
	HasLogPop bool
	GDP       float64
	HasGDP    bool
}

// Treated reports whether the unit enters treatment within the sample.
func (u *Unit) Treated() bool { return u.Cohort != 0 }

// Panel is the loaded final dataset, indexed for estimation.
type Panel struct {
	Years []int // sorted distinct election years
	Units []*Unit
}

// LoadPanel reads final_dataset.csv into a Panel.
func LoadPanel(path string) (*Panel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open panel: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read panel header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range []string{"cod_municipio", "ano", "polarizacao_er", "cohort"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("panel %s: missing column %q", path, col)
		}
	}

	units := make(map[string]*Unit)
	yearSet := make(map[int]bool)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("panel line %d: %w", line, err)
		}

		code := strings.TrimSpace(rec[idx["cod_municipio"]])
		year, err := strconv.Atoi(strings.TrimSpace(rec[idx["ano"]]))
		if err != nil {
			return nil, fmt.Errorf("panel line %d: bad year %q", line, rec[idx["ano"]])
		}
		outcome, err := strconv.ParseFloat(strings.TrimSpace(rec[idx["polarizacao_er"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("panel line %d: bad polarizacao_er %q", line, rec[idx["polarizacao_er"]])
		}

		u := units[code]
		if u == nil {
			u = &Unit{Code: code, Outcome: make(map[int]float64)}
			units[code] = u
		}
		if _, dup := u.Outcome[year]; dup {
			return nil, fmt.Errorf("panel line %d: duplicate observation %s/%d", line, code, year)
		}
		u.Outcome[year] = outcome
		yearSet[year] = true

		if cohort, ok := optionalInt(rec, idx, "cohort"); ok {
			u.Cohort = cohort
		}
		if v, ok := optionalFloat(rec, idx, "log_populacao"); ok {
			u.LogPop, u.HasLogPop = v, true
		}
		if v, ok := optionalFloat(rec, idx, "pib_per_capita"); ok {
			u.GDP, u.HasGDP = v, true
		}
	}

	p := &Panel{}
	for y := range yearSet {
		p.Years = append(p.Years, y)
	}
	sort.Ints(p.Years)
	for _, u := range units {
		p.Units = append(p.Units, u)
	}
	sort.Slice(p.Units, func(i, j int) bool { return p.Units[i].Code < p.Units[j].Code })

	if len(p.Years) < 2 {
		return nil, fmt.Errorf("panel %s: need at least two election years, got %d", path, len(p.Years))
	}
	return p, nil
}

func optionalInt(rec []string, idx map[string]int, col string) (int, bool) {
	i, ok := idx[col]
	if !ok {
		return 0, false
	}
	s := strings.TrimSpace(rec[i])
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func optionalFloat(rec []string, idx map[string]int, col string) (float64, bool) {
	i, ok := idx[col]
	if !ok {
		return 0, false
	}
	s := strings.TrimSpace(rec[i])
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Cohorts returns the distinct treatment cohorts present, sorted.
func (p *Panel) Cohorts() []int {
	set := make(map[int]bool)
	for _, u := range p.Units {
		if u.Treated() {
			set[u.Cohort] = true
		}
	}
	var cohorts []int
	for g := range set {
		cohorts = append(cohorts, g)
	}
	sort.Ints(cohorts)
	return cohorts
}

// BasePeriod returns the last election year strictly before g, or 0 when g
// is the first sample year.
func (p *Panel) BasePeriod(g int) int {
	base := 0
	for _, y := range p.Years {
		if y < g {
			base = y
		}
	}
	return base
}
