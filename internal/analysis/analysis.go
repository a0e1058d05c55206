package analysis

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Result is the full machine-readable analysis output. It carries no
// timestamp so reruns over identical inputs produce identical bytes.
type Result struct {
	BootstrapReps int            `json:"bootstrap_reps"`
	Seed          int64          `json:"seed"`
	NotYetTreated bool           `json:"not_yet_treated"`
	Descriptives  []YearStats    `json:"descriptives"`
	GroupMeans    []GroupMeans   `json:"group_means"`
	DiD           *DiDResult     `json:"did"`
	TWFE          *TWFEResult    `json:"twfe"`
	Placebo       *PlaceboResult `json:"placebo"`
}

// Run executes the full analysis over a loaded panel.
func Run(p *Panel, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	res := &Result{
		BootstrapReps: opts.BootstrapReps,
		Seed:          opts.Seed,
		NotYetTreated: opts.NotYetTreated,
		Descriptives:  p.Describe(),
		GroupMeans:    p.DescribeGroups(),
	}

	did, err := EstimateDiD(p, opts)
	if err != nil {
		return nil, err
	}
	res.DiD = did
	logger.Info("difference-in-differences estimated",
		"group_time_cells", len(did.GroupTime),
		"overall_att", did.Overall.ATT)

	twfe, err := EstimateTWFE(p)
	if err != nil {
		return nil, err
	}
	res.TWFE = twfe
	if len(twfe.DroppedControls) > 0 {
		logger.Warn("controls without within-panel variation dropped",
			"controls", twfe.DroppedControls)
	}

	placebo, err := EstimatePlacebo(p, opts)
	if err != nil {
		// A panel with a single estimable cohort can leave the placebo
		// without treated units; report the rest of the analysis.
		logger.Warn("placebo test skipped", "error", err)
	} else {
		res.Placebo = placebo
	}

	return res, nil
}

// WriteJSON writes the result with stable indentation.
func (r *Result) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads a previously written analysis result.
func ReadJSON(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis result: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	return &r, nil
}
