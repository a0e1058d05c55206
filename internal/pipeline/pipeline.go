// Package pipeline runs the replication stages in order, recording every
// execution in the state store and skipping stages whose inputs are
// unchanged since their last successful run.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/censolab/polarbr/internal/state"
)

// Stage is one unit of pipeline work.
type Stage interface {
	// Name identifies the stage in state records and logs.
	Name() string
	// Inputs lists the files whose content determines whether the stage
	// needs to run again.
	Inputs() []string
	// Run executes the stage and reports how many rows it produced.
	Run(ctx context.Context) (rowsOut int64, err error)
}

// Runner executes stages sequentially.
type Runner struct {
	Store  *state.SQLiteStore
	Logger *slog.Logger
	// Force runs every stage even when its inputs are unchanged.
	Force bool
}

// Run executes the given stages in order. A stage failure marks all
// later stages skipped and fails the run; the first error is returned.
func (r *Runner) Run(ctx context.Context, stages []Stage) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	run, err := r.Store.CreateRun()
	if err != nil {
		return err
	}

	var firstErr error
	for _, stage := range stages {
		if firstErr != nil {
			if err := r.Store.RecordSkippedStage(run.ID, stage.Name(), "", "upstream stage failed"); err != nil {
				logger.Error("failed to record skipped stage", "stage", stage.Name(), "error", err)
			}
			logger.Warn("stage skipped", "stage", stage.Name(), "reason", "upstream stage failed")
			continue
		}
		if err := ctx.Err(); err != nil {
			firstErr = err
			continue
		}

		hash, err := HashInputs(stage.Inputs())
		if err != nil {
			logger.Warn("failed to hash stage inputs", "stage", stage.Name(), "error", err)
		}

		if !r.Force && hash != "" {
			last, err := r.Store.LastSuccessfulHash(stage.Name())
			if err != nil {
				logger.Warn("failed to read last stage hash", "stage", stage.Name(), "error", err)
			} else if last == hash {
				if err := r.Store.RecordSkippedStage(run.ID, stage.Name(), hash, "input unchanged"); err != nil {
					logger.Error("failed to record skipped stage", "stage", stage.Name(), "error", err)
				}
				logger.Info("stage skipped", "stage", stage.Name(), "reason", "input unchanged")
				continue
			}
		}

		sr, err := r.Store.StartStage(run.ID, stage.Name(), hash)
		if err != nil {
			firstErr = err
			continue
		}

		logger.Info("stage started", "stage", stage.Name())
		start := time.Now()
		rowsOut, runErr := stage.Run(ctx)
		elapsed := time.Since(start).Milliseconds()

		if runErr != nil {
			if err := r.Store.FinishStage(sr.ID, state.StageStatusFailed, rowsOut, elapsed, runErr.Error()); err != nil {
				logger.Error("failed to record stage failure", "stage", stage.Name(), "error", err)
			}
			logger.Error("stage failed", "stage", stage.Name(), "error", runErr)
			firstErr = fmt.Errorf("stage %s: %w", stage.Name(), runErr)
			continue
		}

		if err := r.Store.FinishStage(sr.ID, state.StageStatusCompleted, rowsOut, elapsed, ""); err != nil {
			logger.Error("failed to record stage completion", "stage", stage.Name(), "error", err)
		}
		logger.Info("stage completed", "stage", stage.Name(), "rows", rowsOut, "duration_ms", elapsed)
	}

	status := state.RunStatusCompleted
	errMsg := ""
	if firstErr != nil {
		status = state.RunStatusFailed
		errMsg = firstErr.Error()
	}
	if err := r.Store.CompleteRun(run.ID, status, errMsg); err != nil {
		logger.Error("failed to complete run record", "run", run.ID, "error", err)
	}
	return firstErr
}

// HashInputs computes a content hash over the given files. Order does not
// matter; missing files are hashed by name so their appearance later
// changes the hash.
func HashInputs(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", nil
	}
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	h := sha256.New()
	var firstErr error
	for _, path := range sorted {
		fmt.Fprintf(h, "%s\x00", path)
		f, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) && firstErr == nil {
				firstErr = err
			}
			io.WriteString(h, "absent\x00")
			continue
		}
		if _, err := io.Copy(h, f); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to hash %s: %w", path, err)
		}
		_ = f.Close()
		io.WriteString(h, "\x00")
	}
	return hex.EncodeToString(h.Sum(nil)), firstErr
}
