package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/censolab/polarbr/internal/state"
	"github.com/censolab/polarbr/internal/testutil"
)

type fakeStage struct {
	name   string
	inputs []string
	rows   int64
	err    error
	runs   int
}

func (f *fakeStage) Name() string     { return f.name }
func (f *fakeStage) Inputs() []string { return f.inputs }
func (f *fakeStage) Run(context.Context) (int64, error) {
	f.runs++
	return f.rows, f.err
}

func testRunner(t *testing.T) *Runner {
	t.Helper()
	store := state.NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.InitSchema())
	return &Runner{Store: store, Logger: testutil.NewTestLogger(t)}
}

func TestRunner_AllStagesSucceed(t *testing.T) {
	r := testRunner(t)
	a := &fakeStage{name: "clean-tse", rows: 100}
	b := &fakeStage{name: "merge", rows: 50}

	require.NoError(t, r.Run(context.Background(), []Stage{a, b}))
	assert.Equal(t, 1, a.runs)
	assert.Equal(t, 1, b.runs)

	runs, err := r.Store.ListRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusCompleted, runs[0].Status)

	stages, err := r.Store.ListStageRuns(runs[0].ID)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, state.StageStatusCompleted, stages[0].Status)
	assert.Equal(t, int64(100), stages[0].RowsOut)
}

func TestRunner_FailureSkipsDownstream(t *testing.T) {
	r := testRunner(t)
	a := &fakeStage{name: "clean-tse", err: errors.New("bad file")}
	b := &fakeStage{name: "merge"}

	err := r.Run(context.Background(), []Stage{a, b})
	require.Error(t, err)
	assert.ErrorContains(t, err, "clean-tse")
	assert.Equal(t, 0, b.runs)

	runs, err := r.Store.ListRuns(1)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusFailed, runs[0].Status)

	stages, err := r.Store.ListStageRuns(runs[0].ID)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, state.StageStatusFailed, stages[0].Status)
	assert.Equal(t, state.StageStatusSkipped, stages[1].Status)
	assert.Equal(t, "upstream stage failed", stages[1].Error)
}

func TestRunner_SkipsUnchangedInputs(t *testing.T) {
	r := testRunner(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	require.NoError(t, os.WriteFile(input, []byte("a,b\n1,2\n"), 0o644))

	s := &fakeStage{name: "clean-tse", inputs: []string{input}, rows: 10}
	require.NoError(t, r.Run(context.Background(), []Stage{s}))
	assert.Equal(t, 1, s.runs)

	// Same input content: skipped.
	require.NoError(t, r.Run(context.Background(), []Stage{s}))
	assert.Equal(t, 1, s.runs)

	// Changed input: runs again.
	require.NoError(t, os.WriteFile(input, []byte("a,b\n3,4\n"), 0o644))
	require.NoError(t, r.Run(context.Background(), []Stage{s}))
	assert.Equal(t, 2, s.runs)
}

func TestRunner_ForceRunsUnchangedStage(t *testing.T) {
	r := testRunner(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	require.NoError(t, os.WriteFile(input, []byte("a,b\n1,2\n"), 0o644))

	s := &fakeStage{name: "clean-tse", inputs: []string{input}}
	require.NoError(t, r.Run(context.Background(), []Stage{s}))

	r.Force = true
	require.NoError(t, r.Run(context.Background(), []Stage{s}))
	assert.Equal(t, 2, s.runs)
}

func TestRunner_FailedStageRerunsNextTime(t *testing.T) {
	r := testRunner(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	require.NoError(t, os.WriteFile(input, []byte("a,b\n1,2\n"), 0o644))

	s := &fakeStage{name: "merge", inputs: []string{input}, err: errors.New("boom")}
	require.Error(t, r.Run(context.Background(), []Stage{s}))

	// Failure does not update the success hash, so the stage retries.
	s.err = nil
	require.NoError(t, r.Run(context.Background(), []Stage{s}))
	assert.Equal(t, 2, s.runs)
}

func TestHashInputs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(a, []byte("one"), 0o644))

	h1, err := HashInputs([]string{a})
	require.NoError(t, err)
	require.NotEmpty(t, h1)

	// Deterministic.
	h2, err := HashInputs([]string{a})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// Content-sensitive.
	require.NoError(t, os.WriteFile(a, []byte("two"), 0o644))
	h3, err := HashInputs([]string{a})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	// A missing file hashes differently from a present one.
	missing := filepath.Join(dir, "missing.csv")
	h4, err := HashInputs([]string{a, missing})
	require.NoError(t, err)
	assert.NotEqual(t, h3, h4)

	// Order-insensitive.
	h5, err := HashInputs([]string{missing, a})
	require.NoError(t, err)
	assert.Equal(t, h4, h5)

	// No inputs: empty hash disables skipping.
	h6, err := HashInputs(nil)
	require.NoError(t, err)
	assert.Empty(t, h6)
}
