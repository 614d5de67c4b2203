// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hnscrape/pkg/types"
)

func testRun(id string) types.RunInfo {
	return types.RunInfo{
		OutputID:  id,
		StartedAt: time.Date(2026, 10, 19, 14, 25, 1, 0, time.UTC),
		StartPage: 1,
		MaxPages:  2,
	}
}

func sampleRecords() []types.Record {
	return []types.Record{
		{Comments: types.Some(42), Rank: 1, Score: 118, Age: types.Some(3.0), TitleLength: 27},
		{Comments: types.Unavailable[int](), Rank: 2, Score: 0, Age: types.Unavailable[float64](), TitleLength: 9},
		{Comments: types.Some(0), Rank: 3, Score: 5, Age: types.Some(0.75), TitleLength: 40},
	}
}

// --- CSV ---

func TestCSVSink_HeaderOnceAndNA(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink(dir)
	ctx := context.Background()

	require.NoError(t, s.Begin(ctx, testRun("run-a")))
	require.NoError(t, s.Append(ctx, 1, sampleRecords()[:2]))
	require.NoError(t, s.Append(ctx, 2, nil))
	require.NoError(t, s.Append(ctx, 3, sampleRecords()[2:]))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(dir, "run-a.csv"))
	require.NoError(t, err)
	want := "comments,rank,score,age,title_length\n" +
		"42,1,118,3,27\n" +
		"NA,2,0,NA,9\n" +
		"0,3,5,0.75,40\n"
	assert.Equal(t, want, string(data))
	assert.Equal(t, filepath.Join(dir, "run-a.csv"), s.Path())
}

func TestCSVSink_ExistingOutputIsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.csv"), []byte("x\n"), 0o644))

	err := NewCSVSink(dir).Begin(context.Background(), testRun("dup"))
	assert.Error(t, err)
}

func TestCSVSink_AppendBeforeBegin(t *testing.T) {
	err := NewCSVSink(t.TempDir()).Append(context.Background(), 1, sampleRecords())
	assert.Error(t, err)
}

// --- SQLite ---

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "db", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Begin(ctx, testRun("run-b")))
	require.NoError(t, s.Append(ctx, 1, sampleRecords()[:2]))
	require.NoError(t, s.Append(ctx, 2, sampleRecords()[2:]))

	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-b", run.OutputID)

	got, err := s.Records(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 1, got[0].Page)
	assert.Equal(t, sampleRecords()[0], got[0].Record)
	assert.Equal(t, sampleRecords()[1], got[1].Record, "NULL must read back as unavailable")
	assert.Equal(t, 2, got[2].Page)
	assert.Equal(t, sampleRecords()[2], got[2].Record)
}

func TestStore_FinishAndRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Begin(ctx, testRun("first")))
	summary := types.RunSummary{
		RunInfo:      testRun("first"),
		FinishedAt:   time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC),
		PagesFetched: 1,
		PagesFailed:  1,
		Records:      30,
		Dropped:      2,
	}
	require.NoError(t, s.Finish(ctx, summary))

	s2 := &Store{db: s.db, path: s.path}
	require.NoError(t, s2.Begin(ctx, testRun("second")))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].OutputID)
	assert.Equal(t, "first", runs[1].OutputID)
	assert.Equal(t, 30, runs[1].Records)
	assert.Equal(t, 2, runs[1].Dropped)
	assert.Equal(t, 1, runs[1].PagesFailed)
	assert.True(t, runs[1].FinishedAt.Equal(summary.FinishedAt))
	assert.True(t, runs[0].FinishedAt.IsZero())

	byID, err := s.Run(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, runs[1].ID, byID.ID)
}

func TestStore_RunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = s.Run(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_DuplicateOutputID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Begin(ctx, testRun("same")))
	assert.Error(t, s.Begin(ctx, testRun("same")))
}

// --- Multi ---

type failingSink struct{ appendErr error }

func (f failingSink) Begin(context.Context, types.RunInfo) error { return nil }
func (f failingSink) Append(context.Context, int, []types.Record) error { return f.appendErr }
func (f failingSink) Close() error { return errors.New("close failed") }

func TestMulti_FansOutAndJoinsCloseErrors(t *testing.T) {
	dir := t.TempDir()
	csvSink := NewCSVSink(dir)
	boom := errors.New("disk full")
	m := Multi{csvSink, failingSink{appendErr: boom}}
	ctx := context.Background()

	require.NoError(t, m.Begin(ctx, testRun("multi")))
	assert.ErrorIs(t, m.Append(ctx, 1, sampleRecords()), boom)

	err := m.Close()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "close failed"))

	data, readErr := os.ReadFile(filepath.Join(dir, "multi.csv"))
	require.NoError(t, readErr)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))
}

func TestMulti_BeginFailureRemovesEarlierCSV(t *testing.T) {
	dir := t.TempDir()
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Begin(ctx, testRun("dup")))

	// The store now rejects "dup", after the CSV file has been created.
	rejecting := &Store{db: store.db, path: store.path}
	m := Multi{NewCSVSink(dir), rejecting}

	err := m.Begin(ctx, testRun("dup"))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "dup.csv"))
}

func TestMulti_BeginFailureDeletesEarlierRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taken.csv"), []byte("x\n"), 0o644))
	store := openTestStore(t)
	ctx := context.Background()

	m := Multi{store, NewCSVSink(dir)}
	require.Error(t, m.Begin(ctx, testRun("taken")))

	_, err := store.Run(ctx, "taken")
	assert.ErrorIs(t, err, ErrRunNotFound)
	data, err := os.ReadFile(filepath.Join(dir, "taken.csv"))
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(data), "an existing file is never removed")

	// The output id is free again.
	require.NoError(t, store.Begin(ctx, testRun("taken")))
}

// --- manifest ---

func TestManifest_WriteRead(t *testing.T) {
	dir := t.TempDir()
	cfg := types.ScrapeConfig{}
	cfg.ApplyDefaults(time.Date(2026, 10, 19, 14, 25, 1, 0, time.UTC))

	m := Manifest{
		Summary: types.RunSummary{
			RunInfo:      testRun(cfg.Output.ID),
			PagesFetched: 4,
			PagesFailed:  1,
			FailedPages:  []int{3},
			Records:      120,
		},
		Config:  cfg,
		Outputs: []string{"output/20261019-142501.csv"},
	}
	path, err := WriteManifest(dir, m)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20261019-142501.yaml"), path)

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Summary.PagesFetched)
	assert.Equal(t, []int{3}, got.Summary.FailedPages)
	assert.Equal(t, types.DefaultBaseURL, got.Config.Fetch.BaseURL)
	assert.Equal(t, types.DefaultTimeout, got.Config.Fetch.Timeout)
	assert.Equal(t, m.Outputs, got.Outputs)
}
