// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/hnscrape/pkg/types"
)

// ErrRunNotFound is returned when a run lookup matches nothing.
var ErrRunNotFound = errors.New("run not found")

// Store keeps runs and their records in a SQLite database. It serves as a
// Sink during a scrape and as the query side of export.
type Store struct {
	db    *sql.DB
	path  string
	runID int64
}

// StoredRun is a run row with its database ID.
type StoredRun struct {
	ID int64 `json:"id" yaml:"id"`
	types.RunSummary `yaml:",inline"`
}

// StoredRecord is a record with the page it came from.
type StoredRecord struct {
	Page int `json:"page" yaml:"page"`
	types.Record `yaml:",inline"`
}

// OpenStore opens or creates the database at path and ensures the schema.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			output_id TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			start_page INTEGER NOT NULL,
			max_pages INTEGER NOT NULL,
			pages_fetched INTEGER NOT NULL DEFAULT 0,
			pages_failed INTEGER NOT NULL DEFAULT 0,
			records INTEGER NOT NULL DEFAULT 0,
			dropped INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			page INTEGER NOT NULL,
			position INTEGER NOT NULL,
			comments INTEGER,
			rank INTEGER NOT NULL,
			score INTEGER NOT NULL,
			age REAL,
			title_length INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id, page, position)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Begin inserts the run row.
func (s *Store) Begin(ctx context.Context, run types.RunInfo) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (output_id, started_at, start_page, max_pages) VALUES (?, ?, ?, ?)`,
		run.OutputID, run.StartedAt.UTC().Format(time.RFC3339), run.StartPage, run.MaxPages)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.OutputID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading run id: %w", err)
	}
	s.runID = id
	return nil
}

// Abort deletes the run row inserted by Begin.
func (s *Store) Abort(ctx context.Context) error {
	if s.runID == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, s.runID); err != nil {
		return fmt.Errorf("deleting run %d: %w", s.runID, err)
	}
	s.runID = 0
	return nil
}

// Append inserts the page's records in a single transaction.
func (s *Store) Append(ctx context.Context, page int, records []types.Record) error {
	if s.runID == 0 {
		return errors.New("sqlite sink not started")
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, page, position, comments, rank, score, age, title_length)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, s.runID, page, i+1, r.Comments, r.Rank, r.Score, r.Age, r.TitleLength); err != nil {
			return fmt.Errorf("inserting record %d of page %d: %w", i+1, page, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing page %d: %w", page, err)
	}
	return nil
}

// Finish stores the run's totals.
func (s *Store) Finish(ctx context.Context, summary types.RunSummary) error {
	if s.runID == 0 {
		return errors.New("sqlite sink not started")
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, pages_fetched = ?, pages_failed = ?, records = ?, dropped = ?
		WHERE id = ?`,
		summary.FinishedAt.UTC().Format(time.RFC3339),
		summary.PagesFetched, summary.PagesFailed, summary.Records, summary.Dropped, s.runID)
	if err != nil {
		return fmt.Errorf("updating run totals: %w", err)
	}
	return nil
}

const runColumns = `id, output_id, started_at, finished_at, start_page, max_pages,
	pages_fetched, pages_failed, records, dropped`

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]StoredRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []StoredRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recent run.
func (s *Store) LatestRun(ctx context.Context) (StoredRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT 1`)
	return scanRunRow(row)
}

// Run returns the run with the given output ID.
func (s *Store) Run(ctx context.Context, outputID string) (StoredRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE output_id = ?`, outputID)
	return scanRunRow(row)
}

// Records returns a run's records ordered by page and position.
func (s *Store) Records(ctx context.Context, runID int64) ([]StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT page, comments, rank, score, age, title_length
		FROM records WHERE run_id = ? ORDER BY page, position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		var (
			rec      StoredRecord
			comments sql.NullInt64
			age      sql.NullFloat64
		)
		if err := rows.Scan(&rec.Page, &comments, &rec.Rank, &rec.Score, &age, &rec.TitleLength); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if comments.Valid {
			rec.Comments = types.Some(int(comments.Int64))
		}
		if age.Valid {
			rec.Age = types.Some(age.Float64)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunRow(row *sql.Row) (StoredRun, error) {
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredRun{}, ErrRunNotFound
	}
	return r, err
}

func scanRun(sc scanner) (StoredRun, error) {
	var (
		r        StoredRun
		started  string
		finished sql.NullString
	)
	err := sc.Scan(&r.ID, &r.OutputID, &started, &finished, &r.StartPage, &r.MaxPages,
		&r.PagesFetched, &r.PagesFailed, &r.Records, &r.Dropped)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning run: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, started); err == nil {
		r.StartedAt = t
	}
	if finished.Valid {
		if t, err := time.Parse(time.RFC3339, finished.String); err == nil {
			r.FinishedAt = t
		}
	}
	return r, nil
}
