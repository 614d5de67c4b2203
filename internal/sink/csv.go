// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/hnscrape/pkg/types"
)

// CSVSink appends records to <dir>/<output-id>.csv.
type CSVSink struct {
	dir  string
	path string
	file *os.File
}

// NewCSVSink returns a sink writing into dir. The file is created by Begin.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// Path returns the CSV file path, or "" before Begin.
func (s *CSVSink) Path() string {
	return s.path
}

// Begin creates the file and writes the header row. An existing file with
// the same output ID is an error.
func (s *CSVSink) Begin(_ context.Context, run types.RunInfo) error {
	if s.file != nil {
		return errors.New("csv sink already started")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", s.dir, err)
	}

	s.path = filepath.Join(s.dir, run.OutputID+".csv")
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}
	s.file = f

	return s.write([][]string{types.Columns})
}

// Append encodes the page's rows in memory and writes them in one call.
func (s *CSVSink) Append(_ context.Context, _ int, records []types.Record) error {
	if s.file == nil {
		return errors.New("csv sink not started")
	}
	if len(records) == 0 {
		return nil
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	return s.write(rows)
}

func (s *CSVSink) write(rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encoding csv: %w", err)
	}
	if _, err := s.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

// Abort closes and removes the file created by Begin.
func (s *CSVSink) Abort(_ context.Context) error {
	if s.file == nil {
		return nil
	}
	closeErr := s.file.Close()
	s.file = nil
	if err := os.Remove(s.path); err != nil {
		return fmt.Errorf("removing %s: %w", s.path, err)
	}
	return closeErr
}

// Close syncs and closes the file.
func (s *CSVSink) Close() error {
	if s.file == nil {
		return nil
	}
	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	s.file = nil
	if syncErr != nil {
		return fmt.Errorf("syncing %s: %w", s.path, syncErr)
	}
	return closeErr
}
