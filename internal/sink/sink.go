// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sink persists extracted records. Every sink is append-only:
// Begin writes the header or schema once, and Append writes one page's
// batch as a unit.
package sink

import (
	"context"
	"errors"

	"github.com/pdiddy/hnscrape/pkg/types"
)

// Sink receives the record batches of one run.
type Sink interface {
	// Begin prepares the sink for run. It is called once before any Append.
	Begin(ctx context.Context, run types.RunInfo) error

	// Append writes one page's records. Either all of them are written or
	// an error is returned.
	Append(ctx context.Context, page int, records []types.Record) error

	// Close flushes and releases the sink.
	Close() error
}

// Finisher is implemented by sinks that record the run's totals.
type Finisher interface {
	Finish(ctx context.Context, summary types.RunSummary) error
}

// Aborter is implemented by sinks that can undo a successful Begin, such
// as removing a file that holds only a header.
type Aborter interface {
	Abort(ctx context.Context) error
}

// Multi fans every call out to several sinks in order.
type Multi []Sink

// Begin calls Begin on each sink. When one fails, the sinks already begun
// are aborted so a rejected run leaves no outputs behind.
func (m Multi) Begin(ctx context.Context, run types.RunInfo) error {
	for i, s := range m {
		if err := s.Begin(ctx, run); err != nil {
			return errors.Join(err, m[:i].abort(ctx))
		}
	}
	return nil
}

func (m Multi) abort(ctx context.Context) error {
	var errs []error
	for i := len(m) - 1; i >= 0; i-- {
		if a, ok := m[i].(Aborter); ok {
			if err := a.Abort(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Append calls Append on each sink, stopping at the first error.
func (m Multi) Append(ctx context.Context, page int, records []types.Record) error {
	for _, s := range m {
		if err := s.Append(ctx, page, records); err != nil {
			return err
		}
	}
	return nil
}

// Finish calls Finish on each sink that implements Finisher.
func (m Multi) Finish(ctx context.Context, summary types.RunSummary) error {
	for _, s := range m {
		if f, ok := s.(Finisher); ok {
			if err := f.Finish(ctx, summary); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
