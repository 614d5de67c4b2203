// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scrape runs the page loop: fetch, extract, append, wait.
// Pages are processed strictly one after another. A page that cannot be
// fetched or parsed is reported and skipped; a sink error ends the run.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/hnscrape/internal/extract"
	"github.com/pdiddy/hnscrape/internal/httputil"
	"github.com/pdiddy/hnscrape/internal/sink"
	"github.com/pdiddy/hnscrape/pkg/types"
)

// PageFetcher returns the rendered document of a listing page.
type PageFetcher interface {
	Fetch(ctx context.Context, page int) (string, error)
}

// Runner drives one scrape run.
type Runner struct {
	fetcher PageFetcher
	sink    sink.Sink
	cfg     types.RunConfig
	w       io.Writer
	log     *zap.Logger

	// now is replaced in tests.
	now func() time.Time
}

// NewRunner returns a Runner. Progress lines go to w; a nil logger
// discards structured logs.
func NewRunner(fetcher PageFetcher, s sink.Sink, cfg types.RunConfig, w io.Writer, log *zap.Logger) *Runner {
	if w == nil {
		w = io.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{fetcher: fetcher, sink: s, cfg: cfg, w: w, log: log, now: time.Now}
}

// Run processes pages StartPage through StartPage+MaxPages-1 and returns
// the run summary. The returned error is non-nil only for sink failures
// and cancellation. The summary is zero when the sink could not be
// started and describes the pages processed so far otherwise.
func (r *Runner) Run(ctx context.Context, outputID string) (types.RunSummary, error) {
	summary := types.RunSummary{
		RunInfo: types.RunInfo{
			OutputID:  outputID,
			StartedAt: r.now(),
			StartPage: r.cfg.StartPage,
			MaxPages:  r.cfg.MaxPages,
		},
	}

	if err := r.sink.Begin(ctx, summary.RunInfo); err != nil {
		return types.RunSummary{}, fmt.Errorf("starting output: %w", err)
	}

	for i := 0; i < r.cfg.MaxPages; i++ {
		page := r.cfg.StartPage + i
		if i > 0 {
			if err := httputil.Sleep(ctx, r.cfg.PageDelay); err != nil {
				return r.interrupted(ctx, summary, err)
			}
		}

		fmt.Fprintf(r.w, "Analyzing page #%d...\n", page)
		res, err := r.scrapePage(ctx, page)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.interrupted(ctx, summary, ctxErr)
			}
			fmt.Fprintf(r.w, "failed:  page %d (%v)\n", page, err)
			r.log.Error("page skipped", zap.Int("page", page), zap.Error(err))
			summary.PagesFailed++
			summary.FailedPages = append(summary.FailedPages, page)
			continue
		}

		for _, d := range res.Dropped {
			r.log.Warn("item dropped",
				zap.Int("page", page), zap.String("item_id", d.ItemID), zap.String("reason", d.Reason))
		}

		if err := r.sink.Append(ctx, page, res.Records); err != nil {
			return r.finish(summary), fmt.Errorf("writing page %d: %w", page, err)
		}

		summary.PagesFetched++
		summary.Records += len(res.Records)
		summary.Dropped += len(res.Dropped)
		r.log.Info("page written",
			zap.Int("page", page), zap.Int("records", len(res.Records)), zap.Int("dropped", len(res.Dropped)))
	}

	summary = r.finish(summary)
	if err := r.record(ctx, summary); err != nil {
		return summary, err
	}

	fmt.Fprintf(r.w, "\nRun summary: %d pages fetched, %d failed, %d records, %d items dropped\n",
		summary.PagesFetched, summary.PagesFailed, summary.Records, summary.Dropped)
	return summary, nil
}

func (r *Runner) scrapePage(ctx context.Context, page int) (types.PageResult, error) {
	html, err := r.fetcher.Fetch(ctx, page)
	if err != nil {
		return types.PageResult{Page: page}, err
	}
	return extract.ExtractHTML(strings.NewReader(html), page)
}

// interrupted records the totals of a cancelled run. The sink is updated
// on a context that outlives the cancellation.
func (r *Runner) interrupted(ctx context.Context, s types.RunSummary, cause error) (types.RunSummary, error) {
	s = r.finish(s)
	r.log.Warn("run interrupted",
		zap.Int("pages_fetched", s.PagesFetched), zap.Int("records", s.Records), zap.Error(cause))
	if err := r.record(context.WithoutCancel(ctx), s); err != nil {
		return s, errors.Join(cause, err)
	}
	return s, cause
}

// record passes the totals to sinks that keep them.
func (r *Runner) record(ctx context.Context, s types.RunSummary) error {
	f, ok := r.sink.(sink.Finisher)
	if !ok {
		return nil
	}
	if err := f.Finish(ctx, s); err != nil {
		return fmt.Errorf("recording run totals: %w", err)
	}
	return nil
}

func (r *Runner) finish(s types.RunSummary) types.RunSummary {
	s.FinishedAt = r.now()
	return s
}
