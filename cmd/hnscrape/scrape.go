// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/hnscrape/internal/fetch"
	"github.com/pdiddy/hnscrape/internal/scrape"
	"github.com/pdiddy/hnscrape/internal/sink"
	"github.com/pdiddy/hnscrape/pkg/types"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape listing pages and append one record per story",
	Long: `Scrape requests the listing pages start-page through start-page+max-pages-1
one at a time, waiting --delay between them. Each page's records are written
as soon as the page is parsed. A page that cannot be loaded after --attempts
tries is reported and skipped; the run continues with the next page.

When the run ends a YAML manifest with the configuration and totals is written
next to the CSV file.`,
	RunE: runScrape,
}

func init() {
	f := scrapeCmd.Flags()
	f.Int("start-page", types.DefaultStartPage, "first listing page to request")
	f.Int("max-pages", types.DefaultMaxPages, "number of pages to request")
	f.Duration("delay", types.DefaultPageDelay, "wait between consecutive pages")
	f.String("output-dir", types.DefaultOutputDir, "directory for CSV files and run manifests")
	f.String("output-id", "", "name for this run's outputs (default: start timestamp)")
	f.StringSlice("format", []string{string(types.FormatCSV)}, "output formats: csv, sqlite")
	f.String("db", types.DefaultDBFile, "SQLite database for the sqlite format")
	f.Int("attempts", types.DefaultAttempts, "load attempts per page")
	f.Duration("timeout", types.DefaultTimeout, "bound on one page load")
	f.String("base-url", types.DefaultBaseURL, "listing URL; the page number is sent as ?p=")

	bindFlag(keyStartPage, f.Lookup("start-page"))
	bindFlag(keyMaxPages, f.Lookup("max-pages"))
	bindFlag(keyPageDelay, f.Lookup("delay"))
	bindFlag(keyOutputDir, f.Lookup("output-dir"))
	bindFlag(keyOutputID, f.Lookup("output-id"))
	bindFlag(keyFormats, f.Lookup("format"))
	bindFlag(keyDBPath, f.Lookup("db"))
	bindFlag(keyAttempts, f.Lookup("attempts"))
	bindFlag(keyTimeout, f.Lookup("timeout"))
	bindFlag(keyBaseURL, f.Lookup("base-url"))

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := scrapeConfig(viper.GetViper(), time.Now())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The per-load bound comes from the fetch timeout on the request
	// context, so the client itself carries none.
	client := &http.Client{}

	summary, manifest, err := executeScrape(ctx, cfg, client, cmd.OutOrStdout(), logger)
	if manifest != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Manifest written to %s\n", manifest)
	}
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d page(s) failed: %v",
			summary.PagesFailed, summary.PagesAttempted(), summary.FailedPages)
	}
	return nil
}

// executeScrape runs one scrape with cfg and writes its manifest. It
// returns the manifest path whenever a manifest was written, which
// includes interrupted runs.
func executeScrape(ctx context.Context, cfg types.ScrapeConfig, client *http.Client, w io.Writer, log *zap.Logger) (types.RunSummary, string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	fetcher := fetch.NewFetcher(fetch.NewHTTPDriver(client, cfg.Fetch.UserAgent), cfg.Fetch, log)
	defer fetcher.Close()

	sinks, err := openSinks(cfg.Output)
	if err != nil {
		return types.RunSummary{}, "", err
	}

	log.Info("run started",
		zap.String("output_id", cfg.Output.ID),
		zap.Int("start_page", cfg.Run.StartPage),
		zap.Int("max_pages", cfg.Run.MaxPages))

	runner := scrape.NewRunner(fetcher, sinks, cfg.Run, w, log)
	summary, runErr := runner.Run(ctx, cfg.Output.ID)
	outputs := sinkPaths(sinks)
	if closeErr := sinks.Close(); closeErr != nil {
		runErr = errors.Join(runErr, fmt.Errorf("closing outputs: %w", closeErr))
	}
	if summary.StartedAt.IsZero() || len(outputs) == 0 {
		return summary, "", runErr
	}

	path, err := sink.WriteManifest(cfg.Output.Dir, sink.Manifest{
		Summary: summary,
		Config:  cfg,
		Outputs: outputs,
	})
	if err != nil {
		return summary, "", errors.Join(runErr, err)
	}

	log.Info("run finished",
		zap.String("output_id", cfg.Output.ID),
		zap.Int("pages_fetched", summary.PagesFetched),
		zap.Int("pages_failed", summary.PagesFailed),
		zap.Int("records", summary.Records),
		zap.Int("dropped", summary.Dropped),
		zap.Error(runErr))
	return summary, path, runErr
}

// openSinks opens every configured output in format order.
func openSinks(cfg types.OutputConfig) (sink.Multi, error) {
	var sinks sink.Multi
	for _, f := range cfg.Formats {
		switch f {
		case types.FormatCSV:
			sinks = append(sinks, sink.NewCSVSink(cfg.Dir))
		case types.FormatSQLite:
			store, err := sink.OpenStore(cfg.DBPath)
			if err != nil {
				sinks.Close()
				return nil, err
			}
			sinks = append(sinks, store)
		default:
			sinks.Close()
			return nil, fmt.Errorf("unsupported format %q", f)
		}
	}
	if len(sinks) == 0 {
		return nil, errors.New("no output format configured")
	}
	return sinks, nil
}

// sinkPaths lists the files the sinks wrote to.
func sinkPaths(sinks sink.Multi) []string {
	var paths []string
	for _, s := range sinks {
		switch v := s.(type) {
		case *sink.CSVSink:
			if p := v.Path(); p != "" {
				paths = append(paths, p)
			}
		case *sink.Store:
			paths = append(paths, v.Path())
		}
	}
	return paths
}
