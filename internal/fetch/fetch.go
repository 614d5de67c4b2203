// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch loads listing pages through a Driver with a bounded
// number of attempts.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pdiddy/hnscrape/internal/httputil"
	"github.com/pdiddy/hnscrape/pkg/types"
)

var (
	// ErrLandmarkMissing is returned when a loaded page lacks the landmark
	// element, meaning it did not render fully.
	ErrLandmarkMissing = errors.New("landmark element not present")

	// ErrFetchExhausted is returned when every attempt to load a page failed.
	ErrFetchExhausted = errors.New("all fetch attempts failed")
)

// Driver renders a URL and returns the document once landmark is present.
// Implementations own a session that Close releases.
type Driver interface {
	Render(ctx context.Context, url, landmark string, timeout time.Duration) (string, error)
	Close() error
}

// HTTPDriver renders server-side pages with a plain HTTP GET. A page counts
// as rendered when its parsed document contains the landmark.
type HTTPDriver struct {
	client    *http.Client
	userAgent string
}

// NewHTTPDriver returns a driver using client. A nil client uses a new
// http.Client.
func NewHTTPDriver(client *http.Client, userAgent string) *HTTPDriver {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPDriver{client: client, userAgent: userAgent}
}

// Render fetches url and verifies landmark within timeout.
func (d *HTTPDriver) Render(ctx context.Context, url, landmark string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := httputil.Get(ctx, d.client, url, d.userAgent)
	if err != nil {
		return "", err
	}

	if landmark != "" {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("parsing html: %w", err)
		}
		if doc.Find(landmark).Length() == 0 {
			return "", fmt.Errorf("%w: %s", ErrLandmarkMissing, landmark)
		}
	}
	return string(body), nil
}

// Close releases idle connections.
func (d *HTTPDriver) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

// Fetcher loads numbered listing pages. It holds the driver session for
// the duration of a run.
type Fetcher struct {
	driver Driver
	cfg    types.FetchConfig
	log    *zap.Logger
}

// NewFetcher returns a Fetcher over driver. A nil logger discards logs.
func NewFetcher(driver Driver, cfg types.FetchConfig, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = types.DefaultAttempts
	}
	return &Fetcher{driver: driver, cfg: cfg, log: log}
}

// PageURL returns the listing URL for page.
func PageURL(baseURL string, page int) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL %q: %w", baseURL, err)
	}
	q := u.Query()
	q.Set("p", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch loads page, making up to cfg.Attempts attempts. On success it
// waits cfg.RenderWait before returning the document. When every attempt
// fails the error wraps ErrFetchExhausted and the last attempt's error.
func (f *Fetcher) Fetch(ctx context.Context, page int) (string, error) {
	pageURL, err := PageURL(f.cfg.BaseURL, page)
	if err != nil {
		return "", err
	}

	var html string
	err = httputil.Attempts(ctx, f.cfg.Attempts, f.cfg.AttemptPause,
		func(ctx context.Context, _ int) error {
			doc, err := f.driver.Render(ctx, pageURL, f.cfg.Landmark, f.cfg.Timeout)
			if err != nil {
				return err
			}
			html = doc
			return nil
		},
		func(attempt int, err error) {
			f.log.Warn("error connecting",
				zap.String("url", pageURL),
				zap.Int("page", page),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", f.cfg.Attempts),
				zap.Error(err))
		})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %s after %d attempts: %w", ErrFetchExhausted, pageURL, f.cfg.Attempts, err)
	}

	if err := httputil.Sleep(ctx, f.cfg.RenderWait); err != nil {
		return "", err
	}
	return html, nil
}

// Close releases the driver session.
func (f *Fetcher) Close() error {
	return f.driver.Close()
}
