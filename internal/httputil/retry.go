// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxBodyBytes caps how much of a response body Get reads.
const MaxBodyBytes = 8 << 20

// ErrBodyTooLarge is returned when a response body exceeds MaxBodyBytes.
// A truncated page is never returned.
var ErrBodyTooLarge = errors.New("response body too large")

// AttemptFunc performs one attempt. attempt counts from 1.
type AttemptFunc func(ctx context.Context, attempt int) error

// Attempts calls fn up to n times until it succeeds, pausing a fixed
// duration between failed attempts. There is no backoff: every pause is
// the same length. onFailure, when non-nil, is told about each failed
// attempt. The last error is returned when all attempts fail. If the
// context is cancelled during a pause the function returns ctx.Err().
func Attempts(ctx context.Context, n int, pause time.Duration, fn AttemptFunc, onFailure func(attempt int, err error)) error {
	if n <= 0 {
		n = 1
	}

	var lastErr error
	for attempt := 1; attempt <= n; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if onFailure != nil {
			onFailure(attempt, err)
		}
		if attempt == n || pause <= 0 {
			continue
		}
		if err := Sleep(ctx, pause); err != nil {
			return err
		}
	}
	return lastErr
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Get fetches url with the given User-Agent and returns the body. Any
// status other than 200 is a *StatusError; a body over MaxBodyBytes is
// ErrBodyTooLarge.
func Get(ctx context.Context, client *http.Client, url, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, url, MaxBodyBytes)
	}
	return body, nil
}
