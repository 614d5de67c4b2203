// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/hnscrape/pkg/types"
)

const landmarkPage = `<html><body><table id="hnmain"><tr><td>ok</td></tr></table></body></html>`

// fakeDriver returns scripted results per call.
type fakeDriver struct {
	results []error
	calls   int
	urls    []string
	closed  bool
}

func (d *fakeDriver) Render(_ context.Context, url, _ string, _ time.Duration) (string, error) {
	d.urls = append(d.urls, url)
	i := d.calls
	d.calls++
	if i < len(d.results) && d.results[i] != nil {
		return "", d.results[i]
	}
	return landmarkPage, nil
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

func testConfig() types.FetchConfig {
	return types.FetchConfig{
		BaseURL:  "https://news.example.com/news",
		Landmark: "#hnmain",
		Attempts: 3,
	}
}

func TestPageURL(t *testing.T) {
	got, err := PageURL("https://news.ycombinator.com/news", 3)
	require.NoError(t, err)
	assert.Equal(t, "https://news.ycombinator.com/news?p=3", got)

	got, err = PageURL("https://example.com/list?sort=new", 2)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/list?p=2&sort=new", got)
}

func TestFetch_FirstAttemptSucceeds(t *testing.T) {
	d := &fakeDriver{}
	f := NewFetcher(d, testConfig(), nil)

	html, err := f.Fetch(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, landmarkPage, html)
	assert.Equal(t, 1, d.calls)
	assert.Equal(t, []string{"https://news.example.com/news?p=2"}, d.urls)
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	d := &fakeDriver{results: []error{errors.New("timeout"), errors.New("navigation error")}}
	core, logs := observer.New(zap.WarnLevel)
	f := NewFetcher(d, testConfig(), zap.New(core))

	_, err := f.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, d.calls)

	entries := logs.FilterMessage("error connecting").All()
	require.Len(t, entries, 2)
	assert.EqualValues(t, 1, entries[0].ContextMap()["attempt"])
	assert.EqualValues(t, 2, entries[1].ContextMap()["attempt"])
}

func TestFetch_ExhaustsThreeAttempts(t *testing.T) {
	fail := errors.New("timeout")
	d := &fakeDriver{results: []error{fail, fail, fail, nil}}
	f := NewFetcher(d, testConfig(), nil)

	html, err := f.Fetch(context.Background(), 1)
	require.Error(t, err)
	assert.Empty(t, html)
	assert.ErrorIs(t, err, ErrFetchExhausted)
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, 3, d.calls)
}

func TestFetch_DefaultAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.Attempts = 0
	fail := errors.New("down")
	d := &fakeDriver{results: []error{fail, fail, fail, fail, fail}}

	_, err := NewFetcher(d, cfg, nil).Fetch(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, types.DefaultAttempts, d.calls)
}

func TestFetch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := testConfig()
	cfg.RenderWait = time.Hour

	_, err := NewFetcher(&fakeDriver{}, cfg, nil).Fetch(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcher_CloseReleasesDriver(t *testing.T) {
	d := &fakeDriver{}
	f := NewFetcher(d, testConfig(), nil)
	require.NoError(t, f.Close())
	assert.True(t, d.closed)
}

func TestHTTPDriver_Render(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hnscrape-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, landmarkPage)
	}))
	defer ts.Close()

	d := NewHTTPDriver(ts.Client(), "hnscrape-test")
	defer d.Close()

	html, err := d.Render(context.Background(), ts.URL, "#hnmain", time.Second)
	require.NoError(t, err)
	assert.Equal(t, landmarkPage, html)
}

func TestHTTPDriver_LandmarkMissing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>Sorry, we're not able to serve your requests this quickly.</body></html>`)
	}))
	defer ts.Close()

	_, err := NewHTTPDriver(ts.Client(), "").Render(context.Background(), ts.URL, "#hnmain", time.Second)
	assert.ErrorIs(t, err, ErrLandmarkMissing)
}

func TestHTTPDriver_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		fmt.Fprint(w, landmarkPage)
	}))
	defer ts.Close()

	_, err := NewHTTPDriver(ts.Client(), "").Render(context.Background(), ts.URL, "#hnmain", 20*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetch_HTTPServerFailsEveryAttempt(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.BaseURL = ts.URL + "/news"
	f := NewFetcher(NewHTTPDriver(ts.Client(), ""), cfg, nil)
	defer f.Close()

	_, err := f.Fetch(context.Background(), 1)
	assert.ErrorIs(t, err, ErrFetchExhausted)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
