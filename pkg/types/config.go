// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Defaults for a scrape run. The attempt cap, landmark, and settle wait
// match the behavior the analysis datasets were collected with.
const (
	DefaultBaseURL     = "https://news.ycombinator.com/news"
	DefaultLandmark    = "#hnmain"
	DefaultAttempts    = 3
	DefaultTimeout     = 5 * time.Second
	DefaultRenderWait  = 2 * time.Second
	DefaultPageDelay   = 2 * time.Second
	DefaultUserAgent   = "hnscrape/0.1"
	DefaultStartPage   = 1
	DefaultMaxPages    = 5
	DefaultOutputDir   = "output"
	DefaultDBFile      = "hnscrape.db"
	OutputIDTimeFormat = "20060102-150405"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds one page load, including the wait for the landmark.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the page fetcher.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the listing URL; the page number is added as the p query parameter.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Landmark is the CSS selector whose presence confirms a fully rendered page.
	Landmark string `json:"landmark" yaml:"landmark"`

	// Attempts is the total number of load attempts per page (default 3).
	Attempts int `json:"attempts" yaml:"attempts"`

	// AttemptPause is a fixed pause between failed attempts (default 0).
	AttemptPause time.Duration `json:"attempt_pause" yaml:"attempt_pause"`

	// RenderWait is a settle delay after a successful load (default 2s).
	RenderWait time.Duration `json:"render_wait" yaml:"render_wait"`
}

// OutputFormat selects a sink.
type OutputFormat string

const (
	FormatCSV    OutputFormat = "csv"
	FormatSQLite OutputFormat = "sqlite"
)

// OutputConfig holds settings for run outputs.
type OutputConfig struct {
	// Dir is the directory for CSV files and run manifests.
	Dir string `json:"dir" yaml:"dir"`

	// ID names this run's outputs. Empty means a timestamp.
	ID string `json:"id" yaml:"id"`

	// Formats lists the sinks to write (default csv).
	Formats []OutputFormat `json:"formats" yaml:"formats"`

	// DBPath is the SQLite database used by the sqlite format and by export.
	DBPath string `json:"db_path" yaml:"db_path"`
}

// RunConfig holds the page range and pacing of a run.
type RunConfig struct {
	// StartPage is the first page number requested.
	StartPage int `json:"start_page" yaml:"start_page"`

	// MaxPages is the number of pages requested.
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// PageDelay is the fixed courtesy wait between pages.
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay"`
}

// ScrapeConfig groups all settings for a scrape run.
type ScrapeConfig struct {
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch"`
	Run    RunConfig    `json:"run" yaml:"run"`
	Output OutputConfig `json:"output" yaml:"output"`
}

// ApplyDefaults fills zero-valued fields. now is used for the output ID.
func (c *ScrapeConfig) ApplyDefaults(now time.Time) {
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = DefaultTimeout
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = DefaultUserAgent
	}
	if c.Fetch.BaseURL == "" {
		c.Fetch.BaseURL = DefaultBaseURL
	}
	if c.Fetch.Landmark == "" {
		c.Fetch.Landmark = DefaultLandmark
	}
	if c.Fetch.Attempts <= 0 {
		c.Fetch.Attempts = DefaultAttempts
	}
	if c.Fetch.RenderWait < 0 {
		c.Fetch.RenderWait = 0
	}
	if c.Run.StartPage <= 0 {
		c.Run.StartPage = DefaultStartPage
	}
	if c.Run.MaxPages <= 0 {
		c.Run.MaxPages = DefaultMaxPages
	}
	if c.Run.PageDelay < 0 {
		c.Run.PageDelay = 0
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.ID == "" {
		c.Output.ID = now.Format(OutputIDTimeFormat)
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []OutputFormat{FormatCSV}
	}
	if c.Output.DBPath == "" {
		c.Output.DBPath = DefaultDBFile
	}
}

// HasFormat reports whether f is among the configured output formats.
func (c OutputConfig) HasFormat(f OutputFormat) bool {
	for _, have := range c.Formats {
		if have == f {
			return true
		}
	}
	return false
}
