// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/hnscrape/pkg/types"
)

// Config keys. They mirror the yaml layout of types.ScrapeConfig so a
// hnscrape.yaml file reads like a saved run manifest's config block.
const (
	keyBaseURL      = "fetch.base_url"
	keyLandmark     = "fetch.landmark"
	keyAttempts     = "fetch.attempts"
	keyAttemptPause = "fetch.attempt_pause"
	keyRenderWait   = "fetch.render_wait"
	keyTimeout      = "fetch.timeout"
	keyUserAgent    = "fetch.user_agent"
	keyStartPage    = "run.start_page"
	keyMaxPages     = "run.max_pages"
	keyPageDelay    = "run.page_delay"
	keyOutputDir    = "output.dir"
	keyOutputID     = "output.id"
	keyFormats      = "output.formats"
	keyDBPath       = "output.db_path"
	keyLogLevel     = "log.level"
	keyLogJSON      = "log.json"
)

func init() {
	setDefaults(viper.GetViper())
}

// setDefaults registers the values used when neither a flag, the
// environment, nor the config file sets a key.
func setDefaults(v *viper.Viper) {
	v.SetDefault(keyBaseURL, types.DefaultBaseURL)
	v.SetDefault(keyLandmark, types.DefaultLandmark)
	v.SetDefault(keyAttempts, types.DefaultAttempts)
	v.SetDefault(keyRenderWait, types.DefaultRenderWait)
	v.SetDefault(keyTimeout, types.DefaultTimeout)
	v.SetDefault(keyUserAgent, types.DefaultUserAgent)
	v.SetDefault(keyStartPage, types.DefaultStartPage)
	v.SetDefault(keyMaxPages, types.DefaultMaxPages)
	v.SetDefault(keyPageDelay, types.DefaultPageDelay)
	v.SetDefault(keyOutputDir, types.DefaultOutputDir)
	v.SetDefault(keyFormats, []string{string(types.FormatCSV)})
	v.SetDefault(keyDBPath, types.DefaultDBFile)
	v.SetDefault(keyLogLevel, "info")
}

func bindFlag(key string, f *pflag.Flag) {
	if err := viper.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("binding %s: %v", key, err))
	}
}

// scrapeConfig assembles the run configuration from v. Zero values are
// filled by ApplyDefaults; negative page numbers are rejected.
func scrapeConfig(v *viper.Viper, now time.Time) (types.ScrapeConfig, error) {
	formats, err := parseFormats(v.GetStringSlice(keyFormats))
	if err != nil {
		return types.ScrapeConfig{}, err
	}

	cfg := types.ScrapeConfig{
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration(keyTimeout),
				UserAgent: v.GetString(keyUserAgent),
			},
			BaseURL:      v.GetString(keyBaseURL),
			Landmark:     v.GetString(keyLandmark),
			Attempts:     v.GetInt(keyAttempts),
			AttemptPause: v.GetDuration(keyAttemptPause),
			RenderWait:   v.GetDuration(keyRenderWait),
		},
		Run: types.RunConfig{
			StartPage: v.GetInt(keyStartPage),
			MaxPages:  v.GetInt(keyMaxPages),
			PageDelay: v.GetDuration(keyPageDelay),
		},
		Output: types.OutputConfig{
			Dir:     v.GetString(keyOutputDir),
			ID:      v.GetString(keyOutputID),
			Formats: formats,
			DBPath:  v.GetString(keyDBPath),
		},
	}

	if cfg.Run.StartPage < 0 {
		return cfg, fmt.Errorf("start page must be at least 1, got %d", cfg.Run.StartPage)
	}
	if cfg.Run.MaxPages < 0 {
		return cfg, fmt.Errorf("max pages must be at least 1, got %d", cfg.Run.MaxPages)
	}
	if strings.ContainsAny(cfg.Output.ID, `/\`) {
		return cfg, fmt.Errorf("output id %q must not contain a path separator", cfg.Output.ID)
	}

	cfg.ApplyDefaults(now)
	return cfg, nil
}

// parseFormats accepts both repeated values and comma-separated lists,
// since environment variables arrive as a single string.
func parseFormats(values []string) ([]types.OutputFormat, error) {
	var formats []types.OutputFormat
	seen := map[types.OutputFormat]bool{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			f := types.OutputFormat(strings.ToLower(strings.TrimSpace(part)))
			if f == "" || seen[f] {
				continue
			}
			switch f {
			case types.FormatCSV, types.FormatSQLite:
			default:
				return nil, fmt.Errorf("unsupported format %q: use csv or sqlite", part)
			}
			seen[f] = true
			formats = append(formats, f)
		}
	}
	return formats, nil
}
