// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strconv"
	"time"
)

// Columns is the fixed column order of a Record in tabular output.
var Columns = []string{"comments", "rank", "score", "age", "title_length"}

// Record holds the features extracted for one listed item.
// Comments and Age may be unavailable; Rank and TitleLength are always
// present; Score defaults to 0.
type Record struct {
	// Comments is the number of discussion replies.
	Comments Optional[int] `json:"comments" yaml:"comments"`

	// Rank is the item's rank marker as printed on the page.
	Rank int `json:"rank" yaml:"rank"`

	// Score is the item's point total.
	Score int `json:"score" yaml:"score"`

	// Age is the time since posting in hours.
	Age Optional[float64] `json:"age" yaml:"age"`

	// TitleLength is the number of characters in the title.
	TitleLength int `json:"title_length" yaml:"title_length"`
}

// Row renders r in Columns order.
func (r Record) Row() []string {
	return []string{
		r.Comments.String(),
		strconv.Itoa(r.Rank),
		strconv.Itoa(r.Score),
		r.Age.String(),
		strconv.Itoa(r.TitleLength),
	}
}

// ItemError records an item dropped from a page because a required field
// could not be extracted.
type ItemError struct {
	ItemID string `json:"item_id" yaml:"item_id"`
	Reason string `json:"reason" yaml:"reason"`
}

// PageResult holds the records extracted from one page in document order.
type PageResult struct {
	Page    int         `json:"page" yaml:"page"`
	Records []Record    `json:"records" yaml:"records"`
	Dropped []ItemError `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// RunInfo identifies one scrape run to the sinks.
type RunInfo struct {
	// OutputID names the run's outputs (e.g. "20261019-142501").
	OutputID string `json:"output_id" yaml:"output_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	StartPage int `json:"start_page" yaml:"start_page"`
	MaxPages  int `json:"max_pages" yaml:"max_pages"`
}

// RunSummary holds the outcome of a scrape run.
type RunSummary struct {
	RunInfo `yaml:",inline"`

	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	PagesFetched int `json:"pages_fetched" yaml:"pages_fetched"`
	PagesFailed  int `json:"pages_failed" yaml:"pages_failed"`
	Records      int `json:"records" yaml:"records"`
	Dropped      int `json:"dropped" yaml:"dropped"`

	// FailedPages lists page numbers that produced no records.
	FailedPages []int `json:"failed_pages,omitempty" yaml:"failed_pages,omitempty"`
}

// PagesAttempted returns the number of pages the run tried.
func (s RunSummary) PagesAttempted() int {
	return s.PagesFetched + s.PagesFailed
}

// HasFailures reports whether any page failed.
func (s RunSummary) HasFailures() bool {
	return s.PagesFailed > 0
}
