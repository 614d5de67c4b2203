// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns a rendered listing page into typed records.
//
// Each listed item is a tr.athing row whose id cross-references its score,
// age link, and the subtext row that follows it. Optional fields degrade to
// defaults or types.Unavailable. An item missing its rank or title is
// dropped and reported in PageResult.Dropped; a row without an id makes the
// whole page malformed.
package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/hnscrape/internal/parse"
	"github.com/pdiddy/hnscrape/pkg/types"
)

const (
	itemSelector     = "tr.athing"
	rankSelector     = "span.rank"
	titleSelector    = "span.titleline > a, a.storylink"
	ageSelector      = "span.age a"
	subtextSelector  = "td.subtext"
	scoreIDPrefix    = "score_"
	itemHrefPrefix   = "item?id="
	defaultScoreText = "0 points"
	ageSuffix        = "ago"
	nbsp             = "\u00a0"
)

var (
	// ErrMalformedPage is returned when an item row carries no identifier.
	ErrMalformedPage = errors.New("malformed page")

	// ErrMissingRank is recorded for an item without a rank marker.
	ErrMissingRank = errors.New("missing rank marker")

	// ErrMissingTitle is recorded for an item without a title link.
	ErrMissingTitle = errors.New("missing title")
)

// ExtractHTML parses r as HTML and extracts its records.
func ExtractHTML(r io.Reader, page int) (types.PageResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return types.PageResult{Page: page}, fmt.Errorf("parsing html: %w", err)
	}
	return Extract(doc, page)
}

// Extract builds one record per item row of doc, in document order.
func Extract(doc *goquery.Document, page int) (types.PageResult, error) {
	result := types.PageResult{Page: page}

	var pageErr error
	doc.Find(itemSelector).EachWithBreak(func(i int, row *goquery.Selection) bool {
		id, ok := row.Attr("id")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			pageErr = fmt.Errorf("%w: item row %d has no id", ErrMalformedPage, i+1)
			return false
		}

		rec, err := extractItem(doc, row, id)
		if err != nil {
			result.Dropped = append(result.Dropped, types.ItemError{ItemID: id, Reason: err.Error()})
			return true
		}
		result.Records = append(result.Records, rec)
		return true
	})
	if pageErr != nil {
		return types.PageResult{Page: page}, pageErr
	}
	return result, nil
}

func extractItem(doc *goquery.Document, row *goquery.Selection, id string) (types.Record, error) {
	rankNode := row.Find(rankSelector).First()
	if rankNode.Length() == 0 {
		return types.Record{}, ErrMissingRank
	}
	rank, err := parse.Rank(rankNode.Text())
	if err != nil {
		return types.Record{}, err
	}

	titleNode := row.Find(titleSelector).First()
	if titleNode.Length() == 0 {
		return types.Record{}, ErrMissingTitle
	}

	return types.Record{
		Comments:    parseCommentsOrZero(commentText(row)),
		Rank:        rank,
		Score:       parse.Score(scoreText(doc, id)),
		Age:         parse.Age(ageText(doc, id)),
		TitleLength: utf8.RuneCountInString(titleNode.Text()),
	}, nil
}

// ageText returns the text of the item's age link, preferring the link
// inside span.age. Outside span.age only a link reading "... ago" counts,
// since the comments link points at the same item page.
func ageText(doc *goquery.Document, id string) types.Optional[string] {
	href := itemHrefPrefix + id
	link := doc.Find(ageSelector).FilterFunction(hrefIs(href)).First()
	if link.Length() == 0 {
		link = doc.Find("a").FilterFunction(hrefIs(href)).FilterFunction(readsAsAge).First()
	}
	if link.Length() == 0 {
		return types.Unavailable[string]()
	}
	return types.Some(link.Text())
}

func scoreText(doc *goquery.Document, id string) string {
	node := doc.Find("[id^='" + scoreIDPrefix + "']").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == scoreIDPrefix+id
	}).First()
	if node.Length() == 0 {
		return defaultScoreText
	}
	return node.Text()
}

// commentText returns the last subtext link's text up to the first
// non-breaking space. ok is false when the subtext row or link is absent.
func commentText(row *goquery.Selection) (text string, ok bool) {
	subtext := row.Next().Find(subtextSelector).First()
	if subtext.Length() == 0 {
		return "", false
	}
	link := subtext.Find("a").Last()
	if link.Length() == 0 {
		return "", false
	}
	text, _, _ = strings.Cut(link.Text(), nbsp)
	return text, true
}

// parseCommentsOrZero counts an absent metadata row as no comments yet.
func parseCommentsOrZero(text string, ok bool) types.Optional[int] {
	if !ok {
		return types.Some(0)
	}
	return parse.Comments(text)
}

func readsAsAge(_ int, s *goquery.Selection) bool {
	text := s.Text()
	return !strings.Contains(text, nbsp) && strings.HasSuffix(strings.TrimSpace(text), ageSuffix)
}

func hrefIs(href string) func(int, *goquery.Selection) bool {
	return func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("href")
		return v == href
	}
}
