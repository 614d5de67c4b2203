// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse converts raw listing fields into typed values.
// Optional fields degrade to types.Unavailable; required fields return errors.
package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/hnscrape/pkg/types"
)

// NoDiscussion is the link text shown for an item without comments.
const NoDiscussion = "discuss"

// ErrInvalidRank is returned when a rank marker is not a number.
var ErrInvalidRank = errors.New("invalid rank marker")

// Age converts a free-text age ("3 hours", "2 days ago", "45 minutes") to
// hours. A magnitude that is not a number yields Unavailable. Days are
// multiplied by 24 and minutes divided by 60; any other unit, or no unit at
// all, is taken as hours.
func Age(text types.Optional[string]) types.Optional[float64] {
	raw, ok := text.Get()
	if !ok {
		return types.Unavailable[float64]()
	}

	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return types.Unavailable[float64]()
	}

	hours, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return types.Unavailable[float64]()
	}

	unit := ""
	if len(fields) > 1 {
		unit = fields[1]
	}
	switch unit {
	case "days", "day":
		hours *= 24
	case "minutes", "minute":
		hours /= 60
	}
	return types.Some(hours)
}

// Comments converts comment link text to a count. The no-discussion
// placeholder is zero; anything else that is not a whole number is
// Unavailable.
func Comments(text string) types.Optional[int] {
	text = strings.TrimSpace(text)
	if text == NoDiscussion {
		return types.Some(0)
	}
	if n, err := strconv.Atoi(text); err == nil {
		return types.Some(n)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && f == float64(int(f)) {
		return types.Some(int(f))
	}
	return types.Unavailable[int]()
}

// Score returns the leading integer of a score text such as "118 points".
// Empty or non-numeric text scores 0.
func Score(text string) int {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return n
}

// Rank converts a rank marker such as "31." to its number.
func Rank(text string) (int, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(text), ".")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRank, text)
	}
	return n, nil
}
