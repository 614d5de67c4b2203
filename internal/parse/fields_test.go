// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hnscrape/pkg/types"
)

func TestAge(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantHours float64
		wantOK    bool
	}{
		{"hours", "3 hours", 3.0, true},
		{"days", "2 days", 48.0, true},
		{"minutes", "45 minutes", 0.75, true},
		{"trailing ago", "5 hours ago", 5.0, true},
		{"singular day", "1 day ago", 24.0, true},
		{"singular minute", "1 minute ago", 1.0 / 60, true},
		{"other unit unchanged", "2 months ago", 2.0, true},
		{"fractional", "1.5 hours", 1.5, true},
		{"non-numeric magnitude", "abc hours", 0, false},
		{"single token number", "7", 7.0, true},
		{"single token word", "yesterday", 0, false},
		{"empty", "", 0, false},
		{"whitespace only", "   ", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Age(types.Some(tt.input))
			hours, ok := got.Get()
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.wantHours, hours, 1e-9)
			}
		})
	}
}

func TestAge_UnavailablePassesThrough(t *testing.T) {
	got := Age(types.Unavailable[string]())
	assert.False(t, got.IsAvailable())
	assert.Equal(t, types.NA, got.String())
}

func TestComments(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"discuss", 0, true},
		{"42", 42, true},
		{" 7 ", 7, true},
		{"0", 0, true},
		{"3.0", 3, true},
		{"forty-two", 0, false},
		{"2.5", 0, false},
		{"", 0, false},
		{"hide", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Comments(tt.input).Get()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"118 points", 118},
		{"1 point", 1},
		{"0 points", 0},
		{"", 0},
		{"many points", 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.input))
		})
	}
}

func TestRank(t *testing.T) {
	n, err := Rank("31.")
	require.NoError(t, err)
	assert.Equal(t, 31, n)

	n, err = Rank(" 4 ")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, bad := range []string{"", ".", "x.", "1.2."} {
		_, err := Rank(bad)
		if !errors.Is(err, ErrInvalidRank) {
			t.Errorf("Rank(%q) error = %v, want ErrInvalidRank", bad, err)
		}
	}
}
