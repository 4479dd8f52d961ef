package store

import (
	"testing"
	"time"

	"github.com/robertmeta/macros/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{
			name:     "7 days",
			input:    "7d",
			expected: 7 * 24 * time.Hour,
		},
		{
			name:     "2 weeks",
			input:    "2w",
			expected: 14 * 24 * time.Hour,
		},
		{
			name:     "3 months (approximated as 90 days)",
			input:    "3m",
			expected: 90 * 24 * time.Hour,
		},
		{
			name:     "1 year (approximated as 365 days)",
			input:    "1y",
			expected: 365 * 24 * time.Hour,
		},
		{
			name:    "invalid format - no number",
			input:   "d",
			wantErr: true,
		},
		{
			name:    "invalid format - no unit",
			input:   "7",
			wantErr: true,
		},
		{
			name:    "invalid unit",
			input:   "7x",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "negative number",
			input:   "-7d",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestSinceCutoff(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	cutoff, err := SinceCutoff("1w", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC), cutoff)

	_, err = SinceCutoff("invalid", now)
	assert.Error(t, err)
}

func TestEntriesSince(t *testing.T) {
	cutoff := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	feed := []model.FeedEntry{
		{ID: 0, Date: cutoff.Add(-time.Second)},
		{ID: 1, Date: cutoff},
		{ID: 2, Date: cutoff.Add(time.Hour)},
	}

	got := EntriesSince(feed, cutoff)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)

	assert.Empty(t, EntriesSince(nil, cutoff))
}
