package rule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWildcardPattern(t *testing.T) {
	cases := []struct {
		pattern string
		want    string
	}{
		{"", ""},
		{"/data/feed.csv", "/data/feed.csv*"},
		{"/data/feed.${YYYYMMDD}.csv", "/data/feed.*.csv*"},
		{"/data/${B1_YYYYMM}/feed.${DD}.csv", "/data/*/feed.*.csv*"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, WildcardPattern(tc.pattern), tc.pattern)
	}
}

func TestTranslatePattern(t *testing.T) {
	// 2024-03-11 is a Monday.
	monday := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		rule  Rule
		local time.Time
		want  string
	}{
		{
			name:  "same day",
			rule:  Rule{Pattern: "feed.${YYYYMMDD}.csv", DelayCode: "T"},
			local: monday,
			want:  "feed.20240311.csv",
		},
		{
			name:  "rule level calendar delay",
			rule:  Rule{Pattern: "feed.${YYYYMMDD}.csv", DelayCode: "C", DelayValue: 2},
			local: monday,
			want:  "feed.20240309.csv",
		},
		{
			name: "business delay skips weekend",
			rule: Rule{Pattern: "feed.${YYYYMMDD}.csv", DelayCode: "B", DelayValue: 1},
			// one business day before Monday is Friday
			local: monday,
			want:  "feed.20240308.csv",
		},
		{
			name:  "macro prefix overrides rule delay",
			rule:  Rule{Pattern: "feed.${B2_YYYYMMDD}.csv", DelayCode: "T"},
			local: monday,
			want:  "feed.20240307.csv",
		},
		{
			name:  "forward calendar delay",
			rule:  Rule{Pattern: "feed.${c1_YYYYMMDD}.csv"},
			local: monday,
			want:  "feed.20240312.csv",
		},
		{
			name:  "mixed formats",
			rule:  Rule{Pattern: "${YYYY}/${MM}/feed.${DD}.csv", DelayCode: "T"},
			local: monday,
			want:  "2024/03/feed.11.csv",
		},
		{
			name:  "no macros",
			rule:  Rule{Pattern: "static.csv", DelayCode: "B", DelayValue: 5},
			local: monday,
			want:  "static.csv",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TranslatePattern(&tc.rule, tc.local))
		})
	}
}

func TestParseDelay(t *testing.T) {
	code, value, ok := parseDelay("B12")
	assert.True(t, ok)
	assert.Equal(t, "B", code)
	assert.Equal(t, 12, value)

	_, _, ok = parseDelay("X1")
	assert.False(t, ok)
	_, _, ok = parseDelay("B")
	assert.False(t, ok)
	_, _, ok = parseDelay("B1x")
	assert.False(t, ok)

	code, value, ok = parseDelay("T")
	assert.True(t, ok)
	assert.Equal(t, "T", code)
	assert.Zero(t, value)
}

func TestAddBusinessDays(t *testing.T) {
	friday := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Monday, addBusinessDays(friday, 1).Weekday())
	assert.Equal(t, time.Thursday, addBusinessDays(friday, -1).Weekday())
	// a full business week lands on the same weekday
	assert.Equal(t, friday.AddDate(0, 0, 7), addBusinessDays(friday, 5))
}
