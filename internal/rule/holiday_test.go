package rule

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolidayTable(t *testing.T) {
	table := NewHolidayTable()
	table.Add("US", "20240101")
	table.Add("US", "20240704")
	table.Add("JP", "20240101")

	assert.True(t, table.IsHoliday("US", time.Date(2024, 7, 4, 10, 0, 0, 0, time.UTC)))
	assert.False(t, table.IsHoliday("US", time.Date(2024, 7, 5, 10, 0, 0, 0, time.UTC)))
	assert.False(t, table.IsHoliday("GB", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	assert.ElementsMatch(t, []string{"US", "JP"}, table.Calendars())
	assert.Len(t, table.Days("US"), 2)
}

func TestLoadHolidayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.tsv")
	content := "US\t20240101\n\nJP\t20240101\nbadline\nUS\t20241225\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadHolidayFile(path)
	require.NoError(t, err)
	assert.True(t, table.IsHoliday("US", time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)))
	assert.True(t, table.IsHoliday("JP", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Len(t, table.Days("US"), 2)

	_, err = LoadHolidayFile(filepath.Join(t.TempDir(), "missing.tsv"))
	assert.Error(t, err)
}

func TestLocationFor(t *testing.T) {
	assert.Equal(t, "America/New_York", LocationFor(TzNewYork).String())
	assert.Equal(t, "Asia/Tokyo", LocationFor(TzTokyo).String())
	// IANA names pass through, unknown codes fall back to UTC.
	assert.Equal(t, "Europe/London", LocationFor("Europe/London").String())
	assert.Equal(t, time.UTC, LocationFor("nowhere"))
}

func TestTimezoneForCountry(t *testing.T) {
	assert.Equal(t, "America/New_York", TimezoneForCountry("US"))
	assert.Equal(t, "Asia/Tokyo", TimezoneForCountry("JP"))
	assert.Equal(t, "Europe/London", TimezoneForCountry("GB"))
	assert.Empty(t, TimezoneForCountry("ZZ"))
}
