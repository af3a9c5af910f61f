package rule

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// HolidayCalendar answers whether a local date is a holiday for a country or
// named market calendar. The authoritative table is distributed as a
// tab-separated file of "COUNTRY<TAB>YYYYMMDD" lines.
type HolidayCalendar interface {
	IsHoliday(calendar string, day time.Time) bool
}

// HolidayTable is an in-memory HolidayCalendar.
type HolidayTable struct {
	days map[string]map[string]bool // calendar -> yyyymmdd -> true
}

// NewHolidayTable builds an empty table.
func NewHolidayTable() *HolidayTable {
	return &HolidayTable{days: map[string]map[string]bool{}}
}

// Add marks day as a holiday in the given calendar.
func (t *HolidayTable) Add(calendar, yyyymmdd string) {
	m, ok := t.days[calendar]
	if !ok {
		m = map[string]bool{}
		t.days[calendar] = m
	}
	m[yyyymmdd] = true
}

// IsHoliday implements HolidayCalendar.
func (t *HolidayTable) IsHoliday(calendar string, day time.Time) bool {
	m, ok := t.days[calendar]
	if !ok {
		return false
	}
	return m[day.Format("20060102")]
}

// Calendars lists the calendars with at least one holiday loaded.
func (t *HolidayTable) Calendars() []string {
	out := make([]string, 0, len(t.days))
	for c := range t.days {
		out = append(out, c)
	}
	return out
}

// Days returns the loaded holiday dates for one calendar.
func (t *HolidayTable) Days(calendar string) map[string]bool {
	return t.days[calendar]
}

// LoadHolidayFile parses a tab-separated holiday file. Blank lines and lines
// without both fields are skipped.
func LoadHolidayFile(path string) (*HolidayTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open holiday file %s: %w", path, err)
	}
	defer f.Close()

	table := NewHolidayTable()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		table.Add(parts[0], parts[1])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read holiday file %s: %w", path, err)
	}
	return table, nil
}
