package rule

import (
	"strings"
	"time"
)

// Window gates rule evaluation to a slice of the calendar. Concrete window
// types are small value structs; the evaluator type-switches over them.
type Window interface {
	windowType() string
}

// TimeWindow admits instants between StartTime and EndTime seconds from local
// midnight, inclusive.
type TimeWindow struct {
	StartTime int `json:"start_time" yaml:"start_time"`
	EndTime   int `json:"end_time" yaml:"end_time"`
}

func (TimeWindow) windowType() string { return "time_window" }

// Contains reports whether the local time falls inside the window.
func (w TimeWindow) Contains(local time.Time) bool {
	sec := local.Hour()*3600 + local.Minute()*60 + local.Second()
	return sec >= w.StartTime && sec <= w.EndTime
}

// WeekdayWindow admits instants on configured weekdays. Weekdays is a digit
// string with 0=Sunday through 6=Saturday, e.g. "12345" for business days.
type WeekdayWindow struct {
	Weekdays string `json:"weekdays" yaml:"weekdays"`
}

func (WeekdayWindow) windowType() string { return "weekday_window" }

// Contains reports whether the local weekday is admitted.
func (w WeekdayWindow) Contains(local time.Time) bool {
	d := byte('0' + int(local.Weekday()))
	return strings.IndexByte(w.Weekdays, d) >= 0
}

// WeekdaySet returns the admitted weekday digits.
func (w WeekdayWindow) WeekdaySet() map[string]bool {
	set := make(map[string]bool, len(w.Weekdays))
	for _, d := range w.Weekdays {
		set[string(d)] = true
	}
	return set
}

// HolidayWindow, used on the exclude list, suppresses evaluation on holidays
// of the named calendar. DayOffset shifts the looked-up date, covering feeds
// that publish the day after a market holiday.
type HolidayWindow struct {
	Calendar  string `json:"holiday_calendar" yaml:"holiday_calendar"`
	DayOffset int    `json:"day_offset,omitempty" yaml:"day_offset,omitempty"`
}

func (HolidayWindow) windowType() string { return "holiday_window" }

// DatetimeRange is one absolute [Start, End] interval.
type DatetimeRange struct {
	Start time.Time `json:"start_datetime" yaml:"start_datetime"`
	End   time.Time `json:"end_datetime" yaml:"end_datetime"`
}

// DatetimeWindow admits instants inside any of its absolute ranges.
type DatetimeWindow struct {
	Ranges []DatetimeRange `json:"check_datetime_ranges" yaml:"check_datetime_ranges"`
}

func (DatetimeWindow) windowType() string { return "check_datetime_window" }

// Contains reports whether t falls inside any configured range.
func (w DatetimeWindow) Contains(t time.Time) bool {
	for _, r := range w.Ranges {
		if !t.Before(r.Start) && !t.After(r.End) {
			return true
		}
	}
	return false
}
