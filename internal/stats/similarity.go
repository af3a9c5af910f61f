package stats

import (
	"math"
	"sort"
	"time"

	"github.com/pipeops/ruleaudit/internal/event"
)

// maxCalendarShift bounds the day offsets tried when aligning the feed's
// activity pattern with a reference calendar. Feeds frequently publish a few
// days after the business date they describe.
const maxCalendarShift = 4

// topSimilarities is how many (calendar, shift) candidates are kept per
// timezone.
const topSimilarities = 3

// holidaySimilarity compares the feed's daily on/off pattern against an
// always-on calendar, a Monday-to-Friday calendar, and each loaded country's
// workday calendar, at every shift in [-maxCalendarShift, maxCalendarShift].
func (b *Builder) holidaySimilarity(sorted []event.Event, tz string, loc *time.Location) []HolidaySimilarity {
	first := sorted[0].Timestamp.In(loc)
	last := sorted[len(sorted)-1].Timestamp.In(loc)
	start := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	end := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)

	days := int(end.Sub(start).Hours()/24) + 1
	if days < 2 {
		return nil
	}

	active := map[string]bool{}
	for _, e := range sorted {
		active[e.Timestamp.In(loc).Format("20060102")] = true
	}

	pattern := make([]float64, days)
	allDay := make([]float64, days)
	weekday := make([]float64, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		if active[day.Format("20060102")] {
			pattern[i] = 1
		}
		allDay[i] = 1
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			weekday[i] = 1
		}
	}

	references := map[string][]float64{
		"all_day": allDay,
		"weekday": weekday,
	}
	if b.holidays != nil {
		for _, country := range b.holidays.Calendars() {
			workday := make([]float64, days)
			for i := 0; i < days; i++ {
				day := start.AddDate(0, 0, i)
				wd := day.Weekday()
				if wd != time.Saturday && wd != time.Sunday && !b.holidays.IsHoliday(country, day) {
					workday[i] = 1
				}
			}
			references[country] = workday
		}
	}

	var out []HolidaySimilarity
	for calendar, ref := range references {
		for shift := -maxCalendarShift; shift <= maxCalendarShift; shift++ {
			a, bb := shiftSeries(pattern, ref, shift)
			if len(a) == 0 {
				continue
			}
			sim := HolidaySimilarity{
				Jaccard:  jaccard(a, bb),
				Cosine:   cosine(a, bb),
				Hamming:  hammingSimilarity(a, bb),
				Calendar: calendar,
				Shift:    shift,
				Timezone: tz,
			}
			sim.Mean = (sim.Jaccard + sim.Cosine + sim.Hamming) / 3
			out = append(out, sim)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Mean > out[j].Mean })
	if len(out) > topSimilarities {
		out = out[:topSimilarities]
	}
	return out
}

// shiftSeries aligns two equal-length series at the given offset, trimming
// the overhang on each side.
func shiftSeries(a, b []float64, shift int) ([]float64, []float64) {
	switch {
	case shift == 0:
		return a, b
	case shift < 0:
		if -shift >= len(a) {
			return nil, nil
		}
		return a[-shift:], b[:len(b)+shift]
	default:
		if shift >= len(a) {
			return nil, nil
		}
		return a[:len(a)-shift], b[shift:]
	}
}

func jaccard(a, b []float64) float64 {
	var inter, union float64
	for i := range a {
		if a[i] > 0 && b[i] > 0 {
			inter++
		}
		if a[i] > 0 || b[i] > 0 {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return inter / union
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func hammingSimilarity(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	diff := 0
	for i := range a {
		if (a[i] > 0) != (b[i] > 0) {
			diff++
		}
	}
	return 1 - float64(diff)/float64(len(a))
}
