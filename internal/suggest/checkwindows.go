package suggest

import (
	"sort"

	"github.com/pipeops/ruleaudit/internal/stats"
)

// endOfDay is the suggested window close: 23:59 in seconds from midnight. The
// close is deliberately late; the open carries all the tuning.
const endOfDay = 86340

// lookbackSeconds is the backward slack counted as covered when scoring a
// candidate window open: files that landed shortly before the open have
// already been seen.
const lookbackSeconds = 2 * 3600

// SuggestCheckWindows derives a daily check window for the given timezone
// from the feed's half-hour arrival distribution: weekdays with meaningful
// activity, an open time balancing coverage against expected alert burden,
// and a holiday exclusion when the activity pattern tracks a country
// calendar.
func SuggestCheckWindows(res stats.Result, timezone string) *CheckWindowsResult {
	dist := res.HalfHourDistribution[timezone]
	if len(dist) == 0 {
		return nil
	}

	result := &CheckWindowsResult{Timezone: timezone, Method: "combined_analysis"}
	result.Weekdays = suggestWeekdays(res.WeekdayDistribution[timezone])

	// Scattered or multimodal arrivals get a stricter alert penalty and a
	// looser coverage bar; a tight unimodal peak can afford near-full
	// coverage.
	var penalty, threshold float64
	switch {
	case scattered(dist):
		penalty, threshold = 0.4, 0.75
	case multimodal(dist):
		penalty, threshold = 0.3, 0.8
	default:
		penalty, threshold = 0.2, 0.85
	}

	if start, ok := optimalOpenTime(dist, penalty, threshold); ok {
		end := endOfDay
		result.StartTime = &start
		result.EndTime = &end
	}

	if calendar, shift, ok := holidayCalendarFor(res, timezone); ok {
		result.HolidayCalendar = calendar
		result.DayOffset = shift
	}

	return result
}

// suggestWeekdays returns the digit string (0=Sunday) of days whose activity
// exceeds half the mean daily share.
func suggestWeekdays(weekdays map[string]float64) string {
	if len(weekdays) == 0 {
		return ""
	}
	var total float64
	for _, v := range weekdays {
		total += v
	}
	half := total / float64(len(weekdays)) / 2

	digits := map[string]string{
		"sunday": "0", "monday": "1", "tuesday": "2", "wednesday": "3",
		"thursday": "4", "friday": "5", "saturday": "6",
	}
	var active []string
	for day, count := range weekdays {
		if count > half {
			if d, ok := digits[day]; ok {
				active = append(active, d)
			}
		}
	}
	sort.Strings(active)
	out := ""
	for _, d := range active {
		out += d
	}
	return out
}

// optimalOpenTime scans all 48 half-hour slots. A slot's coverage counts
// arrivals at or after it plus arrivals within the lookback window before it;
// arrivals after the open are also the alerts the window will raise while
// waiting, so they carry a penalty. Best score meeting the coverage threshold
// wins, latest slot on ties.
func optimalOpenTime(dist map[string]float64, penaltyWeight, coverageThreshold float64) (int, bool) {
	type arrival struct {
		sec   int
		share float64
	}
	arrivals := make([]arrival, 0, len(dist))
	for bucket, share := range dist {
		sec, ok := bucketSeconds(bucket)
		if !ok {
			continue
		}
		arrivals = append(arrivals, arrival{sec, share})
	}
	if len(arrivals) == 0 {
		return 0, false
	}

	type candidate struct {
		sec      int
		coverage float64
		alerts   float64
		score    float64
	}
	candidates := make([]candidate, 0, 48)
	for slot := 0; slot < 48; slot++ {
		sec := slot * 1800
		c := candidate{sec: sec}
		for _, a := range arrivals {
			switch {
			case a.sec >= sec:
				c.coverage += a.share
				c.alerts += a.share
			case a.sec >= sec-lookbackSeconds:
				c.coverage += a.share
			}
		}
		c.score = c.coverage - penaltyWeight*c.alerts
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].sec > candidates[j].sec
	})
	for _, c := range candidates {
		if c.coverage >= coverageThreshold {
			return c.sec, true
		}
	}

	// Nothing clears the bar: fall back to maximum coverage, fewest alerts.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].coverage != candidates[j].coverage {
			return candidates[i].coverage > candidates[j].coverage
		}
		return candidates[i].alerts < candidates[j].alerts
	})
	return candidates[0].sec, true
}

// scattered reports whether arrivals spread thinly over many slots.
func scattered(dist map[string]float64) bool {
	var total, peak float64
	active := 0
	for _, share := range dist {
		total += share
		if share > peak {
			peak = share
		}
		if share > 0 {
			active++
		}
	}
	if total == 0 {
		return false
	}
	return active > 12 && peak/total < 0.2
}

// holidayCalendarFor picks the best country-calendar match for the timezone.
// The synthetic all_day/weekday references never name a real calendar. The
// stored shift aligned the reference toward the events, so the rule's day
// offset is its negation.
func holidayCalendarFor(res stats.Result, timezone string) (string, int, bool) {
	sims := res.HolidayMetrics[timezone]
	var best *stats.HolidaySimilarity
	for i := range sims {
		if sims[i].Calendar == "all_day" || sims[i].Calendar == "weekday" {
			continue
		}
		if best == nil || sims[i].Mean > best.Mean {
			best = &sims[i]
		}
	}
	if best == nil || best.Mean < 0.7 {
		return "", 0, false
	}
	return best.Calendar, -best.Shift, true
}
