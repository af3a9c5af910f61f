package audit

import (
	"sort"
	"time"

	"github.com/pipeops/ruleaudit/internal/event"
	"github.com/pipeops/ruleaudit/internal/rule"
)

// denseEventsPerDay is the activity level above which per-event reasoning is
// abandoned for a uniform grid: the candidate set would approach the grid's
// size anyway, so the grid is both cheaper to build and bounded.
const denseEventsPerDay = 30

// eventMargin brackets every event with an instant shortly before and after
// it, capturing the rule's boundary behavior around real activity without
// enumerating every minute.
const eventMargin = 5 * time.Minute

// SelectImportantTimes returns the deduplicated, ascending instants at which
// a rule should be replayed over [start, end]. It is a pure function of its
// inputs: identical calls return identical sequences.
func SelectImportantTimes(r *rule.Rule, start, end time.Time, events []event.Event, step time.Duration) []time.Time {
	if step <= 0 {
		step = DefaultStep
	}

	days := int(end.Sub(start).Hours() / 24)
	eventsPerDay := float64(len(events))
	if days > 0 {
		eventsPerDay = float64(len(events)) / float64(days)
	}

	if eventsPerDay > denseEventsPerDay {
		var grid []time.Time
		for t := start; !t.After(end); t = t.Add(step) {
			grid = append(grid, t)
		}
		return grid
	}

	loc := r.Location()
	candidates := map[int64]time.Time{}
	add := func(t time.Time) { candidates[t.UnixNano()] = t.UTC() }

	var datetimeWindows []rule.DatetimeWindow
	for _, w := range append(append([]rule.Window(nil), r.WindowInclude...), r.WindowExclude...) {
		if dw, ok := w.(rule.DatetimeWindow); ok {
			datetimeWindows = append(datetimeWindows, dw)
		}
	}

	startLocal := start.In(loc)
	day := time.Date(startLocal.Year(), startLocal.Month(), startLocal.Day(), 0, 0, 0, 0, loc)
	endLocal := end.In(loc)
	for !day.After(endLocal) {
		if r.StartTime != nil {
			add(day.Add(time.Duration(*r.StartTime) * time.Second))
		}
		if r.EndTime != nil {
			add(day.Add(time.Duration(*r.EndTime) * time.Second))
		}
		day = day.AddDate(0, 0, 1)
	}

	for _, dw := range datetimeWindows {
		for _, rg := range dw.Ranges {
			if rg.Start.After(end) || rg.End.Before(start) {
				continue
			}
			add(rg.Start)
			add(rg.End)
		}
	}

	for _, e := range events {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		add(e.Timestamp.Add(-eventMargin))
		add(e.Timestamp.Add(eventMargin))
	}

	out := make([]time.Time, 0, len(candidates))
	for _, t := range candidates {
		if t.Before(start) || t.After(end) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
