package rule

import (
	"fmt"
	"time"

	"github.com/pipeops/ruleaudit/internal/alert"
	"github.com/pipeops/ruleaudit/internal/event"
)

// Evaluator runs a rule's alerting logic against an event repository at the
// instant its Clock reports. It holds no per-evaluation mutable state, so the
// same evaluator value can be re-pinned to any instant with WithClock and
// evaluated again.
type Evaluator struct {
	events   event.Repository
	holidays HolidayCalendar
	clock    Clock
}

// NewEvaluator builds an evaluator over the given scoped repositories,
// reading time from the system clock until re-pinned.
func NewEvaluator(events event.Repository, holidays HolidayCalendar) *Evaluator {
	return &Evaluator{events: events, holidays: holidays, clock: SystemClock()}
}

// WithClock returns a copy of the evaluator pinned to c.
func (ev *Evaluator) WithClock(c Clock) *Evaluator {
	cp := *ev
	cp.clock = c
	return &cp
}

// Check is the single-instant pass/fail gate: it returns nil when the rule is
// evaluable at the pinned instant and a DeferredError naming the blocking
// window otherwise. It never touches event data.
func (ev *Evaluator) Check(r *Rule) error {
	return ev.gateWindows(r, ev.clock.Now())
}

// Evaluate runs the full alert-producing evaluation at the pinned instant.
// It returns one alert per monitored resource, severity "ok" when every
// constraint holds and "critical" otherwise, or a DeferredError when the
// instant is gated out.
func (ev *Evaluator) Evaluate(r *Rule) ([]alert.Alert, error) {
	now := ev.clock.Now()
	if err := ev.gateWindows(r, now); err != nil {
		return nil, err
	}

	loc := r.Location()
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	filter := event.Filter{Before: now}
	if r.Pattern != "" {
		filter.Pattern = WildcardPattern(r.Pattern)
	}
	resources := ev.events.Resources(filter)

	// A pattern rule with no matching resource at all is itself a finding:
	// the expected feed never arrived.
	if len(resources) == 0 {
		if translated := TranslatePattern(r, local); translated != "" {
			return []alert.Alert{{
				Resource:    translated,
				Severity:    alert.SeverityCritical,
				Description: fmt.Sprintf("no events observed for pattern %s", filter.Pattern),
				CreateTime:  now,
			}}, nil
		}
		return nil, nil
	}

	alerts := make([]alert.Alert, 0, len(resources))
	for _, res := range resources {
		history := ev.events.Query(event.Filter{Resource: res, Before: now})
		var latest *event.Event
		if len(history) > 0 {
			latest = &history[len(history)-1]
		}
		var today []event.Event
		for _, e := range history {
			if !e.Timestamp.Before(midnight) {
				today = append(today, e)
			}
		}
		st := ResourceState{Resource: res, Latest: latest, TodayEvents: today, Now: now}

		severity, reason := alert.SeverityOK, ""
		if len(r.Constraints) == 0 {
			if len(today) == 0 {
				severity, reason = alert.SeverityCritical, "no event observed today"
			}
		} else {
			for _, c := range r.Constraints {
				if v := c.Check(st); v != "" {
					severity, reason = alert.SeverityCritical, fmt.Sprintf("%s: %s", c.Name(), v)
					break
				}
			}
		}

		alerts = append(alerts, alert.Alert{
			Resource:    res,
			Severity:    severity,
			Description: reason,
			CreateTime:  now,
		})
	}
	return alerts, nil
}

// gateWindows applies exclude windows first, then include windows, at the
// rule's local time. Reason strings are stable: the coverage tracer branches
// on their content.
func (ev *Evaluator) gateWindows(r *Rule, now time.Time) error {
	loc := r.Location()
	local := now.In(loc)

	for _, w := range r.WindowExclude {
		switch win := w.(type) {
		case HolidayWindow:
			if ev.holidays != nil {
				day := local.AddDate(0, 0, win.DayOffset)
				if ev.holidays.IsHoliday(win.Calendar, day) {
					return Deferred(fmt.Sprintf("current date %s is a holiday in calendar %s",
						day.Format("20060102"), win.Calendar))
				}
			}
		case DatetimeWindow:
			if win.Contains(now) {
				return Deferred("current time falls within excluded CheckDatetimeWindow")
			}
		case TimeWindow:
			if win.Contains(local) {
				return Deferred("current time falls within excluded TimeWindow")
			}
		case WeekdayWindow:
			if win.Contains(local) {
				return Deferred("current time falls within excluded WeekdayWindow")
			}
		}
	}

	var (
		timeWindows     []TimeWindow
		weekdayWindows  []WeekdayWindow
		datetimeWindows []DatetimeWindow
	)
	for _, w := range r.WindowInclude {
		switch win := w.(type) {
		case TimeWindow:
			timeWindows = append(timeWindows, win)
		case WeekdayWindow:
			weekdayWindows = append(weekdayWindows, win)
		case DatetimeWindow:
			datetimeWindows = append(datetimeWindows, win)
		}
	}
	if start, end, ok := r.DailyWindow(); ok {
		timeWindows = append(timeWindows, TimeWindow{StartTime: start, EndTime: end})
	}

	if len(weekdayWindows) > 0 {
		admitted := false
		for _, w := range weekdayWindows {
			if w.Contains(local) {
				admitted = true
				break
			}
		}
		if !admitted {
			return Deferred(fmt.Sprintf("current time %s does not fall within WeekdayWindow", local.Format(time.RFC3339)))
		}
	}

	if len(timeWindows) > 0 {
		admitted := false
		for _, w := range timeWindows {
			if w.Contains(local) {
				admitted = true
				break
			}
		}
		if !admitted {
			return Deferred(fmt.Sprintf("current time %s does not fall within TimeWindow", local.Format(time.RFC3339)))
		}
	}

	if len(datetimeWindows) > 0 {
		admitted := false
		for _, w := range datetimeWindows {
			if w.Contains(now) {
				admitted = true
				break
			}
		}
		if !admitted {
			return Deferred("current time does not fall within CheckDatetimeWindow")
		}
	}

	return nil
}
