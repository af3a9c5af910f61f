package audit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pipeops/ruleaudit/internal/event"
	"github.com/pipeops/ruleaudit/internal/rule"
)

// coverageGrace tolerates minor check-window misconfiguration: an event
// rejected by the time window still counts as covered when it lands within
// two hours of the window boundary.
const coverageGrace = 2 * time.Hour

// TraceCoverage walks every event through the rule's single-instant
// pass/fail check at the event's own timestamp and classifies it as covered,
// not covered, or holiday-missed. Input order does not matter; the returned
// details are sorted by timestamp.
func TraceCoverage(r *rule.Rule, events []event.Event, holidays rule.HolidayCalendar) EventCoverageMetrics {
	loc := r.Location()

	evaluator := rule.NewEvaluator(event.NewMemoryRepository(), holidays)

	var (
		total          int
		covered        int
		holidayTotal   int
		holidayCovered int
		details        []EventDetail
	)

	for _, e := range events {
		total++
		ts := e.Timestamp.UTC()
		local := ts.In(loc)

		err := evaluator.WithClock(rule.FixedClock(ts)).Check(r)
		if err == nil {
			covered++
			// Covered holiday events enter the denominator too; the ratio
			// never exceeds 1.
			if r.Country != "" && holidays != nil && holidays.IsHoliday(r.Country, local) {
				holidayTotal++
				holidayCovered++
			}
			details = append(details, EventDetail{
				Resource:  e.Resource,
				Timestamp: local,
				IsCovered: true,
			})
			continue
		}

		reason, deferred := rule.IsDeferred(err)
		if !deferred {
			reason = err.Error()
		}

		switch {
		case deferred && strings.Contains(reason, "fall within TimeWindow"):
			startDt, endDt, ok := windowBounds(r, local)
			if ok && !local.Add(coverageGrace).Before(startDt) && !local.Add(-coverageGrace).After(endDt) {
				covered++
				details = append(details, EventDetail{
					Resource:  e.Resource,
					Timestamp: local,
					IsCovered: true,
					Reason: fmt.Sprintf("covered within 2 hours of start/end time %s %s %s",
						local.Format(time.RFC3339), startDt.Format(time.RFC3339), endDt.Format(time.RFC3339)),
				})
			} else {
				details = append(details, EventDetail{
					Resource:  e.Resource,
					Timestamp: local,
					Reason:    reason,
				})
			}
		case deferred && strings.Contains(reason, "holiday"):
			holidayTotal++
			details = append(details, EventDetail{
				Resource:  e.Resource,
				Timestamp: local,
				IsHoliday: true,
				Reason:    reason,
			})
		case deferred && strings.Contains(reason, "fall within WeekdayWindow"):
			details = append(details, EventDetail{
				Resource:  e.Resource,
				Timestamp: local,
				Reason:    fmt.Sprintf("%s --- %s", local.Weekday(), reason),
			})
		default:
			details = append(details, EventDetail{
				Resource:  e.Resource,
				Timestamp: local,
				Reason:    reason,
			})
		}
	}

	// With no holiday-eligible events the holiday score is defined as 100,
	// not 0/0.
	if holidayTotal == 0 {
		holidayTotal = 1
		holidayCovered = 1
	}

	var coverageScore, holidayScore float64
	if total > 0 {
		coverageScore = float64(covered) / float64(total) * 100
		holidayScore = float64(holidayCovered) / float64(holidayTotal) * 100
	}

	sort.SliceStable(details, func(i, j int) bool {
		return details[i].Timestamp.Before(details[j].Timestamp)
	})

	log.Debug().Int64("rule_id", r.ID).
		Int("covered", covered).Int("total", total).
		Msg("event coverage traced")

	return EventCoverageMetrics{
		TotalEvents:          total,
		CoveredEvents:        covered,
		CoverageScore:        coverageScore,
		TotalHolidayEvents:   holidayTotal,
		CoveredHolidayEvents: holidayCovered,
		HolidayCoverageScore: holidayScore,
		Events:               details,
	}
}

// windowBounds resolves the rule's daily window boundaries on the event's
// local date. Falls back to the first include-list time window when the rule
// has no daily fields.
func windowBounds(r *rule.Rule, local time.Time) (start, end time.Time, ok bool) {
	startSec, endSec, have := r.DailyWindow()
	if !have {
		for _, w := range r.WindowInclude {
			if tw, isTW := w.(rule.TimeWindow); isTW {
				startSec, endSec, have = tw.StartTime, tw.EndTime, true
				break
			}
		}
	}
	if !have {
		return time.Time{}, time.Time{}, false
	}
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return midnight.Add(time.Duration(startSec) * time.Second),
		midnight.Add(time.Duration(endSec) * time.Second), true
}
