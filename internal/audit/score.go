package audit

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pipeops/ruleaudit/internal/event"
	"github.com/pipeops/ruleaudit/internal/rule"
)

// Score weights. Coverage dominates, duration and open-alert quality carry
// three quarters each, holiday coverage half. The divisor keeps a perfect
// rule at 100.
const (
	weightDuration = 0.75
	weightOpen     = 0.75
	weightCoverage = 1.0
	weightHoliday  = 0.5
	weightDivisor  = 3.0
)

// ScoreRule runs the full audit for one rule over its event history: coverage
// tracing over every event plus alert replay across [start, end]. The rule is
// never mutated; repeated calls with the same inputs return the same scores
// under fresh run identifiers.
func ScoreRule(r *rule.Rule, events []event.Event, start, end time.Time, step time.Duration, holidays rule.HolidayCalendar) ReliabilityMetrics {
	began := time.Now()

	coverage := TraceCoverage(r, events, holidays)
	alerts := Replay(r, events, start, end, step, holidays)

	final := (alerts.AlertDurationScore*weightDuration +
		alerts.OpenAlertScore*weightOpen +
		coverage.CoverageScore*weightCoverage +
		coverage.HolidayCoverageScore*weightHoliday) / weightDivisor

	m := ReliabilityMetrics{
		RuleID:        strconv.FormatInt(r.ID, 10),
		RunID:         uuid.NewString(),
		EventCoverage: coverage,
		AlertMetrics:  alerts,
		FinalScore:    final,
		ExecutionTime: time.Since(began).Seconds(),
	}

	log.Info().Str("rule_id", m.RuleID).Str("run_id", m.RunID).
		Float64("final_score", final).
		Float64("coverage_score", coverage.CoverageScore).
		Float64("duration_score", alerts.AlertDurationScore).
		Float64("open_score", alerts.OpenAlertScore).
		Dur("elapsed", time.Since(began)).
		Msg("rule scored")

	return m
}
