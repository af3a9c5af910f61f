package audit

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pipeops/ruleaudit/internal/alert"
	"github.com/pipeops/ruleaudit/internal/event"
	"github.com/pipeops/ruleaudit/internal/rule"
)

// DefaultStep is the grid spacing used when dense activity forces uniform
// sampling.
const DefaultStep = 1800 * time.Second

// maxAgeGrace widens file max-age constraints during simulation so that
// boundary jitter between the event's own timestamp and the nearest
// simulated instant is not scored as a violation.
const maxAgeGrace = 900

// SimulationEnvironment tags alerts produced during replay so they can never
// be mistaken for production alerts.
const (
	SimulationEnvironment = "Development"
	SimulationEvent       = "simulated"
)

// Replay drives the rule's alert-producing evaluation across the important
// instants of [start, end], collecting emitted alerts into a per-run
// in-memory repository, then derives alert metrics from the accumulated
// severity histories.
//
// Instants are processed strictly in ascending order; each resource's history
// therefore accumulates already sorted, which the analyzer relies on.
func Replay(r *rule.Rule, events []event.Event, start, end time.Time, step time.Duration, holidays rule.HolidayCalendar) AlertMetrics {
	if len(events) == 0 {
		return AlertMetrics{}
	}
	r = patchRule(r)

	// Anchor the simulation at the first observed activity.
	earliest := events[0].Timestamp
	for _, e := range events[1:] {
		if e.Timestamp.Before(earliest) {
			earliest = e.Timestamp
		}
	}
	eu := earliest.UTC()
	start = time.Date(eu.Year(), eu.Month(), eu.Day(), 0, 0, 0, 0, time.UTC)

	times := SelectImportantTimes(r, start, end, events, step)
	log.Debug().Int64("rule_id", r.ID).Int("instants", len(times)).Msg("generated simulation times")

	eventRepo := event.NewMemoryRepository()
	eventRepo.SetEvents(events)
	alertRepo := alert.NewMemoryRepository()
	evaluator := rule.NewEvaluator(eventRepo, holidays)

	alertedResources := map[string]bool{}
	for i, t := range times {
		if i%200 == 0 {
			log.Debug().Int64("rule_id", r.ID).Int("done", i).Int("total", len(times)).Msg("replaying")
		}
		produced, err := evaluator.WithClock(rule.FixedClock(t)).Evaluate(r)
		if err != nil {
			if _, deferred := rule.IsDeferred(err); deferred {
				continue
			}
			// One bad instant must not abort the run.
			log.Error().Err(err).Int64("rule_id", r.ID).Time("instant", t).Msg("rule evaluation failed")
			continue
		}
		if len(produced) == 0 {
			continue
		}
		for j := range produced {
			produced[j].CreateTime = t
			produced[j].Environment = SimulationEnvironment
			produced[j].Event = SimulationEvent
			alertedResources[produced[j].Resource] = true
		}
		alertRepo.Create(produced)
	}

	openScore := OpenAlertScore(alertRepo)
	durationScore, details, openCount := AnalyzeHistory(alertRepo)

	return AlertMetrics{
		TotalAlerts:        len(alertedResources),
		TotalResources:     len(alertedResources),
		OpenAlerts:         openCount,
		OpenAlertScore:     openScore,
		AlertDurationScore: durationScore,
		SimulationTimes:    len(times),
		Alerts:             details,
	}
}

// patchRule clones the rule with simulation-only adjustments applied.
func patchRule(r *rule.Rule) *rule.Rule {
	c := r.Clone()
	for i, cons := range c.Constraints {
		if ma, ok := cons.(rule.MaxAgeConstraint); ok {
			ma.MaxAge += maxAgeGrace
			c.Constraints[i] = ma
		}
	}
	return c
}
