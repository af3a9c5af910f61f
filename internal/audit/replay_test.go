package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeops/ruleaudit/internal/event"
	"github.com/pipeops/ruleaudit/internal/rule"
)

func TestReplayHealthyRule(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := []event.Event{
		eventAt("ds/feed.csv", day.Add(8*time.Hour)),
		eventAt("ds/feed.csv", day.Add(12*time.Hour)),
	}

	m := Replay(windowRule(), events, day, day.Add(24*time.Hour), DefaultStep, nil)

	assert.Equal(t, 1, m.TotalResources)
	assert.Equal(t, 0, m.OpenAlerts)
	assert.InDelta(t, 100.0, m.OpenAlertScore, 1e-9)
	assert.InDelta(t, 100.0, m.AlertDurationScore, 1e-9)
	assert.Positive(t, m.SimulationTimes)
}

func TestReplayStaleFeedStaysOpen(t *testing.T) {
	r := windowRule()
	r.Constraints = []rule.Constraint{rule.MaxAgeConstraint{MaxAge: 3600}}

	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := []event.Event{eventAt("ds/feed.csv", day.Add(8*time.Hour))}

	m := Replay(r, events, day, day.Add(24*time.Hour), DefaultStep, nil)

	// Fresh at the 09:00 window open, stale by the 17:00 close, never
	// recovers: the alert ends the run open.
	assert.Equal(t, 1, m.OpenAlerts)
	assert.InDelta(t, 0.0, m.OpenAlertScore, 1e-9)
	var open *AlertDetail
	for i := range m.Alerts {
		if m.Alerts[i].CloseTime == nil {
			open = &m.Alerts[i]
		}
	}
	require.NotNil(t, open)
	assert.Equal(t, "ds/feed.csv", open.Resource)
}

func TestReplayDoesNotMutateRule(t *testing.T) {
	r := windowRule()
	r.Constraints = []rule.Constraint{rule.MaxAgeConstraint{MaxAge: 3600}}

	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	Replay(r, []event.Event{eventAt("ds/feed.csv", day.Add(8*time.Hour))}, day, day.Add(24*time.Hour), DefaultStep, nil)

	require.Len(t, r.Constraints, 1)
	assert.Equal(t, 3600, r.Constraints[0].(rule.MaxAgeConstraint).MaxAge)
}

func TestReplayNoEvents(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	m := Replay(windowRule(), nil, day, day.Add(24*time.Hour), DefaultStep, nil)
	assert.Equal(t, AlertMetrics{}, m)
}

func TestScoreRulePerfect(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := []event.Event{
		eventAt("ds/feed.csv", day.Add(8*time.Hour)),
		eventAt("ds/feed.csv", day.Add(12*time.Hour)),
	}

	m := ScoreRule(windowRule(), events, day, day.Add(24*time.Hour), DefaultStep, nil)

	assert.Equal(t, "7", m.RuleID)
	assert.NotEmpty(t, m.RunID)
	assert.GreaterOrEqual(t, m.ExecutionTime, 0.0)
	// Full coverage, healthy alerts, vacuous holiday coverage.
	assert.InDelta(t, 100.0, m.FinalScore, 1e-9)
}

func TestScoreRuleRepeatable(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := []event.Event{
		eventAt("ds/feed.csv", day.Add(8*time.Hour)),
		eventAt("ds/feed.csv", day.Add(20*time.Hour)),
	}
	r := windowRule()

	first := ScoreRule(r, events, day, day.Add(24*time.Hour), DefaultStep, nil)
	second := ScoreRule(r, events, day, day.Add(24*time.Hour), DefaultStep, nil)

	assert.InDelta(t, first.FinalScore, second.FinalScore, 1e-9)
	assert.NotEqual(t, first.RunID, second.RunID)
}
