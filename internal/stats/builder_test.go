package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeops/ruleaudit/internal/event"
	"github.com/pipeops/ruleaudit/internal/rule"
)

func testRule() *rule.Rule {
	return &rule.Rule{ID: 42, Type: rule.FileMonitorRule, Timezone: rule.TzGMT}
}

func createdAt(ts time.Time) event.Event {
	return event.Event{Resource: "ds/feed.csv", Timestamp: ts, Type: event.FileCreated}
}

func TestBuildEmpty(t *testing.T) {
	res := NewBuilder("GMT", nil).Build(testRule(), nil)
	assert.Equal(t, int64(42), res.RuleID)
	assert.Zero(t, res.TotalEvents)
	assert.Empty(t, res.CountThresholds)
}

func TestBuildFrequency(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := []event.Event{
		createdAt(day.Add(9 * time.Hour)),
		createdAt(day.Add(10 * time.Hour)),
		createdAt(day.Add(33 * time.Hour)),
		createdAt(day.Add(34 * time.Hour)),
	}

	res := NewBuilder("GMT", nil).Build(testRule(), events)

	assert.InDelta(t, 2.0, res.Frequency.EventsPerDay, 1e-9)
	assert.Equal(t, "2024-01-10", res.Frequency.StartDate)
	assert.Equal(t, "2024-01-11", res.Frequency.EndDate)
}

func TestBuildHalfHourDistribution(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := []event.Event{
		createdAt(day.Add(9*time.Hour + 15*time.Minute)),
		createdAt(day.Add(9*time.Hour + 45*time.Minute)),
	}

	res := NewBuilder("GMT", nil).Build(testRule(), events)

	dist := res.HalfHourDistribution["GMT"]
	require.NotNil(t, dist)
	assert.InDelta(t, 0.5, dist["0900"], 1e-9)
	assert.InDelta(t, 0.5, dist["0930"], 1e-9)
}

func TestBuildWeekdayDistribution(t *testing.T) {
	wednesday := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	events := []event.Event{
		createdAt(wednesday),
		createdAt(wednesday.Add(time.Hour)),
		{Resource: "ds/feed.csv", Timestamp: wednesday, Type: event.FileUpdated},
	}

	res := NewBuilder("GMT", nil).Build(testRule(), events)

	dist := res.WeekdayDistribution["GMT"]
	require.NotNil(t, dist)
	// Updates do not count toward arrival-day distribution.
	assert.InDelta(t, 2.0, dist["wednesday"], 1e-9)
	assert.InDelta(t, 0.0, dist["thursday"], 1e-9)
}

func TestBuildDateLabelLag(t *testing.T) {
	e := createdAt(time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC))
	e.DateLabel = "20240110"

	res := NewBuilder("GMT", nil).Build(testRule(), []event.Event{e})

	lags := res.DateLabelLagDistribution["GMT"]
	require.NotNil(t, lags)
	assert.Equal(t, 1, lags[2])
}

func TestBuildSizeStats(t *testing.T) {
	day := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	var events []event.Event
	for i, size := range []int64{100, 200, 300, 400} {
		e := createdAt(day.Add(time.Duration(i) * time.Hour))
		e.Size = size
		events = append(events, e)
	}

	res := NewBuilder("GMT", nil).Build(testRule(), events)

	require.NotNil(t, res.SizeThresholds)
	assert.Equal(t, int64(250), res.SizeThresholds.Typical)
	require.NotNil(t, res.SizePercentiles)
	assert.InDelta(t, 250.0, res.SizePercentiles["p50"], 1e-9)
}

func TestBuildAgeThresholds(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := []event.Event{
		createdAt(day),
		createdAt(day.Add(time.Hour)),
		createdAt(day.Add(2 * time.Hour)),
	}

	res := NewBuilder("GMT", nil).Build(testRule(), events)

	require.NotNil(t, res.AgeThresholds)
	assert.Equal(t, int64(3600), res.AgeThresholds.Typical)
}

func TestQuantileInterpolates(t *testing.T) {
	assert.InDelta(t, 2.5, quantile([]float64{1, 2, 3, 4}, 0.5), 1e-9)
	assert.InDelta(t, 1.0, quantile([]float64{1, 2, 3, 4}, 0.0), 1e-9)
	assert.InDelta(t, 4.0, quantile([]float64{1, 2, 3, 4}, 1.0), 1e-9)
}

func TestHolidaySimilarityPrefersWeekdayCalendar(t *testing.T) {
	// Two full weeks of weekday-only activity.
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) // Monday
	var events []event.Event
	for d := 0; d < 14; d++ {
		day := start.AddDate(0, 0, d)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		events = append(events, createdAt(day))
	}

	res := NewBuilder("GMT", nil).Build(testRule(), events)

	sims := res.HolidayMetrics["GMT"]
	require.NotEmpty(t, sims)
	assert.Equal(t, "weekday", sims[0].Calendar)
	assert.Equal(t, 0, sims[0].Shift)
	assert.InDelta(t, 1.0, sims[0].Mean, 1e-9)
}

func TestBuildOwnershipDistribution(t *testing.T) {
	day := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	e1 := createdAt(day)
	e1.Owner, e1.Group = "svc", "data"
	e2 := createdAt(day.Add(time.Hour))
	e2.Owner, e2.Group = "svc", "data"

	res := NewBuilder("GMT", nil).Build(testRule(), []event.Event{e1, e2})

	require.NotNil(t, res.OwnershipDistribution)
	assert.Equal(t, 2, res.OwnershipDistribution["owner"]["svc"])
	assert.Equal(t, 2, res.OwnershipDistribution["group"]["data"])
}
