package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeops/ruleaudit/internal/event"
)

func TestSelectImportantTimesDenseFallback(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := make([]event.Event, 120)
	for i := range events {
		events[i] = eventAt("busy", day.Add(time.Duration(i)*10*time.Minute))
	}

	times := SelectImportantTimes(windowRule(), day, day.Add(24*time.Hour), events, DefaultStep)

	assert.Len(t, times, 49)
	for i := 1; i < len(times); i++ {
		assert.Equal(t, DefaultStep, times[i].Sub(times[i-1]))
	}
}

func TestSelectImportantTimesZeroStep(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := make([]event.Event, 120)
	for i := range events {
		events[i] = eventAt("busy", day.Add(time.Duration(i)*10*time.Minute))
	}

	times := SelectImportantTimes(windowRule(), day, day.Add(24*time.Hour), events, 0)

	assert.Len(t, times, 49)
	for i := 1; i < len(times); i++ {
		assert.Equal(t, DefaultStep, times[i].Sub(times[i-1]))
	}
}

func TestSelectImportantTimesSparse(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := []event.Event{
		eventAt("ds/feed.csv", day.Add(8*time.Hour)),
		eventAt("ds/feed.csv", day.Add(12*time.Hour)),
		eventAt("ds/feed.csv", day.Add(20*time.Hour)),
	}

	times := SelectImportantTimes(windowRule(), day, day.Add(24*time.Hour), events, DefaultStep)

	want := []time.Time{
		day.Add(9 * time.Hour),
		day.Add(17 * time.Hour),
		day.Add(8*time.Hour - 5*time.Minute),
		day.Add(8*time.Hour + 5*time.Minute),
		day.Add(12*time.Hour - 5*time.Minute),
		day.Add(12*time.Hour + 5*time.Minute),
		day.Add(20*time.Hour - 5*time.Minute),
		day.Add(20*time.Hour + 5*time.Minute),
	}
	for _, w := range want {
		assert.Contains(t, times, w)
	}

	start, end := day, day.Add(24*time.Hour)
	for i, ts := range times {
		assert.False(t, ts.Before(start) || ts.After(end), "instant %v out of range", ts)
		if i > 0 {
			assert.True(t, times[i-1].Before(ts), "instants not strictly ascending")
		}
	}
}

func TestSelectImportantTimesIdempotent(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := []event.Event{
		eventAt("ds/feed.csv", day.Add(8*time.Hour)),
		eventAt("ds/feed.csv", day.Add(12*time.Hour)),
	}

	first := SelectImportantTimes(windowRule(), day, day.Add(24*time.Hour), events, DefaultStep)
	second := SelectImportantTimes(windowRule(), day, day.Add(24*time.Hour), events, DefaultStep)

	require.Equal(t, first, second)
}

func TestSelectImportantTimesClampsOutOfRangeEvents(t *testing.T) {
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	events := []event.Event{
		eventAt("ds/feed.csv", day.Add(-48*time.Hour)),
		eventAt("ds/feed.csv", day.Add(12*time.Hour)),
	}

	times := SelectImportantTimes(windowRule(), day, day.Add(24*time.Hour), events, DefaultStep)

	for _, ts := range times {
		assert.False(t, ts.Before(day) || ts.After(day.Add(24*time.Hour)))
	}
}
