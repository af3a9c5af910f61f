package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeops/ruleaudit/internal/alert"
)

// historyRepo builds a repository from per-resource (offset, severity)
// transitions anchored at a fixed base time.
func historyRepo(t *testing.T, transitions map[string][]struct {
	offset   time.Duration
	severity string
}) alert.Repository {
	t.Helper()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	repo := alert.NewMemoryRepository()
	for res, trs := range transitions {
		for _, tr := range trs {
			repo.Create([]alert.Alert{{
				Resource:   res,
				Severity:   tr.severity,
				CreateTime: base.Add(tr.offset),
			}})
		}
	}
	return repo
}

type step = struct {
	offset   time.Duration
	severity string
}

func TestOpenAlertScore(t *testing.T) {
	repo := historyRepo(t, map[string][]step{
		"a": {{0, alert.SeverityCritical}, {time.Hour, alert.SeverityOK}},
		"b": {{0, alert.SeverityOK}, {time.Hour, alert.SeverityCritical}},
	})
	assert.InDelta(t, 50.0, OpenAlertScore(repo), 1e-9)
}

func TestOpenAlertScoreVacuous(t *testing.T) {
	assert.InDelta(t, 100.0, OpenAlertScore(alert.NewMemoryRepository()), 1e-9)
}

func TestAnalyzeHistoryClosedInterval(t *testing.T) {
	repo := historyRepo(t, map[string][]step{
		"a": {
			{0, alert.SeverityOK},
			{time.Hour, alert.SeverityCritical},
			{4 * time.Hour, alert.SeverityOK},
		},
	})

	_, details, openAlerts := AnalyzeHistory(repo)

	assert.Equal(t, 0, openAlerts)
	var interval *AlertDetail
	for i := range details {
		if details[i].Duration != nil && *details[i].Duration > 0 {
			require.Nil(t, interval, "expected a single non-zero interval")
			interval = &details[i]
		}
	}
	require.NotNil(t, interval)
	assert.Equal(t, alert.SeverityCritical, interval.Severity)
	require.NotNil(t, interval.CloseTime)
	assert.InDelta(t, 3*3600.0, *interval.Duration, 1e-9)
	assert.InDelta(t, interval.CloseTime.Sub(interval.OpenTime).Seconds(), *interval.Duration, 1e-9)
}

func TestAnalyzeHistoryStillOpen(t *testing.T) {
	repo := historyRepo(t, map[string][]step{
		"a": {
			{0, alert.SeverityOK},
			{time.Hour, alert.SeverityCritical},
			{3 * time.Hour, alert.SeverityCritical},
		},
	})

	_, details, openAlerts := AnalyzeHistory(repo)

	assert.Equal(t, 1, openAlerts)
	var open *AlertDetail
	for i := range details {
		if details[i].CloseTime == nil {
			open = &details[i]
		}
	}
	require.NotNil(t, open)
	require.NotNil(t, open.Duration)
	assert.InDelta(t, 2*3600.0, *open.Duration, 1e-9)
}

func TestAnalyzeHistoryDurationSnapping(t *testing.T) {
	repo := historyRepo(t, map[string][]step{
		"short": {{0, alert.SeverityCritical}, {time.Hour, alert.SeverityOK}},
		"long":  {{0, alert.SeverityCritical}, {3 * time.Hour, alert.SeverityOK}},
	})

	score, _, _ := AnalyzeHistory(repo)

	// 3600s snaps to zero under the two-hour cutoff, 10800s does not.
	assert.InDelta(t, 50.0, score, 1e-9)
}

func TestAnalyzeHistoryRareAlertingSkipsPenalty(t *testing.T) {
	transitions := map[string][]step{
		"noisy": {{0, alert.SeverityCritical}, {time.Hour, alert.SeverityOK}},
	}
	for i := 0; i < 19; i++ {
		transitions[fmt.Sprintf("quiet-%02d", i)] = []step{{0, alert.SeverityOK}}
	}
	repo := historyRepo(t, transitions)

	score, _, _ := AnalyzeHistory(repo)

	// One alerting resource out of twenty is below the penalty threshold.
	assert.InDelta(t, 100.0, score, 1e-9)
}

func TestAnalyzeHistoryEmptyRepository(t *testing.T) {
	score, details, openAlerts := AnalyzeHistory(alert.NewMemoryRepository())
	assert.InDelta(t, 100.0, score, 1e-9)
	assert.Empty(t, details)
	assert.Equal(t, 0, openAlerts)
}

func TestAnalyzeHistoryDetailsSortedByOpenTime(t *testing.T) {
	repo := historyRepo(t, map[string][]step{
		"a": {{2 * time.Hour, alert.SeverityCritical}, {5 * time.Hour, alert.SeverityOK}},
		"b": {{0, alert.SeverityCritical}, {3 * time.Hour, alert.SeverityOK}},
	})

	_, details, _ := AnalyzeHistory(repo)

	require.NotEmpty(t, details)
	for i := 1; i < len(details); i++ {
		assert.False(t, details[i].OpenTime.Before(details[i-1].OpenTime))
	}
}
