package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMergesByResource(t *testing.T) {
	repo := NewMemoryRepository()
	t0 := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	repo.Create([]Alert{{Resource: "feed.a", Severity: SeverityCritical, CreateTime: t0}})
	repo.Create([]Alert{{Resource: "feed.a", Severity: SeverityOK, CreateTime: t0.Add(time.Hour)}})
	repo.Create([]Alert{{Resource: "feed.b", Severity: SeverityOK, CreateTime: t0.Add(2 * time.Hour)}})

	all := repo.GetAll()
	require.Len(t, all, 2)

	a := all[0]
	assert.Equal(t, "feed.a", a.Resource)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, SeverityOK, a.Severity)
	require.Len(t, a.History, 2)
	assert.Equal(t, SeverityCritical, a.History[0].Severity)
	assert.Equal(t, SeverityOK, a.History[1].Severity)

	assert.Equal(t, "feed.b", all[1].Resource)
}

func TestGetAllSortsHistory(t *testing.T) {
	repo := NewMemoryRepository()
	t0 := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	// Out-of-order creates still yield chronological history.
	repo.Create([]Alert{{Resource: "feed.a", Severity: SeverityOK, CreateTime: t0.Add(time.Hour)}})
	repo.Create([]Alert{{Resource: "feed.a", Severity: SeverityCritical, CreateTime: t0}})

	all := repo.GetAll()
	require.Len(t, all, 1)
	history := all[0].History
	require.Len(t, history, 2)
	assert.True(t, history[0].UpdateTime.Before(history[1].UpdateTime))
	assert.Equal(t, SeverityCritical, history[0].Severity)
}

func TestLatestSeverity(t *testing.T) {
	t0 := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	a := &Alert{Severity: SeverityWarning}
	assert.Equal(t, SeverityWarning, a.LatestSeverity())

	a.History = []Transition{
		{UpdateTime: t0.Add(time.Hour), Severity: SeverityOK},
		{UpdateTime: t0, Severity: SeverityCritical},
	}
	assert.Equal(t, SeverityOK, a.LatestSeverity())
}

func TestCreatePreservesExplicitID(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Create([]Alert{{ID: "fixed", Resource: "feed.a", Severity: SeverityOK, CreateTime: time.Now()}})
	all := repo.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "fixed", all[0].ID)
}
