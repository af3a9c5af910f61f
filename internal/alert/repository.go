package alert

import (
	"sort"

	"github.com/google/uuid"
)

// Repository is a scoped alert store. A simulation run owns one repository;
// nothing leaks between runs.
type Repository interface {
	Create(alerts []Alert)
	GetAll() []*Alert
}

// MemoryRepository accumulates alerts keyed by resource, merging repeated
// creates into the per-resource history. No locking: one run, one goroutine.
type MemoryRepository struct {
	byResource map[string]*Alert
	order      []string
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byResource: map[string]*Alert{}}
}

// Create stores alerts, appending a history transition per alert. An alert
// for an already-known resource extends that resource's history.
func (r *MemoryRepository) Create(alerts []Alert) {
	for _, a := range alerts {
		existing, ok := r.byResource[a.Resource]
		if !ok {
			stored := a
			if stored.ID == "" {
				stored.ID = uuid.NewString()
			}
			stored.History = append([]Transition(nil), a.History...)
			stored.History = append(stored.History, Transition{UpdateTime: a.CreateTime, Severity: a.Severity})
			r.byResource[a.Resource] = &stored
			r.order = append(r.order, a.Resource)
			continue
		}
		existing.Severity = a.Severity
		existing.History = append(existing.History, Transition{UpdateTime: a.CreateTime, Severity: a.Severity})
	}
}

// GetAll returns all alerts in first-seen resource order, each with history
// sorted ascending by update time.
func (r *MemoryRepository) GetAll() []*Alert {
	out := make([]*Alert, 0, len(r.order))
	for _, res := range r.order {
		a := r.byResource[res]
		sort.SliceStable(a.History, func(i, j int) bool {
			return a.History[i].UpdateTime.Before(a.History[j].UpdateTime)
		})
		out = append(out, a)
	}
	return out
}
