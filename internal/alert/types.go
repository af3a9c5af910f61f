package alert

import "time"

// Severity values carried on alerts and history transitions.
const (
	SeverityOK       = "ok"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Transition is one severity change on a resource's alert history.
type Transition struct {
	UpdateTime time.Time `json:"update_time"`
	Severity   string    `json:"severity"`
}

// Alert is the unit the rule evaluator emits and the alert manager stores.
// Identity is the resource: repeated alerts for one resource accumulate
// history rather than creating parallel alerts. Environment and Event tag
// simulation-origin alerts so they can never be confused with production
// pages.
type Alert struct {
	ID          string       `json:"id"`
	Resource    string       `json:"resource"`
	Severity    string       `json:"severity"`
	Description string       `json:"description,omitempty"`
	CreateTime  time.Time    `json:"create_time"`
	Environment string       `json:"environment,omitempty"`
	Event       string       `json:"event,omitempty"`
	History     []Transition `json:"history,omitempty"`
}

// LatestSeverity returns the severity of the most recent history entry, or
// the alert's own severity when the history is empty.
func (a *Alert) LatestSeverity() string {
	if len(a.History) == 0 {
		return a.Severity
	}
	latest := a.History[0]
	for _, tr := range a.History[1:] {
		if tr.UpdateTime.After(latest.UpdateTime) {
			latest = tr
		}
	}
	return latest.Severity
}
