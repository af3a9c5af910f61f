package event

import "time"

// Event kinds emitted by the upstream event stores.
const (
	FileCreated = "file_created"
	FileUpdated = "file_updated"
	TableLoaded = "table_loaded"
	JobFinished = "job_finished"
)

// Event is one observed occurrence on a monitored resource: a file landing,
// a table load, a job completion. Timestamp is the authoritative ordering
// key. Events are immutable once collected.
type Event struct {
	Resource  string    `json:"resource"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`

	// File payload fields; zero-valued for non-file events.
	Size       int64  `json:"size,omitempty"`
	Owner      string `json:"owner,omitempty"`
	Group      string `json:"group,omitempty"`
	Permission string `json:"permission,omitempty"`

	// DateLabel is the business date stamped into the resource name,
	// formatted YYYYMMDD. Empty when the feed carries no date macro.
	DateLabel string `json:"date_label,omitempty"`
}

// LabelLagDays returns the signed day difference between the event's date
// label and its timestamp date in the given location, and whether the label
// was parseable.
func (e Event) LabelLagDays(loc *time.Location) (int, bool) {
	if e.DateLabel == "" {
		return 0, false
	}
	label, err := time.ParseInLocation("20060102", e.DateLabel, loc)
	if err != nil {
		return 0, false
	}
	local := e.Timestamp.In(loc)
	eventDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return int(label.Sub(eventDay).Hours() / 24), true
}
