package audit

import "time"

// EventDetail records the coverage outcome for a single traced event.
type EventDetail struct {
	Resource  string    `json:"resource"`
	Timestamp time.Time `json:"timestamp"`
	IsCovered bool      `json:"is_covered"`
	IsHoliday bool      `json:"is_holiday"`
	Reason    string    `json:"reason,omitempty"`
}

// EventCoverageMetrics aggregates coverage tracing over one event set.
type EventCoverageMetrics struct {
	TotalEvents          int           `json:"total_events"`
	CoveredEvents        int           `json:"covered_events"`
	CoverageScore        float64       `json:"coverage_score"`
	TotalHolidayEvents   int           `json:"total_holiday_events"`
	CoveredHolidayEvents int           `json:"covered_holiday_events"`
	HolidayCoverageScore float64       `json:"holiday_coverage_score"`
	Events               []EventDetail `json:"events,omitempty"`
}

// AlertDetail is one reconstructed open/close interval for a resource. A nil
// CloseTime means the alert was still open when the simulation ended.
type AlertDetail struct {
	Resource  string     `json:"resource"`
	Severity  string     `json:"severity"`
	OpenTime  time.Time  `json:"open_time"`
	CloseTime *time.Time `json:"close_time,omitempty"`
	Duration  *float64   `json:"duration,omitempty"` // seconds
}

// AlertMetrics aggregates the alert half of a scoring run.
type AlertMetrics struct {
	TotalAlerts        int           `json:"total_alerts"`
	TotalResources     int           `json:"total_resources"`
	OpenAlerts         int           `json:"open_alerts"`
	OpenAlertScore     float64       `json:"open_alert_score"`
	AlertDurationScore float64       `json:"alert_duration_score"`
	SimulationTimes    int           `json:"simulation_times"`
	Alerts             []AlertDetail `json:"alerts,omitempty"`
}

// ReliabilityMetrics is the terminal artifact of one scoring run.
type ReliabilityMetrics struct {
	RuleID        string               `json:"rule_id"`
	RunID         string               `json:"run_id"`
	EventCoverage EventCoverageMetrics `json:"event_coverage"`
	AlertMetrics  AlertMetrics         `json:"alert_metrics"`
	FinalScore    float64              `json:"final_score"`
	ExecutionTime float64              `json:"execution_time"` // seconds
}
