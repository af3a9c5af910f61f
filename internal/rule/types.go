package rule

import (
	"time"
)

// Rule types mirror the monitoring server's type discriminators.
const (
	FileMonitorRule  = "rule::file_monitor::file_rule_v2"
	TableServiceRule = "rule::table_service::table_rule_v2"
	OGJobRule        = "rule::og_job_rule"
)

// Rule is a monitoring rule as served by the monitoring server. It is a plain
// value object: the evaluator never mutates it, so a single Rule can be scored
// and re-scored without reset bookkeeping. Clone before applying suggestions.
type Rule struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Status   bool   `json:"status" yaml:"status"`
	Pattern  string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Timezone string `json:"timezone" yaml:"timezone"` // short code: NY, TK, LN, GMT
	Country  string `json:"country,omitempty" yaml:"country,omitempty"`

	// Daily check window boundaries in seconds from local midnight.
	// nil means the rule has no daily window configured.
	StartTime *int `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime   *int `json:"end_time,omitempty" yaml:"end_time,omitempty"`

	WindowInclude []Window     `json:"window_include,omitempty" yaml:"-"`
	WindowExclude []Window     `json:"window_exclude,omitempty" yaml:"-"`
	Constraints   []Constraint `json:"constraints,omitempty" yaml:"-"`

	// Date-label delay applied when translating the pattern: T (same day),
	// B/b (business days), C/c (calendar days).
	DelayCode  string `json:"delay_code,omitempty" yaml:"delay_code,omitempty"`
	DelayValue int    `json:"delay_value,omitempty" yaml:"delay_value,omitempty"`
}

// Clone returns a deep copy safe to mutate independently of the original.
func (r *Rule) Clone() *Rule {
	c := *r
	c.WindowInclude = append([]Window(nil), r.WindowInclude...)
	c.WindowExclude = append([]Window(nil), r.WindowExclude...)
	c.Constraints = append([]Constraint(nil), r.Constraints...)
	if r.StartTime != nil {
		v := *r.StartTime
		c.StartTime = &v
	}
	if r.EndTime != nil {
		v := *r.EndTime
		c.EndTime = &v
	}
	return &c
}

// Location resolves the rule's short timezone code to a fixed *time.Location.
// Unknown codes fall back to GMT, matching the monitoring server default.
func (r *Rule) Location() *time.Location {
	return LocationFor(r.Timezone)
}

// DailyWindow reports the configured daily check window, if any.
func (r *Rule) DailyWindow() (start, end int, ok bool) {
	if r.StartTime == nil || r.EndTime == nil {
		return 0, 0, false
	}
	return *r.StartTime, *r.EndTime, true
}
