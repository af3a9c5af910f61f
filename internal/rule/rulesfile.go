package rule

import (
	"fmt"
	"os"
	"time"

	promModel "github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

// Rules files carry the registry bootstrap set: one YAML document with a
// rules list. Window and constraint entries are discriminated by a type
// field matching the monitoring server's constraint names; durations accept
// prometheus notation ("90m", "1d").

type rulesFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID         int64   `yaml:"id"`
	Name       string  `yaml:"name"`
	Type       string  `yaml:"type"`
	Status     bool    `yaml:"status"`
	Pattern    string  `yaml:"pattern"`
	Timezone   string  `yaml:"timezone"`
	Country    string  `yaml:"country"`
	StartTime  *int    `yaml:"start_time"`
	EndTime    *int    `yaml:"end_time"`
	DelayCode  string  `yaml:"delay_code"`
	DelayValue int     `yaml:"delay_value"`

	WindowInclude []windowSpec     `yaml:"window_include"`
	WindowExclude []windowSpec     `yaml:"window_exclude"`
	Constraints   []constraintSpec `yaml:"constraints"`
}

type windowSpec struct {
	Type      string          `yaml:"type"`
	StartTime int             `yaml:"start_time"`
	EndTime   int             `yaml:"end_time"`
	Weekdays  string          `yaml:"weekdays"`
	Calendar  string          `yaml:"holiday_calendar"`
	DayOffset int             `yaml:"day_offset"`
	Ranges    []DatetimeRange `yaml:"check_datetime_ranges"`
}

type constraintSpec struct {
	Type               string             `yaml:"type"`
	MaxAge             promModel.Duration `yaml:"max_age"`
	MinValue           int64              `yaml:"min_value"`
	MaxValue           int64              `yaml:"max_value"`
	ExpectedOwner      string             `yaml:"expected_owner"`
	ExpectedGroup      string             `yaml:"expected_group"`
	ExpectedPermission string             `yaml:"expected_permission"`
}

// Short aliases accepted for the rule type field.
var ruleTypeAliases = map[string]string{
	"file_monitor":  FileMonitorRule,
	"table_service": TableServiceRule,
	"og_job":        OGJobRule,
}

// LoadRulesFile reads and parses a YAML rules file.
func LoadRulesFile(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules parses a YAML rules document.
func ParseRules(data []byte) ([]*Rule, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	rules := make([]*Rule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		r, err := spec.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d (index %d): %w", spec.ID, i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (s ruleSpec) toRule() (*Rule, error) {
	if s.ID <= 0 {
		return nil, fmt.Errorf("missing or invalid id")
	}
	ruleType := s.Type
	if full, ok := ruleTypeAliases[ruleType]; ok {
		ruleType = full
	}
	switch ruleType {
	case FileMonitorRule, TableServiceRule, OGJobRule:
	default:
		return nil, fmt.Errorf("unknown rule type %q", s.Type)
	}
	timezone := s.Timezone
	if timezone == "" {
		timezone = TzGMT
	}
	if _, ok := TimezoneMap[timezone]; !ok {
		return nil, fmt.Errorf("unknown timezone code %q", s.Timezone)
	}

	r := &Rule{
		ID:         s.ID,
		Name:       s.Name,
		Type:       ruleType,
		Status:     s.Status,
		Pattern:    s.Pattern,
		Timezone:   timezone,
		Country:    s.Country,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		DelayCode:  s.DelayCode,
		DelayValue: s.DelayValue,
	}

	for _, w := range s.WindowInclude {
		win, err := w.toWindow()
		if err != nil {
			return nil, err
		}
		r.WindowInclude = append(r.WindowInclude, win)
	}
	for _, w := range s.WindowExclude {
		win, err := w.toWindow()
		if err != nil {
			return nil, err
		}
		r.WindowExclude = append(r.WindowExclude, win)
	}
	for _, c := range s.Constraints {
		constraint, err := c.toConstraint()
		if err != nil {
			return nil, err
		}
		r.Constraints = append(r.Constraints, constraint)
	}
	return r, nil
}

func (w windowSpec) toWindow() (Window, error) {
	switch w.Type {
	case "time_window":
		return TimeWindow{StartTime: w.StartTime, EndTime: w.EndTime}, nil
	case "weekday_window":
		return WeekdayWindow{Weekdays: w.Weekdays}, nil
	case "holiday_window":
		return HolidayWindow{Calendar: w.Calendar, DayOffset: w.DayOffset}, nil
	case "check_datetime_window":
		return DatetimeWindow{Ranges: w.Ranges}, nil
	}
	return nil, fmt.Errorf("unknown window type %q", w.Type)
}

func (c constraintSpec) toConstraint() (Constraint, error) {
	switch c.Type {
	case "file_max_age_constraint":
		return MaxAgeConstraint{MaxAge: int(time.Duration(c.MaxAge).Seconds())}, nil
	case "file_size_threshold_constraint":
		return SizeThresholdConstraint{MinBytes: c.MinValue, MaxBytes: c.MaxValue}, nil
	case "file_count_threshold_constraint":
		return CountThresholdConstraint{MinCount: int(c.MinValue), MaxCount: int(c.MaxValue)}, nil
	case "file_ownership_and_permission_constraint":
		return OwnershipConstraint{
			ExpectedOwner:      c.ExpectedOwner,
			ExpectedGroup:      c.ExpectedGroup,
			ExpectedPermission: c.ExpectedPermission,
		}, nil
	}
	return nil, fmt.Errorf("unknown constraint type %q", c.Type)
}
