package suggest

import (
	"fmt"
	"regexp"
	"time"

	"github.com/pipeops/ruleaudit/internal/rule"
)

// TimezoneResult is a voted timezone (IANA name) plus the date-label delay
// that best explains the feed's labeling.
type TimezoneResult struct {
	Timezone   string  `json:"timezone"`
	DelayCode  string  `json:"delay_code,omitempty"` // T, B, b, C, c
	DelayValue int     `json:"delay_value,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Method     string  `json:"method_used"`
	Reason     string  `json:"suggest_reason,omitempty"`
}

// CheckWindowsResult is a suggested daily check window for one timezone.
type CheckWindowsResult struct {
	Timezone        string `json:"timezone"`
	StartTime       *int   `json:"start_time,omitempty"` // seconds from midnight
	EndTime         *int   `json:"end_time,omitempty"`
	Weekdays        string `json:"weekdays,omitempty"` // digit string, 0=Sunday
	HolidayCalendar string `json:"holiday_calendar,omitempty"`
	DayOffset       int    `json:"day_offset,omitempty"`
	Method          string `json:"method_used"`
}

// SizeResult bounds the expected file size.
type SizeResult struct {
	MinSize int64  `json:"min_size"`
	MaxSize int64  `json:"max_size"`
	Method  string `json:"method_used"`
}

// CountResult bounds the expected daily event count.
type CountResult struct {
	MinCount int    `json:"min_count"`
	MaxCount int    `json:"max_count"`
	Method   string `json:"method_used"`
}

// AgeResult caps the expected staleness of the feed.
type AgeResult struct {
	MaxAge int    `json:"max_age"` // seconds
	Method string `json:"method_used"`
}

// OwnershipResult pins the expected owner, group and permission.
type OwnershipResult struct {
	ExpectedOwner      string `json:"expected_owner,omitempty"`
	ExpectedGroup      string `json:"expected_group,omitempty"`
	ExpectedPermission string `json:"expected_permission,omitempty"`
	Method             string `json:"method_used"`
}

// Suggestions collects every inferred configuration change for one rule. Nil
// fields mean the corresponding algorithm abstained.
type Suggestions struct {
	RuleID      int64     `json:"rule_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Timezone     *TimezoneResult     `json:"timezone,omitempty"`
	CheckWindows *CheckWindowsResult `json:"check_windows,omitempty"`
	FileSize     *SizeResult         `json:"file_size,omitempty"`
	FileCount    *CountResult        `json:"file_count,omitempty"`
	FileAge      *AgeResult          `json:"file_age,omitempty"`
	FileOwner    *OwnershipResult    `json:"file_ownership,omitempty"`
}

// Empty reports whether every algorithm abstained.
func (s *Suggestions) Empty() bool {
	return s.Timezone == nil && s.CheckWindows == nil && s.FileSize == nil &&
		s.FileCount == nil && s.FileAge == nil && s.FileOwner == nil
}

var macroRe = regexp.MustCompile(`\$\{[^}_]+_([^}]+)\}`)

// ToRule returns a clone of r with every suggestion applied. The original is
// never touched, so before/after scoring can run on the same inputs.
func (s *Suggestions) ToRule(r *rule.Rule) *rule.Rule {
	c := r.Clone()
	c.Constraints = nil

	if cw := s.CheckWindows; cw != nil {
		if code, ok := rule.TimezoneMapReverse[cw.Timezone]; ok {
			c.Timezone = code
		}
		c.WindowInclude = nil
		c.WindowExclude = nil
		if cw.Weekdays != "" {
			c.WindowInclude = append(c.WindowInclude, rule.WeekdayWindow{Weekdays: cw.Weekdays})
		}
		if cw.StartTime != nil && cw.EndTime != nil {
			c.WindowInclude = append(c.WindowInclude, rule.TimeWindow{StartTime: *cw.StartTime, EndTime: *cw.EndTime})
			start, end := *cw.StartTime, *cw.EndTime
			c.StartTime, c.EndTime = &start, &end
		}
		if cw.HolidayCalendar != "" {
			c.WindowExclude = append(c.WindowExclude, rule.HolidayWindow{
				Calendar:  cw.HolidayCalendar,
				DayOffset: cw.DayOffset,
			})
		}
	}

	if tz := s.Timezone; tz != nil && tz.Timezone != "" {
		if code, ok := rule.TimezoneMapReverse[tz.Timezone]; ok {
			c.Timezone = code
		}
		if tz.DelayCode != "" {
			c.DelayCode = tz.DelayCode
			c.DelayValue = tz.DelayValue
			if c.Pattern != "" {
				delay := "T"
				if tz.DelayCode != "T" {
					delay = fmt.Sprintf("%s%d", tz.DelayCode, tz.DelayValue)
				}
				c.Pattern = macroRe.ReplaceAllString(c.Pattern, "$${"+delay+"_${1}}")
			}
		}
	}

	if fs := s.FileSize; fs != nil {
		c.Constraints = append(c.Constraints, rule.SizeThresholdConstraint{
			MinBytes: fs.MinSize,
			MaxBytes: fs.MaxSize,
		})
	}
	if fc := s.FileCount; fc != nil {
		c.Constraints = append(c.Constraints, rule.CountThresholdConstraint{
			MinCount: fc.MinCount,
			MaxCount: fc.MaxCount,
		})
	}
	if fa := s.FileAge; fa != nil {
		c.Constraints = append(c.Constraints, rule.MaxAgeConstraint{MaxAge: fa.MaxAge})
	}
	if fo := s.FileOwner; fo != nil {
		c.Constraints = append(c.Constraints, rule.OwnershipConstraint{
			ExpectedOwner:      fo.ExpectedOwner,
			ExpectedGroup:      fo.ExpectedGroup,
			ExpectedPermission: fo.ExpectedPermission,
		})
	}

	return c
}
