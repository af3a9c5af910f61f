package rule

import (
	"fmt"
	"time"

	promModel "github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

// EncodeRules renders rules back into the rules-file YAML document, the wire
// shape the registry serves. EncodeRules and ParseRules round-trip.
func EncodeRules(rules []*Rule) ([]byte, error) {
	file := rulesFile{Rules: make([]ruleSpec, 0, len(rules))}
	for _, r := range rules {
		spec, err := specFromRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", r.ID, err)
		}
		file.Rules = append(file.Rules, spec)
	}
	return yaml.Marshal(file)
}

func specFromRule(r *Rule) (ruleSpec, error) {
	s := ruleSpec{
		ID:         r.ID,
		Name:       r.Name,
		Type:       r.Type,
		Status:     r.Status,
		Pattern:    r.Pattern,
		Timezone:   r.Timezone,
		Country:    r.Country,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		DelayCode:  r.DelayCode,
		DelayValue: r.DelayValue,
	}
	for _, w := range r.WindowInclude {
		spec, err := windowSpecFrom(w)
		if err != nil {
			return ruleSpec{}, err
		}
		s.WindowInclude = append(s.WindowInclude, spec)
	}
	for _, w := range r.WindowExclude {
		spec, err := windowSpecFrom(w)
		if err != nil {
			return ruleSpec{}, err
		}
		s.WindowExclude = append(s.WindowExclude, spec)
	}
	for _, c := range r.Constraints {
		spec, err := constraintSpecFrom(c)
		if err != nil {
			return ruleSpec{}, err
		}
		s.Constraints = append(s.Constraints, spec)
	}
	return s, nil
}

func windowSpecFrom(w Window) (windowSpec, error) {
	switch win := w.(type) {
	case TimeWindow:
		return windowSpec{Type: "time_window", StartTime: win.StartTime, EndTime: win.EndTime}, nil
	case WeekdayWindow:
		return windowSpec{Type: "weekday_window", Weekdays: win.Weekdays}, nil
	case HolidayWindow:
		return windowSpec{Type: "holiday_window", Calendar: win.Calendar, DayOffset: win.DayOffset}, nil
	case DatetimeWindow:
		return windowSpec{Type: "check_datetime_window", Ranges: win.Ranges}, nil
	}
	return windowSpec{}, fmt.Errorf("unencodable window %T", w)
}

func constraintSpecFrom(c Constraint) (constraintSpec, error) {
	switch con := c.(type) {
	case MaxAgeConstraint:
		return constraintSpec{
			Type:   "file_max_age_constraint",
			MaxAge: promModel.Duration(time.Duration(con.MaxAge) * time.Second),
		}, nil
	case SizeThresholdConstraint:
		return constraintSpec{
			Type:     "file_size_threshold_constraint",
			MinValue: con.MinBytes,
			MaxValue: con.MaxBytes,
		}, nil
	case CountThresholdConstraint:
		return constraintSpec{
			Type:     "file_count_threshold_constraint",
			MinValue: int64(con.MinCount),
			MaxValue: int64(con.MaxCount),
		}, nil
	case OwnershipConstraint:
		return constraintSpec{
			Type:               "file_ownership_and_permission_constraint",
			ExpectedOwner:      con.ExpectedOwner,
			ExpectedGroup:      con.ExpectedGroup,
			ExpectedPermission: con.ExpectedPermission,
		}, nil
	}
	return constraintSpec{}, fmt.Errorf("unencodable constraint %T", c)
}
