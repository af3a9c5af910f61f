package rule

import (
	"fmt"
	"time"

	"github.com/pipeops/ruleaudit/internal/event"
)

// ResourceState is the per-resource snapshot a constraint judges: the events
// observed for the resource on the current local day, plus the latest event
// seen at or before the pinned evaluation instant.
type ResourceState struct {
	Resource    string
	Latest      *event.Event
	TodayEvents []event.Event
	Now         time.Time
}

// Constraint checks one aspect of a resource's health. A non-empty reason
// means the constraint is violated at this instant.
type Constraint interface {
	Name() string
	Check(st ResourceState) (reason string)
}

// SizeThresholdConstraint flags files whose latest observed size falls
// outside [MinBytes, MaxBytes]. A zero Max means unbounded above.
type SizeThresholdConstraint struct {
	MinBytes int64 `json:"min_value" yaml:"min_value"`
	MaxBytes int64 `json:"max_value,omitempty" yaml:"max_value,omitempty"`
}

func (SizeThresholdConstraint) Name() string { return "file_size_threshold_constraint" }

func (c SizeThresholdConstraint) Check(st ResourceState) string {
	if st.Latest == nil {
		return ""
	}
	if st.Latest.Size < c.MinBytes {
		return fmt.Sprintf("size %d below minimum %d", st.Latest.Size, c.MinBytes)
	}
	if c.MaxBytes > 0 && st.Latest.Size > c.MaxBytes {
		return fmt.Sprintf("size %d above maximum %d", st.Latest.Size, c.MaxBytes)
	}
	return ""
}

// MaxAgeConstraint flags resources whose latest event is older than MaxAge
// seconds at the evaluation instant. This is the freshness check: a feed that
// stops arriving trips it once the age budget is spent.
type MaxAgeConstraint struct {
	MaxAge int `json:"max_age" yaml:"max_age"`
}

func (MaxAgeConstraint) Name() string { return "file_max_age_constraint" }

func (c MaxAgeConstraint) Check(st ResourceState) string {
	if st.Latest == nil {
		return fmt.Sprintf("no event observed within %ds", c.MaxAge)
	}
	age := st.Now.Sub(st.Latest.Timestamp)
	if age > time.Duration(c.MaxAge)*time.Second {
		return fmt.Sprintf("latest event is %s old, max age %ds", age.Truncate(time.Second), c.MaxAge)
	}
	return ""
}

// CountThresholdConstraint flags resources with fewer than MinCount or more
// than MaxCount events on the current local day. Zero Max means unbounded.
type CountThresholdConstraint struct {
	MinCount int `json:"min_value" yaml:"min_value"`
	MaxCount int `json:"max_value,omitempty" yaml:"max_value,omitempty"`
}

func (CountThresholdConstraint) Name() string { return "file_count_threshold_constraint" }

func (c CountThresholdConstraint) Check(st ResourceState) string {
	n := len(st.TodayEvents)
	if n < c.MinCount {
		return fmt.Sprintf("observed %d events today, minimum %d", n, c.MinCount)
	}
	if c.MaxCount > 0 && n > c.MaxCount {
		return fmt.Sprintf("observed %d events today, maximum %d", n, c.MaxCount)
	}
	return ""
}

// OwnershipConstraint flags files whose latest event reports an unexpected
// owner, group or permission. Empty expectations are not checked.
type OwnershipConstraint struct {
	ExpectedOwner      string `json:"expected_owner,omitempty" yaml:"expected_owner,omitempty"`
	ExpectedGroup      string `json:"expected_group,omitempty" yaml:"expected_group,omitempty"`
	ExpectedPermission string `json:"expected_permission,omitempty" yaml:"expected_permission,omitempty"`
}

func (OwnershipConstraint) Name() string { return "file_ownership_and_permission_constraint" }

func (c OwnershipConstraint) Check(st ResourceState) string {
	if st.Latest == nil {
		return ""
	}
	if c.ExpectedOwner != "" && st.Latest.Owner != c.ExpectedOwner {
		return fmt.Sprintf("owner %q, expected %q", st.Latest.Owner, c.ExpectedOwner)
	}
	if c.ExpectedGroup != "" && st.Latest.Group != c.ExpectedGroup {
		return fmt.Sprintf("group %q, expected %q", st.Latest.Group, c.ExpectedGroup)
	}
	if c.ExpectedPermission != "" && st.Latest.Permission != c.ExpectedPermission {
		return fmt.Sprintf("permission %q, expected %q", st.Latest.Permission, c.ExpectedPermission)
	}
	return ""
}
