// Package storage persists audit artifacts (statistics, suggestions,
// reliability metrics) keyed by rule and artifact type. Backends serialize
// everything as JSON so file and postgres implementations stay
// interchangeable.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Artifact types a backend stores per rule.
const (
	DataStatistics    = "statistics"
	DataSuggestions   = "suggestions"
	DataMetricsBefore = "reliability_metric_before"
	DataMetricsAfter  = "reliability_metric_after"
)

// ErrNotFound is returned by Retrieve when no artifact exists for the key.
var ErrNotFound = errors.New("storage: artifact not found")

// Key identifies one stored artifact.
type Key struct {
	RuleID   int64  `json:"rule_id"`
	DataType string `json:"data_type"`
}

// Path returns the key's canonical relative path, "<rule_id>/<data_type>".
func (k Key) Path() string {
	return fmt.Sprintf("%d/%s", k.RuleID, k.DataType)
}

func (k Key) validate() error {
	if k.RuleID <= 0 {
		return fmt.Errorf("storage: invalid rule id %d", k.RuleID)
	}
	switch k.DataType {
	case DataStatistics, DataSuggestions, DataMetricsBefore, DataMetricsAfter:
		return nil
	}
	return fmt.Errorf("storage: unknown data type %q", k.DataType)
}

// Backend stores and retrieves JSON-serializable artifacts. Retrieve
// unmarshals into out, which must be a pointer.
type Backend interface {
	Store(ctx context.Context, key Key, data any) error
	Retrieve(ctx context.Context, key Key, out any) error
	List(ctx context.Context, ruleID int64, dataType string) ([]Key, error)
	Delete(ctx context.Context, key Key) error
}
