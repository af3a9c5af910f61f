package storage

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/pipeops/ruleaudit/internal/audit"
	"github.com/pipeops/ruleaudit/internal/stats"
	"github.com/pipeops/ruleaudit/internal/suggest"
)

// Manager wraps a Backend with typed accessors for the artifacts the
// workflow produces.
type Manager struct {
	backend Backend
}

func NewManager(backend Backend) *Manager { return &Manager{backend: backend} }

func (m *Manager) StoreStatistics(ctx context.Context, res stats.Result) error {
	key := Key{RuleID: res.RuleID, DataType: DataStatistics}
	if err := m.backend.Store(ctx, key, res); err != nil {
		return err
	}
	log.Debug().Int64("rule_id", res.RuleID).Str("data_type", key.DataType).Msg("artifact stored")
	return nil
}

func (m *Manager) GetStatistics(ctx context.Context, ruleID int64) (*stats.Result, error) {
	var res stats.Result
	if err := m.backend.Retrieve(ctx, Key{RuleID: ruleID, DataType: DataStatistics}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *Manager) StoreSuggestions(ctx context.Context, s *suggest.Suggestions) error {
	key := Key{RuleID: s.RuleID, DataType: DataSuggestions}
	if err := m.backend.Store(ctx, key, s); err != nil {
		return err
	}
	log.Debug().Int64("rule_id", s.RuleID).Str("data_type", key.DataType).Msg("artifact stored")
	return nil
}

func (m *Manager) GetSuggestions(ctx context.Context, ruleID int64) (*suggest.Suggestions, error) {
	var s suggest.Suggestions
	if err := m.backend.Retrieve(ctx, Key{RuleID: ruleID, DataType: DataSuggestions}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// StoreMetrics stores a scoring run under the before or after slot.
func (m *Manager) StoreMetrics(ctx context.Context, ruleID int64, after bool, metrics audit.ReliabilityMetrics) error {
	key := Key{RuleID: ruleID, DataType: metricsType(after)}
	if err := m.backend.Store(ctx, key, metrics); err != nil {
		return err
	}
	log.Debug().Int64("rule_id", ruleID).Str("data_type", key.DataType).Msg("artifact stored")
	return nil
}

func (m *Manager) GetMetrics(ctx context.Context, ruleID int64, after bool) (*audit.ReliabilityMetrics, error) {
	var metrics audit.ReliabilityMetrics
	key := Key{RuleID: ruleID, DataType: metricsType(after)}
	if err := m.backend.Retrieve(ctx, key, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

// List exposes the backend listing for the results API.
func (m *Manager) List(ctx context.Context, ruleID int64, dataType string) ([]Key, error) {
	return m.backend.List(ctx, ruleID, dataType)
}

func metricsType(after bool) string {
	if after {
		return DataMetricsAfter
	}
	return DataMetricsBefore
}
