// Package registry is the rule-registry service the auditor pulls rules
// from: a thin store of monitoring rules served over HTTP in the rules-file
// YAML shape.
package registry

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/pipeops/ruleaudit/internal/rule"
)

// ErrRuleNotFound is returned for unknown rule ids.
var ErrRuleNotFound = errors.New("registry: rule not found")

// Store holds the rule corpus.
type Store interface {
	GetRule(ctx context.Context, id int64) (*rule.Rule, error)
	ListRules(ctx context.Context) ([]*rule.Rule, error)
	UpsertRules(ctx context.Context, rules []*rule.Rule) error
}

// MemoryStore serves rules from memory, typically bootstrapped from a rules
// file.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[int64]*rule.Rule
}

func NewMemoryStore(rules []*rule.Rule) *MemoryStore {
	s := &MemoryStore{rules: make(map[int64]*rule.Rule, len(rules))}
	for _, r := range rules {
		s.rules[r.ID] = r
	}
	return s
}

func (s *MemoryStore) GetRule(ctx context.Context, id int64) (*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) ListRules(ctx context.Context) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*rule.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpsertRules(ctx context.Context, rules []*rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rules {
		s.rules[r.ID] = r.Clone()
	}
	return nil
}
