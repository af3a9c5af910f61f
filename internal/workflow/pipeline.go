// Package workflow orchestrates the per-rule audit pipeline and the parallel
// runner over a rule corpus.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pipeops/ruleaudit/internal/audit"
	"github.com/pipeops/ruleaudit/internal/event"
	"github.com/pipeops/ruleaudit/internal/observability"
	"github.com/pipeops/ruleaudit/internal/rule"
	"github.com/pipeops/ruleaudit/internal/stats"
	"github.com/pipeops/ruleaudit/internal/storage"
	"github.com/pipeops/ruleaudit/internal/suggest"
)

// Step identifies how far down the pipeline a run goes. Each step implies all
// the ones before it.
type Step int

const (
	StepCollector Step = iota + 1
	StepScoreV1
	StepBuilder
	StepStatistic
	StepSuggestion
	StepScoreV2
)

var stepNames = map[string]Step{
	"collector":  StepCollector,
	"scorev1":    StepScoreV1,
	"builder":    StepBuilder,
	"statistic":  StepStatistic,
	"suggestion": StepSuggestion,
	"scorev2":    StepScoreV2,
}

// ParseStep resolves a step name from the CLI.
func ParseStep(name string) (Step, error) {
	if s, ok := stepNames[name]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// Pipeline wires the audit stages for one run configuration. A Pipeline is
// safe for concurrent use: every per-rule invocation owns its repositories.
type Pipeline struct {
	Collector *event.Collector
	Holidays  *rule.HolidayTable
	Storage   *storage.Manager

	// Step is the simulation grid spacing; Timezone optionally pins every
	// timezone-scoped stage to one IANA zone.
	Step     time.Duration
	Timezone string
}

// Result carries whatever the target step produced.
type Result struct {
	RuleID      int64
	Events      []event.Event
	Before      *audit.ReliabilityMetrics
	Statistics  *stats.Result
	Suggestions *suggest.Suggestions
	After       *audit.ReliabilityMetrics
	Elapsed     time.Duration
}

// Improvement returns the final-score delta, valid when both phases ran.
func (r *Result) Improvement() (float64, bool) {
	if r.Before == nil || r.After == nil {
		return 0, false
	}
	return r.After.FinalScore - r.Before.FinalScore, true
}

// Run executes the pipeline for one rule up to the target step, persisting
// artifacts as they are produced. Storage failures are logged, never fatal:
// a finished analysis is worth reporting even when a write fails.
func (p *Pipeline) Run(ctx context.Context, r *rule.Rule, start, end time.Time, target Step) (*Result, error) {
	began := time.Now()
	res := &Result{RuleID: r.ID}

	filter := event.Filter{}
	if r.Pattern != "" {
		filter.Pattern = rule.WildcardPattern(r.Pattern)
	}
	events, err := p.Collector.Collect(ctx, filter, start, end)
	if err != nil {
		return nil, fmt.Errorf("collect events for rule %d: %w", r.ID, err)
	}
	res.Events = events
	observability.EventsCollected.Add(float64(len(events)))

	if target >= StepScoreV1 {
		before := audit.ScoreRule(r, events, start, end, p.Step, p.Holidays)
		res.Before = &before
		observability.ObserveScore("before", before.FinalScore)
		p.store(ctx, func() error { return p.Storage.StoreMetrics(ctx, r.ID, false, before) })
	}

	if target >= StepStatistic {
		statistics := stats.NewBuilder(p.Timezone, p.Holidays).Build(r, events)
		res.Statistics = &statistics
		p.store(ctx, func() error { return p.Storage.StoreStatistics(ctx, statistics) })
	}

	if target >= StepSuggestion {
		res.Suggestions = suggest.Generate(r.ID, *res.Statistics, p.Timezone)
		countSuggestions(res.Suggestions)
		p.store(ctx, func() error { return p.Storage.StoreSuggestions(ctx, res.Suggestions) })
	}

	if target >= StepScoreV2 && res.Suggestions != nil && !res.Suggestions.Empty() {
		suggested := res.Suggestions.ToRule(r)
		after := audit.ScoreRule(suggested, events, start, end, p.Step, p.Holidays)
		res.After = &after
		observability.ObserveScore("after", after.FinalScore)
		p.store(ctx, func() error { return p.Storage.StoreMetrics(ctx, r.ID, true, after) })

		if delta, ok := res.Improvement(); ok {
			log.Info().Int64("rule_id", r.ID).
				Float64("before", res.Before.FinalScore).
				Float64("after", after.FinalScore).
				Float64("improvement", delta).
				Msg("suggestion rescored")
		}
	}

	res.Elapsed = time.Since(began)
	return res, nil
}

func (p *Pipeline) store(ctx context.Context, write func() error) {
	if p.Storage == nil {
		return
	}
	if err := write(); err != nil {
		log.Error().Err(err).Msg("store audit artifact")
	}
}

func countSuggestions(s *suggest.Suggestions) {
	kinds := map[string]bool{
		"timezone":       s.Timezone != nil,
		"check_windows":  s.CheckWindows != nil,
		"file_size":      s.FileSize != nil,
		"file_count":     s.FileCount != nil,
		"file_age":       s.FileAge != nil,
		"file_ownership": s.FileOwner != nil,
	}
	for kind, present := range kinds {
		if present {
			observability.SuggestionsGenerated.WithLabelValues(kind).Inc()
		}
	}
}
