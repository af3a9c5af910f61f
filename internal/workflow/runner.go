package workflow

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pipeops/ruleaudit/internal/audit"
	"github.com/pipeops/ruleaudit/internal/observability"
	"github.com/pipeops/ruleaudit/internal/rule"
)

// Runner fans a rule corpus across a worker pool, one pipeline run per rule,
// appending one summary line per rule:
//
//	ruleID|beforeScore|afterScore|seconds
//
// A rule that fails writes ERROR|ERROR and never affects its siblings. An
// existing summary file doubles as the resume checkpoint: listed rule ids are
// skipped.
type Runner struct {
	Pipeline    *Pipeline
	Workers     int
	SummaryPath string
}

// Run audits every rule and returns the number processed.
func (rn *Runner) Run(ctx context.Context, rules []*rule.Rule, start, end time.Time) (int, error) {
	workers := rn.Workers
	if workers <= 0 {
		workers = 4
	}

	processed, err := loadProcessed(rn.SummaryPath)
	if err != nil {
		return 0, err
	}
	var pending []*rule.Rule
	for _, r := range rules {
		if processed[fmt.Sprintf("%d", r.ID)] {
			continue
		}
		pending = append(pending, r)
	}
	if len(processed) > 0 {
		log.Info().Int("cached", len(rules)-len(pending)).Int("pending", len(pending)).
			Msg("resuming from summary file")
	}
	if len(pending) == 0 {
		return 0, nil
	}

	out, err := os.OpenFile(rn.SummaryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open summary file: %w", err)
	}
	defer out.Close()

	lines := make(chan string)
	var writerWg sync.WaitGroup
	writerWg.Add(1)
	go func() {
		defer writerWg.Done()
		for line := range lines {
			if _, err := fmt.Fprintln(out, line); err != nil {
				log.Error().Err(err).Msg("write summary line")
			}
		}
	}()

	jobs := make(chan *rule.Rule)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				lines <- rn.auditOne(ctx, r, start, end)
			}
		}()
	}
	for _, r := range pending {
		jobs <- r
	}
	close(jobs)
	wg.Wait()
	close(lines)
	writerWg.Wait()

	return len(pending), nil
}

func (rn *Runner) auditOne(ctx context.Context, r *rule.Rule, start, end time.Time) (line string) {
	began := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Int64("rule_id", r.ID).Interface("panic", rec).Msg("rule audit panicked")
			observability.ObserveAudit("error", time.Since(began).Seconds())
			line = fmt.Sprintf("%d|ERROR|ERROR|0.00", r.ID)
		}
	}()

	res, err := rn.Pipeline.Run(ctx, r, start, end, StepScoreV2)
	if err != nil {
		log.Error().Err(err).Int64("rule_id", r.ID).Msg("rule audit failed")
		observability.ObserveAudit("error", time.Since(began).Seconds())
		return fmt.Sprintf("%d|ERROR|ERROR|0.00", r.ID)
	}

	observability.ObserveAudit("ok", res.Elapsed.Seconds())
	return fmt.Sprintf("%d|%s|%s|%.2f",
		r.ID, scoreString(res.Before), scoreString(res.After), res.Elapsed.Seconds())
}

func scoreString(m *audit.ReliabilityMetrics) string {
	if m == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", m.FinalScore)
}

// loadProcessed reads rule ids already present in the summary file.
func loadProcessed(path string) (map[string]bool, error) {
	processed := map[string]bool{}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return processed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open summary file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		id := strings.TrimSpace(strings.SplitN(sc.Text(), "|", 2)[0])
		if id != "" {
			processed[id] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read summary file: %w", err)
	}
	return processed, nil
}
