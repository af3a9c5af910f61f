package suggest

import (
	"github.com/pipeops/ruleaudit/internal/stats"
)

// EntropyStrategy votes for the timezone in which the feed's weekday and
// date-label lag distributions are the most deterministic. A feed that always
// lands on the same weekdays with the same label lag in its home timezone
// smears across buckets in every other one.
type EntropyStrategy struct{}

func (EntropyStrategy) Name() string { return "entropy" }

func (EntropyStrategy) SuggestTimezone(res stats.Result) *TimezoneResult {
	if len(res.WeekdayDistribution) == 0 || len(res.DateLabelLagDistribution) == 0 {
		return nil
	}

	scores := map[string]float64{}
	for tz, weekdays := range res.WeekdayDistribution {
		scores[tz] = entropy(weekdays) + intEntropy(res.DateLabelLagDistribution[tz])
	}
	if len(scores) == 0 {
		return nil
	}

	minEntropy := 0.0
	first := true
	for _, s := range scores {
		if first || s < minEntropy {
			minEntropy, first = s, false
		}
	}
	var best []string
	for tz, s := range scores {
		if s == minEntropy {
			best = append(best, tz)
		}
	}

	if len(best) == 1 {
		return &TimezoneResult{Timezone: best[0], Method: "entropy"}
	}

	// Tie: prefer the timezone whose activity tail ends latest in the local
	// day, i.e. the longest post-p90 quiet period.
	bestTz, bestDuration := "", -1
	for _, tz := range best {
		sec, ok := timeByPercentile(res.HalfHourDistribution[tz], 90)
		if !ok {
			continue
		}
		if d := 86400 - sec; d > bestDuration || (d == bestDuration && tz < bestTz) {
			bestTz, bestDuration = tz, d
		}
	}
	if bestTz == "" {
		return nil
	}
	return &TimezoneResult{Timezone: bestTz, Method: "entropy"}
}
