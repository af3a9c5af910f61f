package suggest

import (
	"fmt"
	"math"
	"sort"

	"github.com/pipeops/ruleaudit/internal/stats"
)

// StabilityStrategy is pattern-agnostic: it votes for the timezone in which
// the feed's distributions are the most concentrated, predictable and simple,
// without assuming any particular shape.
type StabilityStrategy struct {
	// Weights default to 0.4/0.3/0.3 when zero.
	ConcentrationWeight  float64
	PredictabilityWeight float64
	SimplicityWeight     float64
}

func (StabilityStrategy) Name() string { return "stability_based" }

type stabilityMetrics struct {
	overall           float64
	peakConcentration float64
	normalizedEntropy float64
	activeBins        int
	herfindahl        float64
}

func (s StabilityStrategy) SuggestTimezone(res stats.Result) *TimezoneResult {
	cw, pw, sw := s.ConcentrationWeight, s.PredictabilityWeight, s.SimplicityWeight
	if cw == 0 && pw == 0 && sw == 0 {
		cw, pw, sw = 0.4, 0.3, 0.3
	}

	var bestTz string
	var best *stabilityMetrics
	for tz, dist := range res.HalfHourDistribution {
		m := stabilityOf(dist, cw, pw, sw)
		if m == nil {
			continue
		}
		if best == nil || m.overall > best.overall || (m.overall == best.overall && tz < bestTz) {
			bestTz, best = tz, m
		}
	}
	if best == nil {
		return nil
	}
	return &TimezoneResult{
		Timezone:   bestTz,
		Method:     "stability_based",
		Confidence: best.overall,
		Reason: fmt.Sprintf("stability %.2f: peak slot %.1f%%, entropy %.3f, activity in %d slots, herfindahl %.3f",
			best.overall, best.peakConcentration*100, best.normalizedEntropy, best.activeBins, best.herfindahl),
	}
}

func stabilityOf(dist map[string]float64, cw, pw, sw float64) *stabilityMetrics {
	const maxBins = 48
	if len(dist) == 0 {
		return nil
	}

	values := make([]float64, 0, len(dist))
	var total float64
	for _, v := range dist {
		values = append(values, v)
		total += v
	}
	if total == 0 {
		return nil
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	var herfindahl float64
	active := 0
	for _, v := range values {
		p := v / total
		herfindahl += p * p
		if v > 0 {
			active++
		}
	}
	peak := values[0] / total

	ent := entropyOf(values) / math.Log(2) // bits
	maxEntropy := math.Log2(maxBins)
	normEntropy := ent / maxEntropy
	perplexity := math.Pow(2, ent)

	concentration := (herfindahl + herfindahl + peak) / 3
	predictability := 1 - (normEntropy+perplexity/maxBins)/2
	simplicity := 1 - float64(active)/maxBins

	overall := cw*concentration + pw*predictability + sw*simplicity
	switch {
	case peak > 0.9:
		overall *= 1.15
	case peak > 0.8:
		overall *= 1.1
	}

	return &stabilityMetrics{
		overall:           math.Min(overall, 1),
		peakConcentration: peak,
		normalizedEntropy: normEntropy,
		activeBins:        active,
		herfindahl:        herfindahl,
	}
}
