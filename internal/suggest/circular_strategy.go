package suggest

import (
	"fmt"
	"math"

	"github.com/pipeops/ruleaudit/internal/stats"
)

// CircularVarianceStrategy treats the 24h clock as a circle and votes for the
// timezone with the most concentrated arrival angle. In the feed's true
// timezone activity clusters around a single local hour; in a wrong timezone
// the same instants wrap around midnight and scatter.
type CircularVarianceStrategy struct{}

func (CircularVarianceStrategy) Name() string { return "circular_variance" }

type circularMetrics struct {
	meanHour   float64
	variance   float64
	resultant  float64
	kappa      float64
	pValue     float64
	multimodal bool
	score      float64
}

func (s CircularVarianceStrategy) SuggestTimezone(res stats.Result) *TimezoneResult {
	var bestTz string
	var best *circularMetrics
	for tz, dist := range res.HalfHourDistribution {
		m := s.metrics(dist)
		if m == nil {
			continue
		}
		if best == nil || m.score > best.score || (m.score == best.score && tz < bestTz) {
			bestTz, best = tz, m
		}
	}
	if best == nil {
		return nil
	}
	// Rayleigh test: only vote when the distribution is significantly
	// non-uniform.
	if best.pValue >= 0.05 {
		return nil
	}
	return &TimezoneResult{
		Timezone:   bestTz,
		Method:     "circular_variance",
		Confidence: 1 - best.variance,
		Reason: fmt.Sprintf("activity concentrated at %.1fh (variance=%.3f, kappa=%.2f, multimodal=%v)",
			best.meanHour, best.variance, best.kappa, best.multimodal),
	}
}

func (s CircularVarianceStrategy) metrics(dist map[string]float64) *circularMetrics {
	if len(dist) < 4 {
		return nil
	}

	var angles, weights []float64
	var total float64
	for bucket, share := range dist {
		sec, ok := bucketSeconds(bucket)
		if !ok {
			continue
		}
		angles = append(angles, float64(sec)/86400*2*math.Pi)
		weights = append(weights, share)
		total += share
	}
	if total == 0 || len(angles) < 4 {
		return nil
	}
	for i := range weights {
		weights[i] /= total
	}

	var sinSum, cosSum float64
	for i := range angles {
		sinSum += weights[i] * math.Sin(angles[i])
		cosSum += weights[i] * math.Cos(angles[i])
	}
	mean := math.Atan2(sinSum, cosSum)
	if mean < 0 {
		mean += 2 * math.Pi
	}
	r := math.Sqrt(sinSum*sinSum + cosSum*cosSum)

	m := &circularMetrics{
		meanHour:   mean / (2 * math.Pi) * 24,
		variance:   1 - r,
		resultant:  r,
		kappa:      estimateKappa(r),
		multimodal: multimodal(dist),
	}

	n := float64(len(angles))
	z := n * r * r
	m.pValue = math.Exp(-z) * (1 + (2*z-z*z)/(4*n))

	score := r
	switch {
	case m.kappa > 2:
		score *= 1.5
	case m.kappa > 1:
		score *= 1.2
	}
	if m.multimodal {
		score *= 0.7
	}
	switch {
	case m.variance > 0.8:
		score *= 0.5
	case m.variance > 0.6:
		score *= 0.8
	}
	m.score = math.Min(score, 1)
	return m
}

// estimateKappa is the maximum likelihood approximation of the von Mises
// concentration parameter from the resultant length.
func estimateKappa(r float64) float64 {
	var kappa float64
	switch {
	case r < 0.53:
		kappa = 2*r + r*r*r + 5*math.Pow(r, 5)/6
	case r < 0.85:
		kappa = -0.4 + 1.39*r + 0.43/(1-r)
	default:
		kappa = 1 / (r*r*r - 4*r*r + 3*r)
	}
	return math.Max(0, kappa)
}

// multimodal counts significant peaks in the circular bucket histogram. Two
// or more peaks suggest activity split across source regions.
func multimodal(dist map[string]float64) bool {
	const slots = 48
	histogram := make([]float64, slots)
	for bucket, share := range dist {
		sec, ok := bucketSeconds(bucket)
		if !ok {
			continue
		}
		histogram[sec/1800] += share
	}

	var max float64
	for _, v := range histogram {
		max = math.Max(max, v)
	}
	if max == 0 {
		return false
	}

	peaks := 0
	for i := 0; i < slots; i++ {
		prev := histogram[(i+slots-1)%slots]
		next := histogram[(i+1)%slots]
		if histogram[i] > prev && histogram[i] > next && histogram[i] > 0.1*max {
			peaks++
		}
	}
	return peaks > 1
}
