package suggest

import (
	"math"
	"sort"

	"github.com/pipeops/ruleaudit/internal/stats"
)

// TimezoneStrategy votes for the timezone that best explains the feed's
// activity pattern. A nil result is an abstention, never an error.
type TimezoneStrategy interface {
	Name() string
	SuggestTimezone(res stats.Result) *TimezoneResult
}

// delayPriority orders delay codes by specificity: same-day beats business
// days beats calendar days, backward-looking beats forward-looking.
var delayPriority = map[string]int{"T": 1, "B": 2, "C": 3, "b": 4, "c": 5}

// TimezoneStrategies is the fixed strategy registry. Order is the tie-break:
// earlier entries win when delay priorities are equal.
func TimezoneStrategies() []TimezoneStrategy {
	return []TimezoneStrategy{
		&CircularVarianceStrategy{},
		&EntropyStrategy{},
		&StabilityStrategy{},
	}
}

// SuggestTimezone runs every registered strategy and combines the votes:
// first non-nil result wins unless a later strategy proposes a higher
// priority delay code. When pinned is non-empty only that timezone is
// considered.
func SuggestTimezone(res stats.Result, pinned string) *TimezoneResult {
	if pinned != "" {
		if _, ok := res.HalfHourDistribution[pinned]; !ok {
			return nil
		}
		out := &TimezoneResult{Timezone: pinned, Method: "user_defined"}
		addDelaySettings(out, res)
		return out
	}

	var combined *TimezoneResult
	for _, strategy := range TimezoneStrategies() {
		result := strategy.SuggestTimezone(res)
		if result == nil || result.Timezone == "" {
			continue
		}
		addDelaySettings(result, res)
		if combined == nil {
			combined = result
			continue
		}
		if result.DelayCode != "" && combined.DelayCode != "" &&
			priorityOf(result.DelayCode) < priorityOf(combined.DelayCode) {
			combined = result
		}
	}
	return combined
}

func priorityOf(code string) int {
	if p, ok := delayPriority[code]; ok {
		return p
	}
	return math.MaxInt
}

// addDelaySettings derives the date-label delay from the dominant label lag
// in the suggested timezone, qualified by whether the feed follows a business
// or calendar day cadence.
func addDelaySettings(result *TimezoneResult, res stats.Result) {
	if result == nil || result.Timezone == "" {
		return
	}
	lags := res.DateLabelLagDistribution[result.Timezone]
	if len(lags) == 0 {
		return
	}

	dominant, best := 0, -1
	for lag, count := range lags {
		if count > best || (count == best && lag < dominant) {
			dominant, best = lag, count
		}
	}

	calendar := consensusCalendar(res)
	var code string
	switch {
	case dominant == 0:
		code = "T"
	case dominant > 0 && calendar == "all_day":
		code = "C"
	case dominant > 0:
		code = "B"
	case calendar == "all_day":
		code = "c"
	default:
		code = "b"
	}
	result.DelayCode = code
	if dominant < 0 {
		dominant = -dominant
	}
	result.DelayValue = dominant
}

// consensusCalendar picks the reference calendar the activity pattern tracks
// across timezones: the top similarity entry of every timezone must agree
// (one dissenter tolerated at a lower confidence bar).
func consensusCalendar(res stats.Result) string {
	if len(res.HolidayMetrics) == 0 {
		return ""
	}

	var calendars []string
	var scores []float64
	for _, sims := range res.HolidayMetrics {
		if len(sims) == 0 {
			continue
		}
		calendars = append(calendars, sims[0].Calendar)
		scores = append(scores, sims[0].Mean)
	}
	if len(calendars) == 0 {
		return ""
	}

	counts := map[string]int{}
	for _, c := range calendars {
		counts[c]++
	}
	mostCommon, most := "", 0
	for c, n := range counts {
		if n > most || (n == most && c < mostCommon) {
			mostCommon, most = c, n
		}
	}

	minScore := scores[0]
	for _, s := range scores[1:] {
		minScore = math.Min(minScore, s)
	}

	if most == len(calendars) && minScore >= 0.8 {
		return mostCommon
	}
	if most == len(calendars)-1 && minScore >= 0.7 {
		return mostCommon
	}
	return ""
}

// entropy is the Shannon entropy (natural log) of an unnormalized
// distribution.
func entropy(dist map[string]float64) float64 {
	values := make([]float64, 0, len(dist))
	for _, v := range dist {
		values = append(values, v)
	}
	return entropyOf(values)
}

func intEntropy(dist map[int]int) float64 {
	values := make([]float64, 0, len(dist))
	for _, v := range dist {
		values = append(values, float64(v))
	}
	return entropyOf(values)
}

func entropyOf(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, v := range values {
		if v <= 0 {
			continue
		}
		p := v / total
		h -= p * math.Log(p)
	}
	return h
}

// bucketSeconds converts an "HHMM" half-hour bucket label to seconds from
// midnight.
func bucketSeconds(bucket string) (int, bool) {
	if len(bucket) != 4 {
		return 0, false
	}
	h := int(bucket[0]-'0')*10 + int(bucket[1]-'0')
	m := int(bucket[2]-'0')*10 + int(bucket[3]-'0')
	if h < 0 || h > 23 || (m != 0 && m != 30) {
		return 0, false
	}
	return h*3600 + m*60, true
}

// timeByPercentile walks the sorted half-hour buckets and returns the second
// of day at which the cumulative share first reaches the percentile.
func timeByPercentile(dist map[string]float64, percentile float64) (int, bool) {
	if len(dist) == 0 {
		return 0, false
	}
	type bucket struct {
		sec   int
		share float64
	}
	buckets := make([]bucket, 0, len(dist))
	var total float64
	for label, share := range dist {
		sec, ok := bucketSeconds(label)
		if !ok {
			continue
		}
		buckets = append(buckets, bucket{sec, share})
		total += share
	}
	if total == 0 {
		return 0, false
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].sec < buckets[j].sec })

	var cum float64
	for _, b := range buckets {
		cum += b.share
		if cum/total*100 >= percentile {
			return b.sec, true
		}
	}
	return 0, false
}
