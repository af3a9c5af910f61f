package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pipeops/ruleaudit/internal/event"
	"github.com/pipeops/ruleaudit/internal/rule"
)

// defaultTimezones are the IANA zones every distribution is bucketed under
// when the caller does not pin one.
var defaultTimezones = []string{
	"America/New_York",
	"Asia/Tokyo",
	"Europe/London",
	"GMT",
}

// Builder computes event distributions for one rule. Zero value is not
// usable; construct with NewBuilder.
type Builder struct {
	timezones []string
	holidays  *rule.HolidayTable
}

// NewBuilder returns a builder bucketing under the given IANA zone, or under
// all reference zones when timezone is empty. The holiday table feeds the
// calendar similarity metrics and may be nil.
func NewBuilder(timezone string, holidays *rule.HolidayTable) *Builder {
	tzs := defaultTimezones
	if timezone != "" {
		tzs = []string{timezone}
	}
	return &Builder{timezones: tzs, holidays: holidays}
}

// Build computes the full statistics result for a rule's events. Events need
// not be sorted. An empty event set yields a Result with zero totals and nil
// distribution maps.
func (b *Builder) Build(r *rule.Rule, events []event.Event) Result {
	res := Result{
		RuleID:          r.ID,
		RuleType:        r.Type,
		TotalEvents:     len(events),
		CalculationTime: time.Now().UTC(),
	}
	if len(events) == 0 {
		return res
	}

	sorted := append([]event.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	res.StartTime = sorted[0].Timestamp.UTC()
	res.EndTime = sorted[len(sorted)-1].Timestamp.UTC()

	res.Frequency = b.frequency(sorted)
	res.CountThresholds = map[string]Thresholds{}
	res.CountPercentiles = map[string]Percentiles{}
	res.WeekdayDistribution = map[string]map[string]float64{}
	res.HalfHourDistribution = map[string]map[string]float64{}
	res.DateLabelLagDistribution = map[string]map[int]int{}
	res.HolidayMetrics = map[string][]HolidaySimilarity{}

	for _, tz := range b.timezones {
		loc := rule.LocationFor(tz)

		daily := dailyCounts(sorted, loc)
		if th, ok := countThresholds(daily); ok {
			res.CountThresholds[tz] = th
		}
		if pct, ok := countPercentiles(daily); ok {
			res.CountPercentiles[tz] = pct
		}
		res.WeekdayDistribution[tz] = weekdayDistribution(sorted, loc)
		res.HalfHourDistribution[tz] = halfHourDistribution(sorted, loc)
		if lags := dateLabelLags(sorted, loc); len(lags) > 0 {
			res.DateLabelLagDistribution[tz] = lags
		}
		if sims := b.holidaySimilarity(sorted, tz, loc); len(sims) > 0 {
			res.HolidayMetrics[tz] = sims
		}
	}

	res.SizeThresholds, res.SizePercentiles = sizeStats(sorted)
	res.AgeThresholds = ageThresholds(sorted)
	res.OwnershipDistribution = ownershipDistribution(sorted)

	log.Debug().Int64("rule_id", r.ID).Int("events", len(sorted)).
		Int("timezones", len(b.timezones)).Msg("statistics built")
	return res
}

func (b *Builder) frequency(sorted []event.Event) Frequency {
	days := map[string]bool{}
	for _, e := range sorted {
		days[e.Timestamp.UTC().Format("2006-01-02")] = true
	}
	f := Frequency{
		TotalEvents: len(sorted),
		StartDate:   sorted[0].Timestamp.UTC().Format("2006-01-02"),
		EndDate:     sorted[len(sorted)-1].Timestamp.UTC().Format("2006-01-02"),
	}
	if len(days) > 0 {
		f.EventsPerDay = float64(len(sorted)) / float64(len(days))
	}
	return f
}

// dailyCounts buckets events by local calendar date.
func dailyCounts(events []event.Event, loc *time.Location) []float64 {
	byDay := map[string]int{}
	for _, e := range events {
		byDay[e.Timestamp.In(loc).Format("20060102")]++
	}
	out := make([]float64, 0, len(byDay))
	for _, n := range byDay {
		out = append(out, float64(n))
	}
	sort.Float64s(out)
	return out
}

func countThresholds(daily []float64) (Thresholds, bool) {
	if len(daily) == 0 {
		return Thresholds{}, false
	}
	mean, std := meanStd(daily)
	return Thresholds{
		Min:     int64(math.Max(1, mean-3*std)),
		Max:     int64(mean + 3*std),
		Typical: int64(quantile(daily, 0.5)),
	}, true
}

func countPercentiles(daily []float64) (Percentiles, bool) {
	if len(daily) == 0 {
		return nil, false
	}
	return percentileSet(daily), true
}

func weekdayDistribution(events []event.Event, loc *time.Location) map[string]float64 {
	out := map[string]float64{}
	for _, name := range weekdayNames {
		out[name] = 0
	}
	for _, e := range events {
		if e.Type != event.FileCreated && e.Type != event.TableLoaded && e.Type != event.JobFinished {
			continue
		}
		out[weekdayNames[e.Timestamp.In(loc).Weekday()]]++
	}
	return out
}

// halfHourDistribution returns the normalized share of events per "HH00" /
// "HH30" bucket.
func halfHourDistribution(events []event.Event, loc *time.Location) map[string]float64 {
	counts := map[string]int{}
	for _, e := range events {
		local := e.Timestamp.In(loc)
		half := "00"
		if local.Minute() >= 30 {
			half = "30"
		}
		counts[fmt.Sprintf("%02d%s", local.Hour(), half)]++
	}
	out := make(map[string]float64, len(counts))
	total := float64(len(events))
	for bucket, n := range counts {
		out[bucket] = float64(n) / total
	}
	return out
}

// dateLabelLags counts whole-day offsets between each event's local timestamp
// and the business date it is labeled with.
func dateLabelLags(events []event.Event, loc *time.Location) map[int]int {
	out := map[int]int{}
	for _, e := range events {
		if e.DateLabel == "" {
			continue
		}
		labelDay, err := time.ParseInLocation("20060102", e.DateLabel, loc)
		if err != nil {
			continue
		}
		lag := int(e.Timestamp.In(loc).Sub(labelDay).Hours() / 24)
		out[lag]++
	}
	return out
}

func sizeStats(events []event.Event) (*Thresholds, Percentiles) {
	var sizes []float64
	for _, e := range events {
		if e.Size > 0 {
			sizes = append(sizes, float64(e.Size))
		}
	}
	if len(sizes) == 0 {
		return nil, nil
	}
	sort.Float64s(sizes)
	mean, std := meanStd(sizes)
	th := &Thresholds{
		Min:            int64(math.Max(0, mean-2*std)),
		Max:            int64(mean + 2*std),
		Typical:        int64(quantile(sizes, 0.5)),
		RecommendedMax: int64(quantile(sizes, 0.95)),
	}
	return th, percentileSet(sizes)
}

// ageThresholds measures gaps between consecutive events, the empirical
// freshness envelope of the feed.
func ageThresholds(sorted []event.Event) *Thresholds {
	if len(sorted) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Timestamp.Sub(sorted[i-1].Timestamp).Seconds())
	}
	sort.Float64s(gaps)
	mean, std := meanStd(gaps)
	return &Thresholds{
		Min:            int64(math.Max(0, mean-2*std)),
		Max:            int64(mean + 2*std),
		Typical:        int64(quantile(gaps, 0.5)),
		RecommendedMax: int64(quantile(gaps, 0.95)),
	}
}

func ownershipDistribution(events []event.Event) map[string]map[string]int {
	out := map[string]map[string]int{}
	bump := func(dim, val string) {
		if val == "" {
			return
		}
		m, ok := out[dim]
		if !ok {
			m = map[string]int{}
			out[dim] = m
		}
		m[val]++
	}
	for _, e := range events {
		bump("owner", e.Owner)
		bump("group", e.Group)
		bump("permission", e.Permission)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func percentileSet(sorted []float64) Percentiles {
	return Percentiles{
		"p5":  quantile(sorted, 0.05),
		"p25": quantile(sorted, 0.25),
		"p50": quantile(sorted, 0.50),
		"p75": quantile(sorted, 0.75),
		"p90": quantile(sorted, 0.90),
		"p95": quantile(sorted, 0.95),
		"p99": quantile(sorted, 0.99),
	}
}

// quantile interpolates linearly between order statistics. Input must be
// sorted ascending.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(values)))
	return mean, std
}
