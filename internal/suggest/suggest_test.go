package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeops/ruleaudit/internal/rule"
	"github.com/pipeops/ruleaudit/internal/stats"
)

// concentratedStats describes a feed landing 09:00-10:00 New York time on
// business days, labeled with the previous business day.
func concentratedStats() stats.Result {
	ny := "America/New_York"
	tokyo := "Asia/Tokyo"
	return stats.Result{
		RuleID: 7,
		HalfHourDistribution: map[string]map[string]float64{
			ny: {"0900": 0.3, "0930": 0.3, "1000": 0.2, "1030": 0.2},
			tokyo: {
				"2200": 0.25, "2230": 0.25, "0100": 0.2, "0130": 0.2, "0300": 0.1,
			},
		},
		WeekdayDistribution: map[string]map[string]float64{
			ny: {
				"monday": 20, "tuesday": 20, "wednesday": 20, "thursday": 20,
				"friday": 20, "saturday": 0, "sunday": 0,
			},
			tokyo: {
				"monday": 10, "tuesday": 20, "wednesday": 15, "thursday": 20,
				"friday": 15, "saturday": 15, "sunday": 5,
			},
		},
		DateLabelLagDistribution: map[string]map[int]int{
			ny:    {1: 95, 2: 5},
			tokyo: {1: 50, 2: 50},
		},
		HolidayMetrics: map[string][]stats.HolidaySimilarity{
			ny: {
				{Calendar: "weekday", Mean: 0.95, Shift: 0, Timezone: ny},
				{Calendar: "US", Mean: 0.9, Shift: 1, Timezone: ny},
			},
			tokyo: {
				{Calendar: "weekday", Mean: 0.85, Shift: 0, Timezone: tokyo},
			},
		},
	}
}

func TestEntropyStrategyPrefersDeterministicTimezone(t *testing.T) {
	result := EntropyStrategy{}.SuggestTimezone(concentratedStats())
	require.NotNil(t, result)
	assert.Equal(t, "America/New_York", result.Timezone)
	assert.Equal(t, "entropy", result.Method)
}

func TestCircularVarianceStrategyPrefersConcentratedTimezone(t *testing.T) {
	result := CircularVarianceStrategy{}.SuggestTimezone(concentratedStats())
	require.NotNil(t, result)
	assert.Equal(t, "America/New_York", result.Timezone)
	assert.Greater(t, result.Confidence, 0.5)
}

func TestStabilityStrategyPrefersConcentratedTimezone(t *testing.T) {
	result := StabilityStrategy{}.SuggestTimezone(concentratedStats())
	require.NotNil(t, result)
	assert.Equal(t, "America/New_York", result.Timezone)
}

func TestSuggestTimezoneDelaySettings(t *testing.T) {
	result := SuggestTimezone(concentratedStats(), "")
	require.NotNil(t, result)
	assert.Equal(t, "America/New_York", result.Timezone)
	// Dominant label lag is +1 day with a weekday consensus calendar.
	assert.Equal(t, "B", result.DelayCode)
	assert.Equal(t, 1, result.DelayValue)
}

func TestSuggestTimezoneSameDayLag(t *testing.T) {
	res := concentratedStats()
	res.DateLabelLagDistribution["America/New_York"] = map[int]int{0: 100}
	result := SuggestTimezone(res, "")
	require.NotNil(t, result)
	assert.Equal(t, "T", result.DelayCode)
	assert.Equal(t, 0, result.DelayValue)
}

func TestSuggestTimezonePinned(t *testing.T) {
	result := SuggestTimezone(concentratedStats(), "Asia/Tokyo")
	require.NotNil(t, result)
	assert.Equal(t, "Asia/Tokyo", result.Timezone)
	assert.Equal(t, "user_defined", result.Method)
}

func TestSuggestTimezoneAbstainsWithoutData(t *testing.T) {
	assert.Nil(t, SuggestTimezone(stats.Result{}, ""))
}

func TestSuggestCheckWindows(t *testing.T) {
	result := SuggestCheckWindows(concentratedStats(), "America/New_York")
	require.NotNil(t, result)

	assert.Equal(t, "12345", result.Weekdays)
	require.NotNil(t, result.StartTime)
	require.NotNil(t, result.EndTime)
	// Latest slot whose two-hour lookback still covers every arrival bucket.
	assert.Equal(t, 11*3600, *result.StartTime)
	assert.Equal(t, endOfDay, *result.EndTime)
	// Best country match is US at shift +1; the rule offset is the negation.
	assert.Equal(t, "US", result.HolidayCalendar)
	assert.Equal(t, -1, result.DayOffset)
}

func TestSuggestCheckWindowsAbstainsWithoutDistribution(t *testing.T) {
	assert.Nil(t, SuggestCheckWindows(stats.Result{}, "GMT"))
}

func TestHolidayCalendarRequiresThreshold(t *testing.T) {
	res := concentratedStats()
	res.HolidayMetrics["America/New_York"] = []stats.HolidaySimilarity{
		{Calendar: "US", Mean: 0.5, Shift: 2},
	}
	result := SuggestCheckWindows(res, "America/New_York")
	require.NotNil(t, result)
	assert.Empty(t, result.HolidayCalendar)
}

func TestSuggestFileSize(t *testing.T) {
	res := stats.Result{SizePercentiles: stats.Percentiles{"p5": 100, "p95": 1000}}
	result := SuggestFileSize(res)
	require.NotNil(t, result)
	assert.Equal(t, int64(50), result.MinSize)
	assert.Equal(t, int64(2000), result.MaxSize)
}

func TestSuggestFileCount(t *testing.T) {
	res := stats.Result{CountPercentiles: map[string]stats.Percentiles{
		"GMT": {"p5": 2, "p95": 40},
	}}
	result := SuggestFileCount(res, "GMT")
	require.NotNil(t, result)
	assert.Equal(t, 2, result.MinCount)
	assert.Equal(t, 40, result.MaxCount)
}

func TestSuggestFileAgeFloor(t *testing.T) {
	res := stats.Result{AgeThresholds: &stats.Thresholds{RecommendedMax: 600}}
	result := SuggestFileAge(res)
	require.NotNil(t, result)
	assert.Equal(t, 3600, result.MaxAge)
}

func TestSuggestFileOwnershipNeedsAllDimensions(t *testing.T) {
	res := stats.Result{OwnershipDistribution: map[string]map[string]int{
		"owner": {"svc": 10},
		"group": {"data": 10},
	}}
	assert.Nil(t, SuggestFileOwnership(res))

	res.OwnershipDistribution["permission"] = map[string]int{"0644": 9, "0600": 1}
	result := SuggestFileOwnership(res)
	require.NotNil(t, result)
	assert.Equal(t, "svc", result.ExpectedOwner)
	assert.Equal(t, "0644", result.ExpectedPermission)
}

func TestGenerateAbstainsOnEmptyStatistics(t *testing.T) {
	s := Generate(7, stats.Result{}, "")
	require.NotNil(t, s)
	assert.True(t, s.Empty())
}

func TestToRuleAppliesEverything(t *testing.T) {
	start, end := 11*3600, endOfDay
	s := &Suggestions{
		RuleID: 7,
		Timezone: &TimezoneResult{
			Timezone: "America/New_York", DelayCode: "B", DelayValue: 2,
		},
		CheckWindows: &CheckWindowsResult{
			Timezone: "America/New_York", StartTime: &start, EndTime: &end,
			Weekdays: "12345", HolidayCalendar: "US", DayOffset: -1,
		},
		FileSize:  &SizeResult{MinSize: 50, MaxSize: 2000},
		FileCount: &CountResult{MinCount: 2, MaxCount: 40},
		FileAge:   &AgeResult{MaxAge: 7200},
		FileOwner: &OwnershipResult{ExpectedOwner: "svc"},
	}

	original := &rule.Rule{
		ID:       7,
		Type:     rule.FileMonitorRule,
		Timezone: rule.TzGMT,
		Pattern:  "/data/feed.${B1_YYYYMMDD}.csv",
		Constraints: []rule.Constraint{
			rule.MaxAgeConstraint{MaxAge: 60},
		},
	}

	applied := s.ToRule(original)

	// Original untouched.
	assert.Equal(t, rule.TzGMT, original.Timezone)
	assert.Len(t, original.Constraints, 1)

	assert.Equal(t, rule.TzNewYork, applied.Timezone)
	assert.Equal(t, "/data/feed.${B2_YYYYMMDD}.csv", applied.Pattern)
	assert.Equal(t, "B", applied.DelayCode)
	assert.Equal(t, 2, applied.DelayValue)
	require.NotNil(t, applied.StartTime)
	assert.Equal(t, 11*3600, *applied.StartTime)
	assert.Len(t, applied.WindowInclude, 2)
	assert.Len(t, applied.WindowExclude, 1)
	assert.Len(t, applied.Constraints, 4)
}
