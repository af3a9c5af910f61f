package stats

import "time"

// Frequency summarizes how often a feed produces events.
type Frequency struct {
	EventsPerDay float64 `json:"events_per_day"`
	TotalEvents  int     `json:"total_events"`
	StartDate    string  `json:"start_date"` // yyyy-mm-dd, UTC
	EndDate      string  `json:"end_date"`
}

// Thresholds are suggested bounds derived from an observed distribution.
type Thresholds struct {
	Min            int64 `json:"min"`
	Max            int64 `json:"max"`
	Typical        int64 `json:"typical"`
	RecommendedMax int64 `json:"recommended_max,omitempty"`
}

// Percentiles maps "p5".."p99" to interpolated values.
type Percentiles map[string]float64

// HolidaySimilarity scores how well the feed's daily on/off pattern matches a
// reference calendar shifted by Shift days.
type HolidaySimilarity struct {
	Jaccard  float64 `json:"jaccard"`
	Cosine   float64 `json:"cosine"`
	Hamming  float64 `json:"hamming"`
	Mean     float64 `json:"mean_similarity"`
	Calendar string  `json:"calendar"` // country code, "all_day" or "weekday"
	Shift    int     `json:"shift"`
	Timezone string  `json:"timezone"`
}

// Result carries every distribution the suggestion strategies consume. Maps
// keyed by timezone use IANA names; empty maps mean the underlying data was
// absent, which strategies treat as "abstain".
type Result struct {
	RuleID          int64     `json:"rule_id"`
	RuleType        string    `json:"rule_type"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	TotalEvents     int       `json:"total_events"`
	CalculationTime time.Time `json:"calculation_time"`

	Frequency Frequency `json:"frequency"`

	CountThresholds          map[string]Thresholds         `json:"count_thresholds,omitempty"`
	CountPercentiles         map[string]Percentiles        `json:"count_percentiles,omitempty"`
	WeekdayDistribution      map[string]map[string]float64 `json:"count_weekday_distribution,omitempty"`
	HalfHourDistribution     map[string]map[string]float64 `json:"count_30_min_distribution,omitempty"`
	DateLabelLagDistribution map[string]map[int]int        `json:"count_date_label_lag_distribution,omitempty"`

	HolidayMetrics map[string][]HolidaySimilarity `json:"holiday_metrics,omitempty"`

	SizeThresholds        *Thresholds               `json:"size_thresholds,omitempty"`
	SizePercentiles       Percentiles               `json:"size_percentiles,omitempty"`
	AgeThresholds         *Thresholds               `json:"age_thresholds,omitempty"`
	OwnershipDistribution map[string]map[string]int `json:"ownership_distribution,omitempty"`
}

// weekdayNames indexes time.Weekday (Sunday=0) to the serialized key.
var weekdayNames = [...]string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}
