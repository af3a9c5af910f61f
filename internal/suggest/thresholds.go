package suggest

import (
	"github.com/pipeops/ruleaudit/internal/stats"
)

// SuggestFileSize bounds the expected file size from the observed size
// percentiles: half of p5 below, double p95 above.
func SuggestFileSize(res stats.Result) *SizeResult {
	if len(res.SizePercentiles) == 0 {
		return nil
	}
	p5 := res.SizePercentiles["p5"]
	p95 := res.SizePercentiles["p95"]

	min := int64(p5) / 2
	if min < 1 {
		min = 1
	}
	return &SizeResult{
		MinSize: min,
		MaxSize: int64(p95) * 2,
		Method:  "percentile_analysis",
	}
}

// SuggestFileCount bounds the expected daily count from the count
// percentiles of the first available timezone bucketing.
func SuggestFileCount(res stats.Result, timezone string) *CountResult {
	pct, ok := res.CountPercentiles[timezone]
	if !ok {
		for _, p := range res.CountPercentiles {
			pct = p
			break
		}
	}
	if len(pct) == 0 {
		return nil
	}

	min := int(pct["p5"])
	if min < 1 {
		min = 1
	}
	return &CountResult{
		MinCount: min,
		MaxCount: int(pct["p95"]),
		Method:   "percentile_analysis",
	}
}

// SuggestFileAge caps feed staleness at the p95 inter-arrival gap, never
// below one hour.
func SuggestFileAge(res stats.Result) *AgeResult {
	if res.AgeThresholds == nil {
		return nil
	}
	max := int(res.AgeThresholds.RecommendedMax)
	if max < 3600 {
		max = 3600
	}
	return &AgeResult{MaxAge: max, Method: "statistical_analysis"}
}

// SuggestFileOwnership pins owner, group and permission to their most common
// observed values. Abstains unless all three dimensions were observed.
func SuggestFileOwnership(res stats.Result) *OwnershipResult {
	owners := res.OwnershipDistribution["owner"]
	groups := res.OwnershipDistribution["group"]
	permissions := res.OwnershipDistribution["permission"]
	if len(owners) == 0 || len(groups) == 0 || len(permissions) == 0 {
		return nil
	}
	return &OwnershipResult{
		ExpectedOwner:      mostCommon(owners),
		ExpectedGroup:      mostCommon(groups),
		ExpectedPermission: mostCommon(permissions),
		Method:             "distribution_analysis",
	}
}

func mostCommon(dist map[string]int) string {
	best, n := "", -1
	for value, count := range dist {
		if count > n || (count == n && value < best) {
			best, n = value, count
		}
	}
	return best
}
