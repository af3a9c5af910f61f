package suggest

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pipeops/ruleaudit/internal/stats"
)

// Generate runs every suggestion algorithm over the rule's statistics.
// Algorithms abstain independently; an all-abstain result is valid and means
// the statistics carried too little signal. pinnedTimezone, when non-empty,
// skips the timezone vote and anchors every timezone-scoped suggestion.
func Generate(ruleID int64, res stats.Result, pinnedTimezone string) *Suggestions {
	s := &Suggestions{RuleID: ruleID, GeneratedAt: time.Now().UTC()}

	s.Timezone = SuggestTimezone(res, pinnedTimezone)
	if s.Timezone != nil && s.Timezone.Timezone != "" {
		s.CheckWindows = SuggestCheckWindows(res, s.Timezone.Timezone)
	}

	s.FileSize = SuggestFileSize(res)
	s.FileAge = SuggestFileAge(res)
	s.FileOwner = SuggestFileOwnership(res)
	tz := pinnedTimezone
	if tz == "" && s.Timezone != nil {
		tz = s.Timezone.Timezone
	}
	s.FileCount = SuggestFileCount(res, tz)

	log.Debug().Int64("rule_id", ruleID).
		Bool("timezone", s.Timezone != nil).
		Bool("check_windows", s.CheckWindows != nil).
		Bool("file_size", s.FileSize != nil).
		Bool("file_count", s.FileCount != nil).
		Bool("file_age", s.FileAge != nil).
		Bool("file_ownership", s.FileOwner != nil).
		Msg("suggestions generated")
	return s
}
