package audit

import (
	"sort"

	"github.com/pipeops/ruleaudit/internal/alert"
)

// shortAlertCutoff is the mean duration in seconds below which a resource's
// alerting is treated as non-impactful noise rather than a reliability
// failure.
const shortAlertCutoff = 7200

// rareAlertFraction is the share of resources that must have recorded alert
// durations before durations are scored at all; below it there is not enough
// signal to penalize.
const rareAlertFraction = 0.1

// OpenAlertScore scores how many monitored resources ended the run healthy:
// 100 times the fraction of resources whose latest history entry is "ok".
// With no history at all the score is vacuously 100.
func OpenAlertScore(repo alert.Repository) float64 {
	latest := map[string]string{}
	for _, a := range repo.GetAll() {
		if len(a.History) == 0 {
			continue
		}
		latest[a.Resource] = a.LatestSeverity()
	}
	total := len(latest)
	if total == 0 {
		return 100
	}
	nonOK := 0
	for _, sev := range latest {
		if sev != alert.SeverityOK {
			nonOK++
		}
	}
	return float64(total-nonOK) / float64(total) * 100
}

// AnalyzeHistory reconstructs open/close intervals from each resource's
// severity history and scores mean alert durations. An interval opens on the
// first non-ok transition and closes on the next ok. Histories that end
// non-ok yield a still-open interval measured to the last update.
func AnalyzeHistory(repo alert.Repository) (durationScore float64, details []AlertDetail, openAlerts int) {
	all := repo.GetAll()
	if len(all) == 0 {
		return 100, nil, 0
	}

	type resourceDuration struct {
		resource string
		seconds  float64
	}
	var durations []resourceDuration
	seenResources := map[string]bool{}

	for _, a := range all {
		if len(a.History) == 0 {
			continue
		}
		history := append([]alert.Transition(nil), a.History...)
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].UpdateTime.Before(history[j].UpdateTime)
		})

		var openAt *alert.Transition
		for i := range history {
			entry := history[i]
			switch {
			case openAt == nil && entry.Severity != alert.SeverityOK:
				openAt = &history[i]
			case openAt != nil && entry.Severity == alert.SeverityOK:
				secs := entry.UpdateTime.Sub(openAt.UpdateTime).Seconds()
				durations = append(durations, resourceDuration{a.Resource, secs})
				closeTime := entry.UpdateTime
				d := secs
				details = append(details, AlertDetail{
					Resource:  a.Resource,
					Severity:  openAt.Severity,
					OpenTime:  openAt.UpdateTime,
					CloseTime: &closeTime,
					Duration:  &d,
				})
				openAt = nil
			case openAt == nil && entry.Severity == alert.SeverityOK:
				// First observation is already healthy: record the resource
				// as known-good once, with a zero-length interval.
				if !seenResources[a.Resource] {
					closeTime := entry.UpdateTime
					zero := 0.0
					details = append(details, AlertDetail{
						Resource:  a.Resource,
						Severity:  entry.Severity,
						OpenTime:  entry.UpdateTime,
						CloseTime: &closeTime,
						Duration:  &zero,
					})
				}
			}
			seenResources[a.Resource] = true
		}

		if openAt != nil {
			last := history[len(history)-1]
			if last.Severity != alert.SeverityOK {
				secs := last.UpdateTime.Sub(openAt.UpdateTime).Seconds()
				durations = append(durations, resourceDuration{a.Resource, secs})
				d := secs
				details = append(details, AlertDetail{
					Resource: a.Resource,
					Severity: openAt.Severity,
					OpenTime: openAt.UpdateTime,
					Duration: &d,
				})
				openAlerts++
			}
		}
	}

	sort.SliceStable(details, func(i, j int) bool {
		return details[i].OpenTime.Before(details[j].OpenTime)
	})

	if len(durations) == 0 {
		return 100, details, 0
	}

	perResource := map[string][]float64{}
	for _, rd := range durations {
		perResource[rd.resource] = append(perResource[rd.resource], rd.seconds)
	}
	averages := map[string]float64{}
	for res, ds := range perResource {
		sum := 0.0
		for _, d := range ds {
			sum += d
		}
		averages[res] = sum / float64(len(ds))
	}

	if float64(len(averages))/float64(len(seenResources)) > rareAlertFraction {
		zeroed := 0
		for res, avg := range averages {
			if avg < shortAlertCutoff {
				averages[res] = 0
			}
			if averages[res] == 0 {
				zeroed++
			}
		}
		durationScore = float64(zeroed) / float64(len(averages)) * 100
	} else {
		durationScore = 100
	}

	return durationScore, details, openAlerts
}
