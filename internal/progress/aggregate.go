package progress

import (
	"math"
	"sort"
	"time"

	"github.com/wisdomhub/wisdom-hub/internal/models"
)

// DailyStat summarizes one calendar day of recorded activity
type DailyStat struct {
	Date         string   `json:"date"`
	TotalMinutes int      `json:"totalMinutes"`
	Activities   int      `json:"activities"`
	Types        []string `json:"types"`
}

// SummaryStat summarizes a whole window of recorded activity
type SummaryStat struct {
	TotalMinutes         int            `json:"totalMinutes"`
	TotalHours           float64        `json:"totalHours"`
	TotalActivities      int            `json:"totalActivities"`
	ActiveDays           int            `json:"activeDays"`
	AverageMinutesPerDay float64        `json:"averageMinutesPerDay"`
	ActivityTypes        map[string]int `json:"activityTypes"`
}

const dateLayout = "2006-01-02"

// DailyStats buckets logs by local calendar day over the window
// [now - windowDays, now]. The cutoff is a timestamp, not a midnight
// boundary, so a log from the evening of the first in-window day still
// counts. Days without activity are omitted; output is sorted by date
// ascending. Nil rows are skipped and negative durations count as zero.
func DailyStats(logs []*models.ActivityLog, windowDays int, now time.Time, loc *time.Location) []DailyStat {
	if windowDays <= 0 {
		return []DailyStat{}
	}
	if loc == nil {
		loc = time.Local
	}

	cutoff := now.AddDate(0, 0, -windowDays)

	type bucket struct {
		minutes    int
		activities int
		types      map[string]struct{}
	}
	buckets := make(map[string]*bucket)

	for _, log := range logs {
		if log == nil {
			continue
		}
		if log.CreatedAt.Before(cutoff) {
			continue
		}
		date := log.CreatedAt.In(loc).Format(dateLayout)
		b, ok := buckets[date]
		if !ok {
			b = &bucket{types: make(map[string]struct{})}
			buckets[date] = b
		}
		if log.DurationMinutes > 0 {
			b.minutes += log.DurationMinutes
		}
		b.activities++
		b.types[string(log.ActivityType)] = struct{}{}
	}

	stats := make([]DailyStat, 0, len(buckets))
	for date, b := range buckets {
		types := make([]string, 0, len(b.types))
		for t := range b.types {
			types = append(types, t)
		}
		sort.Strings(types)
		stats = append(stats, DailyStat{
			Date:         date,
			TotalMinutes: b.minutes,
			Activities:   b.activities,
			Types:        types,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date < stats[j].Date })
	return stats
}

// SummaryStats reduces logs in the same window to a single rollup. Hours
// are rounded to one decimal; the per-day average divides by active days,
// not window length, and rounds to whole minutes. An empty window yields
// all zeroes.
func SummaryStats(logs []*models.ActivityLog, windowDays int, now time.Time, loc *time.Location) SummaryStat {
	daily := DailyStats(logs, windowDays, now, loc)

	summary := SummaryStat{ActivityTypes: make(map[string]int)}

	if windowDays > 0 {
		cutoff := now.AddDate(0, 0, -windowDays)
		for _, log := range logs {
			if log == nil || log.CreatedAt.Before(cutoff) {
				continue
			}
			summary.ActivityTypes[string(log.ActivityType)]++
		}
	}

	for _, day := range daily {
		summary.TotalMinutes += day.TotalMinutes
		summary.TotalActivities += day.Activities
	}
	summary.ActiveDays = len(daily)
	summary.TotalHours = math.Round(float64(summary.TotalMinutes)/60*10) / 10
	if summary.ActiveDays > 0 {
		summary.AverageMinutesPerDay = math.Round(float64(summary.TotalMinutes) / float64(summary.ActiveDays))
	}
	return summary
}
