package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"milkroad_server/models"
)

// wholeMinutes truncates d toward zero, matching a clock-minute difference
func wholeMinutes(d time.Duration) int {
	return int(d / time.Minute)
}

func mean(sum, count int) *float64 {
	if count == 0 {
		return nil
	}
	avg := float64(sum) / float64(count)
	return &avg
}

// ComputeStats derives rolling averages from a day's records. Non-positive
// gaps and durations (duplicates, out-of-order entries) are skipped, and a
// metric with no valid samples is left nil.
func ComputeStats(feeds []models.FeedEvent, sleeps []models.SleepSession) models.Stats {
	stats := models.Stats{FeedCount: len(feeds)}

	sorted := append([]models.FeedEvent(nil), feeds...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	if len(sorted) >= 2 {
		total, count := 0, 0
		for i := 0; i < len(sorted)-1; i++ {
			interval := wholeMinutes(sorted[i].Timestamp.Sub(sorted[i+1].Timestamp))
			if interval > 0 {
				total += interval
				count++
			}
		}
		stats.AvgFeedIntervalMinutes = mean(total, count)
	}

	completed := make([]models.SleepSession, 0, len(sleeps))
	for _, s := range sleeps {
		if !s.IsOpen() {
			completed = append(completed, s)
		}
	}
	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].StartTime.After(completed[j].StartTime)
	})
	stats.SleepCount = len(completed)

	sleepTotal, sleepCount := 0, 0
	for _, s := range completed {
		duration := wholeMinutes(s.EndTime.Sub(s.StartTime))
		if duration > 0 {
			sleepTotal += duration
			sleepCount++
		}
	}
	stats.AvgSleepDurationMinutes = mean(sleepTotal, sleepCount)

	wakeTotal, wakeCount := 0, 0
	for i := 0; i < len(completed)-1; i++ {
		wake := wholeMinutes(completed[i].StartTime.Sub(*completed[i+1].EndTime))
		if wake > 0 {
			wakeTotal += wake
			wakeCount++
		}
	}
	stats.AvgWakeDurationMinutes = mean(wakeTotal, wakeCount)

	return stats
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatMinutes renders a minute count as "2 hours 15 minutes", leaving out
// zero components
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return pluralize(0, "minute")
	}

	hours, mins := minutes/60, minutes%60
	parts := make([]string, 0, 2)
	if hours > 0 {
		parts = append(parts, pluralize(hours, "hour"))
	}
	if mins > 0 {
		parts = append(parts, pluralize(mins, "minute"))
	}
	return strings.Join(parts, " ")
}

func roundMinutes(avg *float64) (*int, string) {
	if avg == nil || math.IsNaN(*avg) {
		return nil, ""
	}
	rounded := int(math.Round(*avg))
	return &rounded, FormatMinutes(rounded)
}

// RenderStats rounds each average to whole minutes and formats it
func RenderStats(stats models.Stats) models.StatsView {
	view := models.StatsView{
		FeedCount:  stats.FeedCount,
		SleepCount: stats.SleepCount,
	}
	view.AvgFeedIntervalMinutes, view.AvgFeedInterval = roundMinutes(stats.AvgFeedIntervalMinutes)
	view.AvgSleepDurationMinutes, view.AvgSleepDuration = roundMinutes(stats.AvgSleepDurationMinutes)
	view.AvgWakeDurationMinutes, view.AvgWakeDuration = roundMinutes(stats.AvgWakeDurationMinutes)
	return view
}
