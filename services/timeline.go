package services

import (
	"fmt"
	"time"

	"milkroad_server/models"
)

const minutesPerDay = 24 * 60

// timelineHours are the labelled gridlines
var timelineHours = []int{0, 6, 12, 18}

// PositionOf maps t's local wall-clock time to a percentage of the day in
// [0,100). The date is ignored, so only same-day times line up.
func PositionOf(t time.Time, loc *time.Location) float64 {
	local := t.In(loc)
	totalMinutes := local.Hour()*60 + local.Minute()
	return float64(totalMinutes) / minutesPerDay * 100
}

// ProjectTimeline lays a day's records out on the timeline. Open sleep
// sessions end at now, so the bar grows as now advances.
func ProjectTimeline(now time.Time, loc *time.Location, feeds []models.FeedEvent, sleeps []models.SleepSession) models.Timeline {
	timeline := models.Timeline{
		GeneratedAt: now,
		Now:         PositionOf(now, loc),
		Hours:       make([]models.HourMarker, 0, len(timelineHours)),
		Feeds:       make([]models.FeedMarker, 0, len(feeds)),
		Sleeps:      make([]models.SleepBar, 0, len(sleeps)),
	}

	for _, hour := range timelineHours {
		timeline.Hours = append(timeline.Hours, models.HourMarker{
			Hour:     hour,
			Label:    fmt.Sprintf("%02d:00", hour),
			Position: float64(hour) / 24 * 100,
		})
	}

	for _, s := range sleeps {
		end := now
		if s.EndTime != nil {
			end = *s.EndTime
		}
		start := PositionOf(s.StartTime, loc)
		endPos := PositionOf(end, loc)
		width := endPos - start
		if width < 0 {
			width = 0
		}
		timeline.Sleeps = append(timeline.Sleeps, models.SleepBar{
			Start: start,
			End:   endPos,
			Width: width,
			Open:  s.IsOpen(),
		})
	}

	for _, f := range feeds {
		timeline.Feeds = append(timeline.Feeds, models.FeedMarker{
			Position: PositionOf(f.Timestamp, loc),
			Type:     f.Type,
			AmountMl: f.AmountMl,
			At:       f.Timestamp,
		})
	}

	return timeline
}
