package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"milkroad_server/models"
)

// RecentFeedWindow is the look-back window of the status line's intake total
const RecentFeedWindow = 3 * time.Hour

type StatusService struct {
	Tracking *TrackingService
	Store    RecordStore
	Clock    func() time.Time
}

func NewStatusService(tracking *TrackingService, store RecordStore) *StatusService {
	return &StatusService{Tracking: tracking, Store: store, Clock: time.Now}
}

func relative(then, now time.Time) string {
	return humanize.RelTime(then, now, "ago", "from now")
}

// Status summarises the last feed, recent intake and sleep state
func (s *StatusService) Status(ctx context.Context, callerID string) (models.Status, error) {
	ctx, span := tracer.Start(ctx, "Status.Service.Status")
	defer span.End()

	trackingID, err := s.Tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return models.Status{}, err
	}

	now := s.Clock()
	windowStart := now.Add(-RecentFeedWindow)

	var lastFeeds, recentFeeds []models.FeedEvent
	var lastSleeps []models.SleepSession

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lastFeeds, err = s.Store.ListFeeds(gctx, trackingID, FeedQuery{Limit: 1})
		return err
	})
	g.Go(func() error {
		var err error
		recentFeeds, err = s.Store.ListFeeds(gctx, trackingID, FeedQuery{Since: &windowStart})
		return err
	})
	g.Go(func() error {
		var err error
		lastSleeps, err = s.Store.ListSleeps(gctx, trackingID, SleepQuery{Limit: 1})
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		log.Printf("❌ Error fetching status data for %s: %v", trackingID, err)
		return models.Status{}, models.Backend("status", err)
	}

	return BuildStatus(now, lastFeeds, recentFeeds, lastSleeps), nil
}

// BuildStatus renders the status line from the latest feed, the feeds inside
// the recent window and the latest sleep session
func BuildStatus(now time.Time, lastFeeds, recentFeeds []models.FeedEvent, lastSleeps []models.SleepSession) models.Status {
	status := models.Status{
		RecentWindowHours: int(RecentFeedWindow / time.Hour),
		LastFeedText:      "has not eaten yet today",
		SleepStatus:       models.SleepStatusUnknown,
		SleepText:         "no sleep data available",
	}

	for _, f := range recentFeeds {
		status.RecentAmountMl += f.AmountMl
	}

	if len(lastFeeds) > 0 {
		at := lastFeeds[0].Timestamp
		status.HasData = true
		status.LastFeedAt = &at
		status.LastFeedText = fmt.Sprintf("has last eaten %s", relative(at, now))
	}

	if len(lastSleeps) > 0 {
		last := lastSleeps[0]
		status.HasData = true
		switch {
		case last.IsOpen():
			since := last.StartTime
			status.SleepStatus = models.SleepStatusAsleep
			status.SleepSince = &since
			status.SleepText = fmt.Sprintf("asleep since %s", relative(since, now))
		case last.EndTime.After(last.StartTime):
			since := *last.EndTime
			status.SleepStatus = models.SleepStatusAwake
			status.SleepSince = &since
			status.SleepText = fmt.Sprintf("awake since %s", relative(since, now))
		default:
			status.SleepText = "no recent sleep data"
		}
	}

	return status
}
