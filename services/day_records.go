package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"milkroad_server/models"
	"milkroad_server/utils"
)

// DayRecords is one tracking identity's feeds and sleeps since local midnight
type DayRecords struct {
	TrackingID string
	Since      time.Time
	Feeds      []models.FeedEvent
	Sleeps     []models.SleepSession
}

// fetchDay resolves the tracking id and loads today's feeds and sleeps
// concurrently
func fetchDay(ctx context.Context, tracking *TrackingService, store RecordStore, callerID string, now time.Time, loc *time.Location) (DayRecords, error) {
	trackingID, err := tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return DayRecords{}, err
	}

	day := DayRecords{
		TrackingID: trackingID,
		Since:      utils.StartOfDay(now, loc),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		feeds, err := store.ListFeeds(gctx, trackingID, FeedQuery{Since: &day.Since})
		if err != nil {
			return models.Backend("list feeds", err)
		}
		day.Feeds = feeds
		return nil
	})
	g.Go(func() error {
		sleeps, err := store.ListSleeps(gctx, trackingID, SleepQuery{Since: &day.Since})
		if err != nil {
			return models.Backend("list sleeps", err)
		}
		day.Sleeps = sleeps
		return nil
	})
	if err := g.Wait(); err != nil {
		return DayRecords{}, err
	}
	return day, nil
}
