package services

import (
	"context"
	"log"
	"time"

	"milkroad_server/models"
)

// TimelineService serves today's timeline projection
type TimelineService struct {
	Tracking *TrackingService
	Store    RecordStore
	Clock    func() time.Time
}

func NewTimelineService(tracking *TrackingService, store RecordStore) *TimelineService {
	return &TimelineService{Tracking: tracking, Store: store, Clock: time.Now}
}

// Snapshot fetches today's records without projecting them, so a live
// view can re-project on its own tick
func (s *TimelineService) Snapshot(ctx context.Context, callerID string, loc *time.Location) (DayRecords, error) {
	ctx, span := tracer.Start(ctx, "Timeline.Service.Snapshot")
	defer span.End()

	day, err := fetchDay(ctx, s.Tracking, s.Store, callerID, s.Clock(), loc)
	if err != nil {
		span.RecordError(err)
		log.Printf("❌ Error fetching timeline data for %s: %v", callerID, err)
		return DayRecords{}, err
	}
	return day, nil
}

// Today projects today's records at the current time
func (s *TimelineService) Today(ctx context.Context, callerID string, loc *time.Location) (models.Timeline, error) {
	day, err := s.Snapshot(ctx, callerID, loc)
	if err != nil {
		return models.Timeline{}, err
	}
	return ProjectTimeline(s.Clock(), loc, day.Feeds, day.Sleeps), nil
}
