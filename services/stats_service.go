package services

import (
	"context"
	"log"
	"time"

	"milkroad_server/models"
)

// StatsService serves today's rolling averages
type StatsService struct {
	Tracking *TrackingService
	Store    RecordStore
	Clock    func() time.Time
}

func NewStatsService(tracking *TrackingService, store RecordStore) *StatsService {
	return &StatsService{Tracking: tracking, Store: store, Clock: time.Now}
}

// Today computes statistics over the tracking identity's records since local midnight
func (s *StatsService) Today(ctx context.Context, callerID string, loc *time.Location) (models.StatsView, error) {
	ctx, span := tracer.Start(ctx, "Stats.Service.Today")
	defer span.End()

	day, err := fetchDay(ctx, s.Tracking, s.Store, callerID, s.Clock(), loc)
	if err != nil {
		span.RecordError(err)
		log.Printf("❌ Error fetching statistics for %s: %v", callerID, err)
		return models.StatsView{}, err
	}

	return RenderStats(ComputeStats(day.Feeds, day.Sleeps)), nil
}
