package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"milkroad_server/metrics"
	"milkroad_server/models"
)

// TrackerService holds operations spanning both feeds and sleep
type TrackerService struct {
	Tracking *TrackingService
	Store    RecordStore
	Notifier Notifier
}

func NewTrackerService(tracking *TrackingService, store RecordStore, notifier Notifier) *TrackerService {
	return &TrackerService{Tracking: tracking, Store: store, Notifier: notifier}
}

// ClearAll deletes every feed and sleep session of the tracking identity.
// Records removed before a failure stay removed.
func (s *TrackerService) ClearAll(ctx context.Context, callerID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Tracker.Service.ClearAll")
	defer span.End()

	trackingID, err := s.Tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return 0, err
	}

	deleted, err := s.Store.ClearAll(ctx, trackingID)
	if deleted > 0 || err == nil {
		metrics.RecordWrites.WithLabelValues("clear_all").Inc()
		s.Notifier.Notify(ctx, Signal{Kind: SignalRefresh, ID: trackingID, Reason: models.ReasonCleared})
	}
	if err != nil {
		span.RecordError(err)
		metrics.BackendErrors.WithLabelValues("clear_all").Inc()
		log.Printf("❌ Reset for %s stopped after %d records: %v", trackingID, deleted, err)
		if errors.Is(err, models.ErrPartialDelete) {
			return deleted, err
		}
		return deleted, fmt.Errorf("%w: %w", models.ErrPartialDelete, models.Backend("clear all", err))
	}

	log.Printf("🗑️ Reset %s: %d records deleted", trackingID, deleted)
	return deleted, nil
}
