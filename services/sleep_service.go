package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"milkroad_server/metrics"
	"milkroad_server/models"
)

type SleepService struct {
	Tracking *TrackingService
	Store    RecordStore
	Notifier Notifier
	Clock    func() time.Time
}

func NewSleepService(tracking *TrackingService, store RecordStore, notifier Notifier) *SleepService {
	return &SleepService{Tracking: tracking, Store: store, Notifier: notifier, Clock: time.Now}
}

// StartSleep opens a session at the current time. At most one session per
// tracking identity may be open.
func (s *SleepService) StartSleep(ctx context.Context, callerID string) (*models.SleepSession, error) {
	ctx, span := tracer.Start(ctx, "Sleep.Service.StartSleep")
	defer span.End()

	trackingID, err := s.Tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return nil, err
	}

	open, err := s.Store.OpenSleep(ctx, trackingID)
	switch {
	case err == nil && open != nil:
		return nil, models.ErrSleepAlreadyOpen
	case err != nil && !errors.Is(err, models.ErrNotFound):
		span.RecordError(err)
		metrics.BackendErrors.WithLabelValues("open_sleep").Inc()
		return nil, models.Backend("read open sleep", err)
	}

	session := models.SleepSession{
		OwnerID:   trackingID,
		ID:        uuid.New().String(),
		StartTime: s.Clock().Truncate(time.Second),
		CreatedBy: callerID,
	}

	if err := s.Store.StartSleep(ctx, session); err != nil {
		if errors.Is(err, models.ErrSleepAlreadyOpen) {
			log.Printf("⚠️ Concurrent sleep start rejected for %s", trackingID)
			return nil, err
		}
		span.RecordError(err)
		metrics.BackendErrors.WithLabelValues("start_sleep").Inc()
		log.Printf("❌ Error starting sleep for %s: %v", trackingID, err)
		return nil, models.Backend("start sleep", err)
	}

	metrics.RecordWrites.WithLabelValues("sleep_start").Inc()
	log.Printf("✅ Sleep %s started for %s", session.ID, trackingID)
	s.Notifier.Notify(ctx, Signal{Kind: SignalRefresh, ID: trackingID, Reason: models.ReasonSleepStarted})
	return &session, nil
}

// EndSleep closes the open session at the current time
func (s *SleepService) EndSleep(ctx context.Context, callerID string) (*models.SleepSession, error) {
	ctx, span := tracer.Start(ctx, "Sleep.Service.EndSleep")
	defer span.End()

	trackingID, err := s.Tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return nil, err
	}

	open, err := s.Store.OpenSleep(ctx, trackingID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrNoOpenSleep
	}
	if err != nil {
		span.RecordError(err)
		metrics.BackendErrors.WithLabelValues("open_sleep").Inc()
		return nil, models.Backend("read open sleep", err)
	}

	end := s.Clock().Truncate(time.Second)
	if end.Before(open.StartTime) {
		end = open.StartTime
	}

	session, err := s.Store.EndSleep(ctx, trackingID, open.ID, end)
	if err != nil {
		if errors.Is(err, models.ErrNoOpenSleep) {
			return nil, err
		}
		span.RecordError(err)
		metrics.BackendErrors.WithLabelValues("end_sleep").Inc()
		log.Printf("❌ Error ending sleep %s for %s: %v", open.ID, trackingID, err)
		return nil, models.Backend("end sleep", err)
	}

	metrics.RecordWrites.WithLabelValues("sleep_end").Inc()
	log.Printf("✅ Sleep %s ended for %s", session.ID, trackingID)
	s.Notifier.Notify(ctx, Signal{Kind: SignalRefresh, ID: trackingID, Reason: models.ReasonSleepEnded})
	return session, nil
}

// DeleteSleep removes a session and returns the resulting tracker state.
// Deleting the open session leaves the tracker awake.
func (s *SleepService) DeleteSleep(ctx context.Context, callerID, sleepID string) (models.SleepState, error) {
	ctx, span := tracer.Start(ctx, "Sleep.Service.DeleteSleep")
	defer span.End()

	trackingID, err := s.Tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return models.SleepState{}, err
	}

	wasOpen, err := s.Store.DeleteSleep(ctx, trackingID, sleepID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.SleepState{}, models.ErrSleepNotFound
		}
		span.RecordError(err)
		metrics.BackendErrors.WithLabelValues("delete_sleep").Inc()
		log.Printf("❌ Error deleting sleep %s for %s: %v", sleepID, trackingID, err)
		return models.SleepState{}, models.Backend("delete sleep", err)
	}

	metrics.RecordWrites.WithLabelValues("sleep_delete").Inc()
	log.Printf("🗑️ Sleep %s deleted for %s (open: %t)", sleepID, trackingID, wasOpen)
	s.Notifier.Notify(ctx, Signal{Kind: SignalRefresh, ID: trackingID, Reason: models.ReasonSleepDeleted})

	return s.state(ctx, trackingID)
}

// State returns whether the tracking identity is asleep plus its recent sessions
func (s *SleepService) State(ctx context.Context, callerID string) (models.SleepState, error) {
	ctx, span := tracer.Start(ctx, "Sleep.Service.State")
	defer span.End()

	trackingID, err := s.Tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return models.SleepState{}, err
	}
	return s.state(ctx, trackingID)
}

func (s *SleepService) state(ctx context.Context, trackingID string) (models.SleepState, error) {
	recent, err := s.Store.ListSleeps(ctx, trackingID, SleepQuery{Limit: models.RecentSleepLimit})
	if err != nil {
		metrics.BackendErrors.WithLabelValues("list_sleeps").Inc()
		return models.SleepState{}, models.Backend("list sleeps", err)
	}

	state := models.SleepState{Recent: recent}
	open, err := s.Store.OpenSleep(ctx, trackingID)
	switch {
	case err == nil:
		state.Sleeping = true
		state.CurrentSleepID = open.ID
	case !errors.Is(err, models.ErrNotFound):
		metrics.BackendErrors.WithLabelValues("open_sleep").Inc()
		return models.SleepState{}, models.Backend("read open sleep", err)
	}
	return state, nil
}
