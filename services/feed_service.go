package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"milkroad_server/metrics"
	"milkroad_server/models"
	"milkroad_server/utils"
)

// AddFeedRequest is the body of a new feed
type AddFeedRequest struct {
	Type     string `json:"type" validate:"required,oneof=maternal artificial"`
	AmountMl int    `json:"amountMl" validate:"required,min=1,max=1000"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationError turns the first failed field into a models.ValidationError
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.ValidationError{Field: "body", Message: err.Error()}
	}

	fe := verrs[0]
	var message string
	switch fe.Tag() {
	case "required":
		message = "is required"
	case "oneof":
		message = "must be one of: " + fe.Param()
	case "min":
		message = "must be at least " + fe.Param()
	case "max":
		message = "must be at most " + fe.Param()
	default:
		message = "is invalid"
	}
	return models.ValidationError{Field: fe.Field(), Message: message}
}

type FeedService struct {
	Tracking *TrackingService
	Store    RecordStore
	Notifier Notifier
	Clock    func() time.Time
}

func NewFeedService(tracking *TrackingService, store RecordStore, notifier Notifier) *FeedService {
	return &FeedService{Tracking: tracking, Store: store, Notifier: notifier, Clock: time.Now}
}

// AddFeed stores a feed for the caller's tracking identity at the current time
func (s *FeedService) AddFeed(ctx context.Context, callerID string, req AddFeedRequest) (*models.FeedEvent, error) {
	ctx, span := tracer.Start(ctx, "Feed.Service.AddFeed")
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	trackingID, err := s.Tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return nil, err
	}

	feed := models.FeedEvent{
		OwnerID:   trackingID,
		ID:        uuid.New().String(),
		Type:      req.Type,
		AmountMl:  req.AmountMl,
		Timestamp: s.Clock().Truncate(time.Second),
		CreatedBy: callerID,
	}

	if err := s.Store.AddFeed(ctx, feed); err != nil {
		span.RecordError(err)
		metrics.BackendErrors.WithLabelValues("add_feed").Inc()
		log.Printf("❌ Error adding feed for %s: %v", trackingID, err)
		return nil, models.Backend("add feed", err)
	}

	metrics.RecordWrites.WithLabelValues("feed_add").Inc()
	log.Printf("✅ Feed %s added: %dml %s for %s", feed.ID, feed.AmountMl, feed.Type, trackingID)
	s.Notifier.Notify(ctx, Signal{Kind: SignalRefresh, ID: trackingID, Reason: models.ReasonFeedAdded})
	return &feed, nil
}

// Summary returns today's feeds newest first with per-type totals
func (s *FeedService) Summary(ctx context.Context, callerID string, loc *time.Location) (models.FeedSummary, error) {
	ctx, span := tracer.Start(ctx, "Feed.Service.Summary")
	defer span.End()

	trackingID, err := s.Tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return models.FeedSummary{}, err
	}

	since := utils.StartOfDay(s.Clock(), loc)
	feeds, err := s.Store.ListFeeds(ctx, trackingID, FeedQuery{Since: &since})
	if err != nil {
		span.RecordError(err)
		metrics.BackendErrors.WithLabelValues("list_feeds").Inc()
		log.Printf("❌ Error fetching today's feeds for %s: %v", trackingID, err)
		return models.FeedSummary{}, models.Backend("list feeds", err)
	}

	summary := models.FeedSummary{Feeds: feeds}
	for _, f := range feeds {
		switch f.Type {
		case models.FeedTypeMaternal:
			summary.Maternal += f.AmountMl
		case models.FeedTypeArtificial:
			summary.Artificial += f.AmountMl
		}
	}
	summary.Total = summary.Maternal + summary.Artificial
	return summary, nil
}

// DeleteFeed removes one of the tracking identity's feeds
func (s *FeedService) DeleteFeed(ctx context.Context, callerID, feedID string) error {
	ctx, span := tracer.Start(ctx, "Feed.Service.DeleteFeed")
	defer span.End()

	trackingID, err := s.Tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return err
	}

	if err := s.Store.DeleteFeed(ctx, trackingID, feedID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrFeedNotFound
		}
		span.RecordError(err)
		metrics.BackendErrors.WithLabelValues("delete_feed").Inc()
		log.Printf("❌ Error deleting feed %s for %s: %v", feedID, trackingID, err)
		return models.Backend("delete feed", err)
	}

	metrics.RecordWrites.WithLabelValues("feed_delete").Inc()
	log.Printf("🗑️ Feed %s deleted for %s", feedID, trackingID)
	s.Notifier.Notify(ctx, Signal{Kind: SignalRefresh, ID: trackingID, Reason: models.ReasonFeedDeleted})
	return nil
}
