package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"milkroad_server/models"
)

var tracer = otel.Tracer("milkroad/services")

// TrackingService resolves whose records a caller reads and writes
type TrackingService struct {
	Store RecordStore
}

func NewTrackingService(store RecordStore) *TrackingService {
	return &TrackingService{Store: store}
}

// ResolveTrackingID returns the owner the caller is connected to, or the
// caller itself. It always reads the Connection fresh since a join can
// happen between two calls. Only one hop is followed.
func (s *TrackingService) ResolveTrackingID(ctx context.Context, callerID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Tracking.Service.ResolveTrackingID")
	defer span.End()

	if callerID == "" {
		return "", models.ErrUnauthenticated
	}

	conn, err := s.Store.GetConnection(ctx, callerID)
	if errors.Is(err, models.ErrNotFound) {
		return callerID, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", models.Backend("resolve tracking id", err)
	}
	if conn.ConnectedTo == "" {
		return callerID, nil
	}

	span.SetAttributes(attribute.Bool("linked", true))
	return conn.ConnectedTo, nil
}

// Identity returns the caller and resolved tracking id together
func (s *TrackingService) Identity(ctx context.Context, callerID string) (models.Identity, error) {
	trackingID, err := s.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{
		CallerID:   callerID,
		TrackingID: trackingID,
		Linked:     trackingID != callerID,
	}, nil
}
