package services

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"strings"
	"time"

	"milkroad_server/metrics"
	"milkroad_server/models"
)

const (
	shareAlphabet        = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxShareCodeAttempts = 5
)

// ShareService hands out and redeems share codes
type ShareService struct {
	Tracking *TrackingService
	Store    RecordStore
	Notifier Notifier
	CodeTTL  time.Duration
	Clock    func() time.Time
	// NewCode draws a fresh code; replaced in tests
	NewCode func() (string, error)
}

func NewShareService(tracking *TrackingService, store RecordStore, notifier Notifier, codeTTL time.Duration) *ShareService {
	return &ShareService{
		Tracking: tracking,
		Store:    store,
		Notifier: notifier,
		CodeTTL:  codeTTL,
		Clock:    time.Now,
		NewCode:  RandomShareCode,
	}
}

// RandomShareCode draws ShareCodeLength base-36 characters and uppercases them
func RandomShareCode() (string, error) {
	max := big.NewInt(int64(len(shareAlphabet)))
	var b strings.Builder
	for i := 0; i < models.ShareCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(shareAlphabet[n.Int64()])
	}
	return strings.ToUpper(b.String()), nil
}

// NormalizeShareCode trims and uppercases user input. ok is false when the
// result cannot be a share code.
func NormalizeShareCode(input string) (code string, ok bool) {
	code = strings.ToUpper(strings.TrimSpace(input))
	if len(code) != models.ShareCodeLength {
		return code, false
	}
	for _, r := range code {
		if !(r >= '0' && r <= '9') && !(r >= 'A' && r <= 'Z') {
			return code, false
		}
	}
	return code, true
}

// Generate creates a share code for the caller's tracking identity. A
// colliding code is never overwritten; a new one is drawn instead.
func (s *ShareService) Generate(ctx context.Context, callerID string) (*models.ShareLink, error) {
	ctx, span := tracer.Start(ctx, "Share.Service.Generate")
	defer span.End()

	ownerID, err := s.Tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxShareCodeAttempts; attempt++ {
		code, err := s.NewCode()
		if err != nil {
			return nil, models.Backend("generate share code", err)
		}

		now := s.Clock().UTC().Truncate(time.Second)
		link := models.ShareLink{
			Code:      code,
			OwnerID:   ownerID,
			CreatedAt: now,
		}
		if s.CodeTTL > 0 {
			link.ExpiresAt = now.Add(s.CodeTTL)
		}

		err = s.Store.PutShare(ctx, link)
		if errors.Is(err, ErrConditionFailed) {
			log.Printf("⚠️ Share code collision on attempt %d, retrying", attempt)
			continue
		}
		if err != nil {
			span.RecordError(err)
			metrics.BackendErrors.WithLabelValues("put_share").Inc()
			log.Printf("❌ Error storing share code for %s: %v", ownerID, err)
			return nil, models.Backend("store share code", err)
		}

		log.Printf("✅ Share code %s generated for %s", code, ownerID)
		return &link, nil
	}

	return nil, models.ErrShareCodeExhausted
}

// Redeem links joinerID to the owner of code. Redeeming a code that points
// back at the joiner removes any existing link instead.
func (s *ShareService) Redeem(ctx context.Context, input, joinerID string) (*models.Identity, error) {
	ctx, span := tracer.Start(ctx, "Share.Service.Redeem")
	defer span.End()

	if joinerID == "" {
		return nil, models.ErrUnauthenticated
	}

	code, ok := NormalizeShareCode(input)
	if !ok {
		metrics.ShareRedemptions.WithLabelValues("not_found").Inc()
		return nil, models.ErrShareCodeNotFound
	}

	link, err := s.Store.GetShare(ctx, code)
	if errors.Is(err, models.ErrNotFound) {
		metrics.ShareRedemptions.WithLabelValues("not_found").Inc()
		log.Printf("🔍 Share code %s not found", code)
		return nil, models.ErrShareCodeNotFound
	}
	if err != nil {
		span.RecordError(err)
		metrics.ShareRedemptions.WithLabelValues("error").Inc()
		return nil, models.Backend("read share code", err)
	}

	now := s.Clock()
	if link.Expired(now) {
		metrics.ShareRedemptions.WithLabelValues("not_found").Inc()
		log.Printf("🔍 Share code %s expired at %s", code, link.ExpiresAt)
		return nil, models.ErrShareCodeNotFound
	}

	if link.OwnerID == joinerID {
		err = s.Store.DeleteConnection(ctx, joinerID)
	} else {
		err = s.Store.PutConnection(ctx, models.Connection{
			SubjectID:   joinerID,
			ConnectedTo: link.OwnerID,
			ConnectedAt: now.UTC().Truncate(time.Second),
		})
	}
	if err != nil {
		span.RecordError(err)
		metrics.ShareRedemptions.WithLabelValues("error").Inc()
		log.Printf("❌ Error linking %s to %s: %v", joinerID, link.OwnerID, err)
		return nil, models.Backend("store connection", err)
	}

	metrics.ShareRedemptions.WithLabelValues("ok").Inc()
	log.Printf("✅ %s now tracking %s", joinerID, link.OwnerID)
	s.Notifier.Notify(ctx, Signal{Kind: SignalTrackingChanged, ID: joinerID, Reason: models.ReasonJoined})

	identity := models.Identity{
		CallerID:   joinerID,
		TrackingID: link.OwnerID,
		Linked:     link.OwnerID != joinerID,
	}
	return &identity, nil
}

// Disconnect removes the caller's link so it tracks its own records again
func (s *ShareService) Disconnect(ctx context.Context, callerID string) (*models.Identity, error) {
	ctx, span := tracer.Start(ctx, "Share.Service.Disconnect")
	defer span.End()

	if callerID == "" {
		return nil, models.ErrUnauthenticated
	}

	if err := s.Store.DeleteConnection(ctx, callerID); err != nil {
		span.RecordError(err)
		log.Printf("❌ Error removing connection for %s: %v", callerID, err)
		return nil, models.Backend("delete connection", err)
	}

	log.Printf("✅ %s disconnected", callerID)
	s.Notifier.Notify(ctx, Signal{Kind: SignalTrackingChanged, ID: callerID, Reason: models.ReasonDisconnected})
	return &models.Identity{CallerID: callerID, TrackingID: callerID}, nil
}
