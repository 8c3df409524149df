package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"milkroad_server/models"
)

// Snapshot is the exported document
type Snapshot struct {
	OwnerID    string                `json:"ownerId"`
	ExportedAt time.Time             `json:"exportedAt"`
	Feeds      []models.FeedEvent    `json:"feeds"`
	Sleeps     []models.SleepSession `json:"sleeps"`
}

// ExportResult points at an uploaded snapshot
type ExportResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
	Feeds     int       `json:"feeds"`
	Sleeps    int       `json:"sleeps"`
}

// ExportService writes full-history snapshots to S3. A nil S3 disables it.
type ExportService struct {
	Tracking  *TrackingService
	Store     RecordStore
	S3        *S3Service
	URLExpiry time.Duration
	Clock     func() time.Time
}

func NewExportService(tracking *TrackingService, store RecordStore, s3 *S3Service, urlExpiry time.Duration) *ExportService {
	return &ExportService{Tracking: tracking, Store: store, S3: s3, URLExpiry: urlExpiry, Clock: time.Now}
}

// ExportKey is the object key of a snapshot taken at t
func ExportKey(ownerID string, t time.Time) string {
	return fmt.Sprintf("exports/%s/%s.json", ownerID, t.UTC().Format("20060102T150405Z"))
}

// Export uploads every feed and sleep session of the tracking identity and
// returns a presigned download link
func (s *ExportService) Export(ctx context.Context, callerID string) (*ExportResult, error) {
	ctx, span := tracer.Start(ctx, "Export.Service.Export")
	defer span.End()

	if s.S3 == nil || s.S3.Bucket == "" {
		return nil, models.ErrExportDisabled
	}

	trackingID, err := s.Tracking.ResolveTrackingID(ctx, callerID)
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	snapshot := Snapshot{OwnerID: trackingID, ExportedAt: now.UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		feeds, err := s.Store.ListFeeds(gctx, trackingID, FeedQuery{})
		snapshot.Feeds = feeds
		return err
	})
	g.Go(func() error {
		sleeps, err := s.Store.ListSleeps(gctx, trackingID, SleepQuery{})
		snapshot.Sleeps = sleeps
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, models.Backend("export records", err)
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := ExportKey(trackingID, now)
	if err := s.S3.PutJSON(ctx, key, body); err != nil {
		span.RecordError(err)
		log.Printf("❌ Export upload failed for %s: %v", trackingID, err)
		return nil, models.Backend("upload export", err)
	}

	url, err := s.S3.GenerateReadURL(ctx, key, s.URLExpiry)
	if err != nil {
		span.RecordError(err)
		return nil, models.Backend("presign export", err)
	}

	log.Printf("📦 Exported %d feeds and %d sleeps for %s to %s", len(snapshot.Feeds), len(snapshot.Sleeps), trackingID, key)
	return &ExportResult{
		Key:       key,
		URL:       url,
		ExpiresAt: now.Add(s.URLExpiry),
		Feeds:     len(snapshot.Feeds),
		Sleeps:    len(snapshot.Sleeps),
	}, nil
}
