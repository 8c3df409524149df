package services

import (
	"context"
	"time"

	"milkroad_server/models"
)

// FeedQuery narrows ListFeeds. Zero values mean "no bound".
type FeedQuery struct {
	Since *time.Time
	Limit int
}

// SleepQuery narrows ListSleeps on startTime
type SleepQuery struct {
	Since *time.Time
	Limit int
}

// RecordStore is the document store behind the trackers. Every record
// operation is scoped by an equality filter on ownerID, which callers
// must obtain from TrackingService.ResolveTrackingID.
type RecordStore interface {
	// ListFeeds returns feeds newest first
	ListFeeds(ctx context.Context, ownerID string, q FeedQuery) ([]models.FeedEvent, error)
	AddFeed(ctx context.Context, feed models.FeedEvent) error
	DeleteFeed(ctx context.Context, ownerID, id string) error

	// ListSleeps returns sessions newest first by startTime
	ListSleeps(ctx context.Context, ownerID string, q SleepQuery) ([]models.SleepSession, error)
	// OpenSleep returns the open session or models.ErrNotFound
	OpenSleep(ctx context.Context, ownerID string) (*models.SleepSession, error)
	// StartSleep stores an open session; models.ErrSleepAlreadyOpen if one exists
	StartSleep(ctx context.Context, session models.SleepSession) error
	// EndSleep closes session id; models.ErrNoOpenSleep if it is not open
	EndSleep(ctx context.Context, ownerID, id string, end time.Time) (*models.SleepSession, error)
	// DeleteSleep removes a session and reports whether it was the open one
	DeleteSleep(ctx context.Context, ownerID, id string) (wasOpen bool, err error)

	// ClearAll deletes every feed and sleep of ownerID and returns how many
	// records were removed, even on failure
	ClearAll(ctx context.Context, ownerID string) (int, error)

	// PutShare stores a link unless the code is taken (ErrConditionFailed)
	PutShare(ctx context.Context, link models.ShareLink) error
	GetShare(ctx context.Context, code string) (*models.ShareLink, error)

	GetConnection(ctx context.Context, subjectID string) (*models.Connection, error)
	PutConnection(ctx context.Context, conn models.Connection) error
	DeleteConnection(ctx context.Context, subjectID string) error
}
