package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"milkroad_server/models"
)

var errBackendDown = errors.New("backend unavailable")

// recordingNotifier keeps every signal it is handed
type recordingNotifier struct {
	mu      sync.Mutex
	signals []Signal
}

func (n *recordingNotifier) Notify(_ context.Context, sig Signal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.signals = append(n.signals, sig)
}

func (n *recordingNotifier) Signals() []Signal {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Signal(nil), n.signals...)
}

// failingConnections is a store whose connection lookup always fails
type failingConnections struct {
	RecordStore
}

func (failingConnections) GetConnection(context.Context, string) (*models.Connection, error) {
	return nil, errBackendDown
}

// countingStore counts list calls reaching the backing store
type countingStore struct {
	RecordStore
	mu         sync.Mutex
	feedLists  int
	sleepLists int
}

func (c *countingStore) ListFeeds(ctx context.Context, ownerID string, q FeedQuery) ([]models.FeedEvent, error) {
	c.mu.Lock()
	c.feedLists++
	c.mu.Unlock()
	return c.RecordStore.ListFeeds(ctx, ownerID, q)
}

func (c *countingStore) ListSleeps(ctx context.Context, ownerID string, q SleepQuery) ([]models.SleepSession, error) {
	c.mu.Lock()
	c.sleepLists++
	c.mu.Unlock()
	return c.RecordStore.ListSleeps(ctx, ownerID, q)
}

// fixedClock returns a clock that reads *now
func fixedClock(now *time.Time) func() time.Time {
	return func() time.Time { return *now }
}

// fixture wires every service to one in-memory store
type fixture struct {
	store    *MemoryRecordStore
	notifier *recordingNotifier
	now      time.Time
	tracking *TrackingService
	feeds    *FeedService
	sleep    *SleepService
	share    *ShareService
	stats    *StatsService
	timeline *TimelineService
	status   *StatusService
	tracker  *TrackerService
}

func newFixture() *fixture {
	f := &fixture{
		store:    NewMemoryRecordStore(),
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC),
	}
	clock := fixedClock(&f.now)

	f.tracking = NewTrackingService(f.store)
	f.feeds = NewFeedService(f.tracking, f.store, f.notifier)
	f.feeds.Clock = clock
	f.sleep = NewSleepService(f.tracking, f.store, f.notifier)
	f.sleep.Clock = clock
	f.share = NewShareService(f.tracking, f.store, f.notifier, 7*24*time.Hour)
	f.share.Clock = clock
	f.stats = NewStatsService(f.tracking, f.store)
	f.stats.Clock = clock
	f.timeline = NewTimelineService(f.tracking, f.store)
	f.timeline.Clock = clock
	f.status = NewStatusService(f.tracking, f.store)
	f.status.Clock = clock
	f.tracker = NewTrackerService(f.tracking, f.store, f.notifier)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}
