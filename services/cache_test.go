package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milkroad_server/models"
)

func TestCachedRecordStore_ReadThrough(t *testing.T) {
	backing := &countingStore{RecordStore: NewMemoryRecordStore()}
	cached := NewCachedRecordStore(backing, time.Minute)
	ctx := context.Background()
	since := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := cached.ListFeeds(ctx, "alice", FeedQuery{Since: &since})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backing.feedLists)

	// a different query shape is a different entry
	_, err := cached.ListFeeds(ctx, "alice", FeedQuery{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, backing.feedLists)
}

func TestCachedRecordStore_WriteInvalidatesOwner(t *testing.T) {
	backing := &countingStore{RecordStore: NewMemoryRecordStore()}
	cached := NewCachedRecordStore(backing, time.Minute)
	ctx := context.Background()

	_, err := cached.ListFeeds(ctx, "alice", FeedQuery{})
	require.NoError(t, err)
	_, err = cached.ListFeeds(ctx, "bob", FeedQuery{})
	require.NoError(t, err)

	require.NoError(t, cached.AddFeed(ctx, models.FeedEvent{
		OwnerID:   "alice",
		ID:        "f1",
		Type:      models.FeedTypeMaternal,
		AmountMl:  90,
		Timestamp: time.Now(),
	}))

	feeds, err := cached.ListFeeds(ctx, "alice", FeedQuery{})
	require.NoError(t, err)
	assert.Len(t, feeds, 1)
	assert.Equal(t, 3, backing.feedLists)

	// bob's entry survived
	_, err = cached.ListFeeds(ctx, "bob", FeedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, backing.feedLists)
}

func TestCachedRecordStore_ReturnsCopies(t *testing.T) {
	cached := NewCachedRecordStore(NewMemoryRecordStore(), time.Minute)
	ctx := context.Background()
	require.NoError(t, cached.StartSleep(ctx, models.SleepSession{OwnerID: "alice", ID: "s1", StartTime: time.Now()}))

	first, err := cached.ListSleeps(ctx, "alice", SleepQuery{})
	require.NoError(t, err)
	first[0].ID = "mutated"

	second, err := cached.ListSleeps(ctx, "alice", SleepQuery{})
	require.NoError(t, err)
	assert.Equal(t, "s1", second[0].ID)
}

// pausingStore holds the first ListFeeds after it has read the backing store
type pausingStore struct {
	RecordStore
	fetched chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausingStore) ListFeeds(ctx context.Context, ownerID string, q FeedQuery) ([]models.FeedEvent, error) {
	feeds, err := p.RecordStore.ListFeeds(ctx, ownerID, q)
	p.once.Do(func() {
		close(p.fetched)
		<-p.release
	})
	return feeds, err
}

func TestCachedRecordStore_ListOverlappingWriteIsNotCached(t *testing.T) {
	backing := &pausingStore{
		RecordStore: NewMemoryRecordStore(),
		fetched:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	cached := NewCachedRecordStore(backing, time.Minute)
	ctx := context.Background()

	done := make(chan []models.FeedEvent)
	go func() {
		feeds, _ := cached.ListFeeds(ctx, "alice", FeedQuery{})
		done <- feeds
	}()

	<-backing.fetched
	require.NoError(t, cached.AddFeed(ctx, models.FeedEvent{
		OwnerID:   "alice",
		ID:        "f1",
		Type:      models.FeedTypeMaternal,
		AmountMl:  90,
		Timestamp: time.Now(),
	}))
	close(backing.release)
	assert.Empty(t, <-done)

	feeds, err := cached.ListFeeds(ctx, "alice", FeedQuery{})
	require.NoError(t, err)
	assert.Len(t, feeds, 1)
}
