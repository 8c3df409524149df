package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"milkroad_server/models"
)

// CachedRecordStore is a read-through cache over a RecordStore. List queries
// are cached per (owner, collection, query shape); every write for an owner
// drops all of that owner's entries. Shares, connections and the open-sleep
// lookup always go to the backing store.
//
// Each owner has a generation bumped by Invalidate. A list only stores its
// result if the generation is unchanged since it started, so a read that
// overlapped a write never repopulates the cache with pre-write data.
type CachedRecordStore struct {
	RecordStore
	cache *cache.Cache

	mu          sync.Mutex
	generations map[string]uint64
}

func NewCachedRecordStore(store RecordStore, ttl time.Duration) *CachedRecordStore {
	return &CachedRecordStore{
		RecordStore: store,
		cache:       cache.New(ttl, 2*ttl),
		generations: map[string]uint64{},
	}
}

func (c *CachedRecordStore) generation(ownerID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[ownerID]
}

// remember caches value unless ownerID was invalidated after gen was read
func (c *CachedRecordStore) remember(ownerID string, gen uint64, key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[ownerID] != gen {
		return
	}
	c.cache.Set(key, value, cache.DefaultExpiration)
}

func cacheKey(ownerID, collection string, since *time.Time, limit int) string {
	var sinceKey int64
	if since != nil {
		sinceKey = since.Unix()
	}
	return fmt.Sprintf("%s\x00%s\x00%d\x00%d", ownerID, collection, sinceKey, limit)
}

// Invalidate drops every cached query for ownerID
func (c *CachedRecordStore) Invalidate(ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[ownerID]++

	prefix := ownerID + "\x00"
	for key := range c.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
		}
	}
}

func (c *CachedRecordStore) ListFeeds(ctx context.Context, ownerID string, q FeedQuery) ([]models.FeedEvent, error) {
	key := cacheKey(ownerID, "feeds", q.Since, q.Limit)
	if x, found := c.cache.Get(key); found {
		return append([]models.FeedEvent(nil), x.([]models.FeedEvent)...), nil
	}

	gen := c.generation(ownerID)
	feeds, err := c.RecordStore.ListFeeds(ctx, ownerID, q)
	if err != nil {
		return nil, err
	}
	c.remember(ownerID, gen, key, append([]models.FeedEvent(nil), feeds...))
	return feeds, nil
}

func (c *CachedRecordStore) ListSleeps(ctx context.Context, ownerID string, q SleepQuery) ([]models.SleepSession, error) {
	key := cacheKey(ownerID, "sleep", q.Since, q.Limit)
	if x, found := c.cache.Get(key); found {
		return append([]models.SleepSession(nil), x.([]models.SleepSession)...), nil
	}

	gen := c.generation(ownerID)
	sleeps, err := c.RecordStore.ListSleeps(ctx, ownerID, q)
	if err != nil {
		return nil, err
	}
	c.remember(ownerID, gen, key, append([]models.SleepSession(nil), sleeps...))
	return sleeps, nil
}

func (c *CachedRecordStore) AddFeed(ctx context.Context, feed models.FeedEvent) error {
	defer c.Invalidate(feed.OwnerID)
	return c.RecordStore.AddFeed(ctx, feed)
}

func (c *CachedRecordStore) DeleteFeed(ctx context.Context, ownerID, id string) error {
	defer c.Invalidate(ownerID)
	return c.RecordStore.DeleteFeed(ctx, ownerID, id)
}

func (c *CachedRecordStore) StartSleep(ctx context.Context, session models.SleepSession) error {
	defer c.Invalidate(session.OwnerID)
	return c.RecordStore.StartSleep(ctx, session)
}

func (c *CachedRecordStore) EndSleep(ctx context.Context, ownerID, id string, end time.Time) (*models.SleepSession, error) {
	defer c.Invalidate(ownerID)
	return c.RecordStore.EndSleep(ctx, ownerID, id, end)
}

func (c *CachedRecordStore) DeleteSleep(ctx context.Context, ownerID, id string) (bool, error) {
	defer c.Invalidate(ownerID)
	return c.RecordStore.DeleteSleep(ctx, ownerID, id)
}

func (c *CachedRecordStore) ClearAll(ctx context.Context, ownerID string) (int, error) {
	defer c.Invalidate(ownerID)
	return c.RecordStore.ClearAll(ctx, ownerID)
}
