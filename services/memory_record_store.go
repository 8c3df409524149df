package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"milkroad_server/models"
)

// MemoryRecordStore is a process-local RecordStore for development and tests
type MemoryRecordStore struct {
	mu          sync.Mutex
	feeds       map[string]map[string]models.FeedEvent
	sleeps      map[string]map[string]models.SleepSession
	openSleep   map[string]string
	shares      map[string]models.ShareLink
	connections map[string]models.Connection
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		feeds:       map[string]map[string]models.FeedEvent{},
		sleeps:      map[string]map[string]models.SleepSession{},
		openSleep:   map[string]string{},
		shares:      map[string]models.ShareLink{},
		connections: map[string]models.Connection{},
	}
}

func (m *MemoryRecordStore) ListFeeds(ctx context.Context, ownerID string, q FeedQuery) ([]models.FeedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feeds := []models.FeedEvent{}
	for _, f := range m.feeds[ownerID] {
		if q.Since != nil && f.Timestamp.Before(*q.Since) {
			continue
		}
		feeds = append(feeds, f)
	}
	sort.SliceStable(feeds, func(i, j int) bool {
		return feeds[i].Timestamp.After(feeds[j].Timestamp)
	})
	if q.Limit > 0 && len(feeds) > q.Limit {
		feeds = feeds[:q.Limit]
	}
	return feeds, nil
}

func (m *MemoryRecordStore) AddFeed(ctx context.Context, feed models.FeedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.feeds[feed.OwnerID] == nil {
		m.feeds[feed.OwnerID] = map[string]models.FeedEvent{}
	}
	m.feeds[feed.OwnerID][feed.ID] = feed
	return nil
}

func (m *MemoryRecordStore) DeleteFeed(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.feeds[ownerID][id]; !ok {
		return models.ErrFeedNotFound
	}
	delete(m.feeds[ownerID], id)
	return nil
}

func (m *MemoryRecordStore) ListSleeps(ctx context.Context, ownerID string, q SleepQuery) ([]models.SleepSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sleeps := []models.SleepSession{}
	for _, s := range m.sleeps[ownerID] {
		if q.Since != nil && s.StartTime.Before(*q.Since) {
			continue
		}
		sleeps = append(sleeps, s)
	}
	sort.SliceStable(sleeps, func(i, j int) bool {
		return sleeps[i].StartTime.After(sleeps[j].StartTime)
	})
	if q.Limit > 0 && len(sleeps) > q.Limit {
		sleeps = sleeps[:q.Limit]
	}
	return sleeps, nil
}

func (m *MemoryRecordStore) OpenSleep(ctx context.Context, ownerID string) (*models.SleepSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.openSleep[ownerID]
	if !ok {
		return nil, models.ErrSleepNotFound
	}
	session, ok := m.sleeps[ownerID][id]
	if !ok || !session.IsOpen() {
		return nil, models.ErrSleepNotFound
	}
	return &session, nil
}

func (m *MemoryRecordStore) StartSleep(ctx context.Context, session models.SleepSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.openSleep[session.OwnerID]; ok {
		return models.ErrSleepAlreadyOpen
	}
	if m.sleeps[session.OwnerID] == nil {
		m.sleeps[session.OwnerID] = map[string]models.SleepSession{}
	}
	m.sleeps[session.OwnerID][session.ID] = session
	m.openSleep[session.OwnerID] = session.ID
	return nil
}

func (m *MemoryRecordStore) EndSleep(ctx context.Context, ownerID, id string, end time.Time) (*models.SleepSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sleeps[ownerID][id]
	if !ok || !session.IsOpen() || m.openSleep[ownerID] != id {
		return nil, models.ErrNoOpenSleep
	}
	session.EndTime = &end
	m.sleeps[ownerID][id] = session
	delete(m.openSleep, ownerID)
	return &session, nil
}

func (m *MemoryRecordStore) DeleteSleep(ctx context.Context, ownerID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sleeps[ownerID][id]
	if !ok {
		return false, models.ErrSleepNotFound
	}
	delete(m.sleeps[ownerID], id)
	if !session.IsOpen() {
		return false, nil
	}
	if m.openSleep[ownerID] == id {
		delete(m.openSleep, ownerID)
	}
	return true, nil
}

func (m *MemoryRecordStore) ClearAll(ctx context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := len(m.feeds[ownerID]) + len(m.sleeps[ownerID])
	delete(m.feeds, ownerID)
	delete(m.sleeps, ownerID)
	delete(m.openSleep, ownerID)
	return deleted, nil
}

func (m *MemoryRecordStore) PutShare(ctx context.Context, link models.ShareLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shares[link.Code]; ok {
		return ErrConditionFailed
	}
	m.shares[link.Code] = link
	return nil
}

func (m *MemoryRecordStore) GetShare(ctx context.Context, code string) (*models.ShareLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.shares[code]
	if !ok {
		return nil, models.ErrShareCodeNotFound
	}
	return &link, nil
}

func (m *MemoryRecordStore) GetConnection(ctx context.Context, subjectID string) (*models.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[subjectID]
	if !ok {
		return nil, models.NotFoundError{Resource: "connection"}
	}
	return &conn, nil
}

func (m *MemoryRecordStore) PutConnection(ctx context.Context, conn models.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connections[conn.SubjectID] = conn
	return nil
}

func (m *MemoryRecordStore) DeleteConnection(ctx context.Context, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.connections, subjectID)
	return nil
}
