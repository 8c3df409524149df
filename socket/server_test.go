package socket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milkroad_server/models"
	"milkroad_server/services"
)

type broadcast struct {
	room  string
	event string
	args  []interface{}
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcast
}

func (f *fakeBroadcaster) BroadcastToRoom(_, room, event string, args ...interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcast{room: room, event: event, args: args})
	return true
}

func newTestHub(store services.RecordStore) (*Hub, *fakeBroadcaster) {
	tracking := services.NewTrackingService(store)
	hub := NewHub(tracking, services.NewTimelineService(tracking, store), time.UTC)
	fake := &fakeBroadcaster{}
	hub.Broadcaster = fake
	return hub, fake
}

func TestHub_RefreshGoesToTrackingRoom(t *testing.T) {
	hub, fake := newTestHub(services.NewMemoryRecordStore())
	var seen []services.Signal
	hub.OnSignal = func(sig services.Signal) { seen = append(seen, sig) }

	sig := services.Signal{Kind: services.SignalRefresh, ID: "alice", Reason: "feed_added"}
	hub.Notify(context.Background(), sig)

	require.Len(t, fake.calls, 1)
	assert.Equal(t, "tracking:alice", fake.calls[0].room)
	assert.Equal(t, "refresh", fake.calls[0].event)
	assert.Equal(t, []interface{}{RefreshEvent{Reason: "feed_added"}}, fake.calls[0].args)
	assert.Equal(t, []services.Signal{sig}, seen)
}

func TestHub_TrackingChangedGoesToCaller(t *testing.T) {
	store := services.NewMemoryRecordStore()
	require.NoError(t, store.PutConnection(context.Background(), models.Connection{SubjectID: "bob", ConnectedTo: "alice"}))
	hub, fake := newTestHub(store)

	hub.Deliver(services.Signal{Kind: services.SignalTrackingChanged, ID: "bob"})

	require.Len(t, fake.calls, 1)
	assert.Equal(t, "caller:bob", fake.calls[0].room)
	assert.Equal(t, "trackingChanged", fake.calls[0].event)
	assert.Equal(t, []interface{}{TrackingChangedEvent{TrackingID: "alice", Linked: true}}, fake.calls[0].args)
}

func TestHub_UnknownSignalIgnored(t *testing.T) {
	hub, fake := newTestHub(services.NewMemoryRecordStore())

	hub.Deliver(services.Signal{Kind: "bogus", ID: "alice"})

	assert.Empty(t, fake.calls)
}
