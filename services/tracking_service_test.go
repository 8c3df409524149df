package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milkroad_server/models"
)

func TestResolveTrackingID_Self(t *testing.T) {
	svc := NewTrackingService(NewMemoryRecordStore())

	id, err := svc.ResolveTrackingID(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", id)
}

func TestResolveTrackingID_Linked(t *testing.T) {
	store := NewMemoryRecordStore()
	require.NoError(t, store.PutConnection(context.Background(), models.Connection{
		SubjectID:   "bob",
		ConnectedTo: "alice",
		ConnectedAt: time.Now(),
	}))
	svc := NewTrackingService(store)

	id, err := svc.ResolveTrackingID(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	identity, err := svc.Identity(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, identity.Linked)
	assert.Equal(t, "bob", identity.CallerID)
}

func TestResolveTrackingID_OneHopOnly(t *testing.T) {
	store := NewMemoryRecordStore()
	ctx := context.Background()
	require.NoError(t, store.PutConnection(ctx, models.Connection{SubjectID: "carol", ConnectedTo: "bob"}))
	require.NoError(t, store.PutConnection(ctx, models.Connection{SubjectID: "bob", ConnectedTo: "alice"}))

	id, err := NewTrackingService(store).ResolveTrackingID(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "bob", id)
}

func TestResolveTrackingID_Errors(t *testing.T) {
	_, err := NewTrackingService(NewMemoryRecordStore()).ResolveTrackingID(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	svc := NewTrackingService(failingConnections{NewMemoryRecordStore()})
	_, err = svc.ResolveTrackingID(context.Background(), "alice")
	require.Error(t, err)

	var be *models.BackendError
	assert.ErrorAs(t, err, &be)
	assert.ErrorIs(t, err, errBackendDown)
}
