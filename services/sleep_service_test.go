package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milkroad_server/models"
)

func TestSleepService_StartEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, err := f.sleep.StartSleep(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, session.IsOpen())

	_, err = f.sleep.StartSleep(ctx, "alice")
	assert.ErrorIs(t, err, models.ErrSleepAlreadyOpen)

	state, err := f.sleep.State(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, state.Sleeping)
	assert.Equal(t, session.ID, state.CurrentSleepID)

	f.advance(45 * time.Minute)
	ended, err := f.sleep.EndSleep(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, ended.EndTime)
	assert.Equal(t, 45*time.Minute, ended.EndTime.Sub(ended.StartTime))

	_, err = f.sleep.EndSleep(ctx, "alice")
	assert.ErrorIs(t, err, models.ErrNoOpenSleep)

	state, err = f.sleep.State(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, state.Sleeping)
	assert.Empty(t, state.CurrentSleepID)
	assert.Len(t, state.Recent, 1)
}

func TestSleepService_DeleteOpenResetsSleeping(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, err := f.sleep.StartSleep(ctx, "alice")
	require.NoError(t, err)

	state, err := f.sleep.DeleteSleep(ctx, "alice", session.ID)
	require.NoError(t, err)
	assert.False(t, state.Sleeping)
	assert.Empty(t, state.Recent)

	_, err = f.sleep.StartSleep(ctx, "alice")
	assert.NoError(t, err)
}

func TestSleepService_DeleteMissing(t *testing.T) {
	f := newFixture()

	_, err := f.sleep.DeleteSleep(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, models.ErrSleepNotFound)
}

func TestSleepService_LinkedAccountsShareOpenSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.store.PutConnection(ctx, models.Connection{SubjectID: "bob", ConnectedTo: "alice"}))

	_, err := f.sleep.StartSleep(ctx, "alice")
	require.NoError(t, err)

	_, err = f.sleep.StartSleep(ctx, "bob")
	assert.ErrorIs(t, err, models.ErrSleepAlreadyOpen)

	f.advance(time.Hour)
	ended, err := f.sleep.EndSleep(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", ended.OwnerID)
}

func TestSleepService_RecentIsCapped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < models.RecentSleepLimit+2; i++ {
		_, err := f.sleep.StartSleep(ctx, "alice")
		require.NoError(t, err)
		f.advance(10 * time.Minute)
		_, err = f.sleep.EndSleep(ctx, "alice")
		require.NoError(t, err)
		f.advance(10 * time.Minute)
	}

	state, err := f.sleep.State(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, state.Recent, models.RecentSleepLimit)
	assert.True(t, state.Recent[0].StartTime.After(state.Recent[1].StartTime))
}

func TestSleepService_EndSleepNeverBeforeStart(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, err := f.sleep.StartSleep(ctx, "alice")
	require.NoError(t, err)

	// clock stepped back, e.g. a second instance running slightly behind
	f.advance(-10 * time.Minute)
	ended, err := f.sleep.EndSleep(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, ended.EndTime)
	assert.True(t, ended.EndTime.Equal(session.StartTime))
	assert.False(t, ended.IsOpen())
}
