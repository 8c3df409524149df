package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milkroad_server/models"
)

func TestRandomShareCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := RandomShareCode()
		require.NoError(t, err)
		normalized, ok := NormalizeShareCode(code)
		assert.True(t, ok, code)
		assert.Equal(t, code, normalized)
	}
}

func TestNormalizeShareCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"abc123", "ABC123", true},
		{"  x9y8z7 \n", "X9Y8Z7", true},
		{"ABC12", "ABC12", false},
		{"ABC1234", "ABC1234", false},
		{"AB-123", "AB-123", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeShareCode(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestShareService_RedeemThenResolve(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	link, err := f.share.Generate(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", link.OwnerID)
	assert.Equal(t, f.now.Add(7*24*time.Hour), link.ExpiresAt)

	identity, err := f.share.Redeem(ctx, " "+link.Code+" ", "bob")
	require.NoError(t, err)
	assert.True(t, identity.Linked)
	assert.Equal(t, "alice", identity.TrackingID)

	trackingID, err := f.tracking.ResolveTrackingID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", trackingID)

	// idempotent
	_, err = f.share.Redeem(ctx, link.Code, "bob")
	require.NoError(t, err)

	assert.Contains(t, f.notifier.Signals(), Signal{Kind: SignalTrackingChanged, ID: "bob", Reason: "joined"})
}

func TestShareService_WritesLandOnSharer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	link, err := f.share.Generate(ctx, "alice")
	require.NoError(t, err)
	_, err = f.share.Redeem(ctx, link.Code, "bob")
	require.NoError(t, err)

	feed, err := f.feeds.AddFeed(ctx, "bob", AddFeedRequest{Type: models.FeedTypeMaternal, AmountMl: 70})
	require.NoError(t, err)
	assert.Equal(t, "alice", feed.OwnerID)
	assert.Equal(t, "bob", feed.CreatedBy)

	summary, err := f.feeds.Summary(ctx, "alice", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 70, summary.Total)
}

func TestShareService_UnknownCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, code := range []string{"ZZZZZZ", "bad", ""} {
		_, err := f.share.Redeem(ctx, code, "bob")
		assert.ErrorIs(t, err, models.ErrShareCodeNotFound, code)
	}

	_, err := f.store.GetConnection(ctx, "bob")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestShareService_ExpiredCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	link, err := f.share.Generate(ctx, "alice")
	require.NoError(t, err)
	f.advance(8 * 24 * time.Hour)

	_, err = f.share.Redeem(ctx, link.Code, "bob")
	assert.ErrorIs(t, err, models.ErrShareCodeNotFound)

	_, err = f.store.GetConnection(ctx, "bob")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestShareService_CollisionRetries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.store.PutShare(ctx, models.ShareLink{Code: "AAAAAA", OwnerID: "carol"}))

	codes := []string{"AAAAAA", "BBBBBB"}
	f.share.NewCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	link, err := f.share.Generate(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", link.Code)

	existing, err := f.store.GetShare(ctx, "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "carol", existing.OwnerID)
}

func TestShareService_CollisionExhausted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.store.PutShare(ctx, models.ShareLink{Code: "AAAAAA", OwnerID: "carol"}))
	f.share.NewCode = func() (string, error) { return "AAAAAA", nil }

	_, err := f.share.Generate(ctx, "alice")
	assert.ErrorIs(t, err, models.ErrShareCodeExhausted)
}

func TestShareService_OwnCodeUnlinks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.store.PutConnection(ctx, models.Connection{SubjectID: "bob", ConnectedTo: "carol"}))

	require.NoError(t, f.store.PutShare(ctx, models.ShareLink{Code: "BOB123", OwnerID: "bob"}))

	identity, err := f.share.Redeem(ctx, "bob123", "bob")
	require.NoError(t, err)
	assert.False(t, identity.Linked)

	trackingID, err := f.tracking.ResolveTrackingID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", trackingID)
}

func TestShareService_Disconnect(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.store.PutConnection(ctx, models.Connection{SubjectID: "bob", ConnectedTo: "alice"}))

	identity, err := f.share.Disconnect(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", identity.TrackingID)

	trackingID, err := f.tracking.ResolveTrackingID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", trackingID)
	assert.Contains(t, f.notifier.Signals(), Signal{Kind: SignalTrackingChanged, ID: "bob", Reason: "disconnected"})
}
