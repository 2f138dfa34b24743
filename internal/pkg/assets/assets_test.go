package assets

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmill/docmill/app/repository"
	"github.com/docmill/docmill/internal/pkg/objectstore"
)

type testConfig struct {
	ttl time.Duration
	max int64
}

func (c testConfig) DefaultAssetTTL() time.Duration { return c.ttl }
func (c testConfig) MaxFileSize() int64             { return c.max }

func newTestStore(t *testing.T) (*Store, *repository.Repositories) {
	t.Helper()

	repos := repository.NewMemoryRepositories()
	objects, err := objectstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return NewStore(repos.Asset, objects, testConfig{ttl: 24 * time.Hour, max: 1024}), repos
}

func TestRegisterAppliesDefaultTTL(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	asset, err := store.Register(context.Background(), 1, Upload{Name: "out.pdf", Size: 100, Type: "application/pdf"}, 0, now)
	require.NoError(t, err)
	assert.NotEmpty(t, asset.UUID)
	assert.True(t, asset.ExpiresAt.Equal(now.Add(24*time.Hour)))
}

func TestRegisterHonorsExplicitTTL(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	asset, err := store.Register(context.Background(), 1, Upload{Name: "out.pdf", Size: 100}, time.Hour, now)
	require.NoError(t, err)
	assert.True(t, asset.ExpiresAt.Equal(now.Add(time.Hour)))
}

func TestRegisterRejectsOversizedUpload(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	_, err := store.Register(context.Background(), 1, Upload{Name: "big.pdf", Size: 2048}, 0, now)
	assert.ErrorIs(t, err, ErrAssetTooLarge)
}

func TestGetLazyExpiry(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	asset, err := store.Register(context.Background(), 1, Upload{Name: "out.pdf", Size: 100}, time.Hour, now)
	require.NoError(t, err)

	// Alive right up to the expiry instant.
	got, err := store.Get(asset.UUID, now.Add(time.Hour-time.Second))
	require.NoError(t, err)
	assert.Equal(t, asset.UUID, got.UUID)

	// Expired at exactly expires_at, with no reaper involved.
	_, err = store.Get(asset.UUID, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAssetExpired)
}

func TestGetUnknownAsset(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get("00000000-0000-0000-0000-000000000000", time.Now())
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestOpenStreamsPayload(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	payload := "derived file content"
	asset, err := store.Register(context.Background(), 1, Upload{
		Name:    "out.pdf",
		Size:    int64(len(payload)),
		Type:    "application/pdf",
		Payload: strings.NewReader(payload),
	}, time.Hour, now)
	require.NoError(t, err)
	require.NotEmpty(t, asset.ObjectKey)

	rc, err := store.Open(context.Background(), asset.UUID, now)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
}

func TestOpenExpiredAsset(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	asset, err := store.Register(context.Background(), 1, Upload{
		Name:    "out.pdf",
		Size:    4,
		Payload: strings.NewReader("data"),
	}, time.Hour, now)
	require.NoError(t, err)

	_, err = store.Open(context.Background(), asset.UUID, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrAssetExpired)
}

func TestReapDeletesOnlyExpiredRows(t *testing.T) {
	store, repos := newTestStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	expired, err := store.Register(context.Background(), 1, Upload{Name: "old.pdf", Size: 10}, time.Hour, now.Add(-2*time.Hour))
	require.NoError(t, err)
	alive, err := store.Register(context.Background(), 1, Upload{Name: "new.pdf", Size: 10}, time.Hour, now)
	require.NoError(t, err)

	deleted, err := store.Reap(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repos.Asset.GetByUUID(expired.UUID)
	assert.Error(t, err, "expired row must be physically gone")
	_, err = repos.Asset.GetByUUID(alive.UUID)
	assert.NoError(t, err, "live row must survive the reaper")
}

func TestReapIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	_, err := store.Register(context.Background(), 1, Upload{Name: "old.pdf", Size: 10}, time.Hour, now.Add(-2*time.Hour))
	require.NoError(t, err)

	first, err := store.Reap(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	// Nothing new expired in between, so the second run is a no-op.
	second, err := store.Reap(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, second)
}

func TestReapRemovesPayload(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	asset, err := store.Register(context.Background(), 1, Upload{
		Name:    "old.pdf",
		Size:    4,
		Payload: strings.NewReader("data"),
	}, time.Hour, now.Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = store.Reap(context.Background(), now)
	require.NoError(t, err)

	_, err = store.Open(context.Background(), asset.UUID, now)
	assert.Error(t, err)
}

func TestReapHonorsContextCancellation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Reap(ctx, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}
