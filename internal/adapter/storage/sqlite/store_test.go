package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ependal/vidgate/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := domain.NewVideo("owner-1", "holiday", "beach trip", "travel", []string{"sun", "sea"})
	require.NoError(t, store.Save(ctx, v))

	got, err := store.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, "holiday", got.Title)
	assert.Equal(t, "beach trip", got.Description)
	assert.Equal(t, "travel", got.Category)
	assert.Equal(t, []string{"sun", "sea"}, got.Tags)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.WithinDuration(t, v.CreatedAt, got.CreatedAt, time.Second)
}

func TestSaveNilTags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := domain.NewVideo("owner-1", "untagged", "", "", nil)
	require.NoError(t, store.Save(ctx, v))

	got, err := store.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Tags)
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := domain.NewVideo("owner-1", "first", "", "", nil)
	first.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	second := domain.NewVideo("owner-1", "second", "", "", nil)
	second.CreatedAt = time.Now().UTC().Add(-1 * time.Hour)
	other := domain.NewVideo("owner-2", "theirs", "", "", nil)
	for _, v := range []*domain.Video{first, second, other} {
		require.NoError(t, store.Save(ctx, v))
	}

	videos, err := store.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	// Newest first.
	assert.Equal(t, "second", videos[0].Title)
	assert.Equal(t, "first", videos[1].Title)

	videos, err = store.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestFinalize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := domain.NewVideo("owner-1", "clip", "", "", nil)
	require.NoError(t, store.Save(ctx, v))

	v.Status = domain.StatusUploaded
	v.DurationSeconds = 42.5
	v.ManifestName = v.ID + "_master.m3u8"
	v.StaticThumbName = v.ID + "_thumb.webp"
	v.AnimatedThumbName = v.ID + "_preview.webp"
	require.NoError(t, store.Finalize(ctx, v))

	got, err := store.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUploaded, got.Status)
	assert.Equal(t, 42.5, got.DurationSeconds)
	assert.Equal(t, v.ManifestName, got.ManifestName)
	assert.Equal(t, v.StaticThumbName, got.StaticThumbName)
	assert.Equal(t, v.AnimatedThumbName, got.AnimatedThumbName)
	assert.True(t, got.Ready())

	missing := domain.NewVideo("owner-1", "gone", "", "", nil)
	missing.Status = domain.StatusUploaded
	assert.ErrorIs(t, store.Finalize(ctx, missing), domain.ErrNotFound)
}

func TestFinalizePreservesOriginalName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := domain.NewVideo("owner-1", "clip", "", "", nil)
	require.NoError(t, store.Save(ctx, v))
	require.NoError(t, store.SetOriginalName(ctx, v.ID, v.ID+"_original.mp4"))

	v.Status = domain.StatusUploaded
	require.NoError(t, store.Finalize(ctx, v))

	got, err := store.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID+"_original.mp4", got.OriginalAssetName)
}

func TestUpdateMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := domain.NewVideo("owner-1", "old", "old desc", "old cat", []string{"old"})
	require.NoError(t, store.Save(ctx, v))

	title := "new"
	require.NoError(t, store.UpdateMetadata(ctx, v.ID, &domain.MetadataPatch{
		Title: &title,
		Tags:  []string{"fresh"},
	}))

	got, err := store.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "old desc", got.Description)
	assert.Equal(t, "old cat", got.Category)
	assert.Equal(t, []string{"fresh"}, got.Tags)

	assert.ErrorIs(t, store.UpdateMetadata(ctx, "missing", &domain.MetadataPatch{Title: &title}),
		domain.ErrNotFound)
}

func TestUpdateCustomThumbAndStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := domain.NewVideo("owner-1", "clip", "", "", nil)
	require.NoError(t, store.Save(ctx, v))

	require.NoError(t, store.UpdateCustomThumb(ctx, v.ID, v.ID+"_custom.webp"))
	require.NoError(t, store.UpdateStatus(ctx, v.ID, domain.StatusError))

	got, err := store.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID+"_custom.webp", got.CustomThumbName)
	assert.Equal(t, domain.StatusError, got.Status)

	assert.ErrorIs(t, store.UpdateCustomThumb(ctx, "missing", "x.webp"), domain.ErrNotFound)
	assert.ErrorIs(t, store.UpdateStatus(ctx, "missing", domain.StatusError), domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := domain.NewVideo("owner-1", "clip", "", "", nil)
	require.NoError(t, store.Save(ctx, v))

	require.NoError(t, store.Delete(ctx, v.ID))
	_, err := store.Get(ctx, v.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, v.ID), domain.ErrNotFound)
}
