package progress

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"phimstream/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := models.WatchProgressRecord{
		ID:              "u1_dao-hai-tac_Tập 1",
		UserID:          "u1",
		MovieSlug:       "dao-hai-tac",
		MovieTitle:      "Đảo Hải Tặc",
		PosterURL:       "http://img/poster.jpg",
		EpisodeName:     "Tập 1",
		ServerName:      "Vietsub #1",
		Progress:        754,
		Duration:        1440,
		ProgressPercent: 52,
		Timestamp:       1700000000000,
		LastUpdated:     "2023-11-14T22:13:20Z",
	}
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, rec, *got)
}

func TestSQLiteStoreUpsertReplaces(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := models.WatchProgressRecord{ID: "u1_a_1", UserID: "u1", MovieSlug: "a", EpisodeName: "1", Progress: 100, Timestamp: 1000}
	require.NoError(t, store.Upsert(ctx, rec))

	rec.Progress = 700
	rec.Timestamp = 2000
	require.NoError(t, store.Upsert(ctx, rec))

	items, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 700, items[0].Progress)
	require.EqualValues(t, 2000, items[0].Timestamp)
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSQLiteStoreListFiltersByUser(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, models.WatchProgressRecord{ID: "u1_a_1", UserID: "u1", MovieSlug: "a", EpisodeName: "1"}))
	require.NoError(t, store.Upsert(ctx, models.WatchProgressRecord{ID: "u1_b_1", UserID: "u1", MovieSlug: "b", EpisodeName: "1"}))
	require.NoError(t, store.Upsert(ctx, models.WatchProgressRecord{ID: "u2_a_1", UserID: "u2", MovieSlug: "a", EpisodeName: "1"}))

	items, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	items, err = store.ListByUser(ctx, "u3")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestSQLiteStoreDelete(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, models.WatchProgressRecord{ID: "u1_a_1", UserID: "u1", MovieSlug: "a", EpisodeName: "1"}))
	require.NoError(t, store.Delete(ctx, "u1_a_1"))
	require.NoError(t, store.Delete(ctx, "u1_a_1"))

	got, err := store.Get(ctx, "u1_a_1")
	require.NoError(t, err)
	require.Nil(t, got)
}
