package notify

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploywatch/deploywatch/internal/types"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteLookupUnseen(t *testing.T) {
	store := openTestStore(t)
	e, err := store.Lookup(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestSQLiteRecordSeenAndLookup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	sig := &types.ErrorSignature{Category: types.CategoryImportError, Fingerprint: "fp1", RawMessage: "x"}

	require.NoError(t, store.RecordSeen(ctx, sig, now))
	require.NoError(t, store.RecordSeen(ctx, sig, now.Add(time.Minute)))

	e, err := store.Lookup(ctx, "fp1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, types.CategoryImportError, e.Category)
	assert.Equal(t, 2, e.SeenCount)
	assert.Equal(t, now, e.FirstSeen.UTC())
	assert.Equal(t, now.Add(time.Minute), e.LastSeen.UTC())
	assert.True(t, e.LastNotified.IsZero())
}

func TestSQLiteRecordSeenUpdatesCategory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.RecordSeen(ctx, &types.ErrorSignature{Category: types.CategoryConfigError, Fingerprint: "fp1"}, now))
	require.NoError(t, store.RecordSeen(ctx, &types.ErrorSignature{Category: types.CategoryRuntimeError, Fingerprint: "fp1"}, now.Add(time.Minute)))

	e, err := store.Lookup(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, types.CategoryRuntimeError, e.Category)
}

func TestSQLiteRecordNotified(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.RecordSeen(ctx, &types.ErrorSignature{Category: types.CategoryRuntimeError, Fingerprint: "fp1"}, now))
	require.NoError(t, store.RecordNotified(ctx, "fp1", now))

	e, err := store.Lookup(ctx, "fp1")
	require.NoError(t, err)
	assert.Equal(t, now, e.LastNotified.UTC())
}

func TestSQLiteRecordNotifiedUnknownFingerprint(t *testing.T) {
	store := openTestStore(t)
	err := store.RecordNotified(context.Background(), "ghost", time.Now())
	assert.Error(t, err)
}

func TestSQLiteCountNotifiedSince(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, fp := range []string{"fp1", "fp2", "fp3"} {
		require.NoError(t, store.RecordSeen(ctx, &types.ErrorSignature{Category: types.CategoryRuntimeError, Fingerprint: fp}, now))
		require.NoError(t, store.RecordNotified(ctx, fp, now.Add(time.Duration(-i)*time.Hour)))
	}

	n, err := store.CountNotifiedSince(ctx, now.Add(-90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLiteEntriesOrderedByLastSeen(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.RecordSeen(ctx, &types.ErrorSignature{Category: types.CategoryRuntimeError, Fingerprint: "old"}, now.Add(-time.Hour)))
	require.NoError(t, store.RecordSeen(ctx, &types.ErrorSignature{Category: types.CategoryImportError, Fingerprint: "recent"}, now))

	entries, err := store.Entries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "recent", entries[0].Fingerprint)
	assert.Equal(t, "old", entries[1].Fingerprint)

	limited, err := store.Entries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "recent", limited[0].Fingerprint)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	ctx := context.Background()
	now := time.Now().UTC()

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.RecordSeen(ctx, &types.ErrorSignature{Category: types.CategoryRuntimeError, Fingerprint: "fp1"}, now))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	e, err := store.Lookup(ctx, "fp1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, 1, e.SeenCount)
}
