package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeus-Eternal/AI-Karen-sub017/memory"
)

func TestInMemoryRecordStoreInsertAndFetch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryRecordStore()

	rec := &memory.MemoryRecord{
		ID:        "r1",
		Content:   "hello",
		Embedding: []float32{1, 2, 3},
		Tags:      []string{"a"},
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Insert(ctx, "t1", rec))

	fetched, err := store.FetchByIDs(ctx, "t1", []string{"r1", "missing"})
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, "hello", fetched[0].Content)
	assert.Equal(t, []float32{1, 2, 3}, fetched[0].Embedding)

	// Mutating the fetched copy must not leak into the store.
	fetched[0].Content = "mutated"
	fetched[0].Tags[0] = "mutated"
	again, err := store.FetchByIDs(ctx, "t1", []string{"r1"})
	require.NoError(t, err)
	assert.Equal(t, "hello", again[0].Content)
	assert.Equal(t, []string{"a"}, again[0].Tags)
}

func TestInMemoryRecordStoreTenantIsolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryRecordStore()

	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "r1", CreatedAt: time.Now()}))

	fetched, err := store.FetchByIDs(ctx, "t2", []string{"r1"})
	require.NoError(t, err)
	assert.Empty(t, fetched)

	count, err := store.Count(ctx, "t2")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInMemoryRecordStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryRecordStore()
	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "r1", CreatedAt: time.Now()}))

	existed, err := store.Delete(ctx, "t1", "r1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = store.Delete(ctx, "t1", "r1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestInMemoryRecordStoreScanRecent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryRecordStore()
	now := time.Now()

	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "oldest", CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "newest", CreatedAt: now}))
	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "middle", CreatedAt: now.Add(-time.Hour)}))

	records, err := store.ScanRecent(ctx, "t1", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "newest", records[0].ID)
	assert.Equal(t, "middle", records[1].ID)
}

func TestInMemoryRecordStoreCounts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryRecordStore()
	now := time.Now()

	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "a", Scope: "pref", Kind: "like", CreatedAt: now}))
	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "b", Scope: "pref", Kind: "like", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "c", Scope: "fact", Kind: "note", CreatedAt: now}))

	total, err := store.Count(ctx, "t1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	recent, err := store.CountSince(ctx, "t1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, recent)

	byScopeKind, err := store.CountByScopeKind(ctx, "t1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, byScopeKind[memory.ScopeKind{Scope: "pref", Kind: "like"}])
	assert.EqualValues(t, 1, byScopeKind[memory.ScopeKind{Scope: "fact", Kind: "note"}])
}

func TestInMemoryRecordStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryRecordStore()
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "gone-b", CreatedAt: now, ExpiresAt: &past}))
	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "gone-a", CreatedAt: now, ExpiresAt: &past}))
	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "live", CreatedAt: now, ExpiresAt: &future}))
	require.NoError(t, store.Insert(ctx, "t1", &memory.MemoryRecord{ID: "forever", CreatedAt: now}))

	expired, err := store.ListExpired(ctx, "t1", now)
	require.NoError(t, err)
	assert.Equal(t, []string{"gone-a", "gone-b"}, expired)

	deleted, err := store.DeleteByIDs(ctx, "t1", expired)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	total, err := store.Count(ctx, "t1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
