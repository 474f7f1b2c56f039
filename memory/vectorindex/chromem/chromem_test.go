package chromem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeus-Eternal/AI-Karen-sub017/memory"
)

func testMeta(userID, scope, kind string) memory.IndexMetadata {
	return memory.IndexMetadata{
		UserID:    userID,
		Scope:     scope,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
}

func TestIndexInsertAndSearch(t *testing.T) {
	ctx := context.Background()
	index := New()

	require.NoError(t, index.Insert(ctx, "col", "exact", []float32{1, 0, 0}, testMeta("u1", "pref", "like")))
	require.NoError(t, index.Insert(ctx, "col", "near", []float32{0.9, 0.1, 0}, testMeta("u1", "pref", "like")))
	require.NoError(t, index.Insert(ctx, "col", "far", []float32{0, 1, 0}, testMeta("u1", "pref", "like")))

	hits, err := index.Search(ctx, "col", []float32{1, 0, 0}, 2, memory.IndexFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "exact", hits[0].ID)
	assert.Equal(t, "near", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.InDelta(t, 1.0, hits[0].Score, 0.01)
}

func TestIndexSearchWithFilter(t *testing.T) {
	ctx := context.Background()
	index := New()

	require.NoError(t, index.Insert(ctx, "col", "mine", []float32{1, 0, 0}, testMeta("u1", "pref", "like")))
	require.NoError(t, index.Insert(ctx, "col", "theirs", []float32{1, 0, 0}, testMeta("u2", "pref", "like")))

	hits, err := index.Search(ctx, "col", []float32{1, 0, 0}, 10, memory.IndexFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "mine", hits[0].ID)
}

func TestIndexSearchEmptyCollection(t *testing.T) {
	ctx := context.Background()
	index := New()

	hits, err := index.Search(ctx, "col", []float32{1, 0, 0}, 5, memory.IndexFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexDeleteByID(t *testing.T) {
	ctx := context.Background()
	index := New()

	require.NoError(t, index.Insert(ctx, "col", "a", []float32{1, 0, 0}, testMeta("u1", "pref", "like")))
	require.NoError(t, index.Insert(ctx, "col", "b", []float32{0, 1, 0}, testMeta("u1", "pref", "like")))

	require.NoError(t, index.Delete(ctx, "col", memory.IndexFilter{IDs: []string{"a"}}))

	hits, err := index.Search(ctx, "col", []float32{1, 0, 0}, 10, memory.IndexFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)
}

func TestIndexDeleteUnknownCollection(t *testing.T) {
	assert.NoError(t, New().Delete(context.Background(), "absent", memory.IndexFilter{IDs: []string{"a"}}))
}

func TestWhereClause(t *testing.T) {
	assert.Nil(t, whereClause(memory.IndexFilter{}))
	// Time range and expiry cannot be expressed as equality predicates.
	assert.Nil(t, whereClause(memory.IndexFilter{TimeRange: &memory.TimeRange{}}))

	where := whereClause(memory.IndexFilter{UserID: "u1", Scope: "pref", Kind: "like"})
	assert.Equal(t, map[string]string{"user_id": "u1", "scope": "pref", "kind": "like"}, where)
}

func TestFlattenMetadata(t *testing.T) {
	now := time.Now()
	expires := now.Add(time.Hour)
	flat := flattenMetadata(memory.IndexMetadata{
		UserID:         "u1",
		SessionID:      "s1",
		ConversationID: "c1",
		Scope:          "pref",
		Kind:           "like",
		CreatedAt:      now,
		ExpiresAt:      &expires,
		Extra:          map[string]string{"source": "chat"},
	})

	assert.Equal(t, "u1", flat["user_id"])
	assert.Equal(t, "s1", flat["session_id"])
	assert.Equal(t, "c1", flat["conversation_id"])
	assert.Equal(t, "pref", flat["scope"])
	assert.Equal(t, "like", flat["kind"])
	assert.Equal(t, "chat", flat["source"])
	assert.NotEmpty(t, flat["created_at"])
	assert.NotEmpty(t, flat["expires_at"])
}
