package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueryCacheKeyStableAcrossMapOrder(t *testing.T) {
	a := &MemoryQuery{
		Text: "pizza",
		TopK: 5,
		MetadataFilter: Metadata{
			"source":   MetaStr("chat"),
			"priority": MetaNum(3),
			"labels":   MetaStrs("x", "y"),
		},
	}
	b := &MemoryQuery{
		Text: "pizza",
		TopK: 5,
		MetadataFilter: Metadata{
			"labels":   MetaStrs("x", "y"),
			"priority": MetaNum(3),
			"source":   MetaStr("chat"),
		},
	}

	// Hashing goes through a canonical form, so map insertion order and
	// iteration order cannot change the key.
	for i := 0; i < 20; i++ {
		assert.Equal(t, queryCacheKey(a), queryCacheKey(b))
	}
}

func TestQueryCacheKeyIgnoresTagOrder(t *testing.T) {
	a := &MemoryQuery{Text: "pizza", TopK: 5, Tags: []string{"food", "travel"}}
	b := &MemoryQuery{Text: "pizza", TopK: 5, Tags: []string{"travel", "food"}}

	assert.Equal(t, queryCacheKey(a), queryCacheKey(b))
}

func TestQueryCacheKeyChangesWithParameters(t *testing.T) {
	base := MemoryQuery{Text: "pizza", TopK: 5, SimilarityThreshold: 0.5}
	key := queryCacheKey(&base)

	topK := base
	topK.TopK = 10
	assert.NotEqual(t, key, queryCacheKey(&topK))

	threshold := base
	threshold.SimilarityThreshold = 0.7
	assert.NotEqual(t, key, queryCacheKey(&threshold))

	text := base
	text.Text = "pasta"
	assert.NotEqual(t, key, queryCacheKey(&text))

	user := base
	user.UserID = "u1"
	assert.NotEqual(t, key, queryCacheKey(&user))

	embeddings := base
	embeddings.IncludeEmbeddings = true
	assert.NotEqual(t, key, queryCacheKey(&embeddings))
}

func TestQueryCacheKeyIncludesTimeRange(t *testing.T) {
	now := time.Now()
	base := MemoryQuery{Text: "pizza", TopK: 5}
	ranged := base
	ranged.TimeRange = &TimeRange{Start: now.Add(-time.Hour), End: now}

	assert.NotEqual(t, queryCacheKey(&base), queryCacheKey(&ranged))

	shifted := base
	shifted.TimeRange = &TimeRange{Start: now.Add(-2 * time.Hour), End: now}
	assert.NotEqual(t, queryCacheKey(&ranged), queryCacheKey(&shifted))
}
