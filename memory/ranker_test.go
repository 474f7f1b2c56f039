package memory

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecencyRankerFreshBeatsOldAtEqualSimilarity(t *testing.T) {
	now := time.Now()
	records := []MemoryRecord{
		{ID: "old", CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: "fresh", CreatedAt: now},
	}
	scores := map[string]float64{"old": 0.9, "fresh": 0.9}

	ranked := recencyRanker{alpha: 0.05}.rank(records, scores, now)

	assert.Equal(t, "fresh", ranked[0].ID)
	assert.Greater(t, ranked[0].SimilarityScore, ranked[1].SimilarityScore)
}

func TestRecencyRankerAppliesExponentialDecay(t *testing.T) {
	now := time.Now()
	records := []MemoryRecord{
		{ID: "a", CreatedAt: now.Add(-30 * 24 * time.Hour)},
	}

	ranked := recencyRanker{alpha: 0.05}.rank(records, map[string]float64{"a": 0.8}, now)

	assert.InDelta(t, 0.8*math.Exp(-0.05*30), ranked[0].SimilarityScore, 1e-9)
}

func TestRecencyRankerOldButSimilarOutranked(t *testing.T) {
	now := time.Now()
	records := []MemoryRecord{
		{ID: "old", CreatedAt: now.Add(-60 * 24 * time.Hour)},
		{ID: "fresh", CreatedAt: now},
	}
	// The old record is a much closer match, but sixty days of decay at
	// alpha 0.05 shrink it below the moderately similar fresh one.
	scores := map[string]float64{"old": 0.95, "fresh": 0.5}

	ranked := recencyRanker{alpha: 0.05}.rank(records, scores, now)

	assert.Equal(t, "fresh", ranked[0].ID)
}

func TestRecencyRankerMissingScoreDefaultsToZero(t *testing.T) {
	now := time.Now()
	records := []MemoryRecord{
		{ID: "unscored", CreatedAt: now},
		{ID: "scored", CreatedAt: now.Add(-5 * 24 * time.Hour)},
	}

	ranked := recencyRanker{alpha: 0.05}.rank(records, map[string]float64{"scored": 0.4}, now)

	assert.Equal(t, "scored", ranked[0].ID)
	assert.Zero(t, ranked[1].SimilarityScore)
}

func TestRecencyRankerClampsFutureCreatedAt(t *testing.T) {
	now := time.Now()
	records := []MemoryRecord{
		{ID: "future", CreatedAt: now.Add(time.Hour)},
	}

	ranked := recencyRanker{alpha: 0.05}.rank(records, map[string]float64{"future": 0.7}, now)

	assert.InDelta(t, 0.7, ranked[0].SimilarityScore, 1e-9)
}

func TestRecencyRankerStableOnTies(t *testing.T) {
	now := time.Now()
	records := []MemoryRecord{
		{ID: "first", CreatedAt: now},
		{ID: "second", CreatedAt: now},
		{ID: "third", CreatedAt: now},
	}
	scores := map[string]float64{"first": 0.6, "second": 0.6, "third": 0.6}

	ranked := recencyRanker{alpha: 0}.rank(records, scores, now)

	assert.Equal(t, "first", ranked[0].ID)
	assert.Equal(t, "second", ranked[1].ID)
	assert.Equal(t, "third", ranked[2].ID)
}
