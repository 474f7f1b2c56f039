package memory

import (
	"context"
	"log/slog"
)

// surpriseFilter gates storage on novelty: content too close to an
// existing record in the same (scope, kind) partition is not stored.
//
// The filter is deliberately fail-open. When the vector index is absent
// or a lookup fails, the novelty question cannot be answered and the
// content is accepted, keeping the system usable over keeping it strict.
// It is a heuristic gate, not a uniqueness constraint: concurrent stores
// of near-identical content may both pass.
type surpriseFilter struct {
	index      VectorIndex
	enabled    bool
	metricMode string
	// threshold in the internal similarity convention; a nearest neighbor
	// at or above it marks the candidate as a duplicate.
	threshold float64
	logger    *slog.Logger
}

func (f *surpriseFilter) shouldStore(ctx context.Context, collection string, embedding []float32, scope, kind string) bool {
	if !f.enabled {
		return true
	}
	if f.index == nil {
		f.logger.Warn("surprise filter skipped, no vector index configured")
		return true
	}

	hits, err := f.index.Search(ctx, collection, embedding, 1, IndexFilter{
		Scope: scope,
		Kind:  kind,
	})
	if err != nil {
		f.logger.Warn("surprise lookup failed, accepting content",
			slog.String("collection", collection),
			slog.Any("error", err))
		return true
	}
	if len(hits) == 0 {
		return true
	}

	best := normalizeScore(f.metricMode, hits[0].Score)
	return best < f.threshold
}
