package memory

import (
	"context"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
)

// similarityEpsilon keeps the cosine denominator away from zero.
const similarityEpsilon = 1e-10

// fallbackScanner is the correctness-preserving substitute for ANN search
// used whenever the vector index is absent or failing. It linearly scans
// the most recent window of the record store, which is O(scanLimit) per
// query: graceful degradation, not a production search path. scanLimit is
// the explicit correctness/performance tradeoff knob.
type fallbackScanner struct {
	store     RecordStore
	scanLimit int
}

// Search scores the recent window by cosine similarity and returns at
// most limit hits at or above threshold (internal similarity convention),
// sorted descending with ties broken by newer CreatedAt.
func (s *fallbackScanner) Search(ctx context.Context, tenantID string, q *MemoryQuery, queryVec []float32, threshold float64, limit int, now time.Time) ([]VectorHit, error) {
	records, err := s.store.ScanRecent(ctx, tenantID, s.scanLimit)
	if err != nil {
		return nil, errors.Wrapf(err, "fallback scan failed for tenant %s", tenantID)
	}

	// Filter before scoring so excluded candidates cost nothing.
	candidates := make([]*MemoryRecord, 0, len(records))
	for i := range records {
		rec := &records[i]
		if len(rec.Embedding) != len(queryVec) || len(rec.Embedding) == 0 {
			continue
		}
		if !recordMatches(rec, q, now) {
			continue
		}
		candidates = append(candidates, rec)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	dim := len(queryVec)
	queryData := make([]float64, dim)
	var queryNorm float64
	for i, v := range queryVec {
		queryData[i] = float64(v)
		queryNorm += float64(v) * float64(v)
	}
	queryNorm = math.Sqrt(queryNorm)

	// One matrix-vector multiply gives every dot product at once.
	rows := len(candidates)
	data := make([]float64, rows*dim)
	norms := make([]float64, rows)
	for i, rec := range candidates {
		var norm float64
		for j, v := range rec.Embedding {
			f := float64(v)
			data[i*dim+j] = f
			norm += f * f
		}
		norms[i] = math.Sqrt(norm)
	}

	var dots mat.VecDense
	dots.MulVec(mat.NewDense(rows, dim, data), mat.NewVecDense(dim, queryData))

	hits := make([]VectorHit, 0, rows)
	for i, rec := range candidates {
		denom := queryNorm * norms[i]
		if denom < similarityEpsilon {
			denom = similarityEpsilon
		}
		sim := dots.AtVec(i) / denom
		if sim >= threshold {
			hits = append(hits, VectorHit{ID: rec.ID, Score: sim})
		}
	}

	createdAt := make(map[string]time.Time, len(hits))
	for _, rec := range candidates {
		createdAt[rec.ID] = rec.CreatedAt
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return createdAt[hits[i].ID].After(createdAt[hits[j].ID])
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
