package memory

import (
	"math"
	"sort"
	"time"
)

const secondsPerDay = 24 * 3600

// recencyRanker produces the final ordering by multiplying each raw
// similarity score with an exponential age decay. An older but very
// similar record can therefore be outranked by a newer, moderately
// similar one; the recency bias is the point.
type recencyRanker struct {
	// alpha is the decay rate per day of age. Smaller decays slower;
	// zero disables the recency bias entirely.
	alpha float64
}

// rank mutates each record's SimilarityScore to the combined score and
// returns the records sorted descending. Records without a raw score
// default to zero. The sort is stable, so ties keep the candidate order
// the caller seeded.
func (r recencyRanker) rank(records []MemoryRecord, scores map[string]float64, now time.Time) []MemoryRecord {
	for i := range records {
		rec := &records[i]
		ageDays := now.Sub(rec.CreatedAt).Seconds() / secondsPerDay
		if ageDays < 0 {
			ageDays = 0
		}
		rec.SimilarityScore = scores[rec.ID] * math.Exp(-r.alpha*ageDays)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SimilarityScore > records[j].SimilarityScore
	})
	return records
}
