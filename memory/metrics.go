package memory

import (
	"math"
	"sync/atomic"
	"time"
)

const emaFactor = 0.9

type (
	// engineMetrics tracks rolling engine health. Counters are plain
	// atomics; the moving averages use a CAS loop so concurrent stores
	// and queries never tear a float64. Exact values under race are not
	// required, only approximate stability.
	engineMetrics struct {
		queriesTotal        atomic.Int64
		queriesCached       atomic.Int64
		memoriesStored      atomic.Int64
		memoriesRetrieved   atomic.Int64
		embeddingsGenerated atomic.Int64

		avgQuerySeconds     atomicFloat64
		avgEmbeddingSeconds atomicFloat64
	}

	atomicFloat64 struct {
		bits atomic.Uint64
	}

	// MetricsSnapshot is a point-in-time copy of the rolling metrics.
	MetricsSnapshot struct {
		QueriesTotal        int64   `json:"queriesTotal"`
		QueriesCached       int64   `json:"queriesCached"`
		MemoriesStored      int64   `json:"memoriesStored"`
		MemoriesRetrieved   int64   `json:"memoriesRetrieved"`
		EmbeddingsGenerated int64   `json:"embeddingsGenerated"`
		AvgQuerySeconds     float64 `json:"avgQuerySeconds"`
		AvgEmbeddingSeconds float64 `json:"avgEmbeddingSeconds"`
	}
)

func (f *atomicFloat64) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

// observe folds a sample into the exponential moving average.
func (f *atomicFloat64) observe(sample float64) {
	for {
		old := f.bits.Load()
		current := math.Float64frombits(old)
		next := current*emaFactor + sample*(1-emaFactor)
		if current == 0 {
			next = sample
		}
		if f.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return
		}
	}
}

func (m *engineMetrics) observeQuery(d time.Duration) {
	m.avgQuerySeconds.observe(d.Seconds())
}

func (m *engineMetrics) observeEmbedding(d time.Duration) {
	m.embeddingsGenerated.Add(1)
	m.avgEmbeddingSeconds.observe(d.Seconds())
}

func (m *engineMetrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		QueriesTotal:        m.queriesTotal.Load(),
		QueriesCached:       m.queriesCached.Load(),
		MemoriesStored:      m.memoriesStored.Load(),
		MemoriesRetrieved:   m.memoriesRetrieved.Load(),
		EmbeddingsGenerated: m.embeddingsGenerated.Load(),
		AvgQuerySeconds:     m.avgQuerySeconds.Load(),
		AvgEmbeddingSeconds: m.avgEmbeddingSeconds.Load(),
	}
}
