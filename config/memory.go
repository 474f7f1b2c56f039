package config

import (
	"time"

	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
)

const (
	// MetricModeSimilarity means the vector index reports scores where
	// higher = more alike (e.g. cosine similarity, inner product).
	MetricModeSimilarity = "similarity"
	// MetricModeDistance means the vector index reports scores where
	// lower = more alike (e.g. cosine distance). Scores and thresholds
	// are normalized to similarity at the engine boundary.
	MetricModeDistance = "distance"
)

type MemoryConfig struct {
	// SurpriseEnabled controls the novelty gate on store. When disabled
	// every store request is accepted.
	// Default: true
	SurpriseEnabled bool `env:"MEMORY_SURPRISE_ENABLED"`

	// SurpriseThreshold is the nearest-neighbor score at which content is
	// considered a duplicate, expressed in the convention of MetricMode.
	// Default: 0.85
	SurpriseThreshold float64 `env:"MEMORY_SURPRISE_THRESHOLD"`

	// MetricMode declares the score convention of the configured vector
	// index: "similarity" or "distance".
	// Default: "similarity"
	MetricMode string `env:"MEMORY_METRIC_MODE"`

	// RecencyAlpha is the exponential decay rate applied per day of age
	// when ranking results. Smaller values decay slower.
	// Default: 0.05
	RecencyAlpha float64 `env:"MEMORY_RECENCY_ALPHA"`

	// FallbackScanLimit bounds the linear-scan window used when no vector
	// index is reachable. This is the correctness/performance tradeoff
	// knob of the degraded path.
	// Default: 200
	FallbackScanLimit int `env:"MEMORY_FALLBACK_SCAN_LIMIT"`

	// CacheTTL is how long query results stay in the query cache.
	// Default: 5m
	CacheTTL time.Duration `env:"MEMORY_CACHE_TTL"`

	// CallTimeout bounds each embedder and vector index call. Zero means
	// the caller's context is the only bound.
	// Default: 10s
	CallTimeout time.Duration `env:"MEMORY_CALL_TIMEOUT"`

	// DefaultTTLHours is the lifetime assigned to stored records when the
	// caller does not pass one. Zero disables expiry.
	// Default: 168 (one week)
	DefaultTTLHours int `env:"MEMORY_DEFAULT_TTL_HOURS"`

	// EmbeddingDim pins the expected embedding dimensionality. Zero means
	// adopt the embedder's declared dimensionality on first use.
	EmbeddingDim int `env:"MEMORY_EMBEDDING_DIM"`
}

// NewMemoryConfig creates a MemoryConfig with the engine defaults. The
// defaults can be overridden by environment variables via Resolve.
func NewMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		SurpriseEnabled:   true,
		SurpriseThreshold: 0.85,
		MetricMode:        MetricModeSimilarity,
		RecencyAlpha:      0.05,
		FallbackScanLimit: 200,
		CacheTTL:          5 * time.Minute,
		CallTimeout:       10 * time.Second,
		DefaultTTLHours:   168,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *MemoryConfig) Validate() error {
	switch c.MetricMode {
	case MetricModeSimilarity:
		if c.SurpriseThreshold < 0 || c.SurpriseThreshold > 1 {
			return errors.Wrapf(errors.ErrInvalidConfig, "surprise threshold %v out of [0,1] for similarity mode", c.SurpriseThreshold)
		}
	case MetricModeDistance:
		if c.SurpriseThreshold < 0 || c.SurpriseThreshold > 2 {
			return errors.Wrapf(errors.ErrInvalidConfig, "surprise threshold %v out of [0,2] for distance mode", c.SurpriseThreshold)
		}
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown metric mode %q", c.MetricMode)
	}
	if c.RecencyAlpha < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "recency alpha must not be negative, got %v", c.RecencyAlpha)
	}
	if c.FallbackScanLimit <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "fallback scan limit must be positive, got %d", c.FallbackScanLimit)
	}
	return nil
}
