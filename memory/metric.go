package memory

import (
	"github.com/Zeus-Eternal/AI-Karen-sub017/config"
	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
)

// The engine works in a single "higher = better" similarity convention.
// Indexes that report distances have their scores and thresholds converted
// exactly once at this boundary, so the primary path and the fallback
// scanner rank on the same scale.

// normalizeScore converts an index-native score to similarity.
func normalizeScore(metricMode string, score float64) float64 {
	if metricMode == config.MetricModeDistance {
		return 1.0 - score
	}
	return score
}

// normalizeThreshold converts a caller-supplied threshold to the internal
// similarity convention.
func normalizeThreshold(metricMode string, threshold float64) float64 {
	if metricMode == config.MetricModeDistance {
		return 1.0 - threshold
	}
	return threshold
}

// validateThreshold enforces the metric-mode-dependent range: [0,1] for
// similarity, [0,2] for cosine distance.
func validateThreshold(metricMode string, threshold float64) error {
	switch metricMode {
	case config.MetricModeSimilarity:
		if threshold < 0 || threshold > 1 {
			return errors.Wrapf(errors.ErrInvalidQuery, "similarity threshold %v out of [0,1]", threshold)
		}
	case config.MetricModeDistance:
		if threshold < 0 || threshold > 2 {
			return errors.Wrapf(errors.ErrInvalidQuery, "distance threshold %v out of [0,2]", threshold)
		}
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown metric mode %q", metricMode)
	}
	return nil
}
