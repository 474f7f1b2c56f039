package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Zeus-Eternal/AI-Karen-sub017/config"
	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
)

func TestNormalizeScore(t *testing.T) {
	assert.Equal(t, 0.9, normalizeScore(config.MetricModeSimilarity, 0.9))
	assert.InDelta(t, 0.9, normalizeScore(config.MetricModeDistance, 0.1), 1e-9)
	// Distances beyond 1 map onto negative similarity and never pass a
	// non-negative threshold.
	assert.InDelta(t, -0.5, normalizeScore(config.MetricModeDistance, 1.5), 1e-9)
}

func TestNormalizeThreshold(t *testing.T) {
	assert.Equal(t, 0.85, normalizeThreshold(config.MetricModeSimilarity, 0.85))
	assert.InDelta(t, 0.85, normalizeThreshold(config.MetricModeDistance, 0.15), 1e-9)
}

func TestValidateThresholdSimilarityRange(t *testing.T) {
	assert.NoError(t, validateThreshold(config.MetricModeSimilarity, 0))
	assert.NoError(t, validateThreshold(config.MetricModeSimilarity, 1))

	err := validateThreshold(config.MetricModeSimilarity, 1.5)
	assert.ErrorIs(t, err, errors.ErrInvalidQuery)
	assert.ErrorIs(t, validateThreshold(config.MetricModeSimilarity, -0.1), errors.ErrInvalidQuery)
}

func TestValidateThresholdDistanceRange(t *testing.T) {
	assert.NoError(t, validateThreshold(config.MetricModeDistance, 0))
	assert.NoError(t, validateThreshold(config.MetricModeDistance, 2))

	assert.ErrorIs(t, validateThreshold(config.MetricModeDistance, 2.5), errors.ErrInvalidQuery)
	assert.ErrorIs(t, validateThreshold(config.MetricModeDistance, -0.1), errors.ErrInvalidQuery)
}

func TestValidateThresholdUnknownMode(t *testing.T) {
	assert.ErrorIs(t, validateThreshold("euclidean", 0.5), errors.ErrInvalidConfig)
}
