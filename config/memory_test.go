package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Zeus-Eternal/AI-Karen-sub017/config"
	"github.com/Zeus-Eternal/AI-Karen-sub017/errors"
)

func TestMemoryConfigDefaultsAreValid(t *testing.T) {
	conf := config.NewMemoryConfig()
	assert.NoError(t, conf.Validate())
	assert.True(t, conf.SurpriseEnabled)
	assert.Equal(t, 0.85, conf.SurpriseThreshold)
	assert.Equal(t, config.MetricModeSimilarity, conf.MetricMode)
	assert.Equal(t, 0.05, conf.RecencyAlpha)
}

func TestMemoryConfigValidateThresholdRange(t *testing.T) {
	conf := config.NewMemoryConfig()
	conf.SurpriseThreshold = 1.5
	assert.ErrorIs(t, conf.Validate(), errors.ErrInvalidConfig)

	// Distance mode allows thresholds up to 2.
	conf.MetricMode = config.MetricModeDistance
	assert.NoError(t, conf.Validate())

	conf.SurpriseThreshold = 2.5
	assert.ErrorIs(t, conf.Validate(), errors.ErrInvalidConfig)
}

func TestMemoryConfigValidateRejectsUnknownMetricMode(t *testing.T) {
	conf := config.NewMemoryConfig()
	conf.MetricMode = "euclidean"
	assert.ErrorIs(t, conf.Validate(), errors.ErrInvalidConfig)
}

func TestMemoryConfigValidateRejectsNegativeAlpha(t *testing.T) {
	conf := config.NewMemoryConfig()
	conf.RecencyAlpha = -0.1
	assert.ErrorIs(t, conf.Validate(), errors.ErrInvalidConfig)
}

func TestMemoryConfigValidateRejectsNonPositiveScanLimit(t *testing.T) {
	conf := config.NewMemoryConfig()
	conf.FallbackScanLimit = 0
	assert.ErrorIs(t, conf.Validate(), errors.ErrInvalidConfig)
}
