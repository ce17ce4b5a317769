package costing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/matcher"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/config"
)

func TestConfigFromSettings(t *testing.T) {
	settings := config.Default().Costing
	settings.OverrideAmount = 50
	settings.TieBreak = "all"
	settings.BatchSize = 10

	cfg, err := ConfigFromSettings(settings)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.Override.Amount)
	assert.Equal(t, 30.0, cfg.Override.HeavyWeightKg)
	assert.Equal(t, matcher.TieBreakAll, cfg.Matcher.TieBreak)
	assert.Equal(t, "-_/", cfg.Matcher.Separators)
	assert.Equal(t, 10, cfg.BatchSize)

	settings.TieBreak = "coin-flip"
	_, err = ConfigFromSettings(settings)
	assert.Error(t, err)
}
