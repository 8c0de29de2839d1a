package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 50, cfg.Matching.ExactAmountWeight)
		assert.Equal(t, 40, cfg.Matching.UTRWeight)
		assert.Equal(t, 40, cfg.Matching.MinScore)
		assert.Equal(t, "rules.json", cfg.Rules.Path)
		assert.Equal(t, "csv", cfg.Export.Format)
		assert.Equal(t, "0 2 * * *", cfg.Watch.Schedule)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("MATCH_MIN_SCORE", "60")
		t.Setenv("EXPORT_FORMAT", "xlsx")
		t.Setenv("RULES_PATH", "/var/lib/reconciler/rules.json")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 60, cfg.Matching.MinScore)
		assert.Equal(t, "xlsx", cfg.Export.Format)
		assert.Equal(t, "/var/lib/reconciler/rules.json", cfg.Rules.Path)
	})

	t.Run("non-numeric weight falls back", func(t *testing.T) {
		t.Setenv("MATCH_WEIGHT_UTR", "lots")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 40, cfg.Matching.UTRWeight)
	})
}
