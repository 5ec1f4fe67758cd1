package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0.2, cfg.Holdout.HoldoutFraction)
	assert.Equal(t, 30.0, cfg.Holdout.MinHoldoutDays)
	assert.Equal(t, 20, cfg.Holdout.MinTrades)

	require.Len(t, cfg.Perturbation.Levels, 3)
	assert.Equal(t, 0.05, cfg.Perturbation.Levels[0].Magnitude)
	assert.Equal(t, 0.40, cfg.Perturbation.Levels[2].MaxDegradation)

	assert.Equal(t, 100, cfg.FeatureImportance.NumPermutations)
	assert.False(t, cfg.FeatureImportance.Seeded)

	assert.Equal(t, 100, cfg.Overfit.MinSampleSize)
	assert.Equal(t, 0.6, cfg.Report.MinOverallScore)
	assert.Equal(t, 0.8, cfg.Report.GoScore)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validation.yaml")
	partial := []byte(`
holdout:
  holdout_fraction: 0.3
feature_importance:
  seeded: true
  seed: 42
`)
	require.NoError(t, os.WriteFile(path, partial, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Overridden fields
	assert.Equal(t, 0.3, cfg.Holdout.HoldoutFraction)
	assert.True(t, cfg.FeatureImportance.Seeded)
	assert.Equal(t, int64(42), cfg.FeatureImportance.Seed)

	// Untouched fields keep their defaults
	assert.Equal(t, 20, cfg.Holdout.MinTrades)
	assert.Equal(t, 100, cfg.FeatureImportance.NumPermutations)
	assert.Equal(t, "sharpe", cfg.Perturbation.Metric)
	assert.Equal(t, 0.6, cfg.Report.MinOverallScore)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("holdout: [not: a map"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validation.yaml")
	cfg := Default()
	cfg.Holdout.MinSharpe = 0.75
	cfg.Overfit.QuickMaxDegradation = 0.6

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
