// Package config loads and saves the validation threshold configuration. All
// defaults are materialized at construction time; a YAML file only overrides
// what it names, so a partial file never zeroes a threshold.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/stratval/stratval/internal/report"
	"github.com/stratval/stratval/internal/validate/featimp"
	"github.com/stratval/stratval/internal/validate/holdout"
	"github.com/stratval/stratval/internal/validate/overfit"
	"github.com/stratval/stratval/internal/validate/perturb"
)

// ValidationConfig aggregates the per-analyzer threshold configurations
type ValidationConfig struct {
	Holdout           holdout.Config `yaml:"holdout"`
	Perturbation      perturb.Config `yaml:"perturbation"`
	FeatureImportance featimp.Config `yaml:"feature_importance"`
	Overfit           overfit.Config `yaml:"overfit"`
	Report            report.Config  `yaml:"report"`
}

// Default returns the configuration with every analyzer's defaults in place
func Default() *ValidationConfig {
	return &ValidationConfig{
		Holdout:           holdout.DefaultConfig(),
		Perturbation:      perturb.DefaultConfig(),
		FeatureImportance: featimp.DefaultConfig(),
		Overfit:           overfit.DefaultConfig(),
		Report:            report.DefaultConfig(),
	}
}

// Load reads a YAML configuration file over the defaults. Fields absent from
// the file keep their default values.
func Load(path string) (*ValidationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read validation config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse validation config YAML: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file
func Save(cfg *ValidationConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal validation config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write validation config: %w", err)
	}

	return nil
}
