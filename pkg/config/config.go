// Package config provides configuration loading for cellquant. It
// handles YAML configuration files and provides tuned default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"cellquant/pkg/cellquant"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Segmentation parameters
	Segmentation struct {
		// SpotSigma is the Gaussian sigma controlling seed detection
		SpotSigma float64 `yaml:"spotSigma"`

		// OutlineSigma is the Gaussian sigma controlling outline detection
		OutlineSigma float64 `yaml:"outlineSigma"`

		// Threshold is the minimum mean region intensity for background cutoff
		Threshold float64 `yaml:"threshold"`

		// Normalize rescales image intensities to [0, 1] before segmentation
		Normalize bool `yaml:"normalize"`
	} `yaml:"segmentation"`

	// Quantification parameters
	Quantify struct {
		// EdgeMode selects the edge pixel definition: "region" or "boundary"
		EdgeMode string `yaml:"edgeMode"`
	} `yaml:"quantify"`

	// Batch parameters
	Batch struct {
		// NumWorkers is the number of images processed concurrently
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"batch"`

	// Output parameters
	Output struct {
		// Verbose controls diagnostic logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Segmentation.SpotSigma = 6
	cfg.Segmentation.OutlineSigma = 3
	cfg.Segmentation.Threshold = 0.1
	cfg.Segmentation.Normalize = true

	cfg.Quantify.EdgeMode = cellquant.EdgeModeRegion.String()

	cfg.Batch.NumWorkers = runtime.NumCPU()

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file does
// not exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// SegmenterParams converts the segmentation section to core parameters.
func (c *Config) SegmenterParams() *cellquant.SegmenterParams {
	return &cellquant.SegmenterParams{
		SpotSigma:    c.Segmentation.SpotSigma,
		OutlineSigma: c.Segmentation.OutlineSigma,
		Threshold:    c.Segmentation.Threshold,
		Normalize:    c.Segmentation.Normalize,
	}
}

// EdgeMode parses the configured edge mode.
func (c *Config) EdgeMode() (cellquant.EdgeMode, error) {
	return cellquant.ParseEdgeMode(c.Quantify.EdgeMode)
}
