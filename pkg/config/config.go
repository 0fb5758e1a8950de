// Package config provides configuration loading and management for phantomtherm.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Data location parameters
	Data struct {
		// Root is the directory holding one subdirectory per dataset,
		// relative to the project root unless absolute
		Root string `yaml:"root"`

		// MarkerFile is the file whose presence identifies the project root
		// when walking up from the working directory
		MarkerFile string `yaml:"markerFile"`

		// SpreadsheetName is the per-dataset acquisition spreadsheet filename
		SpreadsheetName string `yaml:"spreadsheetName"`

		// ImagingExtension replaces the sidecar's .json extension to form
		// the imaging volume filename
		ImagingExtension string `yaml:"imagingExtension"`

		// SegmentationName is the central segmentation mask filename, used
		// for runs whose spreadsheet rows name no per-series mask
		SegmentationName string `yaml:"segmentationName"`
	} `yaml:"data"`

	// Thermometry routine parameters
	Thermometry struct {
		// Command is the external multi-echo thermometry executable
		Command string `yaml:"command"`

		// Bootstrap is the default bootstrap iteration count for the
		// regionwise_bootstrap method
		Bootstrap int `yaml:"bootstrap"`
	} `yaml:"thermometry"`

	// Plot output parameters
	Plot struct {
		// WidthInches and HeightInches set the rendered plot size
		WidthInches  float64 `yaml:"widthInches"`
		HeightInches float64 `yaml:"heightInches"`
	} `yaml:"plot"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Data.Root = "data"
	cfg.Data.MarkerFile = "phantomtherm.yaml"
	cfg.Data.SpreadsheetName = "image_information.xlsx"
	cfg.Data.ImagingExtension = ".nii.gz"
	cfg.Data.SegmentationName = "segmentation.nii.gz"

	cfg.Thermometry.Command = "multiecho-thermometry"
	cfg.Thermometry.Bootstrap = 100

	cfg.Plot.WidthInches = 8
	cfg.Plot.HeightInches = 6

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
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

// SaveConfig saves the configuration to a YAML file
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

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
