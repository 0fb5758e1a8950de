package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Data.SpreadsheetName != "image_information.xlsx" {
		t.Errorf("Unexpected default spreadsheet name: %q", cfg.Data.SpreadsheetName)
	}
	if cfg.Data.ImagingExtension != ".nii.gz" {
		t.Errorf("Unexpected default imaging extension: %q", cfg.Data.ImagingExtension)
	}
	if cfg.Data.SegmentationName != "segmentation.nii.gz" {
		t.Errorf("Unexpected default segmentation name: %q", cfg.Data.SegmentationName)
	}
	if cfg.Thermometry.Bootstrap != 100 {
		t.Errorf("Unexpected default bootstrap count: %d", cfg.Thermometry.Bootstrap)
	}
	if cfg.Plot.WidthInches <= 0 || cfg.Plot.HeightInches <= 0 {
		t.Error("Plot dimensions must default to positive values")
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Thermometry.Command != DefaultConfig().Thermometry.Command {
		t.Error("Missing config file must yield defaults")
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("thermometry:\n  command: /opt/therm/bin/run\n  bootstrap: 500\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Thermometry.Command != "/opt/therm/bin/run" {
		t.Errorf("Command override not applied: %q", cfg.Thermometry.Command)
	}
	if cfg.Thermometry.Bootstrap != 500 {
		t.Errorf("Bootstrap override not applied: %d", cfg.Thermometry.Bootstrap)
	}
	// Untouched sections keep their defaults.
	if cfg.Data.SpreadsheetName != "image_information.xlsx" {
		t.Errorf("Unrelated default lost: %q", cfg.Data.SpreadsheetName)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n  - ["), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("Expected error for malformed YAML")
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Data.Root = "/srv/phantom/data"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Data.Root != "/srv/phantom/data" {
		t.Errorf("Round-trip lost Data.Root: %q", loaded.Data.Root)
	}
}
