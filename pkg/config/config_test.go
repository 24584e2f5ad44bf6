package config

import (
	"os"
	"path/filepath"
	"testing"

	"cellquant/pkg/cellquant"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Segmentation.SpotSigma != 6 {
		t.Errorf("spot sigma %g, want 6", cfg.Segmentation.SpotSigma)
	}
	if cfg.Segmentation.OutlineSigma != 3 {
		t.Errorf("outline sigma %g, want 3", cfg.Segmentation.OutlineSigma)
	}
	if cfg.Segmentation.Threshold != 0.1 {
		t.Errorf("threshold %g, want 0.1", cfg.Segmentation.Threshold)
	}
	if !cfg.Segmentation.Normalize {
		t.Error("normalize should default to true")
	}
	if cfg.Quantify.EdgeMode != "region" {
		t.Errorf("edge mode %q, want region", cfg.Quantify.EdgeMode)
	}
	if cfg.Batch.NumWorkers < 1 {
		t.Errorf("num workers %d, want at least 1", cfg.Batch.NumWorkers)
	}
	if !cfg.Output.Verbose {
		t.Error("verbose should default to true")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Segmentation.SpotSigma = 4.5
	cfg.Segmentation.Normalize = false
	cfg.Quantify.EdgeMode = "boundary"
	cfg.Batch.NumWorkers = 3

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Segmentation.SpotSigma != 4.5 {
		t.Errorf("spot sigma %g, want 4.5", loaded.Segmentation.SpotSigma)
	}
	if loaded.Segmentation.Normalize {
		t.Error("normalize should round-trip as false")
	}
	if loaded.Quantify.EdgeMode != "boundary" {
		t.Errorf("edge mode %q, want boundary", loaded.Quantify.EdgeMode)
	}
	if loaded.Batch.NumWorkers != 3 {
		t.Errorf("num workers %d, want 3", loaded.Batch.NumWorkers)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Segmentation.SpotSigma != DefaultConfig().Segmentation.SpotSigma {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	content := "segmentation:\n  threshold: 0.25\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Segmentation.Threshold != 0.25 {
		t.Errorf("threshold %g, want 0.25", cfg.Segmentation.Threshold)
	}
	// Untouched fields keep their defaults.
	if cfg.Segmentation.SpotSigma != 6 {
		t.Errorf("spot sigma %g, want default 6", cfg.Segmentation.SpotSigma)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("segmentation: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
}

func TestSegmenterParams(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.SegmenterParams()
	if p.SpotSigma != cfg.Segmentation.SpotSigma ||
		p.OutlineSigma != cfg.Segmentation.OutlineSigma ||
		p.Threshold != cfg.Segmentation.Threshold ||
		p.Normalize != cfg.Segmentation.Normalize {
		t.Errorf("params %+v do not mirror config %+v", p, cfg.Segmentation)
	}
}

func TestEdgeModeParsing(t *testing.T) {
	cfg := DefaultConfig()

	mode, err := cfg.EdgeMode()
	if err != nil || mode != cellquant.EdgeModeRegion {
		t.Fatalf("default edge mode: got %v, %v", mode, err)
	}

	cfg.Quantify.EdgeMode = "boundary"
	mode, err = cfg.EdgeMode()
	if err != nil || mode != cellquant.EdgeModeBoundary {
		t.Fatalf("boundary edge mode: got %v, %v", mode, err)
	}

	cfg.Quantify.EdgeMode = "perimeterish"
	if _, err := cfg.EdgeMode(); err == nil {
		t.Fatal("expected error for unknown edge mode")
	}
}
