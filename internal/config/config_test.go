package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing video file",
			mutate:  func(c *Config) { c.VideoPath = "/nonexistent/clip.mp4" },
			wantErr: "does not exist",
		},
		{
			name:    "bad source",
			mutate:  func(c *Config) { c.Source = "depth" },
			wantErr: "invalid source",
		},
		{
			name:    "unknown preview",
			mutate:  func(c *Config) { c.Show = []string{"thermal"} },
			wantErr: "unknown preview",
		},
		{
			name:    "mono resolution on rgb camera",
			mutate:  func(c *Config) { c.RGB.Resolution = Res400p },
			wantErr: "invalid rgb resolution",
		},
		{
			name:    "unknown mono resolution",
			mutate:  func(c *Config) { c.Mono.Resolution = "480p" },
			wantErr: "invalid mono resolution",
		},
		{
			name:    "rgb fps out of range",
			mutate:  func(c *Config) { c.RGB.FPS = 0 },
			wantErr: "invalid rgb fps",
		},
		{
			name:    "confidence out of range",
			mutate:  func(c *Config) { c.Depth.Confidence = 300 },
			wantErr: "invalid disparity confidence",
		},
		{
			name:    "sigma out of range",
			mutate:  func(c *Config) { c.Depth.Sigma = 251 },
			wantErr: "invalid sigma",
		},
		{
			name:    "bad median kernel",
			mutate:  func(c *Config) { c.Depth.Median = 4 },
			wantErr: "invalid median filter",
		},
		{
			name:    "inverted depth range",
			mutate:  func(c *Config) { c.Depth.MinDepth = 5000; c.Depth.MaxDepth = 100 },
			wantErr: "invalid depth range",
		},
		{
			name:    "encoding a computed stream",
			mutate:  func(c *Config) { c.Encode.Streams = map[string]float64{"depth": 30} },
			wantErr: "cannot encode",
		},
		{
			name:    "unknown report type",
			mutate:  func(c *Config) { c.Report.Types = []string{"disk"} },
			wantErr: "unknown report type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestFlagOverrides(t *testing.T) {
	cfg, err := ParseFlags([]string{
		"-cam", "left",
		"-show", "left,right,depth",
		"-monor", "720p",
		"-dd",
		"-report", "temp,cpu",
		"-cexp", "12000",
	})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	if cfg.Source != PreviewLeft {
		t.Errorf("Expected source left, got %q", cfg.Source)
	}
	if len(cfg.Show) != 3 || cfg.Show[2] != PreviewDepth {
		t.Errorf("Unexpected show list: %v", cfg.Show)
	}
	if cfg.Mono.Resolution != Res720p {
		t.Errorf("Expected mono 720p, got %q", cfg.Mono.Resolution)
	}
	if cfg.Depth.Enabled {
		t.Error("Expected depth disabled by -dd")
	}
	if len(cfg.Report.Types) != 2 {
		t.Errorf("Unexpected report types: %v", cfg.Report.Types)
	}
	if cfg.Tuning.Exposure == nil || *cfg.Tuning.Exposure != 12000 {
		t.Errorf("Expected exposure 12000, got %v", cfg.Tuning.Exposure)
	}
	if cfg.Tuning.Sensitivity != nil {
		t.Error("Sensitivity should stay automatic when not set")
	}
}

func TestYAMLFileUnderFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.yaml")
	yaml := `
source: right
rgb:
  resolution: 2160p
  fps: 15
depth:
  enabled: true
  confidence: 200
  median: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseFlags([]string{"-config", path, "-cam", "color"})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	// Flag wins over file.
	if cfg.Source != PreviewColor {
		t.Errorf("Expected flag to override file, got source %q", cfg.Source)
	}
	// File wins over defaults.
	if cfg.RGB.Resolution != Res2160p {
		t.Errorf("Expected rgb 2160p from file, got %q", cfg.RGB.Resolution)
	}
	if cfg.Depth.Confidence != 200 {
		t.Errorf("Expected confidence 200 from file, got %d", cfg.Depth.Confidence)
	}
	if cfg.Depth.Median != Median5x5 {
		t.Errorf("Expected median 5x5 from file, got %v", cfg.Depth.Median)
	}
}

func TestCameraEnablement(t *testing.T) {
	cfg := Default()
	cfg.Show = []string{PreviewColor}
	cfg.Depth.Enabled = true

	// Depth pulls in both mono cameras even when not shown.
	if !cfg.LeftEnabled() || !cfg.RightEnabled() {
		t.Error("Depth should enable both mono cameras")
	}

	cfg.Depth.Enabled = false
	if cfg.LeftEnabled() {
		t.Error("Left camera should be off without depth, show or source")
	}

	cfg.Source = PreviewLeft
	if !cfg.LeftEnabled() {
		t.Error("NN source should enable the left camera")
	}
}

func TestVideoModeDisablesDepth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseFlags([]string{"-vid", path})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if cfg.UseCamera() {
		t.Error("Expected video mode")
	}
	if cfg.UseDepth() {
		t.Error("Depth requires the physical camera")
	}
}
