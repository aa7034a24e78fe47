// Package config holds the demo configuration: CLI flags merged over an
// optional YAML file, validated fail-fast before any device work starts.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Preview names, matching the pipeline branch and window names.
const (
	PreviewColor     = "color"
	PreviewLeft      = "left"
	PreviewRight     = "right"
	PreviewDepth     = "depth"
	PreviewDisparity = "disparity"
	PreviewNNInput   = "nnInput"
)

// Report column groups accepted by the -report flag.
const (
	ReportTemp   = "temp"
	ReportCPU    = "cpu"
	ReportMemory = "memory"
)

// Config is the complete demo configuration.
type Config struct {
	// DeviceID selects a specific device; empty means first available.
	DeviceID string `yaml:"device_id"`

	// VideoPath switches input from the camera to a host video file.
	VideoPath string `yaml:"video_path"`

	// Source is the camera feeding the neural network (color, left, right).
	Source string `yaml:"source"`

	// Show lists the previews to open windows for.
	Show []string `yaml:"show"`

	// Sync aligns NN results with the frames they were computed on.
	Sync bool `yaml:"sync"`

	// Debug enables debug logging.
	Debug bool `yaml:"debug"`

	RGB    CameraStream `yaml:"rgb"`
	Mono   CameraStream `yaml:"mono"`
	Depth  DepthConfig  `yaml:"depth"`
	NN     NNConfig     `yaml:"nn"`
	Encode EncodeConfig `yaml:"encode"`
	Report ReportConfig `yaml:"report"`
	Tuning Tuning       `yaml:"tuning"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
}

// CameraStream configures one sensor stream.
type CameraStream struct {
	Resolution Resolution `yaml:"resolution"`
	FPS        float64    `yaml:"fps"`
}

// DepthConfig configures the stereo depth branch and its post-processing.
type DepthConfig struct {
	Enabled bool `yaml:"enabled"`

	// Median is the post-processing median filter kernel (0 disables).
	Median MedianFilter `yaml:"median"`

	// Confidence is the disparity confidence threshold (0-255).
	Confidence int `yaml:"confidence"`

	// Sigma is the bilateral filter sigma (0-250).
	Sigma int `yaml:"sigma"`

	// LRCheck enables left-right consistency checking.
	LRCheck bool `yaml:"lr_check"`

	// LRCThreshold is the LR-check disparity threshold (0-10).
	LRCThreshold int `yaml:"lrc_threshold"`

	// Extended enables extended disparity range.
	Extended bool `yaml:"extended"`

	// Subpixel enables subpixel disparity precision.
	Subpixel bool `yaml:"subpixel"`

	// MinDepth and MaxDepth bound spatial calculations, in millimetres.
	MinDepth int `yaml:"min_depth"`
	MaxDepth int `yaml:"max_depth"`
}

// NNConfig configures the neural network stage.
type NNConfig struct {
	Enabled bool `yaml:"enabled"`

	// Model is the model name; its config sidecar is <ModelDir>/<Model>.json.
	Model string `yaml:"model"`

	// ModelDir is the directory holding model files and sidecars.
	ModelDir string `yaml:"model_dir"`

	// Runner is the external inference runtime command.
	Runner string `yaml:"runner"`

	// FullFOV keeps the full field of view when scaling NN input.
	FullFOV bool `yaml:"full_fov"`

	// CountLabel enables on-screen counting of one label (empty disables).
	CountLabel string `yaml:"count_label"`
}

// EncodeConfig configures video encoding passthrough.
type EncodeConfig struct {
	// Streams maps preview name to encode FPS.
	Streams map[string]float64 `yaml:"streams"`

	// OutputDir is where encoded files are written.
	OutputDir string `yaml:"output_dir"`
}

// Enabled reports whether any stream is configured for encoding.
func (e EncodeConfig) Enabled() bool { return len(e.Streams) > 0 }

// ReportConfig configures system telemetry reporting.
type ReportConfig struct {
	// Types selects the column groups (temp, cpu, memory).
	Types []string `yaml:"types"`

	// File appends CSV rows there; empty prints to the log instead.
	File string `yaml:"file"`

	// Interval between samples.
	Interval time.Duration `yaml:"interval"`
}

// Enabled reports whether any report type was requested.
func (r ReportConfig) Enabled() bool { return len(r.Types) > 0 }

// MQTTConfig configures the remote control surface. Empty broker
// disables it; the keyboard surface always works.
type MQTTConfig struct {
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"client_id"`
	ControlTopic  string `yaml:"control_topic"`
	ResponseTopic string `yaml:"response_topic"`
	ReportTopic   string `yaml:"report_topic"`
}

// Enabled reports whether the MQTT control surface is configured.
func (m MQTTConfig) Enabled() bool { return m.Broker != "" }

// Default returns the configuration used when no file and no flags are given.
func Default() *Config {
	return &Config{
		Source: PreviewColor,
		Show:   []string{PreviewColor},
		RGB:    CameraStream{Resolution: Res1080p, FPS: 30},
		Mono:   CameraStream{Resolution: Res400p, FPS: 30},
		Depth: DepthConfig{
			Enabled:      true,
			Median:       Median7x7,
			Confidence:   245,
			Sigma:        0,
			LRCThreshold: 4,
			MinDepth:     100,
			MaxDepth:     10000,
		},
		NN: NNConfig{
			Enabled:  true,
			Model:    "mobilenet-ssd",
			ModelDir: "resources/nn",
			Runner:   "resources/nn/run_inference.sh",
			FullFOV:  true,
		},
		Encode: EncodeConfig{OutputDir: "."},
		Report: ReportConfig{Interval: time.Second},
		MQTT: MQTTConfig{
			ControlTopic:  "depthai/demo/control",
			ResponseTopic: "depthai/demo/control/ack",
			ReportTopic:   "depthai/demo/report",
		},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// UseCamera reports whether input comes from the device (no video file).
func (c *Config) UseCamera() bool { return c.VideoPath == "" }

// UseDepth reports whether the stereo depth branch is active.
func (c *Config) UseDepth() bool { return c.Depth.Enabled && c.UseCamera() }

// UseNN reports whether the neural network stage is active.
func (c *Config) UseNN() bool { return c.NN.Enabled }

// ShowPreview reports whether the named preview was requested.
func (c *Config) ShowPreview(name string) bool {
	for _, s := range c.Show {
		if s == name {
			return true
		}
	}
	return false
}

// LeftEnabled reports whether the left mono camera is needed: either
// shown, feeding the NN, or required by the depth branch.
func (c *Config) LeftEnabled() bool {
	return c.UseDepth() || c.Source == PreviewLeft || c.ShowPreview(PreviewLeft)
}

// RightEnabled mirrors LeftEnabled for the right mono camera.
func (c *Config) RightEnabled() bool {
	return c.UseDepth() || c.Source == PreviewRight || c.ShowPreview(PreviewRight)
}

// RGBEnabled reports whether the color camera is needed.
func (c *Config) RGBEnabled() bool {
	return c.Source == PreviewColor || c.ShowPreview(PreviewColor)
}

// ModelConfigPath returns the JSON sidecar path for the selected model.
func (c *Config) ModelConfigPath() string {
	return fmt.Sprintf("%s/%s.json", c.NN.ModelDir, c.NN.Model)
}

// Validate checks the configuration before any device work starts.
func (c *Config) Validate() error {
	if c.VideoPath != "" {
		if _, err := os.Stat(c.VideoPath); err != nil {
			return fmt.Errorf("video path %q does not exist: %w", c.VideoPath, err)
		}
	}

	switch c.Source {
	case PreviewColor, PreviewLeft, PreviewRight:
	default:
		return fmt.Errorf("invalid source %q (must be color, left or right)", c.Source)
	}

	for _, s := range c.Show {
		switch s {
		case PreviewColor, PreviewLeft, PreviewRight,
			PreviewDepth, PreviewDisparity, PreviewNNInput:
		default:
			return fmt.Errorf("unknown preview %q", s)
		}
	}

	if !resolutionIn(ColorChoices(), c.RGB.Resolution) {
		return fmt.Errorf("invalid rgb resolution %q (must be 1080p, 2160p or 3040p)", string(c.RGB.Resolution))
	}
	if !resolutionIn(MonoChoices(), c.Mono.Resolution) {
		return fmt.Errorf("invalid mono resolution %q (must be 400p, 720p or 800p)", string(c.Mono.Resolution))
	}

	if c.RGB.FPS < 0.1 || c.RGB.FPS > 120 {
		return fmt.Errorf("invalid rgb fps %.2f (must be 0.1-120)", c.RGB.FPS)
	}
	if c.Mono.FPS < 0.1 || c.Mono.FPS > 120 {
		return fmt.Errorf("invalid mono fps %.2f (must be 0.1-120)", c.Mono.FPS)
	}

	if c.Depth.Confidence < 0 || c.Depth.Confidence > 255 {
		return fmt.Errorf("invalid disparity confidence %d (must be 0-255)", c.Depth.Confidence)
	}
	if c.Depth.Sigma < 0 || c.Depth.Sigma > 250 {
		return fmt.Errorf("invalid sigma %d (must be 0-250)", c.Depth.Sigma)
	}
	if c.Depth.LRCThreshold < 0 || c.Depth.LRCThreshold > 10 {
		return fmt.Errorf("invalid lrc threshold %d (must be 0-10)", c.Depth.LRCThreshold)
	}
	if !c.Depth.Median.Valid() {
		return fmt.Errorf("invalid median filter %d (must be 0, 3, 5 or 7)", int(c.Depth.Median))
	}
	if c.Depth.MinDepth < 0 || c.Depth.MaxDepth <= c.Depth.MinDepth {
		return fmt.Errorf("invalid depth range %d-%d mm", c.Depth.MinDepth, c.Depth.MaxDepth)
	}

	for name := range c.Encode.Streams {
		switch name {
		case PreviewColor, PreviewLeft, PreviewRight:
		default:
			return fmt.Errorf("cannot encode preview %q (only camera streams)", name)
		}
	}

	for _, r := range c.Report.Types {
		switch r {
		case ReportTemp, ReportCPU, ReportMemory:
		default:
			return fmt.Errorf("unknown report type %q", r)
		}
	}

	return nil
}

func resolutionIn(choices []Resolution, r Resolution) bool {
	for _, c := range choices {
		if c == r {
			return true
		}
	}
	return false
}
