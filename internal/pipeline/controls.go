package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/Aaron-MJohn/depthai/internal/config"
)

// Camera controls are pushed straight onto the running v4l2src
// elements. Saturation, contrast and brightness are native element
// properties; exposure, gain and sharpness go through extra-controls
// the way v4l2-ctl would set them.

// UpdateColorCamConfig applies tuning to the color sensor.
func (m *Manager) UpdateColorCamConfig(t config.Tuning) {
	m.updateCamConfig(config.PreviewColor, t)
}

// UpdateLeftCamConfig applies tuning to the left mono sensor.
func (m *Manager) UpdateLeftCamConfig(t config.Tuning) {
	m.updateCamConfig(config.PreviewLeft, t)
}

// UpdateRightCamConfig applies tuning to the right mono sensor.
func (m *Manager) UpdateRightCamConfig(t config.Tuning) {
	m.updateCamConfig(config.PreviewRight, t)
}

func (m *Manager) updateCamConfig(stream string, t config.Tuning) {
	b, ok := m.branches[stream]
	if !ok {
		return
	}

	// Signed tuning values are -10..10; v4l2 brightness style controls
	// run 0..100 with 50 neutral.
	if t.Saturation != nil {
		b.source.SetProperty("saturation", scaleSigned(*t.Saturation))
	}
	if t.Contrast != nil {
		b.source.SetProperty("contrast", scaleSigned(*t.Contrast))
	}
	if t.Brightness != nil {
		b.source.SetProperty("brightness", scaleSigned(*t.Brightness))
	}

	if extra := buildExtraControls(t); extra != "" {
		b.source.SetProperty("extra-controls", gst.NewStructureFromString(extra))
	}

	slog.Debug("pipeline: camera config updated",
		"stream", stream,
		"exposure", config.Describe(t.Exposure),
		"sensitivity", config.Describe(t.Sensitivity),
		"saturation", config.Describe(t.Saturation),
		"contrast", config.Describe(t.Contrast),
		"brightness", config.Describe(t.Brightness),
		"sharpness", config.Describe(t.Sharpness),
	)
}

// UpdateDepthConfig pushes depth post-processing settings onto the
// depth stream source. The median filter itself runs host-side; the
// device controls cover confidence, bilateral sigma, LR-check,
// disparity mode and the valid depth range.
func (m *Manager) UpdateDepthConfig(d config.DepthConfig) {
	b, ok := m.branches[config.PreviewDisparity]
	if !ok {
		return
	}

	b.source.SetProperty("extra-controls", gst.NewStructureFromString(buildDepthControls(d)))

	slog.Info("pipeline: depth config updated",
		"median", d.Median.String(),
		"confidence", d.Confidence,
		"sigma", d.Sigma,
		"lr_check", d.LRCheck,
		"extended", d.Extended,
		"subpixel", d.Subpixel,
		"range_mm", fmt.Sprintf("%d-%d", d.MinDepth, d.MaxDepth),
	)
}

// buildDepthControls formats the extra-controls structure for the
// depth stream.
func buildDepthControls(d config.DepthConfig) string {
	return fmt.Sprintf(
		"c,disparity_confidence_threshold=%d,bilateral_sigma=%d,lr_check=%d,lr_check_threshold=%d,extended_disparity=%d,subpixel=%d,depth_min=%d,depth_max=%d",
		d.Confidence, d.Sigma, boolCtl(d.LRCheck), d.LRCThreshold,
		boolCtl(d.Extended), boolCtl(d.Subpixel), d.MinDepth, d.MaxDepth)
}

// buildExtraControls formats the v4l2 extra-controls structure for the
// tuning values that have no native element property. Empty when all
// of them are still automatic.
func buildExtraControls(t config.Tuning) string {
	var parts []string

	if t.Exposure != nil {
		// Manual exposure also needs auto mode off (1 = manual).
		parts = append(parts,
			"auto_exposure=1",
			fmt.Sprintf("exposure_time_absolute=%d", *t.Exposure/100))
	}
	if t.Sensitivity != nil {
		parts = append(parts, fmt.Sprintf("gain=%d", *t.Sensitivity))
	}
	if t.Sharpness != nil {
		parts = append(parts, fmt.Sprintf("sharpness=%d", *t.Sharpness))
	}

	if len(parts) == 0 {
		return ""
	}
	return "c," + strings.Join(parts, ",")
}

// scaleSigned maps -10..10 onto the 0..100 control range.
func scaleSigned(v int) int {
	return 50 + v*5
}

func boolCtl(b bool) int {
	if b {
		return 1
	}
	return 0
}
