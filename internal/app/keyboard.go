package app

import "log/slog"

const keyEscape = 27

// handleKey dispatches one keyboard event. Bindings:
//
//	q / Esc   quit
//	m         cycle depth median filter
//	t/g       exposure up/down
//	y/h       sensitivity up/down
//	u/j       saturation up/down
//	i/k       contrast up/down
//	o/l       brightness up/down
//	p/;       sharpness up/down
//
// Tuning keys only work with tuning controls enabled.
func (d *Demo) handleKey(key int) {
	if key < 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch byte(key) {
	case 'q', keyEscape:
		slog.Info("app: quit requested")
		d.stopReq.Store(true)
		return

	case 'm':
		d.cfg.Depth.Median = d.cfg.Depth.Median.Next()
		slog.Info("app: median filter changed", "median", d.cfg.Depth.Median.String())
		if d.pipe != nil {
			d.pipe.UpdateDepthConfig(d.cfg.Depth)
		}
		return
	}

	if !d.cfg.Tuning.Controls {
		return
	}

	t := &d.cfg.Tuning
	switch byte(key) {
	case 't':
		t.StepExposure(true)
	case 'g':
		t.StepExposure(false)
	case 'y':
		t.StepSensitivity(true)
	case 'h':
		t.StepSensitivity(false)
	case 'u':
		t.StepSaturation(true)
	case 'j':
		t.StepSaturation(false)
	case 'i':
		t.StepContrast(true)
	case 'k':
		t.StepContrast(false)
	case 'o':
		t.StepBrightness(true)
	case 'l':
		t.StepBrightness(false)
	case 'p':
		t.StepSharpness(true)
	case ';':
		t.StepSharpness(false)
	default:
		return
	}

	d.pushCameraConfig()
}

// pushCameraConfig sends the current tuning to every camera. Callers
// hold d.mu.
func (d *Demo) pushCameraConfig() {
	if d.pipe == nil {
		return
	}
	d.pipe.UpdateColorCamConfig(d.cfg.Tuning)
	d.pipe.UpdateLeftCamConfig(d.cfg.Tuning)
	d.pipe.UpdateRightCamConfig(d.cfg.Tuning)
}
