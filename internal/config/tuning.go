package config

import "fmt"

// Tuning holds the mutable camera tuning values. A nil field means the
// sensor keeps its automatic setting until the user touches it, either
// over the keyboard or through the control surface.
type Tuning struct {
	// Controls gates the keyboard tuning bindings.
	Controls bool `yaml:"controls"`

	Exposure    *int `yaml:"exposure"`    // microseconds, 1-33000
	Sensitivity *int `yaml:"sensitivity"` // ISO, 100-1600
	Saturation  *int `yaml:"saturation"`  // -10..10
	Contrast    *int `yaml:"contrast"`    // -10..10
	Brightness  *int `yaml:"brightness"`  // -10..10
	Sharpness   *int `yaml:"sharpness"`   // 0..4
}

// Touched reports whether any value left automatic mode. Used at
// startup to decide if an initial camera config push is needed.
func (t *Tuning) Touched() bool {
	return t.Exposure != nil || t.Sensitivity != nil || t.Saturation != nil ||
		t.Contrast != nil || t.Brightness != nil || t.Sharpness != nil
}

// Manual exposure and sensitivity are paired on the sensor: setting one
// forces the other out of auto mode too.
func (t *Tuning) pairExposure() {
	if t.Exposure == nil {
		t.Exposure = intp(10000)
	}
}

func (t *Tuning) pairSensitivity() {
	if t.Sensitivity == nil {
		t.Sensitivity = intp(800)
	}
}

// StepExposure adjusts exposure by 500us per step within 1-33000.
// The first adjustment leaves auto mode at 10000us.
func (t *Tuning) StepExposure(up bool) {
	switch {
	case t.Exposure == nil:
		t.Exposure = intp(10000)
	case up:
		t.Exposure = intp(minInt(*t.Exposure+500, 33000))
	default:
		t.Exposure = intp(maxInt(*t.Exposure-500, 1))
	}
	t.pairSensitivity()
}

// StepSensitivity adjusts sensitivity by 50 ISO per step within 100-1600.
func (t *Tuning) StepSensitivity(up bool) {
	switch {
	case t.Sensitivity == nil:
		t.Sensitivity = intp(800)
	case up:
		t.Sensitivity = intp(minInt(*t.Sensitivity+50, 1600))
	default:
		t.Sensitivity = intp(maxInt(*t.Sensitivity-50, 100))
	}
	t.pairExposure()
}

// StepSaturation adjusts saturation by 1 within -10..10.
func (t *Tuning) StepSaturation(up bool) { t.Saturation = stepSigned(t.Saturation, up) }

// StepContrast adjusts contrast by 1 within -10..10.
func (t *Tuning) StepContrast(up bool) { t.Contrast = stepSigned(t.Contrast, up) }

// StepBrightness adjusts brightness by 1 within -10..10.
func (t *Tuning) StepBrightness(up bool) { t.Brightness = stepSigned(t.Brightness, up) }

// StepSharpness adjusts sharpness by 1 within 0..4.
func (t *Tuning) StepSharpness(up bool) {
	switch {
	case t.Sharpness == nil:
		t.Sharpness = intp(0)
	case up:
		t.Sharpness = intp(minInt(*t.Sharpness+1, 4))
	default:
		t.Sharpness = intp(maxInt(*t.Sharpness-1, 0))
	}
}

func stepSigned(v *int, up bool) *int {
	switch {
	case v == nil:
		return intp(0)
	case up:
		return intp(minInt(*v+1, 10))
	default:
		return intp(maxInt(*v-1, -10))
	}
}

// Describe formats a value for the on-screen overlay ("auto" when unset).
func Describe(v *int) string {
	if v == nil {
		return "auto"
	}
	return fmt.Sprintf("%d", *v)
}

func intp(v int) *int { return &v }

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
