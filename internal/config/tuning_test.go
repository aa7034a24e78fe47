package config

import "testing"

func TestExposureSteps(t *testing.T) {
	var tn Tuning

	// First touch leaves auto mode at the midpoint and pairs sensitivity.
	tn.StepExposure(true)
	if tn.Exposure == nil || *tn.Exposure != 10000 {
		t.Fatalf("Expected 10000 after first step, got %v", tn.Exposure)
	}
	if tn.Sensitivity == nil || *tn.Sensitivity != 800 {
		t.Fatalf("Expected paired sensitivity 800, got %v", tn.Sensitivity)
	}

	tn.StepExposure(true)
	if *tn.Exposure != 10500 {
		t.Errorf("Expected 10500, got %d", *tn.Exposure)
	}

	// Upper clamp.
	tn.Exposure = intp(33000)
	tn.StepExposure(true)
	if *tn.Exposure != 33000 {
		t.Errorf("Exposure exceeded 33000: %d", *tn.Exposure)
	}

	// Lower clamp.
	tn.Exposure = intp(300)
	tn.StepExposure(false)
	if *tn.Exposure != 1 {
		t.Errorf("Expected clamp to 1, got %d", *tn.Exposure)
	}
}

func TestSensitivityPairsExposure(t *testing.T) {
	var tn Tuning
	tn.StepSensitivity(false)
	if tn.Sensitivity == nil || *tn.Sensitivity != 800 {
		t.Fatalf("Expected 800 after first step, got %v", tn.Sensitivity)
	}
	if tn.Exposure == nil || *tn.Exposure != 10000 {
		t.Fatalf("Expected paired exposure 10000, got %v", tn.Exposure)
	}

	tn.Sensitivity = intp(120)
	tn.StepSensitivity(false)
	if *tn.Sensitivity != 100 {
		t.Errorf("Expected clamp to 100, got %d", *tn.Sensitivity)
	}
}

func TestSignedRanges(t *testing.T) {
	var tn Tuning

	tn.StepSaturation(true)
	if tn.Saturation == nil || *tn.Saturation != 0 {
		t.Fatalf("First step should land on 0, got %v", tn.Saturation)
	}

	tn.Saturation = intp(10)
	tn.StepSaturation(true)
	if *tn.Saturation != 10 {
		t.Errorf("Saturation exceeded 10: %d", *tn.Saturation)
	}

	tn.Saturation = intp(-10)
	tn.StepSaturation(false)
	if *tn.Saturation != -10 {
		t.Errorf("Saturation below -10: %d", *tn.Saturation)
	}
}

func TestSharpnessRange(t *testing.T) {
	var tn Tuning
	tn.StepSharpness(false)
	if tn.Sharpness == nil || *tn.Sharpness != 0 {
		t.Fatalf("First step should land on 0, got %v", tn.Sharpness)
	}
	tn.Sharpness = intp(4)
	tn.StepSharpness(true)
	if *tn.Sharpness != 4 {
		t.Errorf("Sharpness exceeded 4: %d", *tn.Sharpness)
	}
}

func TestTouched(t *testing.T) {
	var tn Tuning
	if tn.Touched() {
		t.Error("Fresh tuning should be untouched")
	}
	tn.StepContrast(true)
	if !tn.Touched() {
		t.Error("Tuning should report touched after a step")
	}
}

func TestMedianRotation(t *testing.T) {
	m := MedianOff
	seen := []MedianFilter{}
	for i := 0; i < 4; i++ {
		m = m.Next()
		seen = append(seen, m)
	}
	want := []MedianFilter{Median3x3, Median5x5, Median7x7, MedianOff}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("Rotation mismatch at %d: got %v want %v", i, seen, want)
		}
	}

	// Unknown value restarts the rotation.
	if MedianFilter(4).Next() != MedianOff {
		t.Error("Unknown median should restart at OFF")
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(nil); got != "auto" {
		t.Errorf("Expected auto, got %q", got)
	}
	if got := Describe(intp(500)); got != "500" {
		t.Errorf("Expected 500, got %q", got)
	}
}
