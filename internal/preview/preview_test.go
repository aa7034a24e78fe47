package preview

import (
	"testing"

	"github.com/Aaron-MJohn/depthai/internal/config"
)

func TestLetterboxFit(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, dstW, dstH int
		want                   fitRect
	}{
		{"same aspect", 1920, 1080, 640, 360, fitRect{W: 640, H: 360}},
		{"wide into square", 600, 300, 300, 300, fitRect{W: 300, H: 150, PadY: 75}},
		{"tall into square", 300, 600, 300, 300, fitRect{W: 150, H: 300, PadX: 75}},
		{"upscale", 320, 240, 640, 480, fitRect{W: 640, H: 480}},
		{"degenerate", 0, 100, 300, 300, fitRect{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := letterboxFit(tt.srcW, tt.srcH, tt.dstW, tt.dstH)
			if got != tt.want {
				t.Errorf("letterboxFit(%d, %d, %d, %d) = %+v, want %+v",
					tt.srcW, tt.srcH, tt.dstW, tt.dstH, got, tt.want)
			}
		})
	}
}

func TestLetterboxFitNeverOverflows(t *testing.T) {
	for srcW := 100; srcW <= 500; srcW += 70 {
		for srcH := 100; srcH <= 500; srcH += 90 {
			fit := letterboxFit(srcW, srcH, 300, 300)
			if fit.W > 300 || fit.H > 300 {
				t.Fatalf("Fit overflows target: src %dx%d fit %+v", srcW, srcH, fit)
			}
			if fit.PadX < 0 || fit.PadY < 0 {
				t.Fatalf("Negative padding: src %dx%d fit %+v", srcW, srcH, fit)
			}
		}
	}
}

func TestVisiblePreviews(t *testing.T) {
	cfg := config.Default()
	cfg.Show = []string{
		config.PreviewColor, config.PreviewDepth,
		config.PreviewDisparity, config.PreviewNNInput,
	}

	got := visiblePreviews(cfg)
	if len(got) != 4 {
		t.Errorf("Expected all previews with camera input, got %v", got)
	}

	// Video input: depth previews cannot render.
	cfg.VideoPath = "demo.mp4"
	got = visiblePreviews(cfg)
	for _, name := range got {
		if name == config.PreviewDepth || name == config.PreviewDisparity {
			t.Errorf("Depth preview should be hidden in video mode: %v", got)
		}
	}

	// NN disabled: nnInput cannot render.
	cfg.VideoPath = ""
	cfg.NN.Enabled = false
	got = visiblePreviews(cfg)
	for _, name := range got {
		if name == config.PreviewNNInput {
			t.Errorf("nnInput preview should be hidden without NN: %v", got)
		}
	}
}
