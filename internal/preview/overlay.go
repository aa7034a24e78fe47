package preview

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/Aaron-MJohn/depthai/internal/config"
)

const (
	overlayScale = 0.5
	lineHeight   = 20
)

// drawDoubleText draws white text with a black outline so it stays
// readable on any background.
func drawDoubleText(img *gocv.Mat, text string, org image.Point) {
	gocv.PutText(img, text, org, gocv.FontHersheySimplex, overlayScale,
		color.RGBA{0, 0, 0, 255}, 4)
	gocv.PutText(img, text, org, gocv.FontHersheySimplex, overlayScale,
		color.RGBA{255, 255, 255, 255}, 1)
}

// DrawMedianStatus marks the active depth median filter with its
// keyboard binding.
func DrawMedianStatus(img *gocv.Mat, median config.MedianFilter) {
	text := fmt.Sprintf("Median filter: %s [M]", median)
	drawDoubleText(img, text, image.Pt(10, img.Rows()-10))
}

// DrawTuning renders the camera tuning block right-aligned, one line
// per control with its key pair.
func DrawTuning(img *gocv.Mat, t config.Tuning) {
	lines := []string{
		fmt.Sprintf("Exposure: %s   T/G", config.Describe(t.Exposure)),
		fmt.Sprintf("Sensitivity: %s   Y/H", config.Describe(t.Sensitivity)),
		fmt.Sprintf("Saturation: %s   U/J", config.Describe(t.Saturation)),
		fmt.Sprintf("Contrast: %s   I/K", config.Describe(t.Contrast)),
		fmt.Sprintf("Brightness: %s   O/L", config.Describe(t.Brightness)),
		fmt.Sprintf("Sharpness: %s   P/;", config.Describe(t.Sharpness)),
	}

	y := lineHeight
	for _, line := range lines {
		size := gocv.GetTextSize(line, gocv.FontHersheySimplex, overlayScale, 1)
		drawDoubleText(img, line, image.Pt(img.Cols()-size.X-10, y))
		y += lineHeight
	}
}

// Letterbox fits src into a dstW x dstH canvas, preserving aspect
// ratio and padding the rest with black bars. Caller closes the result.
func Letterbox(src gocv.Mat, dstW, dstH int) gocv.Mat {
	fit := letterboxFit(src.Cols(), src.Rows(), dstW, dstH)

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(src, &scaled, image.Pt(fit.W, fit.H), 0, 0, gocv.InterpolationArea)

	out := gocv.NewMat()
	gocv.CopyMakeBorder(scaled, &out,
		fit.PadY, dstH-fit.H-fit.PadY,
		fit.PadX, dstW-fit.W-fit.PadX,
		gocv.BorderConstant, color.RGBA{})
	return out
}

// ScaleForModel shapes a frame for network input: letterboxed when the
// full field of view must survive, stretched otherwise. Caller closes
// the result.
func ScaleForModel(src gocv.Mat, w, h int, fullFOV bool) gocv.Mat {
	if fullFOV {
		return Letterbox(src, w, h)
	}
	out := gocv.NewMat()
	gocv.Resize(src, &out, image.Pt(w, h), 0, 0, gocv.InterpolationArea)
	return out
}
