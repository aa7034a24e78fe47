package pipeline

import "fmt"

// buildRawCaps builds a caps string locking format, size and framerate.
//
// Handles fractional framerates:
//   - fps >= 1.0: framerate = fps/1 (e.g. 30.0 → 30/1)
//   - fps < 1.0: framerate = 1/(1/fps) (e.g. 0.5 → 1/2)
func buildRawCaps(format string, width, height int, fps float64) string {
	numerator := 1
	denominator := 1

	if fps < 1.0 {
		denominator = int(1.0 / fps)
	} else {
		numerator = int(fps)
	}

	return fmt.Sprintf(
		"video/x-raw,format=%s,width=%d,height=%d,framerate=%d/%d",
		format, width, height, numerator, denominator,
	)
}
