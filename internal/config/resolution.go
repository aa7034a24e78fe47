package config

import "fmt"

// Resolution names a supported sensor resolution.
type Resolution string

// Color sensor resolutions.
const (
	Res1080p Resolution = "1080p"
	Res2160p Resolution = "2160p"
	Res3040p Resolution = "3040p"
)

// Mono sensor resolutions.
const (
	Res400p Resolution = "400p"
	Res720p Resolution = "720p"
	Res800p Resolution = "800p"
)

// Dimensions returns the width and height in pixels, or an error for an
// unknown resolution name.
func (r Resolution) Dimensions() (width, height int, err error) {
	switch r {
	case Res1080p:
		return 1920, 1080, nil
	case Res2160p:
		return 3840, 2160, nil
	case Res3040p:
		return 4056, 3040, nil
	case Res400p:
		return 640, 400, nil
	case Res720p:
		return 1280, 720, nil
	case Res800p:
		return 1280, 800, nil
	default:
		return 0, 0, fmt.Errorf("unknown resolution %q", string(r))
	}
}

// ColorChoices lists the resolutions accepted for the color camera.
func ColorChoices() []Resolution {
	return []Resolution{Res1080p, Res2160p, Res3040p}
}

// MonoChoices lists the resolutions accepted for the mono cameras.
func MonoChoices() []Resolution {
	return []Resolution{Res400p, Res720p, Res800p}
}
