package config

// MedianFilter is the depth post-processing median kernel size.
// Zero disables filtering.
type MedianFilter int

const (
	MedianOff MedianFilter = 0
	Median3x3 MedianFilter = 3
	Median5x5 MedianFilter = 5
	Median7x7 MedianFilter = 7
)

// MedianChoices is the rotation order used by the keyboard toggle.
var MedianChoices = []MedianFilter{MedianOff, Median3x3, Median5x5, Median7x7}

// Valid reports whether m is a supported kernel size.
func (m MedianFilter) Valid() bool {
	for _, c := range MedianChoices {
		if m == c {
			return true
		}
	}
	return false
}

// Next returns the following filter in the rotation, wrapping around.
// Unknown values restart the rotation at MedianOff.
func (m MedianFilter) Next() MedianFilter {
	for i, c := range MedianChoices {
		if m == c {
			return MedianChoices[(i+1)%len(MedianChoices)]
		}
	}
	return MedianChoices[0]
}

// String returns the overlay label for the filter.
func (m MedianFilter) String() string {
	switch m {
	case Median3x3:
		return "3x3"
	case Median5x5:
		return "5x5"
	case Median7x7:
		return "7x7"
	default:
		return "OFF"
	}
}
