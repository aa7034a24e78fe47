package preview

// fitRect is the placement of a source image letterboxed into a target.
type fitRect struct {
	W, H int // scaled size, aspect preserved
	PadX int // left/right bar width
	PadY int // top/bottom bar height
}

// letterboxFit computes the largest aspect-preserving fit of src into
// dst, with the remaining space split evenly into bars.
func letterboxFit(srcW, srcH, dstW, dstH int) fitRect {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return fitRect{}
	}

	// Compare aspect ratios without floats: srcW/srcH vs dstW/dstH.
	if srcW*dstH >= dstW*srcH {
		// Source is wider; width binds.
		h := srcH * dstW / srcW
		return fitRect{W: dstW, H: h, PadY: (dstH - h) / 2}
	}
	w := srcW * dstH / srcH
	return fitRect{W: w, H: dstH, PadX: (dstW - w) / 2}
}
