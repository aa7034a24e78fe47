// Package preview renders frames into OpenCV windows.
//
// Each preview window maps to one output queue. The manager converts
// frames to displayable Mats (RGB→BGR for color, colormap for
// disparity, host-side median filter for depth), lets the caller draw
// overlays through callbacks and shows the result.
//
// Mats returned by Prepare are owned by the caller and must be Closed
// after showing; gocv memory is not garbage collected.
package preview
