// Package pipeline builds and runs the device capture graph.
//
// One GStreamer pipeline holds a capture branch per enabled stream
// (color, left, right, disparity), each built element by element:
//
//	v4l2src → videoconvert → videoscale → videorate → capsfilter → appsink
//
// Streams selected for encoding get a tee after the capsfilter with an
// encoder leg (queue → x264enc → h264parse → matroskamux → filesink)
// next to the appsink leg.
//
// Appsink callbacks publish frames into per-stream output queues. The
// appsinks are configured to keep only the latest buffer, and the
// queues hold a single slot. Drop frames, never queue. Latency >
// Completeness.
//
// Camera controls and depth settings are pushed onto the running source
// elements, no pipeline rebuild needed. The pipeline bus is monitored
// in the background; device-disconnect errors surface on Errors() so
// the caller can wait for the device and restart.
package pipeline
