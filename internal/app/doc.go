// Package app is the demo orchestrator. A Demo wires the managers
// together (pipeline, neural network, preview, encode, report,
// control) and runs the single foreground loop: take the latest frame
// from every queue, feed and poll the network, draw, show, handle
// keys, sample telemetry.
//
// Everything the loop touches is non-blocking. A slow consumer never
// stalls capture; it just sees fewer frames.
//
// The Callbacks table lets embedders observe or steer the loop without
// forking it, mirroring the hooks the managers themselves expose.
package app
