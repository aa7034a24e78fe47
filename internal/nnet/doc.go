// Package nnet drives the external neural-network inference runtime.
//
// The runtime is an opaque dependency: a subprocess that loads the
// model and answers inference requests over a JSON-lines protocol on
// stdin/stdout. This package owns the model config sidecar, the
// subprocess lifecycle, result decoding and the detection overlay.
//
// Frame flow mirrors the device queues: SendFrame never blocks (the
// frame is dropped if the runtime is behind) and TryGetResult never
// blocks (nil when no result is ready). The demo loop polls both.
package nnet
