// Package queue implements the host side of the device output queues.
//
// # Overview
//
// The pipeline runtime produces frames faster than the demo loop can
// consume them. Each named output queue is a single-slot mailbox with
// overwrite semantics: a newly published frame replaces an unconsumed
// one, and the replaced frame is counted as dropped.
//
//	"Drop frames, never queue. Latency > Completeness."
//
// A stale preview frame is worse than a missing one, so the queues
// never grow a backlog.
//
// # Basic Usage
//
//	reg := queue.NewRegistry()
//	out, _ := reg.Create("color")
//
//	// Producer side (pipeline callbacks)
//	reg.Publish("color", frame)   // non-blocking, overwrites
//
//	// Consumer side (demo loop)
//	if f := out.TryGet(); f != nil {
//	    show(f)
//	}
//
// # Thread Safety
//
// All methods are safe for concurrent use. Publish never blocks, even
// with no consumer attached. Stats returns a snapshot, not a live view.
package queue
