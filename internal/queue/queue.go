package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrQueueExists is returned when Create is called with a duplicate name.
	ErrQueueExists = errors.New("output queue already exists")

	// ErrQueueNotFound is returned when Publish targets an unknown queue.
	ErrQueueNotFound = errors.New("output queue not found")

	// ErrRegistryClosed is returned when operations are attempted on a closed registry.
	ErrRegistryClosed = errors.New("queue registry is closed")
)

// Frame is a single video frame pulled from the pipeline runtime.
//
// Data is shared by reference along the queue chain and must not be
// modified after publishing. Consumers that draw on a frame work on a
// copy (see preview.Manager).
type Frame struct {
	// Seq is the monotonic sequence number assigned by the producer.
	Seq uint64

	// Timestamp is when the frame left the runtime, not when it was displayed.
	Timestamp time.Time

	// Width and Height in pixels.
	Width  int
	Height int

	// Data holds interleaved RGB bytes (Width * Height * 3).
	// Depth sources deliver single-channel 8-bit data (Width * Height).
	Data []byte

	// Source names the pipeline branch this frame came from
	// ("color", "left", "right", "depth", "disparity", "nnInput").
	Source string

	// TraceID is a unique identifier carried through the processing chain.
	TraceID string
}

// Gray reports whether the frame carries single-channel data.
func (f *Frame) Gray() bool {
	return len(f.Data) == f.Width*f.Height
}

// Output is the consumer end of a named device output queue.
//
// Semantics:
//   - TryGet returns the latest frame or nil (never blocks)
//   - each frame is delivered at most once
type Output struct {
	name string

	mu     sync.Mutex
	frame  *Frame
	closed bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func newOutput(name string) *Output {
	return &Output{name: name}
}

// Name returns the queue name.
func (o *Output) Name() string { return o.name }

// publish stores a frame, overwriting an unconsumed one.
func (o *Output) publish(f *Frame) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if o.frame != nil {
		o.dropped.Add(1)
	}
	o.frame = f
	o.mu.Unlock()
}

// TryGet returns the latest unconsumed frame, or nil if none is ready.
func (o *Output) TryGet() *Frame {
	o.mu.Lock()
	defer o.mu.Unlock()

	f := o.frame
	o.frame = nil
	if f != nil {
		o.delivered.Add(1)
	}
	return f
}

// close marks the queue closed and discards any pending frame.
func (o *Output) close() {
	o.mu.Lock()
	o.closed = true
	o.frame = nil
	o.mu.Unlock()
}

// OutputStats is a snapshot of a single queue's counters.
type OutputStats struct {
	// Delivered is the number of frames handed to a consumer.
	Delivered uint64

	// Dropped is the number of frames overwritten before consumption.
	// Drops are expected whenever the consumer is slower than the source.
	Dropped uint64
}

// Stats contains per-queue counters plus the global publish count.
type Stats struct {
	// TotalPublished is the number of Publish calls across all queues.
	TotalPublished uint64

	// Outputs maps queue name to its counters.
	Outputs map[string]OutputStats
}

// Registry owns the set of named output queues for one device session.
type Registry struct {
	mu      sync.RWMutex
	outputs map[string]*Output
	closed  bool

	totalPublished atomic.Uint64
}

// NewRegistry creates an empty queue registry.
func NewRegistry() *Registry {
	return &Registry{outputs: make(map[string]*Output)}
}

// Create registers a new named output queue.
func (r *Registry) Create(name string) (*Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if _, exists := r.outputs[name]; exists {
		return nil, ErrQueueExists
	}

	o := newOutput(name)
	r.outputs[name] = o
	return o, nil
}

// Output returns the queue with the given name, if it exists.
func (r *Registry) Output(name string) (*Output, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.outputs[name]
	return o, ok
}

// Publish delivers a frame to the named queue (non-blocking).
// Publishing to an unknown queue is a silent no-op so pipeline
// callbacks never have to care which previews are enabled.
func (r *Registry) Publish(name string, f *Frame) {
	r.totalPublished.Add(1)

	r.mu.RLock()
	o, ok := r.outputs[name]
	r.mu.RUnlock()

	if ok {
		o.publish(f)
	}
}

// Names returns the registered queue names (unordered).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.outputs))
	for name := range r.outputs {
		names = append(names, name)
	}
	return names
}

// Stats returns a snapshot of all queue counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		TotalPublished: r.totalPublished.Load(),
		Outputs:        make(map[string]OutputStats, len(r.outputs)),
	}
	for name, o := range r.outputs {
		s.Outputs[name] = OutputStats{
			Delivered: o.delivered.Load(),
			Dropped:   o.dropped.Load(),
		}
	}
	return s
}

// Close shuts down every queue and rejects further Create calls.
// Pending frames are discarded. Idempotent.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	for _, o := range r.outputs {
		o.close()
	}
	return nil
}
