package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/Aaron-MJohn/depthai/internal/config"
	"github.com/Aaron-MJohn/depthai/internal/device"
	"github.com/Aaron-MJohn/depthai/internal/queue"
)

var (
	// ErrDeviceDisconnected reports that the device dropped off the bus
	// mid-run. The caller may wait for it and rebuild the pipeline.
	ErrDeviceDisconnected = errors.New("device disconnected")

	// ErrPipelineEOS reports an unexpected end-of-stream from a live source.
	ErrPipelineEOS = errors.New("pipeline end of stream")
)

// Manager owns the capture pipeline: one GStreamer pipeline with a
// branch per enabled stream, publishing into the queue registry.
type Manager struct {
	cfg *config.Config
	dev *device.Info
	reg *queue.Registry

	pipeline *gst.Pipeline
	branches map[string]*branch

	errs    chan error
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// New builds the pipeline for the configured streams. The pipeline is
// linked but not started; output queues are created in the registry.
func New(cfg *config.Config, dev *device.Info, reg *queue.Registry) (*Manager, error) {
	gst.Init(nil)

	specs, err := buildSpecs(cfg, dev)
	if err != nil {
		return nil, err
	}

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	m := &Manager{
		cfg:      cfg,
		dev:      dev,
		reg:      reg,
		pipeline: pipeline,
		branches: make(map[string]*branch, len(specs)),
		errs:     make(chan error, 4),
	}

	for _, spec := range specs {
		b, err := buildBranch(pipeline, spec)
		if err != nil {
			return nil, err
		}
		if _, err := reg.Create(spec.Name); err != nil && !errors.Is(err, queue.ErrQueueExists) {
			return nil, err
		}
		b.wireCallbacks(reg)
		m.branches[spec.Name] = b
	}

	slog.Info("pipeline: created",
		"device", dev.ID,
		"streams", len(m.branches),
	)
	return m, nil
}

// Start moves the pipeline to PLAYING, pushes any startup tuning and
// launches the bus monitor.
func (m *Manager) Start(ctx context.Context) error {
	if m.running.Load() {
		return fmt.Errorf("pipeline: already running")
	}

	if err := m.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	m.running.Store(true)

	if m.cfg.Tuning.Touched() {
		m.UpdateColorCamConfig(m.cfg.Tuning)
		m.UpdateLeftCamConfig(m.cfg.Tuning)
		m.UpdateRightCamConfig(m.cfg.Tuning)
	}
	if m.cfg.UseDepth() {
		m.UpdateDepthConfig(m.cfg.Depth)
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.monitorBus(ctx)

	slog.Info("pipeline: running", "device", m.dev.ID)
	return nil
}

// Errors delivers bus failures to the caller. Never closed while the
// manager lives; the demo loop polls it with a default case.
func (m *Manager) Errors() <-chan error { return m.errs }

// Streams returns the names of the built capture branches.
func (m *Manager) Streams() []string {
	names := make([]string, 0, len(m.branches))
	for name := range m.branches {
		names = append(names, name)
	}
	return names
}

// CaptureStats summarizes one branch's capture counters.
type CaptureStats struct {
	Frames    uint64
	BytesRead uint64
}

// Stats returns per-stream capture counters.
func (m *Manager) Stats() map[string]CaptureStats {
	stats := make(map[string]CaptureStats, len(m.branches))
	for name, b := range m.branches {
		stats[name] = CaptureStats{
			Frames:    atomic.LoadUint64(&b.frameCounter),
			BytesRead: atomic.LoadUint64(&b.bytesRead),
		}
	}
	return stats
}

// Stop tears the pipeline down. Safe to call twice.
func (m *Manager) Stop() error {
	if !m.running.Swap(false) {
		return nil
	}

	m.cancel()
	m.wg.Wait()

	if err := m.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to stop pipeline: %w", err)
	}

	slog.Info("pipeline: stopped", "device", m.dev.ID)
	return nil
}
