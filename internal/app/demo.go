package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/Aaron-MJohn/depthai/internal/config"
	"github.com/Aaron-MJohn/depthai/internal/control"
	"github.com/Aaron-MJohn/depthai/internal/device"
	"github.com/Aaron-MJohn/depthai/internal/encode"
	"github.com/Aaron-MJohn/depthai/internal/fps"
	"github.com/Aaron-MJohn/depthai/internal/nnet"
	"github.com/Aaron-MJohn/depthai/internal/pipeline"
	"github.com/Aaron-MJohn/depthai/internal/preview"
	"github.com/Aaron-MJohn/depthai/internal/queue"
	"github.com/Aaron-MJohn/depthai/internal/report"
)

// Callbacks are the embedder hooks. All optional.
type Callbacks struct {
	// OnNewFrame fires for every frame taken from a queue, pre-display.
	OnNewFrame func(name string, f *queue.Frame)

	// OnShowFrame fires right before a window update.
	OnShowFrame func(name string, img *gocv.Mat)

	// OnNn fires for every decoded inference result.
	OnNn func(res *nnet.Result)

	// OnReport fires for every telemetry sample.
	OnReport func(s report.Sample)

	// OnSetup and OnTeardown bracket the run.
	OnSetup    func(d *Demo)
	OnTeardown func(d *Demo)

	// OnIter fires once per loop iteration.
	OnIter func(d *Demo)

	// ShouldRun, when set, can end the loop early by returning false.
	ShouldRun func() bool
}

// Demo owns the managers and the foreground loop.
type Demo struct {
	cfg *config.Config
	cb  Callbacks

	reg  *queue.Registry
	dev  *device.Info
	pipe *pipeline.Manager
	nn   *nnet.Manager
	prev *preview.Manager
	enc  *encode.Manager
	rep  *report.Manager

	emitter *control.Emitter
	handler *control.Handler

	fpsHandler *fps.Handler

	// mu guards cfg mutations shared between the loop (keyboard) and
	// the control surface goroutine.
	mu sync.Mutex

	paused  atomic.Bool
	stopReq atomic.Bool

	syncBuf    *frameBuffer
	lastResult *nnet.Result
}

// New builds a Demo. Nothing is opened until Run.
func New(cfg *config.Config, cb Callbacks) *Demo {
	return &Demo{
		cfg:        cfg,
		cb:         cb,
		fpsHandler: fps.New(nil),
		syncBuf:    newFrameBuffer(syncBufferDepth),
	}
}

// Run executes setup, the loop and teardown.
func (d *Demo) Run(ctx context.Context) error {
	if err := d.setup(ctx); err != nil {
		return err
	}
	defer d.teardown()

	if d.cb.OnSetup != nil {
		d.cb.OnSetup(d)
	}

	if d.cfg.UseCamera() {
		return d.loopCamera(ctx)
	}
	return d.loopVideo(ctx)
}

// RequestStop ends the loop after the current iteration. Safe from any
// goroutine.
func (d *Demo) RequestStop() {
	d.stopReq.Store(true)
}

// Config exposes the live configuration to callbacks.
func (d *Demo) Config() *config.Config { return d.cfg }

func (d *Demo) setup(ctx context.Context) error {
	d.reg = queue.NewRegistry()

	if d.cfg.UseNN() {
		modelPath := filepath.Join(d.cfg.NN.ModelDir, d.cfg.NN.Model+".blob")
		nn, err := nnet.NewManager(d.cfg.ModelConfigPath(), d.cfg.NN.Runner, modelPath, d.cfg.NN.CountLabel)
		if err != nil {
			return fmt.Errorf("nn setup failed: %w", err)
		}
		if err := nn.Start(ctx); err != nil {
			return fmt.Errorf("nn start failed: %w", err)
		}
		if d.cfg.UseDepth() {
			nn.SetDepthBounds(d.cfg.Depth.MinDepth, d.cfg.Depth.MaxDepth)
		}
		d.nn = nn
	}

	d.enc = encode.NewManager(d.cfg.Encode)
	if err := d.enc.Prepare(); err != nil {
		return err
	}

	if d.cfg.UseCamera() {
		dev, err := device.Discover(d.cfg.DeviceID, nil)
		if err != nil {
			return err
		}
		d.dev = dev
		slog.Info("app: device selected",
			"id", dev.ID,
			"color", dev.ColorNode,
			"depth", dev.DepthNode,
		)

		pipe, err := pipeline.New(d.cfg, dev, d.reg)
		if err != nil {
			return err
		}
		if err := pipe.Start(ctx); err != nil {
			return err
		}
		d.pipe = pipe
	}

	d.prev = preview.NewManager(d.cfg, preview.Callbacks{
		OnNewFrame:  d.cb.OnNewFrame,
		OnShowFrame: d.cb.OnShowFrame,
	})
	d.prev.Open()

	d.rep = report.NewManager(d.cfg.Report, d.onReport)
	if err := d.rep.Open(); err != nil {
		return err
	}

	if d.cfg.MQTT.Enabled() {
		d.setupControl(ctx)
	}

	return nil
}

// setupControl brings up the MQTT surface. A broker outage degrades to
// keyboard-only control rather than failing the run.
func (d *Demo) setupControl(ctx context.Context) {
	emitter := control.NewEmitter(d.cfg.MQTT)
	if err := emitter.Connect(ctx); err != nil {
		slog.Warn("app: mqtt unavailable, keyboard control only", "error", err)
		return
	}
	d.emitter = emitter

	handler := control.NewHandler(d.cfg.MQTT, emitter.Client, d.controlCallbacks())
	if err := handler.Start(ctx); err != nil {
		slog.Warn("app: control handler failed to start", "error", err)
		return
	}
	d.handler = handler
}

func (d *Demo) onReport(s report.Sample) {
	if d.emitter != nil {
		if err := d.emitter.PublishReport(s); err != nil {
			slog.Debug("app: report publish skipped", "error", err)
		}
	}
	if d.cb.OnReport != nil {
		d.cb.OnReport(s)
	}
}

func (d *Demo) teardown() {
	if d.cb.OnTeardown != nil {
		d.cb.OnTeardown(d)
	}

	if d.handler != nil {
		d.handler.Stop()
	}
	if d.emitter != nil {
		d.emitter.Disconnect()
	}
	if d.nn != nil {
		if err := d.nn.Stop(); err != nil {
			slog.Warn("app: nn stop failed", "error", err)
		}
	}
	if d.pipe != nil {
		if err := d.pipe.Stop(); err != nil {
			slog.Warn("app: pipeline stop failed", "error", err)
		}
	}
	if d.rep != nil {
		if err := d.rep.Close(); err != nil {
			slog.Warn("app: report close failed", "error", err)
		}
	}
	if d.prev != nil {
		d.prev.Close()
	}
	if d.enc != nil {
		d.enc.LogSummary()
	}
	if d.reg != nil {
		d.reg.Close()
	}

	d.fpsHandler.PrintStatus()
}

// swapPipeline replaces the capture pipeline after a device restart.
// The control goroutine reads d.pipe under d.mu, so the store must
// hold it too.
func (d *Demo) swapPipeline(p *pipeline.Manager) {
	d.mu.Lock()
	d.pipe = p
	d.mu.Unlock()
}

// swapFPSHandler replaces the rate counter when the video loop
// switches to paced mode. status() reads the handler under d.mu.
func (d *Demo) swapFPSHandler(h *fps.Handler) {
	d.mu.Lock()
	d.fpsHandler = h
	d.mu.Unlock()
}

// shouldRun is the loop continuation test.
func (d *Demo) shouldRun(ctx context.Context) bool {
	if d.stopReq.Load() || ctx.Err() != nil {
		return false
	}
	if d.cb.ShouldRun != nil && !d.cb.ShouldRun() {
		return false
	}
	return true
}
