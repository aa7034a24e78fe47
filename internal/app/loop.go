package app

import (
	"context"
	"errors"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/Aaron-MJohn/depthai/internal/config"
	"github.com/Aaron-MJohn/depthai/internal/device"
	"github.com/Aaron-MJohn/depthai/internal/nnet"
	"github.com/Aaron-MJohn/depthai/internal/pipeline"
	"github.com/Aaron-MJohn/depthai/internal/preview"
	"github.com/Aaron-MJohn/depthai/internal/queue"
)

// syncBufferDepth bounds how many source frames wait for their
// inference result in sync mode. At 30 fps this is one second of
// latency headroom before frames are abandoned.
const syncBufferDepth = 30

// frameBuffer holds recent source frames keyed by sequence number so
// sync mode can pair each inference result with the exact frame it was
// computed on.
type frameBuffer struct {
	limit  int
	frames []*queue.Frame
}

func newFrameBuffer(limit int) *frameBuffer {
	return &frameBuffer{limit: limit}
}

func (b *frameBuffer) add(f *queue.Frame) {
	b.frames = append(b.frames, f)
	if len(b.frames) > b.limit {
		b.frames = b.frames[1:]
	}
}

// take returns the frame with the given sequence number and discards
// everything older. Nil when the frame already fell out of the buffer.
func (b *frameBuffer) take(seq uint64) *queue.Frame {
	for i, f := range b.frames {
		if f.Seq == seq {
			b.frames = b.frames[i+1:]
			return f
		}
		if f.Seq > seq {
			break
		}
	}
	return nil
}

func (b *frameBuffer) len() int { return len(b.frames) }

// loopCamera is the live-device loop.
func (d *Demo) loopCamera(ctx context.Context) error {
	slog.Info("app: demo loop running",
		"device", d.dev.ID,
		"streams", d.pipe.Streams(),
		"sync", d.cfg.Sync,
	)

	for d.shouldRun(ctx) {
		d.fpsHandler.NextIter()

		if err := d.checkPipeline(ctx); err != nil {
			return err
		}
		if !d.paused.Load() {
			d.processFrames()
		}

		d.rep.Poll()
		if d.cb.OnIter != nil {
			d.cb.OnIter(d)
		}
		d.handleKey(d.prev.PollKey())
	}
	return nil
}

// checkPipeline drains the pipeline error channel. A disconnect
// triggers the wait-and-restart path; anything else ends the run.
func (d *Demo) checkPipeline(ctx context.Context) error {
	if d.pipe == nil {
		return nil
	}

	select {
	case err := <-d.pipe.Errors():
		if errors.Is(err, pipeline.ErrDeviceDisconnected) || errors.Is(err, pipeline.ErrPipelineEOS) {
			return d.restartPipeline(ctx)
		}
		return err
	default:
		return nil
	}
}

// restartPipeline waits for the device to come back, then rebuilds the
// capture graph with backoff. The queues and their consumers survive;
// only the producer is replaced.
func (d *Demo) restartPipeline(ctx context.Context) error {
	slog.Warn("app: device lost, attempting restart", "device", d.dev.ID)

	if err := d.pipe.Stop(); err != nil {
		slog.Warn("app: pipeline stop during restart failed", "error", err)
	}

	if err := device.WaitForReturn(ctx, d.dev.ID, nil); err != nil {
		return err
	}

	return pipeline.RunWithReconnect(ctx, func(ctx context.Context) error {
		pipe, err := pipeline.New(d.cfg, d.dev, d.reg)
		if err != nil {
			return err
		}
		if err := pipe.Start(ctx); err != nil {
			return err
		}
		d.swapPipeline(pipe)
		return nil
	}, pipeline.DefaultReconnectConfig())
}

// processFrames runs one non-blocking pass over every queue.
func (d *Demo) processFrames() {
	for _, name := range d.reg.Names() {
		out, ok := d.reg.Output(name)
		if !ok {
			continue
		}
		f := out.TryGet()
		if f == nil {
			continue
		}
		d.fpsHandler.Tick(name)

		if name == d.cfg.Source && d.nn != nil {
			d.feedNN(f)
			if d.cfg.Sync {
				d.syncBuf.add(f)
			}
		}

		for _, win := range d.windowsFor(name) {
			// In sync mode the source window waits for the paired result.
			if d.cfg.Sync && d.nn != nil && win == d.cfg.Source {
				continue
			}
			var dets []nnet.Detection
			if win == d.cfg.Source && d.lastResult != nil {
				dets = d.lastResult.Detections
			}
			d.render(win, f, dets)
		}
	}

	d.pollResults()
}

// pollResults takes at most one inference result per iteration.
func (d *Demo) pollResults() {
	if d.nn == nil {
		return
	}
	res := d.nn.TryGetResult()
	if res == nil {
		return
	}

	d.lastResult = res
	d.fpsHandler.Tick("nn")
	if d.cb.OnNn != nil {
		d.cb.OnNn(res)
	}

	if d.cfg.Sync {
		if f := d.syncBuf.take(res.Seq); f != nil {
			d.render(d.cfg.Source, f, res.Detections)
		}
	}
}

// windowsFor maps a queue onto the open windows it feeds. The
// disparity queue drives both depth views.
func (d *Demo) windowsFor(queueName string) []string {
	open := make(map[string]bool)
	for _, name := range d.prev.Names() {
		open[name] = true
	}

	if queueName == config.PreviewDisparity {
		var wins []string
		for _, name := range []string{config.PreviewDepth, config.PreviewDisparity} {
			if open[name] {
				wins = append(wins, name)
			}
		}
		return wins
	}
	if open[queueName] {
		return []string{queueName}
	}
	return nil
}

// render prepares, decorates and shows one frame in one window.
func (d *Demo) render(winName string, f *queue.Frame, dets []nnet.Detection) {
	d.mu.Lock()
	median := d.cfg.Depth.Median
	tuning := d.cfg.Tuning
	d.mu.Unlock()

	img, err := d.prev.Prepare(winName, f, median)
	if err != nil {
		slog.Warn("app: frame conversion failed", "window", winName, "error", err)
		return
	}
	defer img.Close()

	if dets != nil && d.nn != nil {
		d.nn.Draw(&img, dets)
	}
	d.fpsHandler.DrawFPS(&img, winName)

	switch winName {
	case config.PreviewDepth, config.PreviewDisparity:
		preview.DrawMedianStatus(&img, median)
	case config.PreviewColor:
		if tuning.Controls {
			preview.DrawTuning(&img, tuning)
		}
	}

	d.prev.Show(winName, &img)
}

// feedNN scales a source frame to the model input and submits it. The
// scaled frame also drives the nnInput preview.
func (d *Demo) feedNN(f *queue.Frame) {
	w, h := d.nn.InputSize()

	var raw gocv.Mat
	if f.Gray() {
		gray, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC1, f.Data)
		if err != nil {
			slog.Warn("app: bad nn source frame", "error", err)
			return
		}
		raw = gocv.NewMat()
		gocv.CvtColor(gray, &raw, gocv.ColorGrayToBGR)
		gray.Close()
	} else {
		var err error
		raw, err = gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
		if err != nil {
			slog.Warn("app: bad nn source frame", "error", err)
			return
		}
	}
	defer raw.Close()

	scaled := preview.ScaleForModel(raw, w, h, d.cfg.NN.FullFOV)
	defer scaled.Close()

	d.nn.SendFrame(&queue.Frame{
		Seq:       f.Seq,
		Timestamp: f.Timestamp,
		Width:     w,
		Height:    h,
		Data:      scaled.ToBytes(),
		Source:    "nn",
		TraceID:   f.TraceID,
	})

	d.showNNInput(scaled)
}

// showNNInput mirrors the model input into its preview window.
func (d *Demo) showNNInput(scaled gocv.Mat) {
	open := false
	for _, name := range d.prev.Names() {
		if name == config.PreviewNNInput {
			open = true
			break
		}
	}
	if !open {
		return
	}

	disp := gocv.NewMat()
	defer disp.Close()
	gocv.CvtColor(scaled, &disp, gocv.ColorRGBToBGR)

	if d.lastResult != nil {
		d.nn.Draw(&disp, d.lastResult.Detections)
	}
	d.fpsHandler.DrawFPS(&disp, config.PreviewNNInput)
	d.prev.Show(config.PreviewNNInput, &disp)
}
