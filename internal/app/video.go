package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/Aaron-MJohn/depthai/internal/config"
	"github.com/Aaron-MJohn/depthai/internal/fps"
	"github.com/Aaron-MJohn/depthai/internal/nnet"
	"github.com/Aaron-MJohn/depthai/internal/queue"
)

// loopVideo replays a host video file instead of the device. Playback
// is paced to the file's frame rate; the NN path works unchanged.
func (d *Demo) loopVideo(ctx context.Context) error {
	capture, err := gocv.VideoCaptureFile(d.cfg.VideoPath)
	if err != nil {
		return fmt.Errorf("failed to open video %q: %w", d.cfg.VideoPath, err)
	}
	defer capture.Close()

	srcFPS := capture.Get(gocv.VideoCaptureFPS)
	if srcFPS <= 0 || srcFPS > 120 {
		srcFPS = 30
	}
	d.swapFPSHandler(fps.NewWithPacing(nil, srcFPS))

	slog.Info("app: video loop running", "path", d.cfg.VideoPath, "source_fps", srcFPS)

	img := gocv.NewMat()
	defer img.Close()

	var seq uint64
	for d.shouldRun(ctx) {
		d.fpsHandler.NextIter()

		if !d.paused.Load() {
			if ok := capture.Read(&img); !ok {
				slog.Info("app: end of video input")
				break
			}
			if !img.Empty() {
				seq++
				d.fpsHandler.Tick("host")
				d.processVideoFrame(&img, seq)
			}
		}

		d.rep.Poll()
		if d.cb.OnIter != nil {
			d.cb.OnIter(d)
		}
		d.handleKey(d.prev.PollKey())
	}
	return nil
}

// processVideoFrame adapts one decoded file frame into the same shape
// device frames have, then runs the normal show-and-infer path.
func (d *Demo) processVideoFrame(img *gocv.Mat, seq uint64) {
	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(*img, &rgb, gocv.ColorBGRToRGB)

	f := &queue.Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     img.Cols(),
		Height:    img.Rows(),
		Data:      rgb.ToBytes(),
		Source:    config.PreviewColor,
		TraceID:   uuid.New().String(),
	}

	if d.nn != nil {
		d.feedNN(f)
		if d.cfg.Sync {
			d.syncBuf.add(f)
		}
	}

	// In sync mode the frame appears when its result does.
	if !(d.cfg.Sync && d.nn != nil) {
		var dets []nnet.Detection
		if d.lastResult != nil {
			dets = d.lastResult.Detections
		}
		d.render(config.PreviewColor, f, dets)
	}

	d.pollResults()
}
