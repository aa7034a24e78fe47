package pipeline

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/Aaron-MJohn/depthai/internal/config"
	"github.com/Aaron-MJohn/depthai/internal/device"
	"github.com/Aaron-MJohn/depthai/internal/encode"
	"github.com/Aaron-MJohn/depthai/internal/queue"
)

// Caps formats per stream kind. Color is interleaved RGB; mono and
// disparity are single-channel.
const (
	formatRGB  = "RGB"
	formatGray = "GRAY8"
)

// branchSpec describes one capture branch before any GStreamer work.
type branchSpec struct {
	Name   string
	Node   string
	Format string
	Width  int
	Height int
	FPS    float64

	// EncodeFPS > 0 adds an encoder leg writing EncodePath.
	EncodeFPS  float64
	EncodePath string
}

// branch holds the element references needed after construction: the
// source for live control updates, the capsfilter for hot reconfig and
// the appsink for callback wiring.
type branch struct {
	spec       branchSpec
	source     *gst.Element
	capsFilter *gst.Element
	appSink    *app.Sink

	frameCounter uint64
	bytesRead    uint64
}

// buildSpecs maps the configuration onto capture branches. Pure, so the
// branch layout is testable without GStreamer.
func buildSpecs(cfg *config.Config, dev *device.Info) ([]branchSpec, error) {
	var specs []branchSpec

	add := func(name, node, format string, res config.Resolution, fps float64) error {
		if node == "" {
			return fmt.Errorf("stream %s enabled but device has no node for it", name)
		}
		w, h, err := res.Dimensions()
		if err != nil {
			return err
		}
		spec := branchSpec{
			Name: name, Node: node, Format: format,
			Width: w, Height: h, FPS: fps,
		}
		if encFPS, ok := cfg.Encode.Streams[name]; ok {
			spec.EncodeFPS = encFPS
			spec.EncodePath = encode.OutputPath(cfg.Encode.OutputDir, name)
		}
		specs = append(specs, spec)
		return nil
	}

	if cfg.RGBEnabled() {
		if err := add(config.PreviewColor, dev.ColorNode, formatRGB, cfg.RGB.Resolution, cfg.RGB.FPS); err != nil {
			return nil, err
		}
	}
	if cfg.LeftEnabled() {
		if err := add(config.PreviewLeft, dev.LeftNode, formatGray, cfg.Mono.Resolution, cfg.Mono.FPS); err != nil {
			return nil, err
		}
	}
	if cfg.RightEnabled() {
		if err := add(config.PreviewRight, dev.RightNode, formatGray, cfg.Mono.Resolution, cfg.Mono.FPS); err != nil {
			return nil, err
		}
	}
	if cfg.UseDepth() {
		if err := add(config.PreviewDisparity, dev.DepthNode, formatGray, cfg.Mono.Resolution, cfg.Mono.FPS); err != nil {
			return nil, err
		}
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("no streams enabled")
	}
	return specs, nil
}

// buildBranch creates one capture branch and adds it to the pipeline.
// The branch is linked but not started.
func buildBranch(pipeline *gst.Pipeline, spec branchSpec) (*branch, error) {
	source, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, fmt.Errorf("failed to create v4l2src for %s: %w", spec.Name, err)
	}
	source.SetProperty("device", spec.Node)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert for %s: %w", spec.Name, err)
	}
	converter.SetProperty("n-threads", 0)

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale for %s: %w", spec.Name, err)
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, fmt.Errorf("failed to create videorate for %s: %w", spec.Name, err)
	}
	videorate.SetProperty("drop-only", true)
	videorate.SetProperty("skip-to-first", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter for %s: %w", spec.Name, err)
	}
	capsStr := buildRawCaps(spec.Format, spec.Width, spec.Height, spec.FPS)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink for %s: %w", spec.Name, err)
	}
	appsink.SetProperty("sync", false)    // No sync with clock (real-time)
	appsink.SetProperty("max-buffers", 1) // Keep only latest frame
	appsink.SetProperty("drop", true)     // Drop old frames
	appsink.SetProperty("qos", true)

	pipeline.AddMany(source, converter, scaler, videorate, capsfilter, appsink.Element)

	if spec.EncodeFPS > 0 {
		if err := linkWithEncoder(pipeline, spec, source, converter, scaler, videorate, capsfilter, appsink); err != nil {
			return nil, err
		}
	} else {
		if err := gst.ElementLinkMany(source, converter, scaler, videorate, capsfilter, appsink.Element); err != nil {
			return nil, fmt.Errorf("failed to link %s branch: %w", spec.Name, err)
		}
	}

	slog.Debug("pipeline: branch built",
		"stream", spec.Name,
		"node", spec.Node,
		"caps", capsStr,
		"encode", spec.EncodeFPS > 0,
	)

	return &branch{
		spec:       spec,
		source:     source,
		capsFilter: capsfilter,
		appSink:    appsink,
	}, nil
}

// linkWithEncoder inserts a tee after the capsfilter with two legs:
// one to the appsink, one through the encoder to a Matroska file. The
// encoder leg rate-limits with its own videorate so preview FPS and
// recording FPS stay independent.
func linkWithEncoder(pipeline *gst.Pipeline, spec branchSpec,
	source, converter, scaler, videorate, capsfilter *gst.Element, appsink *app.Sink) error {

	tee, err := gst.NewElement("tee")
	if err != nil {
		return fmt.Errorf("failed to create tee for %s: %w", spec.Name, err)
	}

	previewQueue, err := gst.NewElement("queue")
	if err != nil {
		return fmt.Errorf("failed to create preview queue for %s: %w", spec.Name, err)
	}
	previewQueue.SetProperty("leaky", 2) // Drop oldest under pressure

	encodeQueue, err := gst.NewElement("queue")
	if err != nil {
		return fmt.Errorf("failed to create encode queue for %s: %w", spec.Name, err)
	}

	encodeRate, err := gst.NewElement("videorate")
	if err != nil {
		return fmt.Errorf("failed to create encode videorate for %s: %w", spec.Name, err)
	}
	encodeRate.SetProperty("drop-only", true)

	encodeCaps, err := gst.NewElement("capsfilter")
	if err != nil {
		return fmt.Errorf("failed to create encode capsfilter for %s: %w", spec.Name, err)
	}
	encodeCaps.SetProperty("caps", gst.NewCapsFromString(
		buildRawCaps(spec.Format, spec.Width, spec.Height, spec.EncodeFPS)))

	encodeConvert, err := gst.NewElement("videoconvert")
	if err != nil {
		return fmt.Errorf("failed to create encode videoconvert for %s: %w", spec.Name, err)
	}

	encoder, err := gst.NewElement("x264enc")
	if err != nil {
		return fmt.Errorf("failed to create x264enc for %s: %w", spec.Name, err)
	}
	encoder.SetProperty("tune", 4) // zerolatency
	encoder.SetProperty("speed-preset", 1)

	parser, err := gst.NewElement("h264parse")
	if err != nil {
		return fmt.Errorf("failed to create h264parse for %s: %w", spec.Name, err)
	}

	muxer, err := gst.NewElement("matroskamux")
	if err != nil {
		return fmt.Errorf("failed to create matroskamux for %s: %w", spec.Name, err)
	}

	filesink, err := gst.NewElement("filesink")
	if err != nil {
		return fmt.Errorf("failed to create filesink for %s: %w", spec.Name, err)
	}
	filesink.SetProperty("location", spec.EncodePath)

	pipeline.AddMany(tee, previewQueue, encodeQueue, encodeRate, encodeCaps,
		encodeConvert, encoder, parser, muxer, filesink)

	if err := gst.ElementLinkMany(source, converter, scaler, videorate, capsfilter, tee); err != nil {
		return fmt.Errorf("failed to link %s capture leg: %w", spec.Name, err)
	}
	if err := gst.ElementLinkMany(tee, previewQueue, appsink.Element); err != nil {
		return fmt.Errorf("failed to link %s preview leg: %w", spec.Name, err)
	}
	if err := gst.ElementLinkMany(tee, encodeQueue, encodeRate, encodeCaps,
		encodeConvert, encoder, parser, muxer, filesink); err != nil {
		return fmt.Errorf("failed to link %s encoder leg: %w", spec.Name, err)
	}

	slog.Info("pipeline: encoder leg attached",
		"stream", spec.Name,
		"fps", spec.EncodeFPS,
		"output", spec.EncodePath,
	)
	return nil
}

// wireCallbacks connects the appsink to its output queue.
func (b *branch) wireCallbacks(reg *queue.Registry) {
	b.appSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return b.onNewSample(sink, reg)
		},
	})
}

// onNewSample copies the sample into a Frame and publishes it. A
// corrupted sample skips the frame rather than terminating the stream.
func (b *branch) onNewSample(sink *app.Sink, reg *queue.Registry) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("pipeline: failed to pull sample, skipping frame", "stream", b.spec.Name)
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("pipeline: sample without buffer, skipping frame", "stream", b.spec.Name)
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("pipeline: empty buffer received", "stream", b.spec.Name)
		return gst.FlowOK
	}

	// Copy out; GStreamer reuses the buffer after Unmap.
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	seq := atomic.AddUint64(&b.frameCounter, 1)
	atomic.AddUint64(&b.bytesRead, uint64(len(frameData)))

	reg.Publish(b.spec.Name, &queue.Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     b.spec.Width,
		Height:    b.spec.Height,
		Data:      frameData,
		Source:    b.spec.Name,
		TraceID:   uuid.New().String(),
	})
	return gst.FlowOK
}
