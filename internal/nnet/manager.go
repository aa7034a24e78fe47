package nnet

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/Aaron-MJohn/depthai/internal/queue"
)

// Detection is one decoded network output.
type Detection struct {
	LabelID    int
	Label      string
	Confidence float64

	// Normalized bounding box corners (0-1).
	XMin, YMin, XMax, YMax float64

	// Spatial coordinates in millimetres; zero when depth is off.
	X, Y, Z int
}

// Result is one decoded inference answer.
type Result struct {
	Seq        uint64
	TraceID    string
	TimingMS   float64
	Detections []Detection
}

// Manager owns the model config, the inference runtime and result
// decoding. It is the host-side face of the on-device NN node.
type Manager struct {
	model  *ModelConfig
	runner Runner

	countLabel string

	// Valid depth range in millimetres; measurements outside it are not
	// shown. Atomics because the control surface updates them while the
	// loop draws.
	minDepth atomic.Int64
	maxDepth atomic.Int64

	sent    atomic.Uint64
	dropped atomic.Uint64
	decoded atomic.Uint64
}

// bboxColors cycles per class id, same palette order the preview
// windows use for depth ROI overlays.
var bboxColors = []color.RGBA{
	{255, 0, 0, 255},
	{0, 255, 0, 255},
	{0, 0, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{255, 0, 255, 255},
}

// NewManager loads the model sidecar and prepares the runtime.
func NewManager(configPath, runnerCommand, modelPath, countLabel string) (*Manager, error) {
	model, err := LoadModelConfig(configPath)
	if err != nil {
		return nil, err
	}

	if countLabel != "" {
		found := false
		for _, l := range model.Labels {
			if l == countLabel {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("count label %q not in model labels", countLabel)
		}
	}

	return &Manager{
		model:      model,
		runner:     NewRunner(runnerCommand, modelPath),
		countLabel: countLabel,
	}, nil
}

// newManagerWithRunner is the test seam.
func newManagerWithRunner(model *ModelConfig, r Runner, countLabel string) *Manager {
	return &Manager{model: model, runner: r, countLabel: countLabel}
}

// SetDepthBounds limits the spatial distance overlay to measurements
// inside the device's valid depth range, in millimetres. Zero bounds
// disable the filter. Safe from any goroutine.
func (m *Manager) SetDepthBounds(min, max int) {
	m.minDepth.Store(int64(min))
	m.maxDepth.Store(int64(max))
}

// depthInRange reports whether a spatial measurement is trustworthy.
func (m *Manager) depthInRange(z int) bool {
	max := m.maxDepth.Load()
	if max <= 0 {
		return true
	}
	return int64(z) >= m.minDepth.Load() && int64(z) <= max
}

// InputSize returns the model input dimensions.
func (m *Manager) InputSize() (w, h int) {
	return m.model.InputWidth, m.model.InputHeight
}

// Start launches the inference runtime.
func (m *Manager) Start(ctx context.Context) error {
	return m.runner.Start(ctx)
}

// Stop terminates the inference runtime.
func (m *Manager) Stop() error {
	slog.Info("nnet: stopping",
		"frames_sent", m.sent.Load(),
		"frames_dropped", m.dropped.Load(),
		"results_decoded", m.decoded.Load(),
	)
	return m.runner.Stop()
}

// SendFrame submits a frame for inference without blocking. Frames are
// dropped when the runtime is behind; that is expected whenever the
// camera runs faster than the model.
func (m *Manager) SendFrame(f *queue.Frame) {
	req := Request{
		Seq:     f.Seq,
		TraceID: f.TraceID,
		Width:   f.Width,
		Height:  f.Height,
		Frame:   EncodeFrame(f.Data),
	}
	if m.runner.Send(req) {
		m.sent.Add(1)
	} else {
		m.dropped.Add(1)
	}
}

// TryGetResult returns the next decoded result, or nil when none is
// ready. Never blocks; the demo loop polls it every iteration.
func (m *Manager) TryGetResult() *Result {
	select {
	case raw, ok := <-m.runner.Results():
		if !ok {
			return nil
		}
		return m.decode(raw)
	default:
		return nil
	}
}

// decode filters raw detections by the model threshold and resolves
// label names.
func (m *Manager) decode(raw rawResult) *Result {
	res := &Result{
		Seq:      raw.Seq,
		TraceID:  raw.TraceID,
		TimingMS: raw.TimingMS,
	}
	for _, d := range raw.Detections {
		if d.Confidence < m.model.ConfidenceThreshold {
			continue
		}
		// The runtime is an external process; a negative class id is
		// corrupt output, not a class.
		if d.LabelID < 0 {
			continue
		}
		res.Detections = append(res.Detections, Detection{
			LabelID:    d.LabelID,
			Label:      m.model.LabelName(d.LabelID),
			Confidence: d.Confidence,
			XMin:       clamp01(d.XMin),
			YMin:       clamp01(d.YMin),
			XMax:       clamp01(d.XMax),
			YMax:       clamp01(d.YMax),
			X:          d.X,
			Y:          d.Y,
			Z:          d.Z,
		})
	}
	m.decoded.Add(1)
	return res
}

// Draw overlays detections onto a preview frame.
func (m *Manager) Draw(img *gocv.Mat, detections []Detection) {
	w := img.Cols()
	h := img.Rows()

	count := 0
	for _, d := range detections {
		rect := image.Rect(
			int(d.XMin*float64(w)), int(d.YMin*float64(h)),
			int(d.XMax*float64(w)), int(d.YMax*float64(h)),
		)
		c := bboxColors[d.LabelID%len(bboxColors)]
		gocv.Rectangle(img, rect, c, 2)

		label := fmt.Sprintf("%s %.0f%%", d.Label, d.Confidence*100)
		gocv.PutText(img, label, image.Pt(rect.Min.X+5, rect.Min.Y+15),
			gocv.FontHersheySimplex, 0.5, c, 1)

		if d.Z != 0 && m.depthInRange(d.Z) {
			gocv.PutText(img, fmt.Sprintf("Z: %.2f m", float64(d.Z)/1000),
				image.Pt(rect.Min.X+5, rect.Min.Y+30),
				gocv.FontHersheySimplex, 0.4, c, 1)
		}

		if m.countLabel != "" && d.Label == m.countLabel {
			count++
		}
	}

	if m.countLabel != "" {
		text := fmt.Sprintf("%s count: %d", m.countLabel, count)
		gocv.PutText(img, text, image.Pt(5, h-10),
			gocv.FontHersheySimplex, 0.5, color.RGBA{0, 0, 0, 255}, 4)
		gocv.PutText(img, text, image.Pt(5, h-10),
			gocv.FontHersheySimplex, 0.5, color.RGBA{255, 255, 255, 255}, 1)
	}
}

// CountLabel returns the configured count label ("" when disabled).
func (m *Manager) CountLabel() string { return m.countLabel }

// Labels exposes the model label map for the control surface.
func (m *Manager) Labels() []string { return m.model.Labels }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
