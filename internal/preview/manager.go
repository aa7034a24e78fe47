package preview

import (
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/Aaron-MJohn/depthai/internal/config"
	"github.com/Aaron-MJohn/depthai/internal/queue"
)

// Callbacks are the per-frame hooks exposed to the application. Both
// are optional.
type Callbacks struct {
	// OnNewFrame fires when a frame is taken from its queue, before any
	// display conversion.
	OnNewFrame func(name string, f *queue.Frame)

	// OnShowFrame fires after overlays, right before the window update.
	OnShowFrame func(name string, img *gocv.Mat)
}

// Manager owns the preview windows.
type Manager struct {
	cfg     *config.Config
	cb      Callbacks
	windows map[string]*gocv.Window
}

// NewManager prepares the window set without opening anything yet.
func NewManager(cfg *config.Config, cb Callbacks) *Manager {
	return &Manager{cfg: cfg, cb: cb, windows: make(map[string]*gocv.Window)}
}

// visiblePreviews filters the configured show list down to previews
// that can actually render with the current input mode.
func visiblePreviews(cfg *config.Config) []string {
	var names []string
	for _, name := range cfg.Show {
		switch name {
		case config.PreviewDepth, config.PreviewDisparity:
			if !cfg.UseDepth() {
				continue
			}
		case config.PreviewLeft, config.PreviewRight:
			if !cfg.UseCamera() {
				continue
			}
		case config.PreviewNNInput:
			if !cfg.UseNN() {
				continue
			}
		}
		names = append(names, name)
	}
	return names
}

// Open creates one window per visible preview.
func (m *Manager) Open() {
	for _, name := range visiblePreviews(m.cfg) {
		m.windows[name] = gocv.NewWindow(name)
	}
	slog.Info("preview: windows opened", "count", len(m.windows))
}

// Select opens the named preview window at runtime if it is not open
// yet. Used by the remote control surface.
func (m *Manager) Select(name string) error {
	switch name {
	case config.PreviewColor, config.PreviewLeft, config.PreviewRight,
		config.PreviewDepth, config.PreviewDisparity, config.PreviewNNInput:
	default:
		return fmt.Errorf("unknown preview %q", name)
	}
	if _, ok := m.windows[name]; ok {
		return nil
	}
	m.windows[name] = gocv.NewWindow(name)
	slog.Info("preview: window opened", "window", name)
	return nil
}

// Names returns the open window names.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.windows))
	for name := range m.windows {
		names = append(names, name)
	}
	return names
}

// Prepare converts a frame into a displayable BGR Mat for the named
// preview. The caller owns the returned Mat and must Close it.
func (m *Manager) Prepare(name string, f *queue.Frame, median config.MedianFilter) (gocv.Mat, error) {
	if m.cb.OnNewFrame != nil {
		m.cb.OnNewFrame(name, f)
	}

	if f.Gray() {
		return m.prepareGray(name, f, median)
	}
	return m.prepareColor(f)
}

func (m *Manager) prepareColor(f *queue.Frame) (gocv.Mat, error) {
	raw, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("preview: bad color frame: %w", err)
	}
	defer raw.Close()

	out := gocv.NewMat()
	gocv.CvtColor(raw, &out, gocv.ColorRGBToBGR)
	return out, nil
}

func (m *Manager) prepareGray(name string, f *queue.Frame, median config.MedianFilter) (gocv.Mat, error) {
	raw, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC1, f.Data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("preview: bad gray frame: %w", err)
	}
	defer raw.Close()

	// Depth post-processing runs host-side on the disparity stream.
	if median.Valid() && int(median) > 0 &&
		(name == config.PreviewDepth || name == config.PreviewDisparity) {
		gocv.MedianBlur(raw, &raw, int(median))
	}

	out := gocv.NewMat()
	if name == config.PreviewDisparity {
		gocv.ApplyColorMap(raw, &out, gocv.ColormapJet)
		return out, nil
	}
	gocv.CvtColor(raw, &out, gocv.ColorGrayToBGR)
	return out, nil
}

// Show pushes a prepared Mat into its window.
func (m *Manager) Show(name string, img *gocv.Mat) {
	win, ok := m.windows[name]
	if !ok {
		return
	}
	if m.cb.OnShowFrame != nil {
		m.cb.OnShowFrame(name, img)
	}
	win.IMShow(*img)
}

// PollKey pumps the GUI event loop and returns the pressed key code,
// or a negative value when no key is pending. Must be called every
// loop iteration or the windows freeze.
func (m *Manager) PollKey() int {
	if len(m.windows) == 0 {
		return -1
	}
	return gocv.WaitKey(1)
}

// Close destroys all windows.
func (m *Manager) Close() {
	for name, win := range m.windows {
		if err := win.Close(); err != nil {
			slog.Warn("preview: window close failed", "window", name, "error", err)
		}
	}
	m.windows = make(map[string]*gocv.Window)
}
