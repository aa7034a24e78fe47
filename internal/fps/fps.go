// Package fps tracks per-stream frame rates for the demo loop.
//
// A Handler owns one counter per named stream ("color", "nn", "host")
// plus a global iteration counter. In video-file mode it also paces the
// loop so playback does not run faster than the source material.
//
// The clock is injected so tests can drive time deterministically.
package fps

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"gocv.io/x/gocv"
)

// Handler measures frame rates and paces video playback.
type Handler struct {
	clk clock.Clock

	mu       sync.Mutex
	start    time.Time
	counters map[string]*counter

	iters    uint64
	lastIter time.Time

	// frameDelay > 0 enables pacing (video-file input).
	frameDelay time.Duration
}

type counter struct {
	count uint64
	first time.Time
	last  time.Time
}

// New creates a handler for live camera input (no pacing).
func New(clk clock.Clock) *Handler {
	if clk == nil {
		clk = clock.New()
	}
	return &Handler{
		clk:      clk,
		start:    clk.Now(),
		counters: make(map[string]*counter),
	}
}

// NewWithPacing creates a handler that throttles NextIter to sourceFPS.
// Used when frames come from a video file instead of the device.
func NewWithPacing(clk clock.Clock, sourceFPS float64) *Handler {
	h := New(clk)
	if sourceFPS > 0 {
		h.frameDelay = time.Duration(float64(time.Second) / sourceFPS)
	}
	return h
}

// NextIter marks the start of a loop iteration. In pacing mode it
// sleeps whatever remains of the source frame interval.
func (h *Handler) NextIter() {
	h.mu.Lock()
	now := h.clk.Now()
	if h.frameDelay > 0 && h.iters > 0 {
		elapsed := now.Sub(h.lastIter)
		if remaining := h.frameDelay - elapsed; remaining > 0 {
			h.mu.Unlock()
			h.clk.Sleep(remaining)
			h.mu.Lock()
			now = h.clk.Now()
		}
	}
	h.iters++
	h.lastIter = now
	h.mu.Unlock()
}

// Tick records one frame on the named stream.
func (h *Handler) Tick(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clk.Now()
	c, ok := h.counters[name]
	if !ok {
		c = &counter{first: now}
		h.counters[name] = c
	}
	c.count++
	c.last = now
}

// TickFPS returns the measured rate of the named stream, or 0 if the
// stream has fewer than two samples.
func (h *Handler) TickFPS(name string) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tickFPSLocked(name)
}

func (h *Handler) tickFPSLocked(name string) float64 {
	c, ok := h.counters[name]
	if !ok || c.count < 2 {
		return 0
	}
	elapsed := c.last.Sub(c.first).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(c.count-1) / elapsed
}

// FPS returns the overall loop iteration rate.
func (h *Handler) FPS() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	elapsed := h.clk.Now().Sub(h.start).Seconds()
	if elapsed <= 0 || h.iters == 0 {
		return 0
	}
	return float64(h.iters) / elapsed
}

// DrawFPS overlays the stream rate in the top-left corner of the frame.
// Dark outline under light text, same trick the preview overlays use,
// so the label stays readable on any background.
func (h *Handler) DrawFPS(img *gocv.Mat, name string) {
	text := fmt.Sprintf("%s FPS: %.1f", name, h.TickFPS(name))
	org := image.Pt(5, 15)
	gocv.PutText(img, text, org, gocv.FontHersheySimplex, 0.5, color.RGBA{0, 0, 0, 255}, 4)
	gocv.PutText(img, text, org, gocv.FontHersheySimplex, 0.5, color.RGBA{255, 255, 255, 255}, 1)
}

// PrintStatus logs a summary of all counters, called on teardown.
func (h *Handler) PrintStatus() {
	h.mu.Lock()
	names := make([]string, 0, len(h.counters))
	for name := range h.counters {
		names = append(names, name)
	}
	sort.Strings(names)

	args := []any{"iterations", h.iters}
	for _, name := range names {
		args = append(args, "fps_"+name, fmt.Sprintf("%.2f", h.tickFPSLocked(name)))
	}
	h.mu.Unlock()

	slog.Info("fps: final report", args...)
}
