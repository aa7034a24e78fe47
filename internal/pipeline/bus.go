package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// busPollInterval bounds how long Stop waits for the monitor goroutine.
const busPollInterval = 100 * time.Millisecond

// monitorBus watches the pipeline bus and surfaces failures on errs.
func (m *Manager) monitorBus(ctx context.Context) {
	defer m.wg.Done()

	bus := m.pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Warn("pipeline: unexpected end of stream")
			m.report(ErrPipelineEOS)

		case gst.MessageError:
			gerr := msg.ParseError()
			slog.Error("pipeline: bus error",
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			m.report(classifyBusError(gerr.Error()))

		case gst.MessageStateChanged:
			slog.Debug("pipeline: state changed", "source", msg.Source())

		case gst.MessageWarning:
			slog.Warn("pipeline: bus warning", "message", msg.String())
		}
	}
}

// report delivers an error without blocking. The channel is small; if
// the caller is not draining, later errors add nothing new.
func (m *Manager) report(err error) {
	select {
	case m.errs <- err:
	default:
		slog.Debug("pipeline: error channel full, dropping", "error", err)
	}
}

// classifyBusError maps a bus error message onto a sentinel so callers
// can distinguish a yanked device from everything else.
func classifyBusError(text string) error {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "no such device"),
		strings.Contains(lower, "device disconnected"),
		strings.Contains(lower, "device was removed"),
		strings.Contains(lower, "could not read from resource"):
		return fmt.Errorf("%w: %s", ErrDeviceDisconnected, text)
	default:
		return fmt.Errorf("pipeline error: %s", text)
	}
}
