package control

import (
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Aaron-MJohn/depthai/internal/config"
	"github.com/Aaron-MJohn/depthai/internal/report"
)

func newTestHandler(cb CommandCallbacks) *Handler {
	return &Handler{
		cfg:       config.Default().MQTT,
		callbacks: cb,
		commands:  make(chan Command, 10),
	}
}

func TestHandleCommandPauseResume(t *testing.T) {
	var paused bool
	h := newTestHandler(CommandCallbacks{
		OnPause:  func() error { paused = true; return nil },
		OnResume: func() error { paused = false; return nil },
	})

	resp := h.handleCommand(Command{Command: "pause"})
	if resp.Status != "success" || !paused {
		t.Errorf("Pause failed: %+v paused=%v", resp, paused)
	}
	if running, _ := resp.Data["running"].(bool); running {
		t.Errorf("Expected running=false in ack, got %+v", resp.Data)
	}

	resp = h.handleCommand(Command{Command: "resume"})
	if resp.Status != "success" || paused {
		t.Errorf("Resume failed: %+v paused=%v", resp, paused)
	}
}

func TestHandleCommandCallbackError(t *testing.T) {
	h := newTestHandler(CommandCallbacks{
		OnPause: func() error { return errors.New("loop busy") },
	})

	resp := h.handleCommand(Command{Command: "pause"})
	if resp.Status != "error" || resp.Error != "loop busy" {
		t.Errorf("Expected callback error in ack, got %+v", resp)
	}
}

func TestHandleCommandNotImplemented(t *testing.T) {
	h := newTestHandler(CommandCallbacks{})

	resp := h.handleCommand(Command{Command: "shutdown"})
	if resp.Status != "error" {
		t.Errorf("Expected not-implemented error, got %+v", resp)
	}
}

func TestHandleCommandUnknown(t *testing.T) {
	h := newTestHandler(CommandCallbacks{})

	resp := h.handleCommand(Command{Command: "reboot_universe"})
	if resp.Status != "error" {
		t.Errorf("Expected error for unknown command, got %+v", resp)
	}
	if resp.CommandAck != "reboot_universe" {
		t.Errorf("Ack should echo the command, got %q", resp.CommandAck)
	}
}

func TestHandleCommandSelectPreview(t *testing.T) {
	var selected string
	h := newTestHandler(CommandCallbacks{
		OnSelectPreview: func(name string) error { selected = name; return nil },
	})

	resp := h.handleCommand(Command{
		Command: "select_preview",
		Params:  map[string]interface{}{"name": "disparity"},
	})
	if resp.Status != "success" || selected != "disparity" {
		t.Errorf("Select preview failed: %+v selected=%q", resp, selected)
	}

	resp = h.handleCommand(Command{Command: "select_preview"})
	if resp.Status != "error" {
		t.Errorf("Expected error for missing name param, got %+v", resp)
	}
}

func TestHandleCommandUpdateDepthParams(t *testing.T) {
	var got map[string]interface{}
	h := newTestHandler(CommandCallbacks{
		OnUpdateDepth: func(params map[string]interface{}) error { got = params; return nil },
	})

	resp := h.handleCommand(Command{
		Command: "update_depth",
		Params:  map[string]interface{}{"median": float64(5), "confidence": float64(200)},
	})
	if resp.Status != "success" {
		t.Fatalf("update_depth failed: %+v", resp)
	}
	if got["median"] != float64(5) {
		t.Errorf("Params not passed through: %v", got)
	}
}

// stuckToken simulates a broker that never confirms delivery.
type stuckToken struct{}

func (stuckToken) Wait() bool                     { return false }
func (stuckToken) WaitTimeout(time.Duration) bool { return false }
func (stuckToken) Done() <-chan struct{}          { return make(chan struct{}) }
func (stuckToken) Error() error                   { return nil }

type recordingPublisher struct {
	topics   []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload.([]byte))
	return stuckToken{}
}

func TestPublishReportNeverBlocks(t *testing.T) {
	pub := &recordingPublisher{}
	e := &Emitter{cfg: config.Default().MQTT, pub: pub, connected: true}

	start := time.Now()
	err := e.PublishReport(report.Sample{
		Timestamp:  time.Unix(1000, 0),
		TempC:      40.5,
		CPUPercent: 12.5,
	})
	if err != nil {
		t.Fatalf("PublishReport failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("PublishReport blocked the caller for %v", elapsed)
	}

	if len(pub.payloads) != 1 {
		t.Fatalf("Expected 1 publish, got %d", len(pub.payloads))
	}
	if pub.topics[0] != e.cfg.ReportTopic {
		t.Errorf("Published to %q, want %q", pub.topics[0], e.cfg.ReportTopic)
	}

	var got reportPayload
	if err := msgpack.Unmarshal(pub.payloads[0], &got); err != nil {
		t.Fatalf("Payload not msgpack: %v", err)
	}
	if got.Timestamp != 1000 || got.TempC != 40.5 || got.CPUPercent != 12.5 {
		t.Errorf("Payload mismatch: %+v", got)
	}
}

func TestHandleCommandGetStatus(t *testing.T) {
	h := newTestHandler(CommandCallbacks{
		OnGetStatus: func() map[string]interface{} {
			return map[string]interface{}{"device": "0", "fps": 29.7}
		},
	})

	resp := h.handleCommand(Command{Command: "get_status"})
	if resp.Status != "success" || resp.Data["device"] != "0" {
		t.Errorf("Unexpected status ack: %+v", resp)
	}
}
