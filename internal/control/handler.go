package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Aaron-MJohn/depthai/internal/config"
)

// Command is one remote control message.
type Command struct {
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response acknowledges a command.
type Response struct {
	CommandAck string                 `json:"command_ack"`
	Status     string                 `json:"status"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Timestamp  string                 `json:"timestamp"`
}

// CommandCallbacks wires commands into the demo. Unset callbacks make
// their command answer "not implemented".
type CommandCallbacks struct {
	OnGetStatus     func() map[string]interface{}
	OnPause         func() error
	OnResume        func() error
	OnUpdateDepth   func(params map[string]interface{}) error
	OnUpdateCamera  func(params map[string]interface{}) error
	OnSelectPreview func(name string) error
	OnShutdown      func() error
}

// publisher is the slice of mqtt.Client the handler needs for acks.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Handler subscribes to the control topic and executes commands on a
// single goroutine so callbacks never race the demo loop's own state.
type Handler struct {
	cfg       config.MQTTConfig
	client    mqtt.Client
	pub       publisher
	callbacks CommandCallbacks
	commands  chan Command
}

// NewHandler creates a control handler on an established client.
func NewHandler(cfg config.MQTTConfig, client mqtt.Client, callbacks CommandCallbacks) *Handler {
	return &Handler{
		cfg:       cfg,
		client:    client,
		pub:       client,
		callbacks: callbacks,
		commands:  make(chan Command, 10),
	}
}

// Start subscribes and begins processing commands.
func (h *Handler) Start(ctx context.Context) error {
	token := h.client.Subscribe(h.cfg.ControlTopic, 1, h.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control subscription failed: %w", err)
	}

	slog.Info("control: handler started", "topic", h.cfg.ControlTopic)
	go h.processCommands(ctx)
	return nil
}

// Stop unsubscribes from the control topic.
func (h *Handler) Stop() {
	if h.client != nil && h.client.IsConnected() {
		h.client.Unsubscribe(h.cfg.ControlTopic).Wait()
	}
	slog.Info("control: handler stopped")
}

func (h *Handler) messageHandler(client mqtt.Client, msg mqtt.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		slog.Error("control: failed to parse command", "error", err)
		h.sendResponse(Response{
			CommandAck: "unknown",
			Status:     "error",
			Error:      "invalid JSON",
		})
		return
	}

	slog.Info("control: command received", "command", cmd.Command)
	select {
	case h.commands <- cmd:
	default:
		slog.Warn("control: command queue full, dropping", "command", cmd.Command)
	}
}

func (h *Handler) processCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.commands:
			h.sendResponse(h.handleCommand(cmd))
		}
	}
}

// handleCommand executes one command and builds its acknowledgement.
func (h *Handler) handleCommand(cmd Command) Response {
	resp := Response{CommandAck: cmd.Command, Status: "success"}

	fail := func(err error) Response {
		resp.Status = "error"
		resp.Error = err.Error()
		return resp
	}
	notImplemented := func() Response {
		return fail(fmt.Errorf("%s not implemented", cmd.Command))
	}

	switch cmd.Command {
	case "get_status":
		if h.callbacks.OnGetStatus == nil {
			return notImplemented()
		}
		resp.Data = h.callbacks.OnGetStatus()

	case "pause":
		if h.callbacks.OnPause == nil {
			return notImplemented()
		}
		if err := h.callbacks.OnPause(); err != nil {
			return fail(err)
		}
		resp.Data = map[string]interface{}{"running": false}

	case "resume":
		if h.callbacks.OnResume == nil {
			return notImplemented()
		}
		if err := h.callbacks.OnResume(); err != nil {
			return fail(err)
		}
		resp.Data = map[string]interface{}{"running": true}

	case "update_depth":
		if h.callbacks.OnUpdateDepth == nil {
			return notImplemented()
		}
		if err := h.callbacks.OnUpdateDepth(cmd.Params); err != nil {
			return fail(err)
		}

	case "update_camera":
		if h.callbacks.OnUpdateCamera == nil {
			return notImplemented()
		}
		if err := h.callbacks.OnUpdateCamera(cmd.Params); err != nil {
			return fail(err)
		}

	case "select_preview":
		if h.callbacks.OnSelectPreview == nil {
			return notImplemented()
		}
		name, ok := cmd.Params["name"].(string)
		if !ok {
			return fail(fmt.Errorf("missing or invalid 'name' parameter (expected string)"))
		}
		if err := h.callbacks.OnSelectPreview(name); err != nil {
			return fail(err)
		}
		resp.Data = map[string]interface{}{"preview": name}

	case "shutdown":
		if h.callbacks.OnShutdown == nil {
			return notImplemented()
		}
		if err := h.callbacks.OnShutdown(); err != nil {
			return fail(err)
		}

	default:
		return fail(fmt.Errorf("unknown command %q", cmd.Command))
	}

	return resp
}

func (h *Handler) sendResponse(resp Response) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("control: failed to encode response", "error", err)
		return
	}

	token := h.pub.Publish(h.cfg.ResponseTopic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		slog.Warn("control: response publish timeout", "command", resp.CommandAck)
		return
	}
	if err := token.Error(); err != nil {
		slog.Warn("control: response publish failed", "command", resp.CommandAck, "error", err)
	}
}
