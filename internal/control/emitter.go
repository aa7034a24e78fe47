// Package control is the remote control surface: an MQTT command
// channel mirroring the keyboard bindings, with acknowledgements, and
// a telemetry emitter publishing system reports.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Aaron-MJohn/depthai/internal/config"
	"github.com/Aaron-MJohn/depthai/internal/report"
)

// publishTimeout bounds every broker round trip.
const publishTimeout = 2 * time.Second

// reportPayload is the msgpack telemetry wire format.
type reportPayload struct {
	Timestamp  int64   `msgpack:"ts"`
	TempC      float64 `msgpack:"temp_c"`
	CPUPercent float64 `msgpack:"cpu_pct"`
	MemPercent float64 `msgpack:"mem_pct"`
	MemUsed    uint64  `msgpack:"mem_used"`
	MemTotal   uint64  `msgpack:"mem_total"`
}

// Emitter owns the MQTT connection, shared with the command handler.
type Emitter struct {
	cfg    config.MQTTConfig
	Client mqtt.Client
	pub    publisher

	mu        sync.Mutex
	connected bool
	published uint64
	errors    uint64
}

// NewEmitter prepares an emitter; Connect establishes the session.
func NewEmitter(cfg config.MQTTConfig) *Emitter {
	return &Emitter{cfg: cfg}
}

// Connect establishes the broker session with automatic reconnection.
func (e *Emitter) Connect(ctx context.Context) error {
	clientID := e.cfg.ClientID
	if clientID == "" {
		clientID = "depthai-demo-" + uuid.New().String()[:8]
	}

	broker := e.cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.mu.Lock()
		e.connected = true
		e.mu.Unlock()
		slog.Info("control: mqtt connected", "broker", broker, "client_id", clientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.mu.Lock()
		e.connected = false
		e.mu.Unlock()
		slog.Warn("control: mqtt connection lost, will auto-reconnect", "error", err)
	}

	e.Client = mqtt.NewClient(opts)
	e.pub = e.Client

	token := e.Client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()
	return nil
}

// PublishReport sends one telemetry sample, msgpack encoded. QoS 0,
// fire and forget: the demo loop calls this between frames and must
// never wait on a degraded broker. Delivery outcome lands in the
// counters, not in the return value.
func (e *Emitter) PublishReport(s report.Sample) error {
	if !e.isConnected() {
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := msgpack.Marshal(reportPayload{
		Timestamp:  s.Timestamp.Unix(),
		TempC:      s.TempC,
		CPUPercent: s.CPUPercent,
		MemPercent: s.MemPercent,
		MemUsed:    s.MemUsed,
		MemTotal:   s.MemTotal,
	})
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	token := e.pub.Publish(e.cfg.ReportTopic, 0, false, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			e.countError()
			return
		}
		if err := token.Error(); err != nil {
			e.countError()
			slog.Debug("control: report publish failed", "error", err)
			return
		}
		e.mu.Lock()
		e.published++
		e.mu.Unlock()
	}()
	return nil
}

func (e *Emitter) isConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

func (e *Emitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}

// Disconnect ends the session.
func (e *Emitter) Disconnect() {
	if e.Client != nil && e.Client.IsConnected() {
		e.Client.Disconnect(250)
	}

	e.mu.Lock()
	published, errs := e.published, e.errors
	e.mu.Unlock()
	slog.Info("control: mqtt disconnected", "published", published, "errors", errs)
}
