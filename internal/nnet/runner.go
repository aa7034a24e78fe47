package nnet

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Request is one inference request sent to the runtime.
type Request struct {
	Seq     uint64 `json:"seq"`
	TraceID string `json:"trace_id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	// Frame is the base64-encoded interleaved RGB payload.
	Frame string `json:"frame"`
}

// rawDetection is the runtime's wire format for one detection.
type rawDetection struct {
	LabelID    int     `json:"label_id"`
	Confidence float64 `json:"confidence"`
	XMin       float64 `json:"xmin"`
	YMin       float64 `json:"ymin"`
	XMax       float64 `json:"xmax"`
	YMax       float64 `json:"ymax"`
	// Spatial coordinates in millimetres, zero when depth is off.
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// rawResult is the runtime's wire format for one inference answer.
type rawResult struct {
	Seq        uint64         `json:"seq"`
	TraceID    string         `json:"trace_id"`
	TimingMS   float64        `json:"timing_ms"`
	Detections []rawDetection `json:"detections"`
}

// Runner abstracts the inference runtime so tests can substitute a fake.
type Runner interface {
	// Start launches the runtime. Must be called before Send.
	Start(ctx context.Context) error

	// Send submits a request (non-blocking; drops when the runtime is behind).
	Send(req Request) bool

	// Results delivers decoded answers. Closed when the runtime exits.
	Results() <-chan rawResult

	// Stop terminates the runtime and waits for its exit.
	Stop() error
}

// procRunner runs the inference runtime as a subprocess speaking
// JSON lines on stdin/stdout. Stderr is forwarded to the log.
type procRunner struct {
	command   string
	modelPath string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	cancel context.CancelFunc
	wg     sync.WaitGroup

	input   chan Request
	results chan rawResult

	framesDropped atomic.Uint64
	started       bool
	mu            sync.Mutex
}

// NewRunner creates a subprocess runner for the given runtime command
// and model file.
func NewRunner(command, modelPath string) Runner {
	return &procRunner{
		command:   command,
		modelPath: modelPath,
		input:     make(chan Request, 5),
		results:   make(chan rawResult, 10),
	}
}

func (r *procRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("nnet: runner already started")
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.cmd = exec.CommandContext(ctx, r.command, "--model", r.modelPath)

	stdin, err := r.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("nnet: stdin pipe: %w", err)
	}
	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("nnet: stdout pipe: %w", err)
	}
	stderr, err := r.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("nnet: stderr pipe: %w", err)
	}

	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("nnet: failed to start inference runtime %q: %w", r.command, err)
	}
	r.stdin = stdin
	r.started = true

	slog.Info("nnet: inference runtime started",
		"command", r.command,
		"model", r.modelPath,
		"pid", r.cmd.Process.Pid,
	)

	r.wg.Add(3)
	go r.pumpRequests(ctx)
	go r.pumpResults(stdout)
	go r.pumpStderr(stderr)

	// Reap the process so a crashed runtime is logged, not zombied.
	go func() {
		err := r.cmd.Wait()
		switch {
		case err == nil:
			slog.Debug("nnet: inference runtime exited")
		case ctx.Err() != nil:
			slog.Debug("nnet: inference runtime stopped", "reason", ctx.Err())
		default:
			slog.Error("nnet: inference runtime crashed", "error", err)
		}
	}()

	return nil
}

// Send submits a request without blocking. Returns false when the
// input queue is full and the frame was dropped.
func (r *procRunner) Send(req Request) bool {
	select {
	case r.input <- req:
		return true
	default:
		r.framesDropped.Add(1)
		return false
	}
}

func (r *procRunner) Results() <-chan rawResult { return r.results }

// pumpRequests serializes requests onto the runtime's stdin.
func (r *procRunner) pumpRequests(ctx context.Context) {
	defer r.wg.Done()

	enc := json.NewEncoder(r.stdin)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-r.input:
			if err := enc.Encode(req); err != nil {
				slog.Error("nnet: failed to send frame to runtime",
					"seq", req.Seq, "error", err)
				return
			}
		}
	}
}

// pumpResults parses answer lines from the runtime's stdout.
func (r *procRunner) pumpResults(stdout io.Reader) {
	defer r.wg.Done()
	defer close(r.results)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var res rawResult
		if err := json.Unmarshal(line, &res); err != nil {
			slog.Warn("nnet: unparseable runtime output",
				"error", err, "line", truncate(string(line), 120))
			continue
		}

		select {
		case r.results <- res:
		default:
			slog.Warn("nnet: results queue full, dropping inference", "seq", res.Seq)
		}
	}
}

// pumpStderr forwards runtime log lines at a level matching theirs.
func (r *procRunner) pumpStderr(stderr io.Reader) {
	defer r.wg.Done()

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "[ERROR]"), strings.Contains(line, "[CRITICAL]"):
			slog.Error("nnet: runtime", "line", line)
		case strings.Contains(line, "[WARNING]"), strings.Contains(line, "[WARN]"):
			slog.Warn("nnet: runtime", "line", line)
		default:
			slog.Debug("nnet: runtime", "line", line)
		}
	}
}

func (r *procRunner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return nil
	}
	r.started = false

	r.cancel()
	r.stdin.Close()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		if r.cmd.Process != nil {
			r.cmd.Process.Kill()
		}
	}

	slog.Info("nnet: inference runtime stopped",
		"frames_dropped", r.framesDropped.Load())
	return nil
}

// EncodeFrame packs raw RGB bytes for the wire.
func EncodeFrame(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
