package app

import (
	"strings"
	"testing"

	"github.com/Aaron-MJohn/depthai/internal/config"
	"github.com/Aaron-MJohn/depthai/internal/fps"
	"github.com/Aaron-MJohn/depthai/internal/queue"
)

func newTestDemo() *Demo {
	cfg := config.Default()
	cfg.Tuning.Controls = true
	return New(cfg, Callbacks{})
}

func TestHandleKeyQuit(t *testing.T) {
	for _, key := range []int{'q', keyEscape} {
		d := newTestDemo()
		d.handleKey(key)
		if !d.stopReq.Load() {
			t.Errorf("Key %d should request stop", key)
		}
	}
}

func TestHandleKeyIgnoresNoKey(t *testing.T) {
	d := newTestDemo()
	d.handleKey(-1)
	if d.stopReq.Load() {
		t.Error("No key should not change anything")
	}
}

func TestHandleKeyMedianCycle(t *testing.T) {
	d := newTestDemo()
	start := d.cfg.Depth.Median

	seen := map[config.MedianFilter]bool{start: true}
	for i := 0; i < 3; i++ {
		d.handleKey('m')
		seen[d.cfg.Depth.Median] = true
	}
	if len(seen) != 4 {
		t.Errorf("Expected 4 distinct median settings over a full cycle, got %d", len(seen))
	}

	d.handleKey('m')
	if d.cfg.Depth.Median != start {
		t.Errorf("Median should wrap back to %v, got %v", start, d.cfg.Depth.Median)
	}
}

func TestHandleKeyExposurePairsSensitivity(t *testing.T) {
	d := newTestDemo()

	d.handleKey('t')
	if d.cfg.Tuning.Exposure == nil || *d.cfg.Tuning.Exposure != 10000 {
		t.Fatalf("First exposure step should leave auto at 10000, got %v", d.cfg.Tuning.Exposure)
	}
	if d.cfg.Tuning.Sensitivity == nil {
		t.Error("Manual exposure must pair sensitivity out of auto")
	}

	d.handleKey('t')
	if *d.cfg.Tuning.Exposure != 10500 {
		t.Errorf("Expected 10500 after second step, got %d", *d.cfg.Tuning.Exposure)
	}
	d.handleKey('g')
	d.handleKey('g')
	if *d.cfg.Tuning.Exposure != 9500 {
		t.Errorf("Expected 9500 after stepping down twice, got %d", *d.cfg.Tuning.Exposure)
	}
}

func TestHandleKeyTuningDisabled(t *testing.T) {
	d := newTestDemo()
	d.cfg.Tuning.Controls = false

	d.handleKey('t')
	if d.cfg.Tuning.Exposure != nil {
		t.Error("Tuning keys should be inert with controls disabled")
	}

	// Median cycling works regardless.
	before := d.cfg.Depth.Median
	d.handleKey('m')
	if d.cfg.Depth.Median == before {
		t.Error("Median key should work without tuning controls")
	}
}

func TestFrameBufferPairsResults(t *testing.T) {
	b := newFrameBuffer(4)
	for seq := uint64(1); seq <= 6; seq++ {
		b.add(&queue.Frame{Seq: seq})
	}

	// Capacity 4: seqs 1 and 2 already fell out.
	if f := b.take(2); f != nil {
		t.Errorf("Expected evicted frame to be gone, got %+v", f)
	}

	f := b.take(5)
	if f == nil || f.Seq != 5 {
		t.Fatalf("Expected frame 5, got %+v", f)
	}
	// Taking 5 discards everything older.
	if f := b.take(4); f != nil {
		t.Errorf("Expected older frames discarded, got %+v", f)
	}
	if f := b.take(6); f == nil {
		t.Error("Frame 6 should still be available")
	}
	if b.len() != 0 {
		t.Errorf("Expected empty buffer, got %d", b.len())
	}
}

func TestParseDepthParams(t *testing.T) {
	dc := config.Default().Depth

	err := parseDepthParams(map[string]interface{}{
		"median":     float64(5),
		"confidence": float64(200),
		"lr_check":   true,
		"extended":   true,
		"subpixel":   true,
		"min_depth":  float64(200),
		"max_depth":  float64(5000),
	}, &dc)
	if err != nil {
		t.Fatalf("parseDepthParams failed: %v", err)
	}
	if int(dc.Median) != 5 || dc.Confidence != 200 || !dc.LRCheck {
		t.Errorf("Params not applied: %+v", dc)
	}
	if !dc.Extended || !dc.Subpixel {
		t.Errorf("Disparity mode not applied: %+v", dc)
	}
	if dc.MinDepth != 200 || dc.MaxDepth != 5000 {
		t.Errorf("Depth range not applied: %+v", dc)
	}
}

func TestParseDepthParamsRejectsInvertedRange(t *testing.T) {
	dc := config.Default().Depth
	before := dc

	err := parseDepthParams(map[string]interface{}{
		"max_depth": float64(50),
	}, &dc)
	if err == nil {
		t.Fatal("Expected range error for max below min")
	}
	if dc != before {
		t.Errorf("Failed update must not partially apply: %+v", dc)
	}
}

func TestParseDepthParamsRejectsAtomically(t *testing.T) {
	dc := config.Default().Depth
	before := dc

	err := parseDepthParams(map[string]interface{}{
		"median":     float64(5),
		"confidence": float64(999),
	}, &dc)
	if err == nil {
		t.Fatal("Expected range error")
	}
	if dc != before {
		t.Errorf("Failed update must not partially apply: %+v", dc)
	}
}

func TestParseCameraParams(t *testing.T) {
	var tun config.Tuning

	err := parseCameraParams(map[string]interface{}{
		"exposure":   float64(8000),
		"saturation": float64(-3),
	}, &tun)
	if err != nil {
		t.Fatalf("parseCameraParams failed: %v", err)
	}
	if tun.Exposure == nil || *tun.Exposure != 8000 {
		t.Errorf("Exposure not applied: %+v", tun)
	}
	if tun.Saturation == nil || *tun.Saturation != -3 {
		t.Errorf("Saturation not applied: %+v", tun)
	}
	if tun.Contrast != nil {
		t.Error("Untouched values must stay automatic")
	}
}

func TestParseCameraParamsRejections(t *testing.T) {
	tests := []map[string]interface{}{
		{"exposure": float64(50000)},
		{"sensitivity": float64(10)},
		{"sharpness": float64(9)},
		{"brightness": "bright"},
	}
	for _, params := range tests {
		var tun config.Tuning
		if err := parseCameraParams(params, &tun); err == nil {
			t.Errorf("Expected rejection for %v", params)
		}
	}
}

func TestControlPauseResume(t *testing.T) {
	d := newTestDemo()
	cb := d.controlCallbacks()

	if err := cb.OnPause(); err != nil {
		t.Fatal(err)
	}
	if !d.paused.Load() {
		t.Error("Expected paused")
	}
	if err := cb.OnResume(); err != nil {
		t.Fatal(err)
	}
	if d.paused.Load() {
		t.Error("Expected resumed")
	}
}

// TestStatusConcurrentWithSwaps exercises the status snapshot against
// the manager swaps the loop performs; meaningful under the race
// detector.
func TestStatusConcurrentWithSwaps(t *testing.T) {
	d := newTestDemo()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			d.status()
		}
	}()

	for i := 0; i < 200; i++ {
		d.swapFPSHandler(fps.New(nil))
		d.swapPipeline(nil)
	}
	<-done
}

func TestStatusSnapshot(t *testing.T) {
	d := newTestDemo()
	st := d.status()

	if _, ok := st["median"]; !ok {
		t.Errorf("Status missing median: %v", st)
	}
	if paused, _ := st["paused"].(bool); paused {
		t.Error("Fresh demo should not be paused")
	}
	if m, _ := st["median"].(string); !strings.Contains(m, "7") {
		t.Errorf("Default median should be 7x7, got %q", m)
	}
}
