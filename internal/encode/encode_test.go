package encode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Aaron-MJohn/depthai/internal/config"
)

func TestOutputPath(t *testing.T) {
	if got := OutputPath("/tmp/rec", "color"); got != "/tmp/rec/color.mkv" {
		t.Errorf("OutputPath = %q", got)
	}
}

func TestPrepareCreatesDirAndMovesLeftovers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings")
	leftover := filepath.Join(dir, "color.mkv")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(leftover, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(config.EncodeConfig{
		Streams:   map[string]float64{"color": 30},
		OutputDir: dir,
	})
	if err := m.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Error("Expected previous recording to be moved aside")
	}
	if _, err := os.Stat(leftover + ".old"); err != nil {
		t.Errorf("Expected backup file: %v", err)
	}
}

func TestPrepareDisabled(t *testing.T) {
	m := NewManager(config.EncodeConfig{})
	if err := m.Prepare(); err != nil {
		t.Fatalf("Prepare with no streams should be a no-op: %v", err)
	}
	if m.Enabled() {
		t.Error("Expected disabled manager")
	}
}

func TestSummary(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "left.mkv"), []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(config.EncodeConfig{
		Streams:   map[string]float64{"left": 25, "right": 25},
		OutputDir: dir,
	})

	infos := m.Summary()
	if len(infos) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(infos))
	}
	byStream := map[string]FileInfo{}
	for _, info := range infos {
		byStream[info.Stream] = info
	}
	if byStream["left"].Bytes != 10 {
		t.Errorf("Expected 10 bytes for left, got %d", byStream["left"].Bytes)
	}
	if byStream["right"].Bytes != 0 {
		t.Errorf("Expected 0 bytes for missing right recording, got %d", byStream["right"].Bytes)
	}
}
