// Package encode owns the recording side of the demo: where encoded
// streams land on disk and what happened to them when the run ends.
// The encoding itself happens inside the capture pipeline; this package
// prepares the output area and reports on the files produced.
package encode

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Aaron-MJohn/depthai/internal/config"
)

// container is the on-disk format written by the pipeline muxer.
const container = ".mkv"

// OutputPath returns the recording path for a stream. The pipeline and
// the summary both resolve file names through here.
func OutputPath(dir, stream string) string {
	return filepath.Join(dir, stream+container)
}

// Manager tracks the configured recordings for one run.
type Manager struct {
	cfg config.EncodeConfig
}

// NewManager validates nothing; config validation already ran. It only
// captures the encode section.
func NewManager(cfg config.EncodeConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Enabled reports whether any stream records.
func (m *Manager) Enabled() bool { return m.cfg.Enabled() }

// Prepare creates the output directory and moves aside leftovers from
// a previous run so the muxer starts on fresh files.
func (m *Manager) Prepare() error {
	if !m.cfg.Enabled() {
		return nil
	}

	if err := os.MkdirAll(m.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create encode output dir: %w", err)
	}

	for stream := range m.cfg.Streams {
		path := OutputPath(m.cfg.OutputDir, stream)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		backup := path + ".old"
		if err := os.Rename(path, backup); err != nil {
			return fmt.Errorf("failed to move aside previous recording %s: %w", path, err)
		}
		slog.Info("encode: previous recording moved aside", "from", path, "to", backup)
	}
	return nil
}

// FileInfo describes one recording after the run.
type FileInfo struct {
	Stream string
	Path   string
	Bytes  int64
	FPS    float64
}

// Summary stats the recordings. Streams whose file never appeared
// (pipeline failed before the muxer wrote a header) report zero bytes.
func (m *Manager) Summary() []FileInfo {
	if !m.cfg.Enabled() {
		return nil
	}

	infos := make([]FileInfo, 0, len(m.cfg.Streams))
	for stream, fps := range m.cfg.Streams {
		info := FileInfo{
			Stream: stream,
			Path:   OutputPath(m.cfg.OutputDir, stream),
			FPS:    fps,
		}
		if st, err := os.Stat(info.Path); err == nil {
			info.Bytes = st.Size()
		}
		infos = append(infos, info)
	}
	return infos
}

// LogSummary writes the post-run recording report.
func (m *Manager) LogSummary() {
	for _, info := range m.Summary() {
		if info.Bytes == 0 {
			slog.Warn("encode: no data recorded", "stream", info.Stream, "path", info.Path)
			continue
		}
		slog.Info("encode: recording written",
			"stream", info.Stream,
			"path", info.Path,
			"bytes", info.Bytes,
			"fps", info.FPS,
		)
	}
}
