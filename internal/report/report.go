// Package report samples host telemetry (temperature, CPU, memory) on
// an interval and emits it as CSV rows, to a file or to the log.
package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Aaron-MJohn/depthai/internal/config"
)

// Sample is one telemetry snapshot.
type Sample struct {
	Timestamp  time.Time
	TempC      float64
	CPUPercent float64
	MemPercent float64
	MemUsed    uint64
	MemTotal   uint64
}

// Sampler collects one snapshot. The production implementation reads
// gopsutil; tests substitute a fake.
type Sampler func() (Sample, error)

// HostSampler reads the local machine.
func HostSampler() (Sample, error) {
	s := Sample{Timestamp: time.Now()}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		s.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return s, fmt.Errorf("memory stats unavailable: %w", err)
	}
	s.MemPercent = vm.UsedPercent
	s.MemUsed = vm.Used
	s.MemTotal = vm.Total

	// Average over all sensors; per-sensor detail is more than the
	// report needs.
	if temps, err := host.SensorsTemperatures(); err == nil && len(temps) > 0 {
		var sum float64
		var n int
		for _, t := range temps {
			if t.Temperature == 0 {
				continue
			}
			sum += t.Temperature
			n++
		}
		if n > 0 {
			s.TempC = sum / float64(n)
		}
	}

	return s, nil
}

// OnReport is called with every emitted sample, after the CSV write.
type OnReport func(Sample)

// Manager emits telemetry on the configured interval.
type Manager struct {
	cfg     config.ReportConfig
	sampler Sampler
	clk     clock.Clock
	cb      OnReport

	file      *os.File
	writer    *csv.Writer
	wroteHead bool
	nextDue   time.Time
}

// NewManager builds a report manager with the host sampler.
func NewManager(cfg config.ReportConfig, cb OnReport) *Manager {
	return newManager(cfg, HostSampler, clock.New(), cb)
}

func newManager(cfg config.ReportConfig, sampler Sampler, clk clock.Clock, cb OnReport) *Manager {
	return &Manager{cfg: cfg, sampler: sampler, clk: clk, cb: cb}
}

// Enabled reports whether any telemetry was requested.
func (m *Manager) Enabled() bool { return m.cfg.Enabled() }

// Open prepares the CSV file when one is configured.
func (m *Manager) Open() error {
	if !m.cfg.Enabled() || m.cfg.File == "" {
		return nil
	}

	f, err := os.OpenFile(m.cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open report file: %w", err)
	}
	m.file = f
	m.writer = csv.NewWriter(f)

	// Header only on a fresh file; appending to an existing report
	// keeps the original header.
	if st, err := f.Stat(); err == nil && st.Size() > 0 {
		m.wroteHead = true
	}
	return nil
}

// Poll emits a sample when the interval elapsed. Called every loop
// iteration; cheap when nothing is due.
func (m *Manager) Poll() {
	if !m.cfg.Enabled() {
		return
	}

	now := m.clk.Now()
	if now.Before(m.nextDue) {
		return
	}
	m.nextDue = now.Add(m.cfg.Interval)

	sample, err := m.sampler()
	if err != nil {
		slog.Warn("report: sampling failed", "error", err)
		return
	}

	if m.writer != nil {
		m.writeCSV(sample)
	} else {
		m.logSample(sample)
	}
	if m.cb != nil {
		m.cb(sample)
	}
}

func (m *Manager) writeCSV(s Sample) {
	if !m.wroteHead {
		if err := m.writer.Write(header(m.cfg.Types)); err != nil {
			slog.Warn("report: header write failed", "error", err)
			return
		}
		m.wroteHead = true
	}
	if err := m.writer.Write(row(s, m.cfg.Types)); err != nil {
		slog.Warn("report: row write failed", "error", err)
		return
	}
	m.writer.Flush()
}

func (m *Manager) logSample(s Sample) {
	args := []any{}
	for _, typ := range m.cfg.Types {
		switch typ {
		case config.ReportTemp:
			args = append(args, "temp_c", fmt.Sprintf("%.1f", s.TempC))
		case config.ReportCPU:
			args = append(args, "cpu_pct", fmt.Sprintf("%.1f", s.CPUPercent))
		case config.ReportMemory:
			args = append(args, "mem_pct", fmt.Sprintf("%.1f", s.MemPercent))
		}
	}
	slog.Info("report: system", args...)
}

// Close flushes and closes the CSV file.
func (m *Manager) Close() error {
	if m.writer != nil {
		m.writer.Flush()
	}
	if m.file != nil {
		return m.file.Close()
	}
	return nil
}

// header builds the CSV header for the selected column groups.
func header(types []string) []string {
	head := []string{"timestamp"}
	for _, typ := range types {
		switch typ {
		case config.ReportTemp:
			head = append(head, "temp_c")
		case config.ReportCPU:
			head = append(head, "cpu_pct")
		case config.ReportMemory:
			head = append(head, "mem_pct", "mem_used", "mem_total")
		}
	}
	return head
}

// row formats one sample for the selected column groups, in header order.
func row(s Sample, types []string) []string {
	rec := []string{s.Timestamp.Format(time.RFC3339)}
	for _, typ := range types {
		switch typ {
		case config.ReportTemp:
			rec = append(rec, fmt.Sprintf("%.2f", s.TempC))
		case config.ReportCPU:
			rec = append(rec, fmt.Sprintf("%.2f", s.CPUPercent))
		case config.ReportMemory:
			rec = append(rec,
				fmt.Sprintf("%.2f", s.MemPercent),
				fmt.Sprintf("%d", s.MemUsed),
				fmt.Sprintf("%d", s.MemTotal))
		}
	}
	return rec
}
