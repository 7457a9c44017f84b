// Package report builds the session and crash summaries printed by the
// `show` subcommand and served to the web dashboard (SPEC_FULL.md §4.8,
// §6), adapted from the teacher's internal/report.Manager/Generator
// abstraction: a Report is a plain data snapshot, and registered
// Generators render it to a writer in a particular format.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// CrashSummary is one entry from the crash directory, truncated for
// display per §6 ("print each recorded crash's path and truncated
// payload").
type CrashSummary struct {
	Hash        string    `json:"hash"`
	Size        int       `json:"size"`
	ErrorText   string    `json:"error_text,omitempty"`
	PayloadPeek string    `json:"payload_peek"`
	FirstSeen   time.Time `json:"first_seen,omitempty"`
}

// Stats is a point-in-time snapshot of session counters, duplicated
// from orchestrator.Stats's shape so this package has no import-cycle
// risk through a future orchestrator dependency on report.
type Stats struct {
	Executions    uint64        `json:"executions"`
	UniqueEdges   int           `json:"unique_edges"`
	CorpusSize    int           `json:"corpus_size"`
	CrashCount    uint64        `json:"crash_count"`
	ActiveWorkers int           `json:"active_workers"`
	Uptime        time.Duration `json:"uptime"`
}

// Report is a point-in-time snapshot of a fuzzing session: its
// statistics and, for `show`, the recorded crashes.
type Report struct {
	Target      string         `json:"target"`
	GeneratedAt time.Time      `json:"generated_at"`
	Stats       Stats          `json:"stats"`
	Crashes     []CrashSummary `json:"crashes,omitempty"`
}

// NewReport creates an empty report for target.
func NewReport(target string) *Report {
	return &Report{Target: target, GeneratedAt: time.Now()}
}

// peekLen bounds how many payload bytes a generator shows inline; the
// full bytes remain on disk under the crash directory regardless.
const peekLen = 64

// Peek returns a printable, length-bounded preview of data.
func Peek(data []byte) string {
	n := len(data)
	if n > peekLen {
		n = peekLen
	}
	s := fmt.Sprintf("%q", data[:n])
	if len(data) > peekLen {
		s += "..."
	}
	return s
}

// Generator renders a Report to w in a particular format.
type Generator interface {
	Generate(report *Report, w io.Writer) error
	Extension() string
}

// Manager dispatches report generation by format name and, for
// `--output DIR`-style use, writes the result to a timestamped file.
type Manager struct {
	generators map[string]Generator
	outputDir  string
}

// NewManager returns a Manager with the built-in JSON and text
// generators registered.
func NewManager(outputDir string) *Manager {
	m := &Manager{
		generators: make(map[string]Generator),
		outputDir:  outputDir,
	}
	m.RegisterGenerator("json", &JSONGenerator{Indent: true})
	m.RegisterGenerator("text", &TextGenerator{})
	return m
}

// RegisterGenerator adds or replaces the generator for format.
func (m *Manager) RegisterGenerator(format string, gen Generator) {
	m.generators[format] = gen
}

// GetGenerator returns the generator registered for format.
func (m *Manager) GetGenerator(format string) (Generator, bool) {
	gen, ok := m.generators[format]
	return gen, ok
}

// WriteToWriter renders report in format directly to w, skipping the
// file-creation path below; this is what `show` uses.
func (m *Manager) WriteToWriter(report *Report, format string, w io.Writer) error {
	gen, ok := m.generators[format]
	if !ok {
		return fmt.Errorf("unknown report format: %s", format)
	}
	return gen.Generate(report, w)
}

// Generate renders report in format and writes it to a timestamped
// file under the Manager's output directory, returning the file path.
func (m *Manager) Generate(report *Report, format string) (string, error) {
	gen, ok := m.generators[format]
	if !ok {
		return "", fmt.Errorf("unknown report format: %s", format)
	}

	if err := os.MkdirAll(m.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	timestamp := report.GeneratedAt.Format("20060102_150405")
	name := fmt.Sprintf("report_%s.%s", timestamp, gen.Extension())
	path := filepath.Join(m.outputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := gen.Generate(report, f); err != nil {
		return "", fmt.Errorf("generate report: %w", err)
	}
	return path, nil
}
