package report

import (
	"fmt"
	"io"
)

// TextGenerator renders a Report as the plain stdout format `show`
// prints by default, replacing the teacher's HTML/Markdown generators
// (internal/report/html.go, markdown.go): neither an embedded
// dashboard page nor a Markdown table has a consumer in this domain,
// where the primary audience for a report is a terminal or the `show`
// subcommand's caller.
type TextGenerator struct{}

// Generate writes a human-readable summary of report to w.
func (g *TextGenerator) Generate(report *Report, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "target:          %s\n", report.Target); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "generated_at:    %s\n", report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")); err != nil {
		return err
	}
	s := report.Stats
	if _, err := fmt.Fprintf(w, "executions:      %d\n", s.Executions); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "unique_edges:    %d\n", s.UniqueEdges); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "corpus_size:     %d\n", s.CorpusSize); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "crash_count:     %d\n", s.CrashCount); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "active_workers:  %d\n", s.ActiveWorkers); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "uptime:          %s\n", s.Uptime); err != nil {
		return err
	}

	if len(report.Crashes) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\ncrashes (%d):\n", len(report.Crashes)); err != nil {
		return err
	}
	for _, c := range report.Crashes {
		if _, err := fmt.Fprintf(w, "  %s  (%d bytes)  %s\n    %s\n", c.Hash, c.Size, c.ErrorText, c.PayloadPeek); err != nil {
			return err
		}
	}
	return nil
}

// Extension returns the file extension used when writing this format
// to a file via Manager.Generate.
func (g *TextGenerator) Extension() string {
	return "txt"
}
