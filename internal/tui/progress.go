package tui

import (
	"fmt"
	"strings"
)

// ProgressBar renders a bounded-width completion bar, used when
// --max-time gives the dashboard a known session length to show
// progress against.
type ProgressBar struct {
	width      int
	percentage float64
}

// NewProgressBar creates a progress bar of the given character width.
func NewProgressBar(width int) *ProgressBar {
	return &ProgressBar{width: width}
}

// SetProgress sets the completion fraction, clamped to [0, 1].
func (p *ProgressBar) SetProgress(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	p.percentage = fraction
}

// SetWidth updates the bar's character width.
func (p *ProgressBar) SetWidth(width int) {
	p.width = width
}

// Render draws the bar plus a trailing percentage label.
func (p *ProgressBar) Render() string {
	barWidth := p.width - 8
	if barWidth < 10 {
		barWidth = 10
	}
	filled := int(float64(barWidth) * p.percentage)
	empty := barWidth - filled

	var b strings.Builder
	b.WriteString(ProgressFullStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(ProgressEmptyStyle.Render(strings.Repeat("░", empty)))
	b.WriteString(" ")
	b.WriteString(ValueStyle.Render(fmt.Sprintf("%5.1f%%", p.percentage*100)))
	return b.String()
}

// Spinner is an indeterminate-progress animation shown in the
// dashboard header while the session is running.
type Spinner struct {
	frame   int
	running bool
}

// NewSpinner creates a running spinner.
func NewSpinner() *Spinner {
	return &Spinner{running: true}
}

// Start resumes the animation.
func (s *Spinner) Start() { s.running = true }

// Stop freezes the animation on a checkmark.
func (s *Spinner) Stop() { s.running = false }

// Tick advances the animation by one frame.
func (s *Spinner) Tick() {
	if s.running {
		s.frame = (s.frame + 1) % len(SpinnerChars)
	}
}

// Render draws the current spinner frame.
func (s *Spinner) Render() string {
	if !s.running {
		return SuccessStyle.Render("✓")
	}
	return InfoStyle.Render(SpinnerChars[s.frame])
}
