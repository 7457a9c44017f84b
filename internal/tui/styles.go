// Package tui implements the optional --tui full-screen dashboard
// (SPEC_FULL.md §4.6, §6), adapted from the teacher's internal/ui
// package: the same bubbletea/lipgloss panel layout and color palette,
// now driven by execution/edge/corpus/crash counters instead of
// HTTP-fuzzing statistics.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorRed     = lipgloss.Color("#FF0055")

	ColorDarkBg   = lipgloss.Color("#0D0D0D")
	ColorHeaderBg = lipgloss.Color("#16213E")

	ColorDimText    = lipgloss.Color("#666666")
	ColorBrightText = lipgloss.Color("#FFFFFF")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan).
			Background(ColorHeaderBg).
			Padding(0, 1).
			MarginBottom(1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorMagenta).
			Background(ColorHeaderBg).
			Padding(0, 2)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorCyan).
			Padding(1, 2).
			MarginRight(1)

	StatsPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMagenta).
			Padding(1, 2)

	CrashPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorRed).
			Padding(0, 1).
			Height(10)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorDimText).
			Width(15)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorBrightText).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorYellow)
	InfoStyle    = lipgloss.NewStyle().Foreground(ColorCyan)

	RunningStyle = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	DrainStyle   = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	StoppedStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)

	FooterStyle = lipgloss.NewStyle().Foreground(ColorDimText).MarginTop(1)
	KeyStyle    = lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)
	HelpStyle   = lipgloss.NewStyle().Foreground(ColorDimText)

	ProgressFullStyle  = lipgloss.NewStyle().Foreground(ColorCyan)
	ProgressEmptyStyle = lipgloss.NewStyle().Foreground(ColorDimText)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorCyan)

	SpinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

// RenderLabel renders a label with consistent styling.
func RenderLabel(label string) string {
	return LabelStyle.Render(label + ":")
}

// RenderLabelValue renders a label-value pair.
func RenderLabelValue(label, value string) string {
	return RenderLabel(label) + " " + ValueStyle.Render(value)
}

// RenderKey renders a keyboard key.
func RenderKey(key string) string {
	return KeyStyle.Render("[" + key + "]")
}

// RenderHelp renders a single help-line entry.
func RenderHelp(key, description string) string {
	return RenderKey(key) + " " + HelpStyle.Render(description)
}

// MiniBanner is the compact title shown in the header.
const MiniBanner = "┌─ covfuzz ─────────────────────────────────────────────────────┐"
