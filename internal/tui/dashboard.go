package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/covfuzz/covfuzz/internal/report"
)

// RunState mirrors the subset of orchestrator.State the dashboard cares
// about, duplicated here (rather than imported) so this package has no
// dependency on internal/orchestrator — cmd/covfuzz wires the two
// together.
type RunState int

const (
	StateRunning RunState = iota
	StateDraining
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	default:
		return "STOPPED"
	}
}

// LogEntry is one line in the dashboard's scrolling activity panel.
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
}

// StatsMsg carries a fresh stats snapshot into the bubbletea Update
// loop; cmd/covfuzz pushes these in from the orchestrator's OnStats
// callback via statsCmd's channel read.
type StatsMsg report.Stats

// LogMsg carries one log line into the dashboard.
type LogMsg LogEntry

// Dashboard is the bubbletea model for `covfuzz fuzz --tui`.
type Dashboard struct {
	width, height int

	target   string
	state    RunState
	maxTime  time.Duration
	progress *ProgressBar
	spinner  *Spinner

	stats StatsMsg
	start time.Time

	logs    []LogEntry
	maxLogs int

	statsCh <-chan report.Stats
	logCh   <-chan LogEntry
}

// New creates a Dashboard for target, reading stats and log updates
// off the given channels as they arrive.
func New(target string, maxTime time.Duration, statsCh <-chan report.Stats, logCh <-chan LogEntry) *Dashboard {
	return &Dashboard{
		width:    80,
		height:   24,
		target:   target,
		state:    StateRunning,
		maxTime:  maxTime,
		progress: NewProgressBar(70),
		spinner:  NewSpinner(),
		start:    time.Now(),
		maxLogs:  200,
		statsCh:  statsCh,
		logCh:    logCh,
	}
}

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tickCmd(), waitForStats(d.statsCh), waitForLog(d.logCh))
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForStats(ch <-chan report.Stats) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return StatsMsg(s)
	}
}

func waitForLog(ch <-chan LogEntry) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return LogMsg(e)
	}
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.progress.SetWidth(d.width - 4)

	case tickMsg:
		d.spinner.Tick()
		if d.maxTime > 0 {
			d.progress.SetProgress(time.Since(d.start).Seconds() / d.maxTime.Seconds())
		}
		return d, tickCmd()

	case StatsMsg:
		d.stats = msg
		return d, waitForStats(d.statsCh)

	case LogMsg:
		d.logs = append(d.logs, LogEntry(msg))
		if len(d.logs) > d.maxLogs {
			d.logs = d.logs[len(d.logs)-d.maxLogs:]
		}
		return d, waitForLog(d.logCh)
	}
	return d, nil
}

func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(d.renderHeader())
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, d.renderStatsPanel(), d.renderLogPanel()))
	b.WriteString("\n")
	if d.maxTime > 0 {
		b.WriteString(d.progress.Render())
		b.WriteString("\n")
	}
	b.WriteString(FooterStyle.Render(RenderHelp("q", "quit")))
	return b.String()
}

func (d *Dashboard) renderHeader() string {
	title := TitleStyle.Render("⚡ covfuzz")

	var statusText string
	switch d.state {
	case StateRunning:
		statusText = RunningStyle.Render(d.spinner.Render() + " RUNNING")
	case StateDraining:
		statusText = DrainStyle.Render("⏸ DRAINING")
	default:
		statusText = StoppedStyle.Render("■ STOPPED")
	}

	target := LabelStyle.Render("Target: ") + InfoStyle.Render(d.target)

	left := title + "  " + statusText
	padding := d.width - lipgloss.Width(left) - lipgloss.Width(target) - 4
	if padding < 0 {
		padding = 0
	}
	return BoxStyle.Width(d.width - 2).Render(left + strings.Repeat(" ", padding) + target)
}

func (d *Dashboard) renderStatsPanel() string {
	s := d.stats
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("📊 Session"))
	b.WriteString("\n\n")
	b.WriteString(RenderLabelValue("Executions", fmt.Sprintf("%d", s.Executions)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Exec/sec", fmt.Sprintf("%.1f", execPerSec(s, d.start))))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Edges", fmt.Sprintf("%d", s.UniqueEdges)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Corpus", fmt.Sprintf("%d", s.CorpusSize)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Crashes", fmt.Sprintf("%d", s.CrashCount)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Workers", fmt.Sprintf("%d", s.ActiveWorkers)))
	b.WriteString("\n")
	b.WriteString(RenderLabelValue("Uptime", s.Uptime.Truncate(time.Second).String()))
	return StatsPanelStyle.Width(d.width/3).Render(b.String())
}

func execPerSec(s StatsMsg, start time.Time) float64 {
	elapsed := time.Since(start).Seconds()
	if elapsed < 1 {
		return 0
	}
	return float64(s.Executions) / elapsed
}

func (d *Dashboard) renderLogPanel() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("📝 Activity"))
	b.WriteString("\n\n")

	start := 0
	if len(d.logs) > 8 {
		start = len(d.logs) - 8
	}
	for _, entry := range d.logs[start:] {
		var style lipgloss.Style
		switch entry.Level {
		case "ERROR":
			style = ErrorStyle
		case "WARN":
			style = WarningStyle
		default:
			style = InfoStyle
		}
		line := fmt.Sprintf("%s %s %s", HelpStyle.Render(entry.Time.Format("15:04:05")), style.Render(entry.Level), entry.Message)
		maxWidth := d.width/2 - 10
		if maxWidth > 3 && len(line) > maxWidth {
			line = line[:maxWidth-3] + "..."
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return CrashPanelStyle.Width(d.width/2 - 4).Render(b.String())
}

// SetState updates the displayed run state (running/draining/stopped).
func (d *Dashboard) SetState(s RunState) {
	d.state = s
	if s != StateRunning {
		d.spinner.Stop()
	}
}

// Run blocks running the dashboard as a full-screen bubbletea program.
func Run(d *Dashboard) error {
	_, err := tea.NewProgram(d, tea.WithAltScreen()).Run()
	return err
}
