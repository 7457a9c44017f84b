package tui

import (
	"time"

	"github.com/covfuzz/covfuzz/internal/report"
	tea "github.com/charmbracelet/bubbletea"
	"testing"
)

func TestNewDashboardStartsInRunningState(t *testing.T) {
	statsCh := make(chan report.Stats)
	logCh := make(chan LogEntry)
	d := New("demo", 0, statsCh, logCh)
	if d.state != StateRunning {
		t.Fatalf("expected initial state RUNNING, got %v", d.state)
	}
}

func TestUpdateAppliesStatsMsg(t *testing.T) {
	d := New("demo", 0, nil, nil)
	model, _ := d.Update(StatsMsg(report.Stats{Executions: 500, UniqueEdges: 12}))
	got := model.(*Dashboard)
	if got.stats.Executions != 500 || got.stats.UniqueEdges != 12 {
		t.Fatalf("expected stats to be applied, got %+v", got.stats)
	}
}

func TestUpdateTrimsLogBacklog(t *testing.T) {
	d := New("demo", 0, nil, nil)
	d.maxLogs = 3
	for i := 0; i < 5; i++ {
		model, _ := d.Update(LogMsg(LogEntry{Time: time.Now(), Level: "INFO", Message: "tick"}))
		d = model.(*Dashboard)
	}
	if len(d.logs) != 3 {
		t.Fatalf("expected log backlog trimmed to 3, got %d", len(d.logs))
	}
}

func TestUpdateQuitsOnCtrlC(t *testing.T) {
	d := New("demo", 0, nil, nil)
	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
}

func TestProgressReflectsElapsedFractionOfMaxTime(t *testing.T) {
	d := New("demo", 10*time.Second, nil, nil)
	d.start = time.Now().Add(-5 * time.Second)
	model, _ := d.Update(tickMsg(time.Now()))
	got := model.(*Dashboard)
	if got.progress.percentage < 0.4 || got.progress.percentage > 0.6 {
		t.Fatalf("expected progress near 0.5, got %f", got.progress.percentage)
	}
}
