package telemetry

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewJSONFormatProducesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: FormatJSON, Level: "info", Output: &buf})
	log.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"message":"hello"`) {
		t.Fatalf("expected JSON log line, got %s", buf.String())
	}
}

func TestNewTextFormatProducesConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: FormatText, Level: "info", Output: &buf})
	log.Info().Msg("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected console log line to contain message, got %s", buf.String())
	}
}

func TestNewWarnLevelSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: FormatJSON, Level: "warn", Output: &buf})
	log.Info().Msg("should be suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected info line to be suppressed at warn level, got %s", buf.String())
	}
	log.Warn().Msg("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatal("expected warn line to appear")
	}
}
