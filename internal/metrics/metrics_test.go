package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	handler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	handler.ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestUpdateAppliesExecutionDelta(t *testing.T) {
	c := New()
	tr := NewDeltaTracker()

	c.Update(Sample{Executions: 100, UniqueEdges: 5, CorpusSize: 3, CrashCount: 1, ActiveWorkers: 4}, tr)
	c.Update(Sample{Executions: 150, UniqueEdges: 6, CorpusSize: 4, CrashCount: 1, ActiveWorkers: 4}, tr)

	body := scrape(t, c)
	if !strings.Contains(body, "covfuzz_executions_total 150") {
		t.Fatalf("expected cumulative executions of 150, got:\n%s", body)
	}
	if !strings.Contains(body, "covfuzz_edges_known 6") {
		t.Fatalf("expected edges_known gauge of 6, got:\n%s", body)
	}
	if !strings.Contains(body, "covfuzz_crashes_found_total 1") {
		t.Fatalf("expected crashes_found_total of 1 (no new crashes in the second sample), got:\n%s", body)
	}
}

func TestUpdateIgnoresNonIncreasingCounters(t *testing.T) {
	c := New()
	tr := NewDeltaTracker()

	c.Update(Sample{Executions: 100, CrashCount: 2}, tr)
	c.Update(Sample{Executions: 100, CrashCount: 2}, tr)

	body := scrape(t, c)
	if !strings.Contains(body, "covfuzz_executions_total 100") {
		t.Fatalf("expected executions to remain 100, got:\n%s", body)
	}
}
