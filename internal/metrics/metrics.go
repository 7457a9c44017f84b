// Package metrics exposes the optional --metrics-addr Prometheus
// endpoint (SPEC_FULL.md §11): executions-total, edges-known,
// corpus-size, and crashes-found, served via promhttp.Handler. Unlike
// the retrieval pack's jhkimqd-chaos-utils repository, which uses
// prometheus/client_golang as a query-side API client reading an
// external server, this package uses its exporter side — the natural
// direction for a process that produces metrics rather than consumes
// them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus instruments updated from orchestrator
// stats, registered against a private registry so a library consumer
// embedding this package never collides with the default global one.
type Collector struct {
	registry   *prometheus.Registry
	executions prometheus.Counter
	edges      prometheus.Gauge
	corpusSize prometheus.Gauge
	crashes    prometheus.Counter
	workers    prometheus.Gauge
}

// New constructs a Collector with all instruments registered.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		executions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "covfuzz",
			Name:      "executions_total",
			Help:      "Total target invocations across all workers.",
		}),
		edges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "covfuzz",
			Name:      "edges_known",
			Help:      "Number of distinct coverage edges observed so far.",
		}),
		corpusSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "covfuzz",
			Name:      "corpus_size",
			Help:      "Number of samples currently held in the canonical corpus.",
		}),
		crashes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "covfuzz",
			Name:      "crashes_found_total",
			Help:      "Total distinct crashing inputs recorded to the crash directory.",
		}),
		workers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "covfuzz",
			Name:      "active_workers",
			Help:      "Number of live worker subprocesses.",
		}),
	}
}

// Sample is the subset of orchestrator.Stats the collector needs;
// declared locally so this package has no dependency on
// internal/orchestrator.
type Sample struct {
	Executions    uint64
	UniqueEdges   int
	CorpusSize    int
	CrashCount    uint64
	ActiveWorkers int
}

// lastExecutions and lastCrashes track the previous counter values so
// Update can add only the delta: orchestrator.Stats carries
// monotonically increasing totals, but prometheus.Counter only exposes
// Add, not Set.
type deltaTracker struct {
	lastExecutions uint64
	lastCrashes    uint64
}

// Update applies the latest stats sample to the registered instruments.
// It is safe to call from the orchestrator's single-threaded stat
// ticker only; Collector itself does not synchronize concurrent calls.
func (c *Collector) Update(s Sample, tracker *deltaTracker) {
	if s.Executions > tracker.lastExecutions {
		c.executions.Add(float64(s.Executions - tracker.lastExecutions))
		tracker.lastExecutions = s.Executions
	}
	if s.CrashCount > tracker.lastCrashes {
		c.crashes.Add(float64(s.CrashCount - tracker.lastCrashes))
		tracker.lastCrashes = s.CrashCount
	}
	c.edges.Set(float64(s.UniqueEdges))
	c.corpusSize.Set(float64(s.CorpusSize))
	c.workers.Set(float64(s.ActiveWorkers))
}

// NewDeltaTracker returns a zeroed tracker for use with Update.
func NewDeltaTracker() *deltaTracker {
	return &deltaTracker{}
}

// Serve starts an HTTP server exposing the registry at /metrics on
// addr, blocking until ctx is cancelled or the server fails to start.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
