// Package orchestrator implements the single-process, reactive event
// loop described in SPEC_FULL.md §4.6: it owns the canonical Corpus and
// CoverageMap, spawns and supervises worker subprocesses, merges their
// reports, writes crashes, checkpoints state, and decides when to stop.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/covfuzz/covfuzz/internal/coverage"
	"github.com/covfuzz/covfuzz/internal/crashdir"
	"github.com/covfuzz/covfuzz/internal/memory"
	"github.com/covfuzz/covfuzz/internal/statestore"
	"github.com/covfuzz/covfuzz/pkg/types"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

// State is one of the orchestrator's lifecycle states.
type State int

const (
	Initializing State = iota
	Running
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StartMethod selects how worker processes are created. "fork" is
// rejected at construction time (§5, §8 "No-fork").
type StartMethod string

const (
	StartSpawn      StartMethod = "spawn"
	StartForkserver StartMethod = "forkserver"
	StartFork       StartMethod = "fork"
)

// Config holds everything the orchestrator needs at startup, matching
// the `fuzz` subcommand's flags in SPEC_FULL.md §6.
type Config struct {
	SeedDir            string
	StatePath          string
	CrashDirPath       string
	NumWorkers         int
	MaxTime            time.Duration // zero means unbounded
	MaxCrashes         int           // zero means unbounded
	StatFrequency      time.Duration
	CheckpointInterval time.Duration
	CloseStdout        bool
	CloseStderr        bool
	StartMethod        StartMethod
	TargetName         string
	DictTokens         [][]byte
	LoadCrashesAsSeeds bool
	WatchSeedDir       bool
}

// Stats is a point-in-time snapshot of session progress, emitted on the
// progress line and exposed to the optional web/TUI/metrics front ends.
type Stats struct {
	Executions    int64
	EdgesKnown    int
	CorpusSize    int
	CrashesFound  int
	WorkersAlive  int
	StartedAt     time.Time
	State         State
}

// Orchestrator owns the canonical corpus and coverage map and drives
// the worker-report event loop.
type Orchestrator struct {
	cfg Config
	log zerolog.Logger

	corpus   *coverage.Corpus
	coverage *coverage.Map
	crashes  *crashdir.Dir

	execCount   int64
	crashCount  int64
	startedAt   time.Time

	stateMu sync.RWMutex
	state   State

	pool    *pool
	health  *memory.Monitor

	reportCh chan workerEvent
	stopCh   chan struct{}

	onStats func(Stats)                  // optional hook for web/TUI/metrics front ends
	onCrash func(hash, errorText string) // optional hook for the web dashboard's crash feed
}

type workerEvent struct {
	report types.WorkerReport
	died   bool
	id     string
}

// New constructs an Orchestrator in the Initializing state. Fork is
// rejected here, before any worker starts, per the fail-fast
// requirement in §8 ("No-fork").
func New(cfg Config, log zerolog.Logger) (*Orchestrator, error) {
	if cfg.StartMethod == StartFork {
		return nil, fmt.Errorf("start-method \"fork\" is forbidden: the parent may hold locks at fork time that would deadlock child workers")
	}
	if cfg.NumWorkers <= 0 {
		return nil, fmt.Errorf("num-workers must be positive, got %d", cfg.NumWorkers)
	}

	crashes, err := crashdir.Open(cfg.CrashDirPath)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:      cfg,
		log:      log,
		corpus:   coverage.NewCorpus(),
		coverage: coverage.NewMap(),
		crashes:  crashes,
		state:    Initializing,
		reportCh: make(chan workerEvent, 4096),
		stopCh:   make(chan struct{}),
	}, nil
}

// OnStats registers a callback invoked with a Stats snapshot whenever
// the periodic progress line is emitted. Used to feed the optional web
// dashboard, TUI, and metrics exporter without coupling this package to
// any of them.
func (o *Orchestrator) OnStats(fn func(Stats)) {
	o.onStats = fn
}

// OnCrash registers a callback invoked whenever a newly-distinct crash
// is recorded to the crash directory. Used to feed the optional web
// dashboard's live crash feed without coupling this package to it.
func (o *Orchestrator) OnCrash(fn func(hash string, errorText string)) {
	o.onCrash = fn
}

// State returns the orchestrator's current lifecycle state.
func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.stateMu.Lock()
	o.state = s
	o.stateMu.Unlock()
}

// Stats returns a snapshot of current progress.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		Executions:   atomic.LoadInt64(&o.execCount),
		EdgesKnown:   o.coverage.Size(),
		CorpusSize:   o.corpus.Size(),
		CrashesFound: int(atomic.LoadInt64(&o.crashCount)),
		WorkersAlive: o.pool.aliveCount(),
		StartedAt:    o.startedAt,
		State:        o.State(),
	}
}

// Run executes the full fuzzing session: initialization, the running
// loop, and draining, returning true iff at least one crash was
// recorded (the caller maps this to exit code 0 or 1 per §6).
func (o *Orchestrator) Run(ctx context.Context) (crashFound bool, err error) {
	if err := o.initialize(); err != nil {
		return false, err
	}

	o.setState(Running)
	o.startedAt = time.Now()

	o.health = memory.NewMonitor(o.cfg.StatFrequency, memory.DefaultThreshold())
	o.health.Start()
	defer o.health.Stop()

	o.pool = newPool(o.cfg, o.log, o.reportCh)
	if err := o.pool.spawnAll(o.corpus.Iter(), o.coverage.Snapshot()); err != nil {
		return false, fmt.Errorf("spawn workers: %w", err)
	}

	var timeoutCh <-chan time.Time
	if o.cfg.MaxTime > 0 {
		timer := time.NewTimer(o.cfg.MaxTime)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	statTicker := time.NewTicker(o.cfg.StatFrequency)
	defer statTicker.Stop()

	var checkpointTicker *time.Ticker
	var checkpointCh <-chan time.Time
	if o.cfg.StatePath != "" && o.cfg.CheckpointInterval > 0 {
		checkpointTicker = time.NewTicker(o.cfg.CheckpointInterval)
		defer checkpointTicker.Stop()
		checkpointCh = checkpointTicker.C
	}

	var watcher *seedWatcher
	if o.cfg.WatchSeedDir {
		watcher, err = newSeedWatcher(o.cfg.SeedDir, o.log)
		if err == nil {
			defer watcher.Close()
		}
	}

	for {
		select {
		case ev := <-o.reportCh:
			if err := o.handleEvent(ev); err != nil {
				found, _ := o.drain(atomic.LoadInt64(&o.crashCount) > 0)
				return found, err
			}
			if o.cfg.MaxCrashes > 0 && int(atomic.LoadInt64(&o.crashCount)) >= o.cfg.MaxCrashes {
				return o.drain(true)
			}

		case <-statTicker.C:
			o.emitProgress()

		case alert := <-o.health.Alerts():
			o.log.Warn().Uint64("heap_alloc", alert.Value).Uint64("threshold", alert.Threshold).Msg(alert.Message)

		case <-checkpointCh:
			if err := o.checkpoint(); err != nil {
				o.log.Warn().Err(err).Msg("checkpoint failed")
			}

		case path := <-watcherEvents(watcher):
			o.absorbSeedFile(path)

		case <-timeoutCh:
			return o.drain(atomic.LoadInt64(&o.crashCount) > 0)

		case <-ctx.Done():
			return o.drain(atomic.LoadInt64(&o.crashCount) > 0)

		case <-o.stopCh:
			return o.drain(atomic.LoadInt64(&o.crashCount) > 0)
		}
	}
}

// Stop requests the orchestrator enter Draining on its next loop
// iteration; used to wire an external termination signal (§4.6).
func (o *Orchestrator) Stop() {
	select {
	case o.stopCh <- struct{}{}:
	default:
	}
}

func watcherEvents(w *seedWatcher) <-chan string {
	if w == nil {
		return nil
	}
	return w.events
}

func (o *Orchestrator) initialize() error {
	if o.cfg.StatePath != "" {
		if corpus, cov, err := statestore.Load(o.cfg.StatePath); err == nil {
			o.corpus = corpus
			o.coverage = cov
			o.log.Info().Int("corpus_size", corpus.Size()).Msg("loaded session state")
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("load state file: %w", err)
		}
	}

	if err := o.seedFromDir(o.cfg.SeedDir); err != nil {
		return err
	}

	if o.cfg.LoadCrashesAsSeeds {
		entries, err := o.crashes.List()
		if err != nil {
			return fmt.Errorf("enumerate crash directory: %w", err)
		}
		for _, e := range entries {
			o.corpus.Put(e.Sample)
		}
	}

	return nil
}

func (o *Orchestrator) seedFromDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read seed directory %s: %w", dir, err)
	}

	results := ingestSeeds(dir, entries)
	for _, data := range results {
		o.corpus.Put(data)
	}
	return nil
}

func (o *Orchestrator) absorbSeedFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		o.log.Warn().Err(err).Str("path", path).Msg("failed to read newly observed seed file")
		return
	}
	if o.corpus.Put(data) {
		o.pool.broadcast(data)
	}
}

func (o *Orchestrator) handleEvent(ev workerEvent) error {
	atomic.AddInt64(&o.execCount, 1)

	if ev.died {
		o.log.Warn().Str("worker_id", ev.id).Msg("worker died without a prior report; respawning")
		o.pool.respawn(ev.id, o.corpus.Iter(), o.coverage.Snapshot())
		return nil
	}

	report := ev.report
	incoming := coverage.FromSnapshot(report.NewEdges)
	newEdges := o.coverage.Merge(incoming)

	switch report.Kind {
	case types.ReportCrash:
		hash, written, err := o.crashes.Record(report.Sample, report.ErrorText)
		if err != nil {
			o.log.Error().Err(err).Msg("failed to write crash file; retrying once")
			_, written, err = o.crashes.Record(report.Sample, report.ErrorText)
			if err != nil {
				o.log.Error().Err(err).Msg("crash directory write failed twice; this is fatal")
				return fmt.Errorf("record crash: %w", err)
			}
		}
		if written {
			atomic.AddInt64(&o.crashCount, 1)
			o.log.Info().Str("hash", hash).Msg("crash recorded")
			if o.onCrash != nil {
				o.onCrash(hash, report.ErrorText)
			}
		}
		if newEdges.Size() > 0 && o.corpus.Put(report.Sample) {
			o.pool.broadcast(report.Sample)
		}

	case types.ReportNewCoverage:
		if newEdges.Size() > 0 && o.corpus.Put(report.Sample) {
			o.pool.broadcast(report.Sample)
		}
	}
	return nil
}

func (o *Orchestrator) emitProgress() {
	stats := o.Stats()
	elapsed := time.Since(stats.StartedAt).Seconds()
	rate := float64(0)
	if elapsed > 0 {
		rate = float64(stats.Executions) / elapsed
	}
	fmt.Printf("execs=%d execs/sec=%.1f edges=%d corpus=%d crashes=%d\n",
		stats.Executions, rate, stats.EdgesKnown, stats.CorpusSize, stats.CrashesFound)

	if o.onStats != nil {
		o.onStats(stats)
	}
}

func (o *Orchestrator) checkpoint() error {
	return statestore.Save(o.cfg.StatePath, o.corpus, o.coverage)
}

func (o *Orchestrator) drain(crashFound bool) (bool, error) {
	o.setState(Draining)
	o.pool.shutdown(5 * time.Second)

	if o.cfg.StatePath != "" {
		if err := o.checkpoint(); err != nil {
			o.log.Warn().Err(err).Msg("final checkpoint failed")
		}
	}

	o.setState(Stopped)
	return crashFound, nil
}

// ingestSeeds reads every seed file in dir concurrently through a
// bounded ants pool, the same fan-out pattern Regression uses to
// replay crashes (internal/orchestrator/regression.go).
func ingestSeeds(dir string, entries []os.DirEntry) [][]byte {
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}

	results := make([][]byte, len(files))
	var mu sync.Mutex
	var ok []int
	var wg sync.WaitGroup

	p, err := ants.NewPoolWithFunc(seedIngestConcurrency, func(i interface{}) {
		defer wg.Done()
		idx := i.(int)
		data, err := os.ReadFile(filepath.Join(dir, files[idx]))
		if err != nil {
			return
		}
		results[idx] = data
		mu.Lock()
		ok = append(ok, idx)
		mu.Unlock()
	})
	if err != nil {
		// Fall back to sequential reads rather than dropping seeds; a
		// pool-construction failure here is not worth failing startup over.
		out := make([][]byte, 0, len(files))
		for _, name := range files {
			if data, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
				out = append(out, data)
			}
		}
		return out
	}
	defer p.Release()

	for i := range files {
		wg.Add(1)
		if err := p.Invoke(i); err != nil {
			wg.Done()
		}
	}
	wg.Wait()

	out := make([][]byte, 0, len(ok))
	for _, idx := range ok {
		out = append(out, results[idx])
	}
	return out
}

// seedIngestConcurrency bounds the seed-reading pool; seed directories
// are typically small, so this need not scale with NumWorkers.
const seedIngestConcurrency = 16
