package orchestrator

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/covfuzz/covfuzz/internal/coverage"
	"github.com/covfuzz/covfuzz/internal/ipc"
	"github.com/covfuzz/covfuzz/internal/parallel"
	"github.com/covfuzz/covfuzz/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WorkerModeEnv is set in a spawned worker subprocess's environment so
// cmd/covfuzz's entrypoint knows to jump into worker.Run instead of the
// normal CLI, per the re-exec design in SPEC_FULL.md §9 ("spawn" and
// "forkserver" both resolve to this mechanism; "fork" is rejected before
// any process reaches here).
const WorkerModeEnv = "COVFUZZ_WORKER_MODE"

// WorkerIDEnv is set to the assigned worker ID in the child's
// environment. The worker does not read it; it takes its ID from the
// init payload.
const WorkerIDEnv = "COVFUZZ_WORKER_ID"

type workerProc struct {
	id         string
	cmd        *exec.Cmd
	writer     *ipc.Writer
	broadcastW *os.File
	dead       bool
	exited     chan struct{} // closed once, by watchExit, after cmd.Wait() returns
}

// pool supervises the set of live worker subprocesses: it owns their
// broadcast pipes and respawns any that exit unexpectedly.
type pool struct {
	cfg      Config
	log      zerolog.Logger
	reportCh chan<- workerEvent

	mu      sync.Mutex
	workers map[string]*workerProc

	broadcaster *parallel.Broadcaster
}

func newPool(cfg Config, log zerolog.Logger, reportCh chan<- workerEvent) *pool {
	bc, err := parallel.NewBroadcaster(parallel.DefaultRate, parallel.DefaultBurst, parallel.DefaultRecentWindow, xxhash.Sum64)
	if err != nil {
		// Only size<=0 can make lru.New fail, and DefaultRecentWindow is a
		// positive constant, so this is unreachable in practice.
		log.Error().Err(err).Msg("failed to construct broadcast pacer; falling back to unpaced broadcasts")
	}
	return &pool{
		cfg:         cfg,
		log:         log,
		reportCh:    reportCh,
		workers:     make(map[string]*workerProc),
		broadcaster: bc,
	}
}

func (p *pool) aliveCount() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, w := range p.workers {
		if !w.dead {
			n++
		}
	}
	return n
}

// spawnAll starts cfg.NumWorkers worker subprocesses, each initialized
// with the current corpus and coverage map.
func (p *pool) spawnAll(corpus [][]byte, cov map[coverage.Edge]uint64) error {
	for i := 0; i < p.cfg.NumWorkers; i++ {
		id := uuid.NewString()
		if err := p.spawnOne(id, corpus, cov); err != nil {
			return fmt.Errorf("spawn worker %s: %w", id, err)
		}
	}
	return nil
}

func (p *pool) spawnOne(id string, corpus [][]byte, cov map[coverage.Edge]uint64) error {
	broadcastR, broadcastW, err := os.Pipe()
	if err != nil {
		return err
	}
	reportR, reportW, err := os.Pipe()
	if err != nil {
		return err
	}

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), WorkerModeEnv+"=1", WorkerIDEnv+"="+id)
	cmd.ExtraFiles = []*os.File{broadcastR, reportW}
	cmd.Stdin = nil
	if !p.cfg.CloseStdout {
		cmd.Stdout = os.Stdout
	}
	if !p.cfg.CloseStderr {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		broadcastR.Close()
		broadcastW.Close()
		reportR.Close()
		reportW.Close()
		return err
	}

	// The child has its own copies of these fds (inherited via
	// ExtraFiles); the parent's ends are either the write side
	// (broadcastW) or the read side (reportR), so the other two are
	// closed here to avoid leaking descriptors into the parent.
	broadcastR.Close()
	reportW.Close()

	writer := ipc.NewWriter(broadcastW)
	if err := writer.WriteFrame(types.InitPayload{
		WorkerID:    id,
		Target:      p.cfg.TargetName,
		Corpus:      corpus,
		Coverage:    cov,
		DictTokens:  p.cfg.DictTokens,
		CloseStdout: p.cfg.CloseStdout,
		CloseStderr: p.cfg.CloseStderr,
	}); err != nil {
		return fmt.Errorf("send init payload: %w", err)
	}

	wp := &workerProc{id: id, cmd: cmd, writer: writer, broadcastW: broadcastW, exited: make(chan struct{})}

	p.mu.Lock()
	p.workers[id] = wp
	p.mu.Unlock()

	go p.readReports(id, reportR)
	go p.watchExit(wp)

	return nil
}

func (p *pool) readReports(id string, reportR *os.File) {
	reader := ipc.NewReader(reportR)
	for {
		var report types.WorkerReport
		if err := reader.ReadFrame(&report); err != nil {
			return
		}
		p.reportCh <- workerEvent{report: report, id: id}
	}
}

func (p *pool) watchExit(wp *workerProc) {
	_ = wp.cmd.Wait()
	close(wp.exited)

	p.mu.Lock()
	wp.dead = true
	p.mu.Unlock()
	p.reportCh <- workerEvent{died: true, id: wp.id}
}

func (p *pool) respawn(id string, corpus [][]byte, cov map[coverage.Edge]uint64) {
	p.mu.Lock()
	delete(p.workers, id)
	p.mu.Unlock()

	newID := uuid.NewString()
	if err := p.spawnOne(newID, corpus, cov); err != nil {
		p.log.Error().Err(err).Str("dead_worker_id", id).Msg("failed to respawn dead worker")
	}
}

// broadcast sends sample to every live worker's broadcast channel,
// dropping (with a log line) any whose pipe write fails rather than
// blocking the orchestrator loop on a single slow or dead worker.
func (p *pool) broadcast(sample []byte) {
	if p.broadcaster != nil && !p.broadcaster.Admit(sample) {
		return
	}

	p.mu.Lock()
	targets := make([]*workerProc, 0, len(p.workers))
	for _, w := range p.workers {
		if !w.dead {
			targets = append(targets, w)
		}
	}
	p.mu.Unlock()

	msg := types.Broadcast{Sample: sample}
	for _, w := range targets {
		if err := w.writer.WriteFrame(msg); err != nil {
			p.log.Warn().Err(err).Str("worker_id", w.id).Msg("broadcast write failed")
		}
	}
}

// shutdown closes every worker's broadcast pipe (signaling it to exit
// its main loop) and waits up to grace for clean exit before killing
// any stragglers, per the Draining state's behavior in SPEC_FULL.md §4.6.
func (p *pool) shutdown(grace time.Duration) {
	p.mu.Lock()
	workers := make([]*workerProc, 0, len(p.workers))
	for _, w := range p.workers {
		workers = append(workers, w)
	}
	p.mu.Unlock()

	for _, w := range workers {
		w.broadcastW.Close()
	}

	done := make(chan struct{})
	go func() {
		for _, w := range workers {
			<-w.exited // watchExit already owns the single legal call to cmd.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		for _, w := range workers {
			if w.cmd.Process != nil {
				w.cmd.Process.Kill()
			}
		}
	}
}
