// Package worker implements the fuzzing worker's main loop (SPEC_FULL.md
// §4.5): draw a sample, mutate it, run the target under a recovering
// boundary, observe coverage, and report upstream. A worker is always a
// separate OS process from the orchestrator; this package is the code
// that process runs once re-exec'd into worker mode.
package worker

import (
	"fmt"
	"io"
	"os"

	"github.com/covfuzz/covfuzz/internal/coverage"
	"github.com/covfuzz/covfuzz/internal/ipc"
	"github.com/covfuzz/covfuzz/internal/mutator"
	"github.com/covfuzz/covfuzz/internal/target"
	"github.com/covfuzz/covfuzz/internal/trace"
	"github.com/covfuzz/covfuzz/pkg/types"
	"github.com/rs/zerolog"
)

// Channels bundles the two IPC file descriptors a worker is launched
// with: broadcastIn carries the init payload followed by a stream of
// Broadcast frames from the orchestrator; reportOut carries the
// worker's stream of WorkerReport frames back.
type Channels struct {
	BroadcastIn io.Reader
	ReportOut   io.Writer
}

// Run blocks forever, executing the worker main loop described in
// SPEC_FULL.md §4.5. It returns only if the broadcast channel is closed
// (the orchestrator is gone) or the report channel fails to write,
// either of which means this process should exit.
func Run(ch Channels, log zerolog.Logger) error {
	reader := ipc.NewReader(ch.BroadcastIn)
	writer := ipc.NewWriter(ch.ReportOut)

	var init types.InitPayload
	if err := reader.ReadFrame(&init); err != nil {
		return fmt.Errorf("read worker init payload: %w", err)
	}

	fn, ok := target.Get(init.Target)
	if !ok {
		return fmt.Errorf("worker: unknown target %q", init.Target)
	}

	if init.CloseStdout {
		if devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0); err == nil {
			os.Stdout = devnull
		}
	}
	if init.CloseStderr {
		if devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0); err == nil {
			os.Stderr = devnull
		}
	}

	corpus := coverage.NewCorpus()
	for _, s := range init.Corpus {
		corpus.Put(s)
	}
	localCov := coverage.FromSnapshot(init.Coverage)

	mut := mutator.New()
	if len(init.DictTokens) > 0 {
		mut.SetDictionary(init.DictTokens)
	}

	// Broadcasts are read off the pipe on their own goroutine into a
	// buffered channel, so the main loop below can consume whatever has
	// already arrived without blocking on the pipe itself (§4.5 step 7).
	broadcasts := make(chan types.Broadcast, 256)
	go func() {
		for {
			var bc types.Broadcast
			if err := reader.ReadFrame(&bc); err != nil {
				close(broadcasts)
				return
			}
			broadcasts <- bc
		}
	}()

	for {
		if !drainPendingBroadcasts(broadcasts, corpus) {
			return nil
		}

		sample := corpus.Sample()
		mutated := mut.Mutate(sample)

		trace.Reset()
		errText, crashed := invokeTarget(fn, mutated)
		drained := trace.Drain()
		newEdges := localCov.Merge(drained)

		switch {
		case crashed:
			report := types.WorkerReport{
				Kind:      types.ReportCrash,
				WorkerID:  init.WorkerID,
				Sample:    mutated,
				ErrorText: errText,
				NewEdges:  newEdges.Snapshot(),
			}
			if err := writer.WriteFrame(report); err != nil {
				log.Warn().Err(err).Msg("worker: failed to send crash report, report channel likely closed")
				return err
			}
		case newEdges.Size() > 0:
			report := types.WorkerReport{
				Kind:     types.ReportNewCoverage,
				WorkerID: init.WorkerID,
				Sample:   mutated,
				NewEdges: newEdges.Snapshot(),
			}
			if err := writer.WriteFrame(report); err != nil {
				log.Warn().Err(err).Msg("worker: failed to send coverage report, report channel likely closed")
				return err
			}
		default:
			// no new edges and no crash: discard, per §4.5 step 6.
		}
	}
}

// invokeTarget runs fn(data) inside a recovering boundary, converting
// either a returned error or a panic into a captured error_text, never
// letting the target's misbehavior escape the worker's main loop.
func invokeTarget(fn target.Func, data []byte) (errorText string, crashed bool) {
	defer func() {
		if r := recover(); r != nil {
			errorText = fmt.Sprintf("panic: %v", r)
			crashed = true
		}
	}()
	if err := fn(data); err != nil {
		return err.Error(), true
	}
	return "", false
}

// drainPendingBroadcasts consumes any Broadcast values already queued
// in the channel without blocking, applying each to corpus (§4.5 step 7).
// It reports false once the channel has been closed.
func drainPendingBroadcasts(broadcasts <-chan types.Broadcast, corpus *coverage.Corpus) bool {
	for {
		select {
		case bc, ok := <-broadcasts:
			if !ok {
				return false
			}
			corpus.Put(bc.Sample)
		default:
			return true
		}
	}
}
