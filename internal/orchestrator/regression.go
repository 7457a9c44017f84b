package orchestrator

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/covfuzz/covfuzz/internal/crashdir"
	"github.com/covfuzz/covfuzz/internal/target"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

// RegressionResult reports, for a single recorded crash, whether
// replaying it against the current build still raises.
type RegressionResult struct {
	Hash       string
	StillFails bool
	ErrorText  string
}

// Regression replays every sample in crashDirPath against targetName,
// with no workers and no mutation (SPEC_FULL.md §4.6 "Regression mode").
// Replays are fanned out across a bounded worker pool rather than
// subprocesses, since a finite, known-terminating replay does not carry
// the long-running-fuzz-loop risk of process-global corruption that
// motivates subprocess isolation during normal fuzzing.
func Regression(crashDirPath, targetName string, concurrency int, log zerolog.Logger) ([]RegressionResult, error) {
	fn, ok := target.Get(targetName)
	if !ok {
		return nil, fmt.Errorf("regression: unknown target %q", targetName)
	}

	dir, err := crashdir.Open(crashDirPath)
	if err != nil {
		return nil, err
	}
	entries, err := dir.List()
	if err != nil {
		return nil, err
	}

	results := make([]RegressionResult, len(entries))
	var wg sync.WaitGroup
	var failures int64

	p, err := ants.NewPoolWithFunc(concurrency, func(i interface{}) {
		defer wg.Done()
		idx := i.(int)
		entry := entries[idx]

		errText, crashed := replayOne(fn, entry.Sample)
		results[idx] = RegressionResult{
			Hash:       entry.Hash,
			StillFails: crashed,
			ErrorText:  errText,
		}
		if crashed {
			atomic.AddInt64(&failures, 1)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("regression pool: %w", err)
	}
	defer p.Release()

	for i := range entries {
		wg.Add(1)
		if err := p.Invoke(i); err != nil {
			wg.Done()
			log.Error().Err(err).Str("hash", entries[i].Hash).Msg("failed to submit replay task")
		}
	}
	wg.Wait()

	log.Info().Int("total", len(entries)).Int64("still_failing", failures).Msg("regression replay complete")
	return results, nil
}

func replayOne(fn target.Func, data []byte) (errorText string, crashed bool) {
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
