// Package statestore persists and restores the (Corpus, CoverageMap)
// pair that makes up a session's SessionState, as described in
// SPEC_FULL.md §4.7. The on-disk format is an encoding/gob envelope
// carrying an explicit schema version ahead of the payload.
package statestore

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/covfuzz/covfuzz/internal/coverage"
)

// schemaVersion is bumped whenever the envelope's wire shape changes in
// a way that would misread an older file. Load refuses any version it
// does not recognize, per §4.7(c).
const schemaVersion = 1

// envelope is the gob-encoded record written to the state file.
type envelope struct {
	Version  int
	Corpus   [][]byte
	Coverage map[coverage.Edge]uint64
}

// ErrUnsupportedVersion is returned by Load when the file's schema
// version is not one this build understands.
type ErrUnsupportedVersion struct {
	Found int
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("state file has schema version %d, this build only understands %d", e.Found, schemaVersion)
}

// Save writes corpus and coverage to path atomically: the envelope is
// written to a temporary sibling file, fsynced, and renamed over path,
// so a crash mid-write can never leave a corrupt or partial state file
// in its place.
func Save(path string, corpus *coverage.Corpus, cov *coverage.Map) error {
	env := envelope{
		Version:  schemaVersion,
		Corpus:   corpus.Iter(),
		Coverage: cov.Snapshot(),
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	w := bufio.NewWriter(tmp)
	if err := gob.NewEncoder(w).Encode(env); err != nil {
		tmp.Close()
		return fmt.Errorf("encode state: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename state file into place: %w", err)
	}
	return nil
}

// Load reads a previously saved session state. A missing file is not
// an error to the caller of this package; check os.IsNotExist on the
// returned error and treat it as "start with an empty session" at the
// call site, since a first run legitimately has no state file yet.
func Load(path string) (*coverage.Corpus, *coverage.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var env envelope
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&env); err != nil {
		return nil, nil, fmt.Errorf("decode state file %s: %w", path, err)
	}
	if env.Version != schemaVersion {
		return nil, nil, &ErrUnsupportedVersion{Found: env.Version}
	}

	corpus := coverage.NewCorpus()
	for _, sample := range env.Corpus {
		corpus.Put(sample)
	}
	cov := coverage.FromSnapshot(env.Coverage)
	return corpus, cov, nil
}
