package statestore

import (
	"encoding/gob"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/covfuzz/covfuzz/internal/coverage"
)

func gobEncode(w io.Writer, v interface{}) error {
	return gob.NewEncoder(w).Encode(v)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.dat")

	corpus := coverage.NewCorpus()
	corpus.Put([]byte("seed-one"))
	corpus.Put([]byte("seed-two"))

	cov := coverage.NewMap()
	cov.Observe(coverage.Edge{Prev: 1, Cur: 2})
	cov.Observe(coverage.Edge{Prev: 3, Cur: 4})

	if err := Save(path, corpus, cov); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loadedCorpus, loadedCov, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loadedCorpus.Size() != corpus.Size() {
		t.Fatalf("corpus size mismatch after round-trip: got %d want %d", loadedCorpus.Size(), corpus.Size())
	}
	if loadedCov.Size() != cov.Size() {
		t.Fatalf("coverage size mismatch after round-trip: got %d want %d", loadedCov.Size(), cov.Size())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.dat"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}

func TestLoadRefusesUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.dat")

	corpus := coverage.NewCorpus()
	cov := coverage.NewMap()
	if err := Save(path, corpus, cov); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Corrupt the schema version by overwriting with a bumped envelope.
	badEnv := envelope{Version: schemaVersion + 1}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := gobEncode(f, badEnv); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, _, err = Load(path)
	var verErr *ErrUnsupportedVersion
	if !errors.As(err, &verErr) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}
