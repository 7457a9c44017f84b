package crashdir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRecordDedup(t *testing.T) {
	dir, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	sample := []byte("crash me")
	_, written1, err := dir.Record(sample, "boom")
	if err != nil {
		t.Fatal(err)
	}
	if !written1 {
		t.Fatal("first record of a new crash should be written")
	}

	_, written2, err := dir.Record(sample, "boom again")
	if err != nil {
		t.Fatal(err)
	}
	if written2 {
		t.Fatal("recording the same crash twice should be deduplicated")
	}
}

func TestRecordContentMatchesSampleVerbatim(t *testing.T) {
	dir, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sample := []byte{0x00, 0x41, 0xff, 0x10}
	hash, _, err := dir.Record(sample, "")
	if err != nil {
		t.Fatal(err)
	}

	entries, err := dir.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(entries))
	}
	if entries[0].Hash != hash {
		t.Fatalf("entry hash %s does not match recorded hash %s", entries[0].Hash, hash)
	}
	if string(entries[0].Sample) != string(sample) {
		t.Fatalf("crash file content does not match sample verbatim")
	}
}

func TestHashMatchesFileName(t *testing.T) {
	dir, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sample := []byte("deterministic")
	hash, _, err := dir.Record(sample, "err")
	if err != nil {
		t.Fatal(err)
	}
	if hash != Hash(sample) {
		t.Fatal("recorded hash must equal Hash(sample)")
	}
	path := filepath.Join(dir.Path(), hash)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected crash file to exist at %s: %v", path, err)
	}
}
