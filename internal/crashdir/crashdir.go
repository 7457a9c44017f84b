// Package crashdir manages the flat, append-only directory of
// crash-inducing inputs described in SPEC_FULL.md §4.8: one file per
// distinct crashing input, named by the lowercase hex SHA-256 of its
// bytes, with content equal to the bytes verbatim.
package crashdir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
)

// Dir is a handle on a crash directory rooted at path.
type Dir struct {
	path string
}

// Open ensures path exists as a directory and returns a handle to it.
func Open(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create crash directory %s: %w", path, err)
	}
	return &Dir{path: path}, nil
}

// Hash returns the lowercase hex SHA-256 digest used as a crash
// sample's file name.
func Hash(sample []byte) string {
	sum := sha256.Sum256(sample)
	return hex.EncodeToString(sum[:])
}

// sidecar is the metadata stored alongside a crash file, named only for
// the `show` subcommand (SPEC_FULL.md §4.8); it is never consulted for
// dedup decisions.
type sidecar struct {
	ErrorText string    `json:"error_text"`
	FirstSeen time.Time `json:"first_seen"`
}

// Record writes sample under its content hash if no file with that name
// already exists (O_CREAT|O_EXCL dedup), along with a JSON sidecar
// carrying errorText and the observation time. It reports whether the
// sample was newly written (false means it was already present).
func (d *Dir) Record(sample []byte, errorText string) (hash string, written bool, err error) {
	hash = Hash(sample)
	path := filepath.Join(d.path, hash)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return hash, false, nil
		}
		return hash, false, fmt.Errorf("create crash file %s: %w", path, err)
	}
	if _, err := f.Write(sample); err != nil {
		f.Close()
		return hash, false, fmt.Errorf("write crash file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return hash, false, fmt.Errorf("close crash file %s: %w", path, err)
	}

	side := sidecar{ErrorText: errorText, FirstSeen: time.Now()}
	buf, _ := json.Marshal(side)
	sidePath := path + ".json"
	if err := os.WriteFile(sidePath, buf, 0o644); err != nil {
		// The crash itself is durably recorded; losing the sidecar only
		// degrades `show`'s error-text column, so this is not fatal.
		return hash, true, nil
	}
	return hash, true, nil
}

// Entry describes one recorded crash as read back from disk.
type Entry struct {
	Hash      string
	Sample    []byte
	ErrorText string
}

// List enumerates recorded crashes in the directory.
func (d *Dir) List() ([]Entry, error) {
	files, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("read crash directory %s: %w", d.path, err)
	}

	var entries []Entry
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) == ".json" {
			continue
		}
		sample, err := os.ReadFile(filepath.Join(d.path, name))
		if err != nil {
			return nil, fmt.Errorf("read crash file %s: %w", name, err)
		}
		entry := Entry{Hash: name, Sample: sample}
		if side, err := os.ReadFile(filepath.Join(d.path, name+".json")); err == nil {
			entry.ErrorText = gjson.GetBytes(side, "error_text").String()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Path returns the directory's root path.
func (d *Dir) Path() string {
	return d.path
}
