package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/covfuzz/covfuzz/internal/target" // registers builtin example targets
	"github.com/covfuzz/covfuzz/internal/coverage"
	"github.com/covfuzz/covfuzz/pkg/types"
	"github.com/rs/zerolog"
)

func newCrashReport() types.WorkerReport {
	return types.WorkerReport{
		Kind:      types.ReportCrash,
		WorkerID:  "test-worker",
		Sample:    []byte{0x41},
		ErrorText: "divide by zero",
		NewEdges:  map[coverage.Edge]uint64{{Prev: 1, Cur: 2}: 1},
	}
}

func TestNewRejectsFork(t *testing.T) {
	_, err := New(Config{StartMethod: StartFork, NumWorkers: 1}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error when start-method is fork")
	}
}

func TestNewRejectsZeroWorkers(t *testing.T) {
	dir := t.TempDir()
	_, err := New(Config{StartMethod: StartSpawn, NumWorkers: 0, CrashDirPath: dir}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected an error when num-workers is not positive")
	}
}

func TestStateStringValues(t *testing.T) {
	cases := map[State]string{
		Initializing: "initializing",
		Running:      "running",
		Draining:     "draining",
		Stopped:      "stopped",
		State(99):    "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestInitializeSeedsCorpusFromSeedDir(t *testing.T) {
	seedDir := t.TempDir()
	crashDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(seedDir, "seed1"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(seedDir, "seed2"), []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}

	o, err := New(Config{
		StartMethod:  StartSpawn,
		NumWorkers:   1,
		SeedDir:      seedDir,
		CrashDirPath: crashDir,
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if err := o.initialize(); err != nil {
		t.Fatal(err)
	}
	if o.corpus.Size() != 2 {
		t.Fatalf("expected 2 seeds absorbed, got %d", o.corpus.Size())
	}
}

func TestInitializeLoadsCrashesAsSeedsWhenRequested(t *testing.T) {
	seedDir := t.TempDir()
	crashDir := t.TempDir()

	o, err := New(Config{
		StartMethod:        StartSpawn,
		NumWorkers:         1,
		SeedDir:            seedDir,
		CrashDirPath:       crashDir,
		LoadCrashesAsSeeds: true,
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := o.crashes.Record([]byte("crashy"), "boom"); err != nil {
		t.Fatal(err)
	}

	if err := o.initialize(); err != nil {
		t.Fatal(err)
	}
	if o.corpus.Size() != 1 {
		t.Fatalf("expected the recorded crash to be absorbed as a seed, got corpus size %d", o.corpus.Size())
	}
}

func TestStatsReflectsEmptyPoolBeforeRun(t *testing.T) {
	seedDir := t.TempDir()
	crashDir := t.TempDir()

	o, err := New(Config{
		StartMethod:  StartSpawn,
		NumWorkers:   1,
		SeedDir:      seedDir,
		CrashDirPath: crashDir,
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	o.pool = newPool(o.cfg, o.log, o.reportCh)

	stats := o.Stats()
	if stats.WorkersAlive != 0 {
		t.Fatalf("expected 0 alive workers before spawning, got %d", stats.WorkersAlive)
	}
	if stats.State != Initializing {
		t.Fatalf("expected Initializing state, got %v", stats.State)
	}
}

func TestHandleEventRecordsCrash(t *testing.T) {
	crashDir := t.TempDir()
	seedDir := t.TempDir()

	o, err := New(Config{
		StartMethod:  StartSpawn,
		NumWorkers:   1,
		SeedDir:      seedDir,
		CrashDirPath: crashDir,
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	o.pool = newPool(o.cfg, o.log, o.reportCh)

	o.handleEvent(workerEvent{report: newCrashReport()})

	if o.Stats().CrashesFound != 1 {
		t.Fatalf("expected 1 crash recorded, got %d", o.Stats().CrashesFound)
	}
}

func TestDrainTransitionsToStopped(t *testing.T) {
	crashDir := t.TempDir()
	seedDir := t.TempDir()

	o, err := New(Config{
		StartMethod:  StartSpawn,
		NumWorkers:   1,
		SeedDir:      seedDir,
		CrashDirPath: crashDir,
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	o.pool = newPool(o.cfg, o.log, o.reportCh)

	if _, err := o.drain(false); err != nil {
		t.Fatal(err)
	}
	if o.State() != Stopped {
		t.Fatalf("expected Stopped after drain, got %v", o.State())
	}
}

func TestRunHonorsMaxTime(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing-sensitive test in short mode")
	}
	t.Skip("exercises real subprocess spawning; covered by an integration harness instead")
	_ = time.Second
}
