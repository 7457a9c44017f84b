package worker

import (
	"errors"
	"testing"

	"github.com/covfuzz/covfuzz/internal/coverage"
	"github.com/covfuzz/covfuzz/pkg/types"
)

func TestInvokeTargetCapturesReturnedError(t *testing.T) {
	errText, crashed := invokeTarget(func(b []byte) error {
		return errors.New("boom")
	}, []byte("x"))
	if !crashed {
		t.Fatal("expected crashed to be true on a returned error")
	}
	if errText != "boom" {
		t.Fatalf("unexpected error text: %q", errText)
	}
}

func TestInvokeTargetCapturesPanic(t *testing.T) {
	errText, crashed := invokeTarget(func(b []byte) error {
		panic("kaboom")
	}, []byte("x"))
	if !crashed {
		t.Fatal("expected crashed to be true on a panic")
	}
	if errText == "" {
		t.Fatal("expected a non-empty captured error text for a panic")
	}
}

func TestInvokeTargetNormalReturn(t *testing.T) {
	_, crashed := invokeTarget(func(b []byte) error { return nil }, []byte("x"))
	if crashed {
		t.Fatal("expected crashed to be false on a nil error")
	}
}

func TestDrainPendingBroadcastsAppliesAllQueued(t *testing.T) {
	corpus := coverage.NewCorpus()
	ch := make(chan types.Broadcast, 4)
	ch <- types.Broadcast{Sample: []byte("a")}
	ch <- types.Broadcast{Sample: []byte("b")}

	drainPendingBroadcasts(ch, corpus)

	if corpus.Size() != 2 {
		t.Fatalf("expected 2 entries absorbed from broadcasts, got %d", corpus.Size())
	}
}

func TestDrainPendingBroadcastsNonBlockingOnEmpty(t *testing.T) {
	corpus := coverage.NewCorpus()
	ch := make(chan types.Broadcast)
	drainPendingBroadcasts(ch, corpus) // must return immediately, not block
	if corpus.Size() != 0 {
		t.Fatal("expected no entries when no broadcast is queued")
	}
}
