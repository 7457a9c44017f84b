package parallel

import (
	"testing"

	"github.com/cespare/xxhash/v2"
)

func TestBroadcasterRejectsRecentDuplicate(t *testing.T) {
	b, err := NewBroadcaster(1000, 10, 100, xxhash.Sum64)
	if err != nil {
		t.Fatal(err)
	}

	sample := []byte("hello")
	if !b.Admit(sample) {
		t.Fatal("expected the first admission of a fresh sample to succeed")
	}
	if b.Admit(sample) {
		t.Fatal("expected a recently-seen duplicate to be rejected")
	}
}

func TestBroadcasterDistinctSamplesBothAdmitted(t *testing.T) {
	b, err := NewBroadcaster(1000, 10, 100, xxhash.Sum64)
	if err != nil {
		t.Fatal(err)
	}

	if !b.Admit([]byte("a")) {
		t.Fatal("expected sample a to be admitted")
	}
	if !b.Admit([]byte("b")) {
		t.Fatal("expected sample b to be admitted")
	}
}

func TestBroadcasterRespectsRateLimit(t *testing.T) {
	b, err := NewBroadcaster(0.001, 1, 100, xxhash.Sum64)
	if err != nil {
		t.Fatal(err)
	}

	if !b.Admit([]byte("first")) {
		t.Fatal("expected the first call within burst to be admitted")
	}
	if b.Admit([]byte("second")) {
		t.Fatal("expected a call past the burst and rate to be rejected")
	}
}
