package ipc

import (
	"bytes"
	"io"
	"testing"

	"github.com/covfuzz/covfuzz/pkg/types"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	r := NewReader(&buf)

	sent := types.Broadcast{Sample: []byte("hello")}
	if err := w.WriteFrame(sent); err != nil {
		t.Fatal(err)
	}

	var got types.Broadcast
	if err := r.ReadFrame(&got); err != nil {
		t.Fatal(err)
	}
	if string(got.Sample) != string(sent.Sample) {
		t.Fatalf("round trip mismatch: got %q want %q", got.Sample, sent.Sample)
	}
}

func TestReadFrameEOFOnCleanClose(t *testing.T) {
	var buf bytes.Buffer
	r := NewReader(&buf)

	var got types.Broadcast
	err := r.ReadFrame(&got)
	if err != io.EOF {
		t.Fatalf("expected io.EOF on an empty stream, got %v", err)
	}
}

func TestMultipleFramesInOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	r := NewReader(&buf)

	for i := 0; i < 5; i++ {
		if err := w.WriteFrame(types.Broadcast{Sample: []byte{byte(i)}}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 5; i++ {
		var got types.Broadcast
		if err := r.ReadFrame(&got); err != nil {
			t.Fatal(err)
		}
		if got.Sample[0] != byte(i) {
			t.Fatalf("frame %d out of order: got %v", i, got.Sample)
		}
	}
}
