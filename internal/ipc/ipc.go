// Package ipc implements the length-prefixed worker transport named in
// SPEC_FULL.md §9: a bidirectional message channel per worker, framed
// as a 4-byte big-endian length prefix followed by a gob-encoded
// payload, carried over pipes between the orchestrator and a worker
// subprocess.
package ipc

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"sync"

	"github.com/covfuzz/covfuzz/internal/memory"
)

const maxFrameLen = 256 << 20 // 256 MiB; generous ceiling against a corrupt length prefix

// Writer serializes values as length-prefixed gob frames onto an
// underlying io.Writer. Safe for concurrent use by multiple goroutines
// writing distinct frames.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w for framed writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame gob-encodes v and writes it as one length-prefixed frame.
func (fw *Writer) WriteFrame(v interface{}) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	buf := memory.GetBuffer()
	defer memory.PutBuffer(buf)

	if err := gob.NewEncoder(buf).Encode(v); err != nil {
		return fmt.Errorf("encode ipc frame: %w", err)
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(buf.Len()))

	if _, err := fw.w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("write ipc frame length: %w", err)
	}
	if _, err := fw.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write ipc frame body: %w", err)
	}
	return nil
}

// Reader deserializes length-prefixed gob frames from an underlying
// io.Reader. Not safe for concurrent use; each worker's report stream
// and broadcast stream each need their own Reader.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for framed reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame reads the next frame and gob-decodes it into v, which must
// be a pointer. io.EOF is returned verbatim when the peer has closed
// the stream cleanly between frames.
func (fr *Reader) ReadFrame(v interface{}) error {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(fr.r, lenPrefix[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameLen {
		return fmt.Errorf("ipc frame length %d exceeds maximum %d", n, maxFrameLen)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(fr.r, body); err != nil {
		return fmt.Errorf("read ipc frame body: %w", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(v); err != nil {
		return fmt.Errorf("decode ipc frame: %w", err)
	}
	return nil
}
