// Package memory provides buffer pooling and worker health monitoring
// for covfuzz's hot path: framing IPC messages and watching resource
// usage across a long-running fuzzing session.
package memory

import (
	"bytes"
	"sync"
)

// BufferPool recycles *bytes.Buffer values to avoid an allocation on
// every IPC frame encode, the highest-frequency allocation site in a
// fuzzing session (one gob encode per executed sample).
type BufferPool struct {
	pool    sync.Pool
	maxSize int
	statsMu sync.RWMutex
	stats   PoolStats
}

// PoolStats tracks buffer pool activity, exposed to the optional
// metrics exporter.
type PoolStats struct {
	Gets     int64
	Puts     int64
	News     int64
	Discards int64
}

// NewBufferPool returns a pool of buffers pre-sized at initialSize;
// buffers that grow past maxSize are discarded instead of recycled, so
// one abnormally large frame can't keep an oversized buffer pinned in
// the pool indefinitely.
func NewBufferPool(initialSize, maxSize int) *BufferPool {
	bp := &BufferPool{maxSize: maxSize}
	bp.pool.New = func() interface{} {
		bp.statsMu.Lock()
		bp.stats.News++
		bp.statsMu.Unlock()
		return bytes.NewBuffer(make([]byte, 0, initialSize))
	}
	return bp
}

// Get returns a reset, ready-to-use buffer.
func (bp *BufferPool) Get() *bytes.Buffer {
	bp.statsMu.Lock()
	bp.stats.Gets++
	bp.statsMu.Unlock()

	buf := bp.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns buf to the pool, unless it has grown past maxSize.
func (bp *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	if buf.Cap() > bp.maxSize {
		bp.statsMu.Lock()
		bp.stats.Discards++
		bp.statsMu.Unlock()
		return
	}

	bp.statsMu.Lock()
	bp.stats.Puts++
	bp.statsMu.Unlock()

	buf.Reset()
	bp.pool.Put(buf)
}

// Stats returns a snapshot of pool activity counters.
func (bp *BufferPool) Stats() PoolStats {
	bp.statsMu.RLock()
	defer bp.statsMu.RUnlock()
	return bp.stats
}

// Global pool used by internal/ipc, sized for the gob-encoded
// WorkerReport/Broadcast/InitPayload frames this engine exchanges.
var (
	globalPool     *BufferPool
	globalPoolOnce sync.Once
)

func globalBufferPool() *BufferPool {
	globalPoolOnce.Do(func() {
		globalPool = NewBufferPool(4096, 1<<20) // 4KB initial, 1MB ceiling
	})
	return globalPool
}

// GetBuffer retrieves a buffer from the shared global pool.
func GetBuffer() *bytes.Buffer {
	return globalBufferPool().Get()
}

// PutBuffer returns a buffer to the shared global pool.
func PutBuffer(buf *bytes.Buffer) {
	globalBufferPool().Put(buf)
}

// GlobalStats returns the shared pool's activity counters.
func GlobalStats() PoolStats {
	return globalBufferPool().Stats()
}
