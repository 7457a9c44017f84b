package memory

import (
	"testing"
	"time"
)

func TestBufferPoolGetPutCountsStats(t *testing.T) {
	pool := NewBufferPool(1024, 1<<20)

	buf := pool.Get()
	if buf == nil {
		t.Fatal("Get returned nil")
	}
	buf.WriteString("test data")
	if buf.String() != "test data" {
		t.Error("buffer write failed")
	}
	pool.Put(buf)

	stats := pool.Stats()
	if stats.Gets != 1 {
		t.Errorf("expected 1 get, got %d", stats.Gets)
	}
	if stats.Puts != 1 {
		t.Errorf("expected 1 put, got %d", stats.Puts)
	}
}

func TestBufferPoolDiscardsOversizedBuffer(t *testing.T) {
	pool := NewBufferPool(1024, 4096)
	buf := pool.Get()
	buf.Grow(8192)
	buf.WriteString("data")

	pool.Put(buf)

	if stats := pool.Stats(); stats.Discards != 1 {
		t.Errorf("expected 1 discard, got %d", stats.Discards)
	}
}

func TestGlobalBufferPoolRoundTrip(t *testing.T) {
	buf := GetBuffer()
	if buf == nil {
		t.Fatal("GetBuffer returned nil")
	}
	buf.WriteString("global test")
	PutBuffer(buf)

	if GlobalStats().Gets == 0 {
		t.Error("expected at least one recorded get on the global pool")
	}
}

func TestMonitorCollectsStatsOverTime(t *testing.T) {
	monitor := NewMonitor(20*time.Millisecond, DefaultThreshold())
	monitor.Start()
	defer monitor.Stop()

	time.Sleep(60 * time.Millisecond)

	latest := monitor.Latest()
	if latest.Timestamp.IsZero() {
		t.Fatal("expected a non-zero timestamp after the monitor has ticked")
	}
	if latest.NumGoroutine == 0 {
		t.Error("expected a non-zero goroutine count")
	}
}

func TestMonitorLatestSamplesImmediatelyBeforeFirstTick(t *testing.T) {
	monitor := NewMonitor(time.Hour, DefaultThreshold())
	latest := monitor.Latest()
	if latest.Timestamp.IsZero() {
		t.Fatal("expected Latest to sample on demand before any tick has occurred")
	}
}

func TestMonitorRaisesAlertOnLowThreshold(t *testing.T) {
	monitor := NewMonitor(10*time.Millisecond, Threshold{HeapAllocBytes: 1})
	monitor.Start()
	defer monitor.Stop()

	select {
	case alert := <-monitor.Alerts():
		if alert.Threshold != 1 {
			t.Errorf("expected threshold 1, got %d", alert.Threshold)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected an alert within 500ms given a 1-byte threshold")
	}
}

func BenchmarkBufferPool(b *testing.B) {
	pool := NewBufferPool(1024, 1<<20)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := pool.Get()
			buf.WriteString("benchmark data")
			pool.Put(buf)
		}
	})
}
