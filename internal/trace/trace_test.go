package trace

import "testing"

func TestHitRecordsEdgeAndAdvancesPrev(t *testing.T) {
	Reset()
	Hit(10)
	Hit(20)

	m := Drain()
	if m.Size() != 2 {
		t.Fatalf("expected 2 edges recorded (0->10, 5->20), got %d", m.Size())
	}
}

func TestResetClearsState(t *testing.T) {
	Reset()
	Hit(42)
	Reset()
	m := Drain()
	if m.Size() != 0 {
		t.Fatalf("expected empty coverage map after Reset, got size %d", m.Size())
	}
}

func TestDrainClearsLocalMap(t *testing.T) {
	Reset()
	Hit(1)
	Hit(2)
	first := Drain()
	if first.Size() == 0 {
		t.Fatal("expected non-empty map on first drain")
	}
	second := Drain()
	if second.Size() != 0 {
		t.Fatalf("expected drain to clear local state, got size %d", second.Size())
	}
}
