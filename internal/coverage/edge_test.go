package coverage

import "testing"

func TestMapObserve(t *testing.T) {
	m := NewMap()

	if !m.Observe(Edge{Prev: 1, Cur: 2}) {
		t.Fatal("first observation of an edge should report true")
	}
	if m.Observe(Edge{Prev: 1, Cur: 2}) {
		t.Fatal("second observation of the same edge should report false")
	}
	if m.Size() != 1 {
		t.Fatalf("expected size 1, got %d", m.Size())
	}
}

func TestMapMerge(t *testing.T) {
	a := NewMap()
	b := NewMap()

	a.Observe(Edge{Prev: 1, Cur: 2})
	b.Observe(Edge{Prev: 1, Cur: 2})
	b.Observe(Edge{Prev: 3, Cur: 4})

	newEdges := a.Merge(b)

	if a.Size() != 2 {
		t.Fatalf("expected merged size 2, got %d", a.Size())
	}
	if newEdges.Size() != 1 {
		t.Fatalf("expected exactly 1 newly inserted edge, got %d", newEdges.Size())
	}
}

func TestMapMergeCommutative(t *testing.T) {
	a := NewMap()
	b := NewMap()
	a.Observe(Edge{Prev: 1, Cur: 2})
	b.Observe(Edge{Prev: 3, Cur: 4})

	ab := a.Clone()
	ab.Merge(b)

	ba := b.Clone()
	ba.Merge(a)

	if ab.Size() != ba.Size() {
		t.Fatalf("merge should be commutative in resulting key set: %d vs %d", ab.Size(), ba.Size())
	}
}

func TestMapSnapshotRoundTrip(t *testing.T) {
	m := NewMap()
	m.Observe(Edge{Prev: 10, Cur: 20})
	m.Observe(Edge{Prev: 10, Cur: 20})

	rebuilt := FromSnapshot(m.Snapshot())
	if rebuilt.Size() != m.Size() {
		t.Fatalf("snapshot round-trip changed size: got %d want %d", rebuilt.Size(), m.Size())
	}
}
