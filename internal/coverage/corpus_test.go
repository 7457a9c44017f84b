package coverage

import "testing"

func TestCorpusPutDedup(t *testing.T) {
	c := NewCorpus()

	if !c.Put([]byte("hello")) {
		t.Fatal("first insert should be added")
	}
	if c.Put([]byte("hello")) {
		t.Fatal("duplicate insert should not be added")
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
}

func TestCorpusSampleEmpty(t *testing.T) {
	c := NewCorpus()
	s := c.Sample()
	if len(s) != 0 {
		t.Fatalf("sampling an empty corpus should yield the empty string, got %q", s)
	}
}

func TestCorpusSampleDrawsExisting(t *testing.T) {
	c := NewCorpus()
	c.Put([]byte("a"))
	c.Put([]byte("bb"))
	c.Put([]byte("ccc"))

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		s := c.Sample()
		seen[string(s)] = true
	}
	for _, want := range []string{"a", "bb", "ccc"} {
		if !seen[want] {
			t.Errorf("expected %q to be drawn at least once across 200 samples", want)
		}
	}
}

func TestCorpusMonotonic(t *testing.T) {
	c := NewCorpus()
	sizes := []int{}
	for _, s := range [][]byte{[]byte("a"), []byte("b"), []byte("a"), []byte("c")} {
		c.Put(s)
		sizes = append(sizes, c.Size())
	}
	for i := 1; i < len(sizes); i++ {
		if sizes[i] < sizes[i-1] {
			t.Fatalf("corpus size must never shrink: %v", sizes)
		}
	}
}
