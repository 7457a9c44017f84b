package coverage

import (
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Corpus is an ordered, duplicate-free pool of byte-string samples.
// Samples are never removed; the corpus only ever grows during a run.
// Sampling is weighted so longer samples are drawn more often: the
// probability of drawing entry i is proportional to max(1, len(i)).
type Corpus struct {
	mu      sync.RWMutex
	entries [][]byte
	weights []int64 // running cumulative weight, parallel to entries
	total   int64
	seen    map[uint64][]int // xxhash(bytes) -> indices with that hash, for O(1) amortized dedup
}

// NewCorpus returns an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{
		seen: make(map[uint64][]int),
	}
}

// Put inserts sample if no byte-identical entry is already present, and
// reports whether it was actually added. The corpus takes ownership of
// a defensive copy of sample.
func (c *Corpus) Put(sample []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := xxhash.Sum64(sample)
	for _, idx := range c.seen[h] {
		if bytesEqual(c.entries[idx], sample) {
			return false
		}
	}

	cp := make([]byte, len(sample))
	copy(cp, sample)

	idx := len(c.entries)
	c.entries = append(c.entries, cp)
	c.total += weight(cp)
	c.weights = append(c.weights, c.total)
	c.seen[h] = append(c.seen[h], idx)
	return true
}

// Size returns the number of entries in the corpus.
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Iter returns a snapshot slice of all entries, in insertion order. The
// caller must not mutate the returned byte slices.
func (c *Corpus) Iter() [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([][]byte, len(c.entries))
	copy(out, c.entries)
	return out
}

// Sample draws one entry with probability proportional to
// max(1, len(entry)), using a cryptographically secure random source.
// An empty corpus returns the empty byte string.
func (c *Corpus) Sample() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.entries) == 0 {
		return []byte{}
	}
	if c.total == 0 {
		return append([]byte{}, c.entries[0]...)
	}

	target, err := rand.Int(rand.Reader, big.NewInt(c.total))
	if err != nil {
		// crypto/rand failure is not recoverable; fall back to the
		// first entry rather than panic mid-run.
		return append([]byte{}, c.entries[0]...)
	}
	t := target.Int64()

	// c.weights is a running cumulative sum, so the first entry whose
	// cumulative weight exceeds t is the drawn one.
	lo, hi := 0, len(c.weights)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if c.weights[mid] > t {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return append([]byte{}, c.entries[lo]...)
}

func weight(sample []byte) int64 {
	if len(sample) < 1 {
		return 1
	}
	return int64(len(sample))
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
