// Package mutator implements the fixed menu of bytewise transformations
// used to synthesize candidate inputs from an existing corpus sample.
package mutator

import (
	"crypto/rand"
	"math/big"
)

// transform is one entry in the fixed mutation menu. It returns the
// mutated bytes and whether it was applicable to input; when false, the
// caller draws again rather than returning an unmodified copy.
type transform func(input []byte) ([]byte, bool)

// Mutator holds the menu of transformations and an optional dictionary
// of tokens that, when non-empty, adds a ninth transformation (§4.3 of
// the specification this engine implements).
type Mutator struct {
	builtins []transform
	dict     [][]byte
}

// New returns a Mutator with the eight mandatory transformations. Call
// SetDictionary to enable the supplemental dictionary-insert mutation.
func New() *Mutator {
	m := &Mutator{}
	m.builtins = []transform{
		m.removeRange,
		m.insertRandomRun,
		m.duplicateRange,
		m.overwriteRange,
		flipBit,
		setByte,
		addDelta,
		overwriteInteresting,
	}
	return m
}

// SetDictionary installs (or clears, with nil/empty) the token set used
// by the dictionary-insert transformation.
func (m *Mutator) SetDictionary(tokens [][]byte) {
	m.dict = tokens
}

// Mutate produces a fresh byte string derived from sample by applying
// one of the menu transformations chosen uniformly at random. If a
// transformation is inapplicable to the current input it is silently
// skipped and another is drawn, so Mutate always returns a result
// (which may, rarely, equal the input).
func (m *Mutator) Mutate(sample []byte) []byte {
	menu := m.builtins
	if len(m.dict) > 0 {
		menu = append(append([]transform{}, m.builtins...), m.dictionaryInsert)
	}

	for attempts := 0; attempts < 64; attempts++ {
		idx := secureIntn(len(menu))
		out, ok := menu[idx](sample)
		if ok {
			return out
		}
	}
	// Every transform was inapplicable (e.g. empty input hit nothing but
	// delete/duplicate/overwrite repeatedly); fall back to a copy so the
	// contract "mutate always returns a valid byte string" still holds.
	out := make([]byte, len(sample))
	copy(out, sample)
	return out
}

// secureIntn returns a uniform random integer in [0, n) drawn from a
// cryptographically secure source. Mutation randomness must never come
// from a seeded PRNG: the fuzzing trajectory need not be reproducible,
// but mutations must not be predictable.
func secureIntn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand is not expected to fail on a supported platform;
		// degrade to the first option rather than panic mid-mutation.
		return 0
	}
	return int(v.Int64())
}

// secureBytes returns n cryptographically random bytes.
func secureBytes(n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return buf // zero-filled; still a valid byte string
	}
	return buf
}

func copyOf(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
