package target

import (
	"bytes"
	"errors"
)

// The three built-in targets below exist so covfuzz can exercise its
// own testable properties (SPEC_FULL.md §8) end to end without an
// external target binary. They are registered eagerly; --target
// selects among them like any other registered target.
func init() {
	Register("divide-by-marker", divideByMarker)
	Register("cobra-literal", cobraLiteral)
	Register("noop", noop)
}

// divideByMarker raises iff the first byte is the marker 0x41 ('A'),
// mirroring scenario 1 ("trivial crash") in SPEC_FULL.md §8.
func divideByMarker(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] != 0x41 {
		return nil
	}
	divisor := 0
	_ = 1 / divisor // panics with a division-by-zero runtime error
	return nil
}

// cobraLiteral raises iff the input is exactly the 8-byte literal
// "COBRA!!!", mirroring scenario 2 ("unreachable branch").
func cobraLiteral(data []byte) error {
	if bytes.Equal(data, []byte("COBRA!!!")) {
		return errors.New("reached the unreachable branch")
	}
	return nil
}

// noop never raises and records no interesting side effects, mirroring
// scenario 3 ("no-op target").
func noop(data []byte) error {
	return nil
}
