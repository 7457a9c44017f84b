package mutator

import "encoding/binary"

// interesting8/16/32/64 are the AFL-style boundary-value tables used by
// the interesting-integer transformation: {0, 1, -1, MIN, MAX} at each
// width, reinterpreted as raw bytes.
var (
	interesting8  = []int8{0, 1, -1, -128, 127}
	interesting16 = []int16{0, 1, -1, -32768, 32767}
	interesting32 = []int32{0, 1, -1, -2147483648, 2147483647}
	interesting64 = []int64{0, 1, -1, -9223372036854775808, 9223372036854775807}
)

const maxInsertLen = 10 // L in "insert a contiguous run of random bytes"

// removeRange deletes a contiguous byte range: transformation 1.
func (m *Mutator) removeRange(input []byte) ([]byte, bool) {
	if len(input) == 0 {
		return nil, false
	}
	start := secureIntn(len(input))
	maxLen := len(input) - start
	length := secureIntn(maxLen) + 1

	out := make([]byte, 0, len(input)-length)
	out = append(out, input[:start]...)
	out = append(out, input[start+length:]...)
	return out, true
}

// insertRandomRun inserts a run of cryptographically random bytes at a
// random position: transformation 2.
func (m *Mutator) insertRandomRun(input []byte) ([]byte, bool) {
	pos := secureIntn(len(input) + 1)
	length := secureIntn(maxInsertLen) + 1
	run := secureBytes(length)

	out := make([]byte, 0, len(input)+length)
	out = append(out, input[:pos]...)
	out = append(out, run...)
	out = append(out, input[pos:]...)
	return out, true
}

// duplicateRange copies a contiguous byte range to another position,
// lengthening the input: transformation 3.
func (m *Mutator) duplicateRange(input []byte) ([]byte, bool) {
	if len(input) == 0 {
		return nil, false
	}
	start := secureIntn(len(input))
	length := secureIntn(len(input)-start) + 1
	chunk := input[start : start+length]
	dest := secureIntn(len(input) + 1)

	out := make([]byte, 0, len(input)+length)
	out = append(out, input[:dest]...)
	out = append(out, chunk...)
	out = append(out, input[dest:]...)
	return out, true
}

// overwriteRange copies a contiguous byte range over another position,
// leaving length unchanged: transformation 4.
func (m *Mutator) overwriteRange(input []byte) ([]byte, bool) {
	if len(input) == 0 {
		return nil, false
	}
	start := secureIntn(len(input))
	length := secureIntn(len(input)-start) + 1
	chunk := input[start : start+length]

	dest := secureIntn(len(input) - length + 1)
	out := copyOf(input)
	copy(out[dest:dest+length], chunk)
	return out, true
}

// flipBit flips a single, uniformly random bit: transformation 5.
func flipBit(input []byte) ([]byte, bool) {
	if len(input) == 0 {
		return nil, false
	}
	out := copyOf(input)
	bitPos := secureIntn(len(input) * 8)
	out[bitPos/8] ^= 1 << uint(bitPos%8)
	return out, true
}

// setByte overwrites a single byte with a uniformly random value
// (which may, with probability 1/256, equal the original): transformation 6.
func setByte(input []byte) ([]byte, bool) {
	if len(input) == 0 {
		return nil, false
	}
	out := copyOf(input)
	idx := secureIntn(len(input))
	out[idx] = secureBytes(1)[0]
	return out, true
}

// addDelta adds a signed delta in [-35, +35] \ {0} to a single byte,
// modulo 256: transformation 7.
func addDelta(input []byte) ([]byte, bool) {
	if len(input) == 0 {
		return nil, false
	}
	out := copyOf(input)
	idx := secureIntn(len(input))

	delta := secureIntn(70) - 35 // [-35, 34]
	if delta >= 0 {
		delta++ // shift to [-35,-1] U [1,35], excluding 0
	}
	out[idx] = byte(int(out[idx]) + delta)
	return out, true
}

// overwriteInteresting overwrites the bytes at a random aligned offset
// with a known "interesting" integer of width 8, 16, 32, or 64 bits, in
// either byte order: transformation 8.
func overwriteInteresting(input []byte) ([]byte, bool) {
	widths := []int{1, 2, 4, 8}
	// Keep only widths that fit, so a short input still participates
	// via its 8-bit option instead of always being skipped.
	fitting := widths[:0:0]
	for _, w := range widths {
		if w <= len(input) {
			fitting = append(fitting, w)
		}
	}
	if len(fitting) == 0 {
		return nil, false
	}
	width := fitting[secureIntn(len(fitting))]

	maxOffset := len(input) - width
	// Aligned offset: a multiple of width, bounded by maxOffset.
	numAligned := maxOffset/width + 1
	offset := secureIntn(numAligned) * width

	bigEndian := secureIntn(2) == 0
	value := encodeInteresting(width, bigEndian)

	out := copyOf(input)
	copy(out[offset:offset+width], value)
	return out, true
}

func encodeInteresting(width int, bigEndian bool) []byte {
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(interesting8[secureIntn(len(interesting8))])
	case 2:
		v := uint16(interesting16[secureIntn(len(interesting16))])
		if bigEndian {
			binary.BigEndian.PutUint16(buf, v)
		} else {
			binary.LittleEndian.PutUint16(buf, v)
		}
	case 4:
		v := uint32(interesting32[secureIntn(len(interesting32))])
		if bigEndian {
			binary.BigEndian.PutUint32(buf, v)
		} else {
			binary.LittleEndian.PutUint32(buf, v)
		}
	case 8:
		v := uint64(interesting64[secureIntn(len(interesting64))])
		if bigEndian {
			binary.BigEndian.PutUint64(buf, v)
		} else {
			binary.LittleEndian.PutUint64(buf, v)
		}
	}
	return buf
}
