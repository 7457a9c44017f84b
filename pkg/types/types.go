// Package types defines the wire-level data structures shared between
// the orchestrator and worker processes of covfuzz.
package types

import (
	"time"

	"github.com/covfuzz/covfuzz/internal/coverage"
)

// MutationType names a bytewise transformation. WorkerReport has a
// Mutation field of this type for diagnostics only; the worker leaves
// it at its zero value, and it never affects engine semantics.
type MutationType int

const (
	BitFlip MutationType = iota
	ByteSet
	RangeDelete
	RangeInsert
	RangeDuplicate
	RangeOverwrite
	ArithmeticAdd
	InterestingValue
	DictionaryInsert
)

func (m MutationType) String() string {
	switch m {
	case BitFlip:
		return "bit_flip"
	case ByteSet:
		return "byte_set"
	case RangeDelete:
		return "range_delete"
	case RangeInsert:
		return "range_insert"
	case RangeDuplicate:
		return "range_duplicate"
	case RangeOverwrite:
		return "range_overwrite"
	case ArithmeticAdd:
		return "arithmetic_add"
	case InterestingValue:
		return "interesting_value"
	case DictionaryInsert:
		return "dictionary_insert"
	default:
		return "unknown"
	}
}

// ReportKind discriminates the two shapes a WorkerReport can take.
type ReportKind int

const (
	ReportNewCoverage ReportKind = iota
	ReportCrash
)

// WorkerReport is the discriminated union a worker sends to the
// orchestrator: either a sample that exercised previously-unseen edges,
// or a sample that made the target raise.
type WorkerReport struct {
	Kind      ReportKind
	WorkerID  string
	Sample    []byte
	ErrorText string            // populated only when Kind == ReportCrash
	NewEdges  map[coverage.Edge]uint64
	Mutation  MutationType
}

// CrashRecord is a Sample plus the textual representation of the error
// the target raised for it. The on-disk file name is the hex SHA-256
// of Sample.
type CrashRecord struct {
	Sample    []byte
	ErrorText string
	FirstSeen time.Time
}

// Broadcast is what the orchestrator sends down to a worker: a newly
// canonical sample it should fold into its local corpus.
type Broadcast struct {
	Sample []byte
}

// InitPayload is what a freshly spawned worker receives at startup,
// sent as the first frame on the broadcast pipe before the main
// report/broadcast loop begins: the initial corpus, the initial coverage snapshot, and its
// own identity and run configuration.
type InitPayload struct {
	WorkerID      string
	Target        string
	Corpus        [][]byte
	Coverage      map[coverage.Edge]uint64
	CloseStdout   bool
	CloseStderr   bool
	DictTokens    [][]byte
}
