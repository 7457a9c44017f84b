// Package trace implements the tracer adapter: the process-wide hook a
// target registers control-flow transfers with, and the bookkeeping
// that turns a stream of location hits into (prev, cur) coverage edges.
//
// In the original system this hook is installed by a compiler
// instrumentation pass. covfuzz has no such pass available, so targets
// call trace.Hit directly at the control-flow points they want tracked
// — the same contract (deliver (prev, cur) pairs in program order),
// wired by hand instead of by a build step. See SPEC_FULL.md §4.4, §9.
package trace

import (
	"sync"

	"github.com/covfuzz/covfuzz/internal/coverage"
)

var (
	mu   sync.Mutex
	prev uint32
	local *coverage.Map
)

func init() {
	local = coverage.NewMap()
}

// Hit records a control-flow transfer into location. It emits the edge
// (prev, location) into the process-local coverage map and then
// updates prev <- location >> 1, the standard right-shift trick that
// breaks the symmetry between an A→B and a B→A transition.
func Hit(location uint32) {
	mu.Lock()
	defer mu.Unlock()
	local.Observe(coverage.Edge{Prev: prev, Cur: location})
	prev = location >> 1
}

// Reset clears the process-local coverage map and the previous-location
// register, as required before each target invocation in the worker's
// main loop (§4.5 step 3).
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	local = coverage.NewMap()
	prev = 0
}

// Drain returns the process-local coverage map accumulated since the
// last Reset (or process start) and clears it, as required by the
// worker's main loop (§4.5 step 4).
func Drain() *coverage.Map {
	mu.Lock()
	defer mu.Unlock()
	out := local
	local = coverage.NewMap()
	prev = 0
	return out
}
