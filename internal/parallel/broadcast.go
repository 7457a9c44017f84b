// Package parallel paces and deduplicates the orchestrator's outbound
// broadcast stream: the flow of newly-canonical corpus samples sent to
// every live worker whenever the Coverage Map grows (SPEC_FULL.md §4.6).
// A long-running, high-throughput session can find new edges faster
// than workers can usefully absorb them; this package keeps that
// stream bounded instead of letting it back up against a slow worker's
// pipe indefinitely.
package parallel

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// Broadcaster rate-limits and deduplicates a stream of samples destined
// for every worker. Samples already seen recently (by content hash) are
// dropped rather than re-sent, since a worker that already absorbed a
// sample gains nothing from receiving it again.
type Broadcaster struct {
	limiter *rate.Limiter
	recent  *lru.Cache[uint64, struct{}]
	hash    func([]byte) uint64
}

// NewBroadcaster returns a Broadcaster allowing up to ratePerSecond
// sends per second (bursting up to burst), deduplicating against the
// last recentSize distinct sample hashes.
func NewBroadcaster(ratePerSecond float64, burst, recentSize int, hash func([]byte) uint64) (*Broadcaster, error) {
	cache, err := lru.New[uint64, struct{}](recentSize)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		recent:  cache,
		hash:    hash,
	}, nil
}

// Admit reports whether sample should be sent now: it must not be a
// recent duplicate, and a rate-limiter token must be available. Calling
// Admit always marks sample as seen, whether or not it is admitted, so
// a sample rejected purely on rate grounds is not retried later as if
// it were new.
func (b *Broadcaster) Admit(sample []byte) bool {
	h := b.hash(sample)
	if _, dup := b.recent.Get(h); dup {
		return false
	}
	b.recent.Add(h, struct{}{})
	return b.limiter.Allow()
}

// Wait blocks until either a token is available or ctx is done,
// unconditionally on dedup (used by callers that must eventually
// deliver a sample rather than drop it under pressure).
func (b *Broadcaster) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// DefaultRate is a conservative broadcast pace: fast enough that new
// coverage propagates to workers promptly, slow enough that a tight
// crash-discovery loop cannot flood every worker's pipe at once.
const DefaultRate = 200.0

// DefaultBurst allows an initial burst up to this size before the
// steady-state rate applies, covering the startup case where the
// initial seed corpus fans out to every worker at once.
const DefaultBurst = 64

// DefaultRecentWindow bounds the dedup cache; entries beyond this
// count age out in LRU order, so dedup covers only the most recent
// broadcasts, not every sample ever sent.
const DefaultRecentWindow = 4096

// WaitTimeout is the longest a caller should block in Wait before
// treating the broadcaster as backed up.
const WaitTimeout = 2 * time.Second
