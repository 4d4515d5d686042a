package tree

import (
	"sync/atomic"

	"github.com/signadot/xmlh/debug"
)

// The guard is advisory. It counts the live aliases of a holder and
// refuses mutation through any of them when more than the threshold
// exist. It does not track borrows, so two goroutines holding the only
// alias each of two different holders can still race on overlapping
// subtrees; the per-Document lock only makes each operation atomic.
var threshold atomic.Int64

func init() {
	threshold.Store(1)
}

// MutationThreshold returns the number of live aliases a node may have
// and still be mutated.
func MutationThreshold() int {
	return int(threshold.Load())
}

// SetMutationThreshold sets the process wide threshold and returns the
// previous one.
func SetMutationThreshold(n int) int {
	return int(threshold.Swap(int64(n)))
}

// guardLocked checks that h may be mutated. r.mu must be held.
func (r *registry) guardLocked(h *holder) error {
	if r.closed {
		return ErrClosed
	}
	if h.removed {
		return ErrRemoved
	}
	limit := MutationThreshold()
	if h.aliases <= limit {
		return nil
	}
	r.metrics.GuardRejected()
	r.log.Debug("mutation refused", "pos", h.pos, "aliases", h.aliases, "threshold", limit)
	if debug.Guard() {
		debug.Logf("guard: pos %d has %d aliases (threshold %d)\n", h.pos, h.aliases, limit)
	}
	return &AliasingError{Aliases: h.aliases, Threshold: limit}
}
