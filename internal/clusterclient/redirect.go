// Package clusterclient holds ambient, best-effort bookkeeping that sits
// outside the replica core by design: the core itself tracks no "last
// known leader" for client redirection, so this package supplies that
// hint at a layer the core never consults.
package clusterclient

import (
	"sync"

	"github.com/kvald/raftd/internal/raft"
)

// RedirectTracker remembers the most recent node that this replica has
// seen act as leader, namely the sender of the last AppendEntries it
// accepted. It does not record this replica itself as leader. It is a
// strictly weaker guarantee than true leader tracking: it can be stale
// or empty, and HTTP callers must treat it only as a hint.
type RedirectTracker struct {
	mu     sync.RWMutex
	leader raft.NodeId
	known  bool
}

// NewRedirectTracker constructs an empty tracker.
func NewRedirectTracker() *RedirectTracker {
	return &RedirectTracker{}
}

// Observe records id as the most recently seen leader.
func (t *RedirectTracker) Observe(id raft.NodeId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leader = id
	t.known = true
}

// Clear forgets the last known leader, e.g. after a higher-term message
// deposes it and no successor has announced itself yet.
func (t *RedirectTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.known = false
	t.leader = ""
}

// Hint returns the last observed leader, if any.
func (t *RedirectTracker) Hint() (raft.NodeId, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.leader, t.known
}
