package raft

import "sync"

// commitWatcher lets a caller outside the single-threaded handler
// dispatch learn when a particular log index has been applied,
// without any handler itself suspending. HandleClientRequest returns the
// index synchronously; the caller registers interest in that index here
// and is released once applyThrough reaches it, from whichever handler
// call advances commit_index far enough.
type commitWatcher struct {
	mu      sync.Mutex
	waiters map[LogIndex][]chan struct{}
	// applied is the highest index passed to release so far.
	applied LogIndex
}

func newCommitWatcher() *commitWatcher {
	return &commitWatcher{waiters: make(map[LogIndex][]chan struct{})}
}

// await returns a channel that closes once index has been applied.
func (w *commitWatcher) await(index LogIndex) <-chan struct{} {
	ch := make(chan struct{})
	w.mu.Lock()
	if index <= w.applied {
		w.mu.Unlock()
		close(ch)
		return ch
	}
	w.waiters[index] = append(w.waiters[index], ch)
	w.mu.Unlock()
	return ch
}

// release closes and removes every waiter registered for an index <=
// through.
func (w *commitWatcher) release(through LogIndex) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if through > w.applied {
		w.applied = through
	}
	for idx, chans := range w.waiters {
		if idx > through {
			continue
		}
		for _, ch := range chans {
			close(ch)
		}
		delete(w.waiters, idx)
	}
}

// Await returns a channel that closes once index has been applied to the
// state machine. Safe to call concurrently with in-flight handler calls;
// it never blocks a handler. commitWatcher is initialized unconditionally
// in New, so this never races with a handler's unsynchronized access to
// the field itself.
func (r *Replica) Await(index LogIndex) <-chan struct{} {
	return r.commitWatcher.await(index)
}
