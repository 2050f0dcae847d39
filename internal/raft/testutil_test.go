package raft

import (
	"fmt"
	"math/rand"
)

// memStore is an in-memory Store for tests: no disk I/O, but the same
// contract as FileStore (set_current_term clears voted_for atomically,
// etc).
type memStore struct {
	term     Term
	votedFor NodeId
	hasVote  bool
	entries  []LogEntry
}

func newMemStore() *memStore { return &memStore{} }

func (s *memStore) CurrentTerm() (Term, error) { return s.term, nil }

func (s *memStore) SetCurrentTerm(t Term) error {
	s.term = t
	s.hasVote = false
	s.votedFor = ""
	return nil
}

func (s *memStore) IncCurrentTerm() (Term, error) {
	s.term++
	s.hasVote = false
	s.votedFor = ""
	return s.term, nil
}

func (s *memStore) VotedFor() (NodeId, bool, error) { return s.votedFor, s.hasVote, nil }

func (s *memStore) SetVotedFor(id NodeId) error {
	s.votedFor = id
	s.hasVote = true
	return nil
}

func (s *memStore) LatestIndex() (LogIndex, error) { return LogIndex(len(s.entries)), nil }

func (s *memStore) LatestTerm() (Term, error) {
	if len(s.entries) == 0 {
		return 0, nil
	}
	return s.entries[len(s.entries)-1].Term, nil
}

func (s *memStore) Entry(i LogIndex) (LogEntry, error) {
	if i < 1 || int(i) > len(s.entries) {
		return LogEntry{}, fmt.Errorf("index %d out of range (len=%d)", i, len(s.entries))
	}
	return s.entries[i-1], nil
}

func (s *memStore) AppendEntries(start LogIndex, entries []LogEntry) error {
	if start < 1 {
		return fmt.Errorf("append start must be >= 1")
	}
	end := int(start) - 1 + len(entries)
	if end > len(s.entries) {
		grown := make([]LogEntry, end)
		copy(grown, s.entries)
		s.entries = grown
	}
	copy(s.entries[start-1:], entries)
	return nil
}

func (s *memStore) TruncateEntries(i LogIndex) error {
	if i < 1 {
		s.entries = nil
		return nil
	}
	if int(i)-1 < len(s.entries) {
		s.entries = s.entries[:i-1]
	}
	return nil
}

var _ Store = (*memStore)(nil)

// stubSM is a StateMachine that records every applied payload in order.
type stubSM struct {
	applied [][]byte
}

func (sm *stubSM) Apply(payload []byte) ([]byte, error) {
	sm.applied = append(sm.applied, payload)
	return nil, nil
}

func newReplica(t interface {
	Fatalf(format string, args ...interface{})
}, self NodeId, peers []NodeId) (*Replica, *memStore, *stubSM) {
	store := newMemStore()
	sm := &stubSM{}
	r, err := New(self, peers, store, sm, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, store, sm
}
