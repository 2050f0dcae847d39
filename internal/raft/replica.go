package raft

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Role tags the three-way ReplicaState variant. Candidate is a
// real state here, with its own granted_votes payload, rather than
// being folded into Follower.
type Role int

const (
	Follower Role = iota
	Candidate
	Leader
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "Follower"
	case Candidate:
		return "Candidate"
	case Leader:
		return "Leader"
	default:
		return "unknown-role"
	}
}

// candidateState is the Candidate variant's payload.
type candidateState struct {
	grantedVotes int
}

// leaderState is the Leader variant's payload: per-peer progress
// bookkeeping, keyed by NodeId. An unordered map suffices -- Raft
// clusters are small, so O(peers) quorum counting is fine.
type leaderState struct {
	lastIndex  LogIndex
	nextIndex  map[NodeId]LogIndex
	matchIndex map[NodeId]LogIndex

	// pendingIndex records, per peer, the last log index included in the
	// most recently built outbound AppendEntries for that peer. The
	// response handler has no other way to learn "the last index just
	// replicated" since this does not pass it the original
	// request, only the response.
	pendingIndex map[NodeId]LogIndex
}

// Replica is the single long-lived consensus automaton owned by one
// node. Exactly one handler executes at a time against a given Replica
//; it performs no internal locking and expects its caller to
// serialize access.
type Replica struct {
	self  NodeId
	peers map[NodeId]struct{}

	store Store
	sm    StateMachine

	role      Role
	candidate candidateState
	leader    leaderState

	commitIndex    LogIndex
	lastApplied    LogIndex
	shouldCampaign bool

	rng *rand.Rand

	commitWatcher *commitWatcher

	// electionMin/electionMax bound the randomized timeout delay.
	// Defaulted from HeartbeatMin/HeartbeatMax; overridable via
	// SetElectionBounds so tests can run faster elections without
	// changing the documented production constants.
	electionMin, electionMax time.Duration
}

// New constructs a Replica in the Follower role with commit_index =
// last_applied = 0 and should_campaign = true. peers must not
// contain self. rng is the injectable random source used for election
// timeout jitter; pass nil for a default seeded from math/rand's
// package-level source.
func New(self NodeId, peers []NodeId, store Store, sm StateMachine, rng *rand.Rand) (*Replica, error) {
	peerSet := make(map[NodeId]struct{}, len(peers))
	for _, p := range peers {
		peerSet[p] = struct{}{}
	}
	clusterSize := len(peerSet) + 1
	if clusterSize <= 0 {
		// len()+1 overflowing int is only reachable on a 32-bit build
		// with an implausibly large peer set.
		return nil, ErrClusterSizeOverflow
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	r := &Replica{
		self:           self,
		peers:          peerSet,
		store:          store,
		sm:             sm,
		role:           Follower,
		commitIndex:    0,
		lastApplied:    0,
		shouldCampaign: true,
		rng:            rng,
		commitWatcher:  newCommitWatcher(),
		electionMin:    HeartbeatMin,
		electionMax:    HeartbeatMax,
	}
	log.Info().Str("self", string(self)).Int("peers", len(peerSet)).Msg("replica constructed")
	return r, nil
}

// Role reports the replica's current role, for diagnostics/tests.
func (r *Replica) Role() Role { return r.role }

// CommitIndex reports the current commit index, for diagnostics/tests.
func (r *Replica) CommitIndex() LogIndex { return r.commitIndex }

// knownPeer fails fast: a message from a NodeId outside the configured
// peer set is a programming error, not a protocol condition.
func (r *Replica) knownPeer(id NodeId) error {
	if _, ok := r.peers[id]; !ok {
		log.Error().Str("sender", string(id)).Msg("message from unknown peer")
		return ErrUnknownPeer
	}
	return nil
}

// majority returns floor(n/2)+1, the quorum size for a cluster of n
// members.
func majority(n int) int {
	return n/2 + 1
}

// clusterSize is |peers| + 1 (self).
func (r *Replica) clusterSize() int {
	return len(r.peers) + 1
}

// latestIndex/latestTerm read through to the store, treating an empty
// log as index 0 / term 0.
func (r *Replica) latestIndex() (LogIndex, error) {
	idx, err := r.store.LatestIndex()
	if err != nil {
		return 0, ErrStoreRead
	}
	return idx, nil
}

func (r *Replica) latestTerm() (Term, error) {
	t, err := r.store.LatestTerm()
	if err != nil {
		return 0, ErrStoreRead
	}
	return t, nil
}

func (r *Replica) currentTerm() (Term, error) {
	t, err := r.store.CurrentTerm()
	if err != nil {
		return 0, ErrStoreRead
	}
	return t, nil
}
