package raft

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Election timeout bounds.
const (
	HeartbeatMin = 150 * time.Millisecond
	HeartbeatMax = 300 * time.Millisecond
)

// Timeout is invoked by the external scheduler when the randomized
// election interval elapses. It fills a RequestVote builder
// if campaigning, and returns the next randomized delay together with
// whether the caller should broadcast builder to every peer.
func (r *Replica) Timeout(builder *RequestVoteRequest) (time.Duration, bool, error) {
	var sendBroadcast bool

	if !r.shouldCampaign || r.role == Leader {
		sendBroadcast = false
	} else if len(r.peers) == 0 {
		if err := r.solitaryFastPath(); err != nil {
			return 0, false, err
		}
		sendBroadcast = false
	} else {
		if err := r.transitionToCandidate(builder); err != nil {
			return 0, false, err
		}
		sendBroadcast = true
	}

	r.shouldCampaign = true
	delay := r.randomElectionDelay()
	return delay, sendBroadcast, nil
}

// solitaryFastPath handles the zero-peer cluster case: a
// single-node cluster can always elect itself leader immediately,
// without waiting on any RPC round trip.
func (r *Replica) solitaryFastPath() error {
	if r.role != Follower {
		log.Error().Str("role", r.role.String()).Msg("solitary fast path invoked outside Follower")
		return ErrUnknownPeer
	}
	if _, ok, err := r.store.VotedFor(); err != nil {
		return ErrStoreRead
	} else if ok {
		log.Error().Msg("solitary fast path invoked with existing vote")
		return ErrStoreWrite
	}

	newTerm, err := r.store.IncCurrentTerm()
	if err != nil {
		return ErrStoreWrite
	}
	if err := r.store.SetVotedFor(r.self); err != nil {
		return ErrStoreWrite
	}

	li, err := r.latestIndex()
	if err != nil {
		return err
	}
	r.role = Leader
	r.leader = leaderState{
		lastIndex:    li,
		nextIndex:    map[NodeId]LogIndex{},
		matchIndex:   map[NodeId]LogIndex{},
		pendingIndex: map[NodeId]LogIndex{},
	}
	log.Info().Int64("term", int64(newTerm)).Msg("solitary replica: self-elected Leader")
	return nil
}

// randomElectionDelay draws uniformly from [electionMin, electionMax).
func (r *Replica) randomElectionDelay() time.Duration {
	span := r.electionMax - r.electionMin
	jitter := time.Duration(r.rng.Int63n(int64(span)))
	return r.electionMin + jitter
}

// SetElectionBounds overrides the randomized timeout range, which
// otherwise defaults to [HeartbeatMin, HeartbeatMax). Tests use this to
// run faster elections; production code should leave the
// documented 150/300ms bounds in place.
func (r *Replica) SetElectionBounds(min, max time.Duration) {
	r.electionMin = min
	r.electionMax = max
}
