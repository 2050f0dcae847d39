package raft

import "github.com/rs/zerolog/log"

// transitionToFollower persists the new term (which, per Store's
// contract, clears VotedFor atomically) unless the term is unchanged, and
// sets role := Follower.
func (r *Replica) transitionToFollower(t Term) error {
	ct, err := r.currentTerm()
	if err != nil {
		return err
	}
	if t != ct {
		if err := r.store.SetCurrentTerm(t); err != nil {
			log.Error().Err(err).Msg("transitionToFollower: durable term write failed")
			return ErrStoreWrite
		}
	}
	r.role = Follower
	log.Debug().Int64("term", int64(t)).Msg("-> Follower")
	return nil
}

// transitionToCandidate increments current_term, votes for self, and
// enters Candidate with granted_votes = 1 (the self-vote), filling
// builder with the outbound RequestVote.
func (r *Replica) transitionToCandidate(builder *RequestVoteRequest) error {
	newTerm, err := r.store.IncCurrentTerm()
	if err != nil {
		log.Error().Err(err).Msg("transitionToCandidate: durable term increment failed")
		return ErrStoreWrite
	}
	if err := r.store.SetVotedFor(r.self); err != nil {
		log.Error().Err(err).Msg("transitionToCandidate: durable vote write failed")
		return ErrStoreWrite
	}
	r.role = Candidate
	r.candidate = candidateState{grantedVotes: 1}

	li, err := r.latestIndex()
	if err != nil {
		return err
	}
	lt, err := r.latestTerm()
	if err != nil {
		return err
	}
	builder.Term = newTerm
	builder.LastLogIndex = li
	builder.LastLogTerm = lt

	log.Info().Int64("term", int64(newTerm)).Msg("-> Candidate")
	return nil
}

// transitionToLeader enters Leader with last_index set from the log,
// next_index = last_index+1 and match_index = 0 for every peer, filling
// builder with an initial empty AppendEntries asserting leadership.
func (r *Replica) transitionToLeader(builder *AppendEntriesRequest) error {
	li, err := r.latestIndex()
	if err != nil {
		return err
	}
	lt, err := r.latestTerm()
	if err != nil {
		return err
	}
	ct, err := r.currentTerm()
	if err != nil {
		return err
	}

	r.role = Leader
	r.leader = leaderState{
		lastIndex:    li,
		nextIndex:    make(map[NodeId]LogIndex, len(r.peers)),
		matchIndex:   make(map[NodeId]LogIndex, len(r.peers)),
		pendingIndex: make(map[NodeId]LogIndex, len(r.peers)),
	}
	for p := range r.peers {
		r.leader.nextIndex[p] = li + 1
		r.leader.matchIndex[p] = 0
		r.leader.pendingIndex[p] = li
	}

	builder.Term = ct
	builder.PrevLogIndex = li
	builder.PrevLogTerm = lt
	builder.Entries = nil
	builder.LeaderCommit = r.commitIndex

	log.Info().Int64("term", int64(ct)).Int64("lastIndex", int64(li)).Msg("-> Leader")
	return nil
}

// applyThrough hands entries (lastApplied, through] to the state machine
// in order, advancing lastApplied as it goes. Shared by both the
// Follower commit path and the Leader commit path.
func (r *Replica) applyThrough(through LogIndex) error {
	for r.lastApplied < through {
		next := r.lastApplied + 1
		entry, err := r.store.Entry(next)
		if err != nil {
			log.Error().Err(err).Int64("index", int64(next)).Msg("applyThrough: read failed")
			return ErrStoreRead
		}
		if _, err := r.sm.Apply(entry.Payload); err != nil {
			// The state machine is a client collaborator; this does
			// not classify apply failures, so they are logged but do
			// not block commit-index bookkeeping from progressing.
			log.Error().Err(err).Int64("index", int64(next)).Msg("state machine apply failed")
		}
		r.lastApplied = next
	}
	r.commitWatcher.release(r.lastApplied)
	return nil
}
