package raft

import "github.com/rs/zerolog/log"

// HandleRequestVote is the RequestVote request handler.
func (r *Replica) HandleRequestVote(candidate NodeId, req *RequestVoteRequest, resp *RequestVoteResponse) error {
	if err := r.knownPeer(candidate); err != nil {
		return err
	}

	lt, err := r.currentTerm()
	if err != nil {
		return err
	}
	li, err := r.latestIndex()
	if err != nil {
		return err
	}
	ltm, err := r.latestTerm()
	if err != nil {
		return err
	}

	if req.Term > lt {
		if err := r.store.SetCurrentTerm(req.Term); err != nil {
			log.Error().Err(err).Msg("RequestVote: durable term write failed")
			return ErrStoreWrite
		}
		resp.Term = req.Term
	} else {
		resp.Term = lt
	}

	if req.Term < lt {
		resp.Outcome = RequestVoteStaleTerm
		log.Debug().Str("candidate", string(candidate)).Int64("reqTerm", int64(req.Term)).
			Int64("term", int64(lt)).Msg("RequestVote: stale term")
		return nil
	}

	if !logUpToDate(req.LastLogTerm, req.LastLogIndex, ltm, li) {
		resp.Outcome = RequestVoteInconsistentLog
		log.Debug().Str("candidate", string(candidate)).Msg("RequestVote: candidate log not up to date")
		return nil
	}

	votedFor, ok, err := r.store.VotedFor()
	if err != nil {
		return ErrStoreRead
	}
	if !ok {
		if err := r.store.SetVotedFor(candidate); err != nil {
			log.Error().Err(err).Msg("RequestVote: durable vote write failed")
			return ErrStoreWrite
		}
		resp.Outcome = RequestVoteGranted
		r.shouldCampaign = false
		log.Info().Str("candidate", string(candidate)).Msg("RequestVote: granted")
		return nil
	}
	if votedFor == candidate {
		// Idempotent: re-granting the same candidate in the same term.
		resp.Outcome = RequestVoteGranted
		r.shouldCampaign = false
		return nil
	}
	resp.Outcome = RequestVoteAlreadyVoted
	log.Debug().Str("candidate", string(candidate)).Str("votedFor", string(votedFor)).
		Msg("RequestVote: already voted for another candidate")
	return nil
}

// logUpToDate is the lexicographic up-to-date test Raft §5.4.1
// requires: compare term first, then index. Comparing index alone
// would let a candidate with a shorter but higher-term log lose to one
// with a longer but stale-term log.
func logUpToDate(candidateTerm Term, candidateIndex LogIndex, ourTerm Term, ourIndex LogIndex) bool {
	if candidateTerm != ourTerm {
		return candidateTerm > ourTerm
	}
	return candidateIndex >= ourIndex
}

// HandleRequestVoteResponse is the candidate tally handler.
// builder is filled with the heartbeat AppendEntries to broadcast when
// the return value is true (this replica just became Leader).
func (r *Replica) HandleRequestVoteResponse(responder NodeId, resp *RequestVoteResponse, builder *AppendEntriesRequest) (bool, error) {
	if err := r.knownPeer(responder); err != nil {
		return false, err
	}
	lt, err := r.currentTerm()
	if err != nil {
		return false, err
	}
	vt := resp.Term

	if lt < vt {
		if err := r.store.SetCurrentTerm(vt); err != nil {
			log.Error().Err(err).Msg("RequestVoteResponse: durable term write failed")
			return false, ErrStoreWrite
		}
		if r.role == Candidate {
			r.candidate.grantedVotes = 0
		}
		return false, nil
	}
	if lt > vt {
		return false, nil
	}

	if r.role == Candidate && resp.Outcome == RequestVoteGranted {
		r.candidate.grantedVotes++
		if r.candidate.grantedVotes >= majority(r.clusterSize()) {
			if err := r.transitionToLeader(builder); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}
