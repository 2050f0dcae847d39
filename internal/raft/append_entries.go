package raft

import "github.com/rs/zerolog/log"

// HandleAppendEntries is the AppendEntries request handler.
// sender must be a known peer; any other condition is a protocol
// violation and returns ErrUnknownPeer. resp is filled with exactly one
// outcome on every non-error return.
func (r *Replica) HandleAppendEntries(sender NodeId, req *AppendEntriesRequest, resp *AppendEntriesResponse) error {
	if err := r.knownPeer(sender); err != nil {
		return err
	}

	ct, err := r.currentTerm()
	if err != nil {
		return err
	}

	if req.Term < ct {
		resp.Term = ct
		resp.Outcome = AppendEntriesStaleTerm
		log.Debug().Str("sender", string(sender)).Int64("reqTerm", int64(req.Term)).
			Int64("term", int64(ct)).Msg("AppendEntries: stale term")
		return nil
	}

	if r.role == Candidate || r.role == Leader {
		if r.role == Leader && req.Term == ct {
			// Two leaders agreeing on the same term: Election Safety has
			// already been violated somewhere in the cluster. Fatal.
			log.Error().Str("sender", string(sender)).Int64("term", int64(ct)).
				Msg("AppendEntries: received at own term while Leader")
			return ErrTwoLeadersSameTerm
		}
		if err := r.transitionToFollower(req.Term); err != nil {
			return err
		}
		// Re-enter with the same inputs now that role is Follower.
		return r.HandleAppendEntries(sender, req, resp)
	}

	// role == Follower here.
	if req.Term > ct {
		if err := r.store.SetCurrentTerm(req.Term); err != nil {
			log.Error().Err(err).Msg("AppendEntries: durable term write failed")
			return ErrStoreWrite
		}
		resp.Term = req.Term
	} else {
		resp.Term = ct
	}

	consistent, err := r.checkPrevEntry(req.PrevLogIndex, req.PrevLogTerm)
	if err != nil {
		return err
	}
	if !consistent {
		li, err := r.latestIndex()
		if err != nil {
			return err
		}
		if li < req.PrevLogIndex {
			resp.Outcome = AppendEntriesInconsistentPrevEntry
			log.Debug().Str("sender", string(sender)).Int64("prevLogIndex", int64(req.PrevLogIndex)).
				Msg("AppendEntries: log shorter than prevLogIndex")
			return nil
		}
		// Term mismatch at prevLogIndex: truncate and report.
		if err := r.store.TruncateEntries(req.PrevLogIndex); err != nil {
			log.Error().Err(err).Msg("AppendEntries: truncate failed")
			return ErrStoreWrite
		}
		resp.Outcome = AppendEntriesInconsistentPrevEntry
		log.Debug().Str("sender", string(sender)).Int64("prevLogIndex", int64(req.PrevLogIndex)).
			Msg("AppendEntries: term mismatch at prevLogIndex, truncated")
		return nil
	}

	if len(req.Entries) > 0 {
		tagged := make([]LogEntry, len(req.Entries))
		for i, e := range req.Entries {
			tagged[i] = LogEntry{Term: req.Term, Payload: e.Payload}
		}
		if err := r.store.AppendEntries(req.PrevLogIndex+1, tagged); err != nil {
			log.Error().Err(err).Msg("AppendEntries: append failed")
			return ErrStoreWrite
		}
	}
	resp.Outcome = AppendEntriesSuccess

	if req.LeaderCommit > r.commitIndex {
		lastNew := req.PrevLogIndex + LogIndex(len(req.Entries))
		newCommit := req.LeaderCommit
		if lastNew < newCommit {
			newCommit = lastNew
		}
		if newCommit > r.commitIndex {
			r.commitIndex = newCommit
			if err := r.applyThrough(r.commitIndex); err != nil {
				return err
			}
		}
	}

	r.shouldCampaign = false
	return nil
}

// checkPrevEntry implements  consistency check.
// prevIndex == 0 is always consistent (there is no entry to read; index 0
// conventionally carries term 0 -- a known ambiguity).
func (r *Replica) checkPrevEntry(prevIndex LogIndex, prevTerm Term) (bool, error) {
	if prevIndex == 0 {
		return true, nil
	}
	li, err := r.latestIndex()
	if err != nil {
		return false, err
	}
	if li < prevIndex {
		return false, nil
	}
	entry, err := r.store.Entry(prevIndex)
	if err != nil {
		return false, ErrStoreRead
	}
	return entry.Term == prevTerm, nil
}

// HandleAppendEntriesResponse is the leader bookkeeping handler:
// standard Raft match_index/next_index advancement plus retry-on-
// conflict. builder is filled with a retry AppendEntries when the
// return value is true.
func (r *Replica) HandleAppendEntriesResponse(responder NodeId, resp *AppendEntriesResponse, builder *AppendEntriesRequest) (bool, error) {
	if err := r.knownPeer(responder); err != nil {
		return false, err
	}
	if r.role != Leader {
		return false, nil
	}

	ct, err := r.currentTerm()
	if err != nil {
		return false, err
	}

	if resp.Term > ct {
		if err := r.store.SetCurrentTerm(resp.Term); err != nil {
			log.Error().Err(err).Msg("AppendEntriesResponse: durable term write failed")
			return false, ErrStoreWrite
		}
		if err := r.transitionToFollower(resp.Term); err != nil {
			return false, err
		}
		return false, nil
	}

	switch resp.Outcome {
	case AppendEntriesStaleTerm:
		return false, nil

	case AppendEntriesInconsistentPrevEntry:
		next := r.leader.nextIndex[responder]
		if next > 1 {
			next--
		}
		r.leader.nextIndex[responder] = next
		if err := r.prepareAppendEntriesFor(responder, builder); err != nil {
			return false, err
		}
		return true, nil

	case AppendEntriesSuccess:
		lastReplicated := r.leader.pendingIndex[responder]
		if lastReplicated < r.leader.matchIndex[responder] {
			lastReplicated = r.leader.matchIndex[responder]
		}
		r.leader.matchIndex[responder] = lastReplicated
		r.leader.nextIndex[responder] = lastReplicated + 1

		if err := r.advanceCommitIndex(); err != nil {
			return false, err
		}

		li, err := r.latestIndex()
		if err != nil {
			return false, err
		}
		if r.leader.nextIndex[responder] <= li {
			if err := r.prepareAppendEntriesFor(responder, builder); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, nil

	default:
		return false, nil
	}
}

// prepareAppendEntriesFor fills builder with the AppendEntries this
// leader currently owes peer, given nextIndex[peer], and records the
// highest index included as pendingIndex[peer] so a later success
// response knows what was just replicated (this does not pass the
// response handler the original request).
func (r *Replica) prepareAppendEntriesFor(peer NodeId, builder *AppendEntriesRequest) error {
	ct, err := r.currentTerm()
	if err != nil {
		return err
	}
	li, err := r.latestIndex()
	if err != nil {
		return err
	}
	next := r.leader.nextIndex[peer]
	prevIndex := next - 1
	var prevTerm Term
	if prevIndex > 0 {
		e, err := r.store.Entry(prevIndex)
		if err != nil {
			return ErrStoreRead
		}
		prevTerm = e.Term
	}
	entries, err := r.entriesFrom(next, li)
	if err != nil {
		return err
	}
	builder.Term = ct
	builder.PrevLogIndex = prevIndex
	builder.PrevLogTerm = prevTerm
	builder.Entries = entries
	builder.LeaderCommit = r.commitIndex

	if r.leader.pendingIndex == nil {
		r.leader.pendingIndex = make(map[NodeId]LogIndex, len(r.peers))
	}
	r.leader.pendingIndex[peer] = li
	return nil
}

// entriesFrom reads entries [from, through] from the store.
func (r *Replica) entriesFrom(from, through LogIndex) ([]LogEntry, error) {
	if from > through {
		return nil, nil
	}
	out := make([]LogEntry, 0, through-from+1)
	for i := from; i <= through; i++ {
		e, err := r.store.Entry(i)
		if err != nil {
			return nil, ErrStoreRead
		}
		out = append(out, e)
	}
	return out, nil
}

// advanceCommitIndex implements the Figure 8 commit rule: a leader may
// only commit entries from its own term by majority; find the largest N
// such that a majority of match_index (plus the leader's own log) are >=
// N and log[N].term == current_term.
func (r *Replica) advanceCommitIndex() error {
	ct, err := r.currentTerm()
	if err != nil {
		return err
	}
	li, err := r.latestIndex()
	if err != nil {
		return err
	}
	need := majority(r.clusterSize())

	for n := li; n > r.commitIndex; n-- {
		entry, err := r.store.Entry(n)
		if err != nil {
			return ErrStoreRead
		}
		if entry.Term != ct {
			continue
		}
		count := 1 // the leader itself
		for _, m := range r.leader.matchIndex {
			if m >= n {
				count++
			}
		}
		if count >= need {
			r.commitIndex = n
			return r.applyThrough(n)
		}
	}
	return nil
}
