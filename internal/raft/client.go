package raft

import "github.com/rs/zerolog/log"

// HandleClientRequest is the client-command handler. On Leader, it
// appends (current_term, payload) at latest_log_index+1 and returns
// the index/term handle the caller can pass to Await to learn when the
// entry commits. On any other role, it reports ClientRequestNotLeader;
// the core itself tracks no "last known leader" to redirect to -- that
// is an ambient-layer concern.
func (r *Replica) HandleClientRequest(req *ClientRequest, resp *ClientResponse) error {
	if r.role != Leader {
		resp.Outcome = ClientRequestNotLeader
		return nil
	}

	ct, err := r.currentTerm()
	if err != nil {
		return err
	}
	li, err := r.latestIndex()
	if err != nil {
		return err
	}
	idx := li + 1
	entry := LogEntry{Term: ct, Payload: req.Payload}
	if err := r.store.AppendEntries(idx, []LogEntry{entry}); err != nil {
		log.Error().Err(err).Msg("ClientRequest: append failed")
		return ErrStoreWrite
	}
	r.leader.lastIndex = idx

	resp.Outcome = ClientRequestAccepted
	resp.Index = idx
	resp.Term = ct
	log.Debug().Int64("index", int64(idx)).Int64("term", int64(ct)).Msg("ClientRequest: appended")
	return nil
}

// PrepareReplication fills builder with the AppendEntries this leader
// currently owes peer, for the transport layer to send after a
// ClientRequest append (or as part of a heartbeat fan-out). It is the
// same bookkeeping the response handler uses to build a retry, exposed
// here so the initial send after an append uses identical logic.
func (r *Replica) PrepareReplication(peer NodeId, builder *AppendEntriesRequest) error {
	if r.role != Leader {
		return ErrNotLeader
	}
	if err := r.knownPeer(peer); err != nil {
		return err
	}
	return r.prepareAppendEntriesFor(peer, builder)
}
