package raft

import "testing"

func TestHandleRequestVoteGrantsFirstRequest(t *testing.T) {
	r, store, _ := newReplica(t, "n1", []NodeId{"n2"})
	store.term = 3

	req := &RequestVoteRequest{Term: 4, LastLogIndex: 0, LastLogTerm: 0}
	var resp RequestVoteResponse
	if err := r.HandleRequestVote("n2", req, &resp); err != nil {
		t.Fatalf("HandleRequestVote: %v", err)
	}
	if resp.Outcome != RequestVoteGranted {
		t.Fatalf("outcome = %v, want Granted", resp.Outcome)
	}
	votedFor, ok, err := store.VotedFor()
	if err != nil || !ok || votedFor != "n2" {
		t.Fatalf("VotedFor = (%q, %v), want (n2, true)", votedFor, ok)
	}
	if r.shouldCampaign {
		t.Fatal("granting a vote must suppress this replica's own campaigning")
	}
}

func TestHandleRequestVoteIdempotentRegrant(t *testing.T) {
	r, store, _ := newReplica(t, "n1", []NodeId{"n2"})
	store.term = 4

	req := &RequestVoteRequest{Term: 4, LastLogIndex: 0, LastLogTerm: 0}
	var first, second RequestVoteResponse
	if err := r.HandleRequestVote("n2", req, &first); err != nil {
		t.Fatalf("HandleRequestVote (first): %v", err)
	}
	if err := r.HandleRequestVote("n2", req, &second); err != nil {
		t.Fatalf("HandleRequestVote (second): %v", err)
	}
	if first.Outcome != RequestVoteGranted || second.Outcome != RequestVoteGranted {
		t.Fatalf("outcomes = %v, %v, want both Granted", first.Outcome, second.Outcome)
	}
}

func TestHandleRequestVoteAlreadyVotedForAnother(t *testing.T) {
	r, store, _ := newReplica(t, "n1", []NodeId{"n2", "n3"})
	store.term = 4
	if err := store.SetVotedFor("n2"); err != nil {
		t.Fatalf("SetVotedFor: %v", err)
	}

	req := &RequestVoteRequest{Term: 4, LastLogIndex: 0, LastLogTerm: 0}
	var resp RequestVoteResponse
	if err := r.HandleRequestVote("n3", req, &resp); err != nil {
		t.Fatalf("HandleRequestVote: %v", err)
	}
	if resp.Outcome != RequestVoteAlreadyVoted {
		t.Fatalf("outcome = %v, want AlreadyVoted", resp.Outcome)
	}
}

func TestHandleRequestVoteStaleTerm(t *testing.T) {
	r, store, _ := newReplica(t, "n1", []NodeId{"n2"})
	store.term = 5

	req := &RequestVoteRequest{Term: 3, LastLogIndex: 0, LastLogTerm: 0}
	var resp RequestVoteResponse
	if err := r.HandleRequestVote("n2", req, &resp); err != nil {
		t.Fatalf("HandleRequestVote: %v", err)
	}
	if resp.Outcome != RequestVoteStaleTerm {
		t.Fatalf("outcome = %v, want StaleTerm", resp.Outcome)
	}
	if resp.Term != 5 {
		t.Fatalf("resp.Term = %d, want 5", resp.Term)
	}
}

func TestHandleRequestVoteRejectsShorterLog(t *testing.T) {
	r, store, _ := newReplica(t, "n1", []NodeId{"n2"})
	store.term = 1
	if err := store.AppendEntries(1, []LogEntry{{Term: 1, Payload: []byte("a")}, {Term: 1, Payload: []byte("b")}}); err != nil {
		t.Fatalf("AppendEntries: %v", err)
	}

	req := &RequestVoteRequest{Term: 1, LastLogIndex: 1, LastLogTerm: 1}
	var resp RequestVoteResponse
	if err := r.HandleRequestVote("n2", req, &resp); err != nil {
		t.Fatalf("HandleRequestVote: %v", err)
	}
	if resp.Outcome != RequestVoteInconsistentLog {
		t.Fatalf("outcome = %v, want InconsistentLog", resp.Outcome)
	}
}

func TestLogUpToDateComparesTermBeforeIndex(t *testing.T) {
	// A candidate with a shorter log but a higher term is up to date; one
	// with a longer log but a stale term is not.
	if !logUpToDate(5, 1, 4, 100) {
		t.Fatal("higher candidate term with a shorter log should be up to date")
	}
	if logUpToDate(3, 100, 4, 1) {
		t.Fatal("lower candidate term with a longer log should not be up to date")
	}
	if !logUpToDate(4, 10, 4, 5) {
		t.Fatal("equal term, candidate index >= ours should be up to date")
	}
	if logUpToDate(4, 3, 4, 5) {
		t.Fatal("equal term, candidate index < ours should not be up to date")
	}
}

func TestHandleRequestVoteResponseMajorityInFourNodeCluster(t *testing.T) {
	r, _, _ := newReplica(t, "n1", []NodeId{"n2", "n3", "n4"})

	var builder RequestVoteRequest
	if _, _, err := r.Timeout(&builder); err != nil {
		t.Fatalf("Timeout: %v", err)
	}
	if r.candidate.grantedVotes != 1 {
		t.Fatalf("grantedVotes = %d, want 1 (self-vote)", r.candidate.grantedVotes)
	}

	var followUp AppendEntriesRequest
	resp := &RequestVoteResponse{Term: builder.Term, Outcome: RequestVoteGranted}

	becameLeader, err := r.HandleRequestVoteResponse("n2", resp, &followUp)
	if err != nil {
		t.Fatalf("HandleRequestVoteResponse: %v", err)
	}
	if becameLeader {
		t.Fatal("2 of 4 votes is not yet a majority")
	}

	becameLeader, err = r.HandleRequestVoteResponse("n3", resp, &followUp)
	if err != nil {
		t.Fatalf("HandleRequestVoteResponse: %v", err)
	}
	if !becameLeader {
		t.Fatal("3 of 4 votes should be a majority")
	}
}
