package raft

import "testing"

func TestHandleClientRequestRejectsWhenNotLeader(t *testing.T) {
	r, _, _ := newReplica(t, "n1", []NodeId{"n2"})

	var resp ClientResponse
	if err := r.HandleClientRequest(&ClientRequest{Payload: []byte("x")}, &resp); err != nil {
		t.Fatalf("HandleClientRequest: %v", err)
	}
	if resp.Outcome != ClientRequestNotLeader {
		t.Fatalf("outcome = %v, want NotLeader", resp.Outcome)
	}
}

func TestHandleClientRequestAppendsOnLeader(t *testing.T) {
	r, store, _ := newReplica(t, "n1", nil)

	var builder RequestVoteRequest
	if _, _, err := r.Timeout(&builder); err != nil {
		t.Fatalf("Timeout: %v", err)
	}
	if r.Role() != Leader {
		t.Fatalf("role = %v, want Leader", r.Role())
	}

	var resp ClientResponse
	if err := r.HandleClientRequest(&ClientRequest{Payload: []byte("cmd")}, &resp); err != nil {
		t.Fatalf("HandleClientRequest: %v", err)
	}
	if resp.Outcome != ClientRequestAccepted {
		t.Fatalf("outcome = %v, want Accepted", resp.Outcome)
	}
	if resp.Index != 1 {
		t.Fatalf("index = %d, want 1", resp.Index)
	}
	entry, err := store.Entry(1)
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if string(entry.Payload) != "cmd" {
		t.Fatalf("payload = %q, want %q", entry.Payload, "cmd")
	}
}

func TestPrepareReplicationRequiresLeader(t *testing.T) {
	r, _, _ := newReplica(t, "n1", []NodeId{"n2"})

	var builder AppendEntriesRequest
	err := r.PrepareReplication("n2", &builder)
	if err != ErrNotLeader {
		t.Fatalf("err = %v, want ErrNotLeader", err)
	}
}

func TestPrepareReplicationRejectsUnknownPeer(t *testing.T) {
	r, _, _ := newReplica(t, "n1", nil)
	var builder RequestVoteRequest
	if _, _, err := r.Timeout(&builder); err != nil {
		t.Fatalf("Timeout: %v", err)
	}

	var ae AppendEntriesRequest
	err := r.PrepareReplication("ghost", &ae)
	if err != ErrUnknownPeer {
		t.Fatalf("err = %v, want ErrUnknownPeer", err)
	}
}
