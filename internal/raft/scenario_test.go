package raft

import "testing"

// cluster wires N in-process replicas together without any transport
// package, so the full election + replication protocol can be exercised
// deterministically in one goroutine.
type cluster struct {
	t     *testing.T
	nodes map[NodeId]*Replica
	sms   map[NodeId]*stubSM
}

func newCluster(t *testing.T, ids ...NodeId) *cluster {
	c := &cluster{t: t, nodes: map[NodeId]*Replica{}, sms: map[NodeId]*stubSM{}}
	for _, id := range ids {
		var peers []NodeId
		for _, other := range ids {
			if other != id {
				peers = append(peers, other)
			}
		}
		r, _, sm := newReplica(t, id, peers)
		c.nodes[id] = r
		c.sms[id] = sm
	}
	return c
}

// elect drives candidate's Timeout and hand-delivers the resulting
// RequestVote to every other node, folding each response back into
// candidate until it becomes Leader (or the test fails).
func (c *cluster) elect(candidate NodeId) {
	c.t.Helper()
	r := c.nodes[candidate]
	var builder RequestVoteRequest
	_, broadcast, err := r.Timeout(&builder)
	if err != nil {
		c.t.Fatalf("Timeout: %v", err)
	}
	if !broadcast {
		c.t.Fatalf("%s: Timeout did not request a broadcast", candidate)
	}
	for id, peer := range c.nodes {
		if id == candidate {
			continue
		}
		var resp RequestVoteResponse
		if err := peer.HandleRequestVote(candidate, &builder, &resp); err != nil {
			c.t.Fatalf("%s HandleRequestVote: %v", id, err)
		}
		var followUp AppendEntriesRequest
		if _, err := r.HandleRequestVoteResponse(id, &resp, &followUp); err != nil {
			c.t.Fatalf("%s HandleRequestVoteResponse: %v", candidate, err)
		}
	}
	if r.Role() != Leader {
		c.t.Fatalf("%s: role = %v, want Leader", candidate, r.Role())
	}
}

// replicateOnce has leader send whatever AppendEntries it owes every
// follower, applies each follower's response back into leader, and
// returns once every follower has caught up (no replica requests retry).
func (c *cluster) replicateOnce(leaderId NodeId) {
	c.t.Helper()
	leader := c.nodes[leaderId]
	for id, follower := range c.nodes {
		if id == leaderId {
			continue
		}
		for {
			var builder AppendEntriesRequest
			if err := leader.PrepareReplication(id, &builder); err != nil {
				c.t.Fatalf("PrepareReplication(%s): %v", id, err)
			}
			var resp AppendEntriesResponse
			if err := follower.HandleAppendEntries(leaderId, &builder, &resp); err != nil {
				c.t.Fatalf("%s HandleAppendEntries: %v", id, err)
			}
			var retry AppendEntriesRequest
			shouldRetry, err := leader.HandleAppendEntriesResponse(id, &resp, &retry)
			if err != nil {
				c.t.Fatalf("%s HandleAppendEntriesResponse: %v", leaderId, err)
			}
			if !shouldRetry {
				break
			}
		}
	}
}

func TestScenarioThreeNodeElectionAndReplication(t *testing.T) {
	c := newCluster(t, "n1", "n2", "n3")
	c.elect("n1")

	var resp ClientResponse
	if err := c.nodes["n1"].HandleClientRequest(&ClientRequest{Payload: []byte("set x=1")}, &resp); err != nil {
		t.Fatalf("HandleClientRequest: %v", err)
	}
	if resp.Outcome != ClientRequestAccepted {
		t.Fatalf("outcome = %v, want Accepted", resp.Outcome)
	}

	c.replicateOnce("n1")
	// The follower served first in that round was sent the leader's commit
	// index from before it advanced; a second round carries it over.
	c.replicateOnce("n1")

	for _, id := range []NodeId{"n1", "n2", "n3"} {
		if c.nodes[id].CommitIndex() != 1 {
			t.Fatalf("%s: commitIndex = %d, want 1", id, c.nodes[id].CommitIndex())
		}
		if len(c.sms[id].applied) != 1 {
			t.Fatalf("%s: len(applied) = %d, want 1", id, len(c.sms[id].applied))
		}
	}
}

func TestScenarioMultipleCommandsReplicateInOrder(t *testing.T) {
	c := newCluster(t, "n1", "n2", "n3")
	c.elect("n1")

	for _, payload := range []string{"a", "b", "c"} {
		var resp ClientResponse
		if err := c.nodes["n1"].HandleClientRequest(&ClientRequest{Payload: []byte(payload)}, &resp); err != nil {
			t.Fatalf("HandleClientRequest: %v", err)
		}
	}
	c.replicateOnce("n1")
	// Second round: carries the advanced commit index to the follower
	// served first.
	c.replicateOnce("n1")

	for _, id := range []NodeId{"n1", "n2", "n3"} {
		if c.nodes[id].CommitIndex() != 3 {
			t.Fatalf("%s: commitIndex = %d, want 3", id, c.nodes[id].CommitIndex())
		}
	}
}

func TestScenarioGrantingAVoteAtAHigherTermDoesNotDemoteLeader(t *testing.T) {
	// RequestVote's acceptance rule only ever persists the higher term;
	// it never itself transitions role to Follower. A Leader that grants
	// a vote to a newer candidate is left believing it is still Leader,
	// at the new term, until it is told otherwise by an AppendEntries --
	// which, arriving at that same now-shared term, is by construction
	// the two-leaders invariant violation and aborts.
	c := newCluster(t, "n1", "n2", "n3")
	c.elect("n1")

	c.nodes["n2"].shouldCampaign = true
	c.elect("n2")
	if c.nodes["n2"].Role() != Leader {
		t.Fatalf("n2: role = %v, want Leader", c.nodes["n2"].Role())
	}
	if c.nodes["n1"].Role() != Leader {
		t.Fatalf("n1: role = %v, want Leader (granting a vote alone never demotes)", c.nodes["n1"].Role())
	}

	var builder AppendEntriesRequest
	if err := c.nodes["n2"].PrepareReplication("n1", &builder); err != nil {
		t.Fatalf("PrepareReplication: %v", err)
	}
	var resp AppendEntriesResponse
	err := c.nodes["n1"].HandleAppendEntries("n2", &builder, &resp)
	if err != ErrTwoLeadersSameTerm {
		t.Fatalf("err = %v, want ErrTwoLeadersSameTerm", err)
	}
}
