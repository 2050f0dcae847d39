// Package transport is the external driver that decodes inbound gRPC
// requests into the core's view types, invokes exactly one Replica
// handler at a time under Cluster's mutex, encodes the reply, and
// separately drives outbound RPCs to peers -- without ever holding the
// mutex across a network call.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kvald/raftd/internal/clusterclient"
	"github.com/kvald/raftd/internal/raft"
	"github.com/kvald/raftd/internal/raftpb"
)

// Cluster wires a raft.Replica to its peers over gRPC. It is the single
// serialization point: every call into replica, in either direction,
// takes mu first.
type Cluster struct {
	mu      sync.Mutex
	self    raft.NodeId
	replica *raft.Replica
	peers   map[raft.NodeId]*Peer

	Redirect *clusterclient.RedirectTracker
}

// NewCluster dials every peer address and returns a ready Cluster.
func NewCluster(self raft.NodeId, peerAddrs []raft.NodeId, replica *raft.Replica) (*Cluster, error) {
	c := &Cluster{
		self:     self,
		replica:  replica,
		peers:    make(map[raft.NodeId]*Peer, len(peerAddrs)),
		Redirect: clusterclient.NewRedirectTracker(),
	}
	for _, addr := range peerAddrs {
		p, err := dialPeer(addr)
		if err != nil {
			return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
		}
		c.peers[addr] = p
	}
	return c, nil
}

// Close releases all peer connections.
func (c *Cluster) Close() {
	for _, p := range c.peers {
		_ = p.Close()
	}
}

// --- raftpb.RaftServer implementation (inbound) ---

// RequestVote handles an inbound vote request.
func (c *Cluster) RequestVote(ctx context.Context, in *raftpb.VoteRequest) (*raftpb.VoteReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := wireToVoteRequest(in)
	var resp raft.RequestVoteResponse
	if err := c.replica.HandleRequestVote(raft.NodeId(in.CandidateId), req, &resp); err != nil {
		return nil, fatal(err)
	}
	if resp.Outcome == raft.RequestVoteGranted {
		c.Redirect.Clear()
	}
	log.Debug().Str("candidate", in.CandidateId).Str("outcome", resp.Outcome.String()).Msg("RequestVote handled")
	return voteReplyToWire(&resp), nil
}

// AppendEntries handles an inbound append request.
func (c *Cluster) AppendEntries(ctx context.Context, in *raftpb.AppendRequest) (*raftpb.AppendReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := wireToAppendRequest(in)
	var resp raft.AppendEntriesResponse
	if err := c.replica.HandleAppendEntries(raft.NodeId(in.LeaderId), req, &resp); err != nil {
		return nil, fatal(err)
	}
	if resp.Outcome == raft.AppendEntriesSuccess {
		c.Redirect.Observe(raft.NodeId(in.LeaderId))
	}
	log.Debug().Str("leader", in.LeaderId).Str("outcome", resp.Outcome.String()).Msg("AppendEntries handled")
	return appendReplyToWire(&resp), nil
}

// ClientRequest handles a client command: append on Leader,
// then fan out AppendEntries to every peer and wait for the new index to
// commit before replying.
func (c *Cluster) ClientRequest(ctx context.Context, in *raftpb.ClientRequest) (*raftpb.ClientReply, error) {
	c.mu.Lock()
	var resp raft.ClientResponse
	err := c.replica.HandleClientRequest(&raft.ClientRequest{Payload: in.Payload}, &resp)
	c.mu.Unlock()
	if err != nil {
		return nil, fatal(err)
	}

	if resp.Outcome == raft.ClientRequestNotLeader {
		hint, _ := c.Redirect.Hint()
		return &raftpb.ClientReply{Outcome: "NotLeader", LeaderHint: string(hint)}, nil
	}

	c.broadcastAppend(ctx)

	select {
	case <-c.replica.Await(resp.Index):
	case <-ctx.Done():
		return &raftpb.ClientReply{Outcome: "Timeout", Index: int64(resp.Index), Term: int64(resp.Term)}, nil
	}
	return &raftpb.ClientReply{Outcome: "Committed", Index: int64(resp.Index), Term: int64(resp.Term)}, nil
}

var _ raftpb.RaftServer = (*Cluster)(nil)

// --- outbound driving ---

// Tick is invoked by an external scheduler when the election timer fires
//. It is the only place Timeout is called.
func (c *Cluster) Tick(ctx context.Context) time.Duration {
	c.mu.Lock()
	var builder raft.RequestVoteRequest
	delay, broadcast, err := c.replica.Timeout(&builder)
	c.mu.Unlock()
	if err != nil {
		log.Fatal().Err(err).Msg("Timeout: fatal invariant violation")
	}
	if broadcast {
		c.broadcastVote(ctx, &builder)
	}
	return delay
}

// broadcastVote sends builder to every peer concurrently and feeds each
// response back through HandleRequestVoteResponse, one at a time under
// mu, exactly as this expects.
func (c *Cluster) broadcastVote(ctx context.Context, builder *raft.RequestVoteRequest) {
	c.mu.Lock()
	self := c.self
	c.mu.Unlock()

	wire := voteRequestToWire(self, builder)

	var wg sync.WaitGroup
	for id, p := range c.peers {
		wg.Add(1)
		go func(id raft.NodeId, p *Peer) {
			defer wg.Done()
			reply, err := p.requestVote(ctx, wire)
			if err != nil {
				return
			}
			c.applyVoteResponse(ctx, id, reply)
		}(id, p)
	}
	wg.Wait()
}

func (c *Cluster) applyVoteResponse(ctx context.Context, responder raft.NodeId, in *raftpb.VoteReply) {
	c.mu.Lock()
	resp := wireToVoteResponse(in)
	var followUp raft.AppendEntriesRequest
	becameLeader, err := c.replica.HandleRequestVoteResponse(responder, resp, &followUp)
	c.mu.Unlock()
	if err != nil {
		log.Fatal().Err(err).Msg("HandleRequestVoteResponse: fatal invariant violation")
	}
	if becameLeader {
		c.broadcastAppend(ctx)
	}
}

// broadcastAppend sends each peer whatever AppendEntries the leader
// currently owes it and feeds responses back through
// HandleAppendEntriesResponse, which may in turn request a
// retry -- handled by recursing on this same per-peer send.
func (c *Cluster) broadcastAppend(ctx context.Context) {
	c.mu.Lock()
	self := c.self
	ids := make([]raft.NodeId, 0, len(c.peers))
	for id := range c.peers {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		p := c.peers[id]
		wg.Add(1)
		go func(id raft.NodeId, p *Peer) {
			defer wg.Done()
			c.sendAppendTo(ctx, self, id, p)
		}(id, p)
	}
	wg.Wait()
}

func (c *Cluster) sendAppendTo(ctx context.Context, self, id raft.NodeId, p *Peer) {
	c.mu.Lock()
	var builder raft.AppendEntriesRequest
	err := c.replica.PrepareReplication(id, &builder)
	c.mu.Unlock()
	if err != nil {
		// Replica stepped down between broadcast and send; nothing to do.
		return
	}

	reply, err := p.appendEntries(ctx, appendRequestToWire(self, &builder))
	if err != nil {
		return
	}

	c.mu.Lock()
	resp := wireToAppendResponse(reply)
	var retry raft.AppendEntriesRequest
	shouldRetry, err := c.replica.HandleAppendEntriesResponse(id, resp, &retry)
	c.mu.Unlock()
	if err != nil {
		log.Fatal().Err(err).Msg("HandleAppendEntriesResponse: fatal invariant violation")
		return
	}
	if shouldRetry {
		c.sendAppendTo(ctx, self, id, p)
	}
}

// IsLeader reports whether the replica currently believes itself Leader.
// Used only to decide whether to emit a heartbeat; never consulted by
// the core's own protocol decisions.
func (c *Cluster) IsLeader() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replica.Role() == raft.Leader
}

// Heartbeat sends an AppendEntries fan-out if this replica is Leader,
// and is a no-op otherwise. A Leader's own heartbeat cadence is managed
// externally, out of the core automaton's scope -- this is that
// external cadence, driven by cmd/raftd on a short fixed ticker rather
// than by Timeout/Tick.
func (c *Cluster) Heartbeat(ctx context.Context) {
	if !c.IsLeader() {
		return
	}
	c.broadcastAppend(ctx)
}

// fatal maps a core invariant-violation error to a gRPC status and logs
// it at Fatal: these are invariant violations and abort the replica
// process.
func fatal(err error) error {
	log.Fatal().Err(err).Msg("raft: fatal invariant violation")
	return status.Error(codes.Internal, err.Error())
}
