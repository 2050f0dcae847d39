package transport

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kvald/raftd/internal/raft"
	"github.com/kvald/raftd/internal/raftpb"
)

// rpcTimeout bounds a single outbound Raft RPC. It is deliberately well
// under HeartbeatMin so a wedged peer cannot stall the election timer.
const rpcTimeout = 50 * time.Millisecond

// Peer is a dialed connection to another cluster member: it owns the
// gRPC channel and a best-effort availability flag used only for
// logging/diagnostics, never consulted by the replica's protocol
// decisions.
type Peer struct {
	Id        raft.NodeId
	conn      *grpc.ClientConn
	client    raftpb.RaftClient
	Available bool
}

// dialPeer opens a (non-blocking) gRPC connection to addr.
func dialPeer(addr raft.NodeId) (*Peer, error) {
	conn, err := grpc.Dial(string(addr),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.WaitForReady(false)),
	)
	if err != nil {
		log.Error().Err(err).Str("peer", string(addr)).Msg("failed to dial peer")
		return nil, err
	}
	return &Peer{
		Id:        addr,
		conn:      conn,
		client:    raftpb.NewRaftClient(conn),
		Available: true,
	}, nil
}

// Close releases the peer's connection.
func (p *Peer) Close() error {
	return p.conn.Close()
}

func (p *Peer) requestVote(ctx context.Context, req *raftpb.VoteRequest) (*raftpb.VoteReply, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	reply, err := p.client.RequestVote(ctx, req)
	p.Available = err == nil
	if err != nil {
		log.Warn().Err(err).Str("peer", string(p.Id)).Msg("RequestVote RPC failed")
	}
	return reply, err
}

func (p *Peer) appendEntries(ctx context.Context, req *raftpb.AppendRequest) (*raftpb.AppendReply, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	reply, err := p.client.AppendEntries(ctx, req)
	p.Available = err == nil
	if err != nil {
		log.Warn().Err(err).Str("peer", string(p.Id)).Msg("AppendEntries RPC failed")
	}
	return reply, err
}
