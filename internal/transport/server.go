package transport

import (
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/kvald/raftd/internal/raftpb"
)

// StartRaftServer constructs and starts a gRPC server for the Raft
// service.
func StartRaftServer(lis net.Listener, c *Cluster) *grpc.Server {
	s := grpc.NewServer()
	raftpb.RegisterRaftServer(s, c)
	go func() {
		if err := s.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("gRPC failed to serve")
		}
	}()
	return s
}
