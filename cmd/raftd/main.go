// Command raftd runs one replica of a Raft-backed key/value store: the
// consensus core in internal/raft, wired to gRPC transport, a
// protobuf-backed durable store, an immutable-radix-tree state machine,
// and a gin HTTP client surface.
package main

import (
	"context"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kvald/raftd/internal/config"
	"github.com/kvald/raftd/internal/httpapi"
	"github.com/kvald/raftd/internal/raft"
	"github.com/kvald/raftd/internal/statemachine"
	"github.com/kvald/raftd/internal/transport"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("raftd")
	}
}

func run(cfg config.Config) error {
	store, err := raft.NewFileStore(cfg.DataDir)
	if err != nil {
		return err
	}
	kv := statemachine.NewKVMachine()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	replica, err := raft.New(cfg.Id, cfg.Peers, store, kv, rng)
	if err != nil {
		return err
	}
	replica.SetElectionBounds(
		time.Duration(cfg.ElectionMinMs)*time.Millisecond,
		time.Duration(cfg.ElectionMaxMs)*time.Millisecond,
	)

	cluster, err := transport.NewCluster(cfg.Id, cfg.Peers, replica)
	if err != nil {
		return err
	}
	defer cluster.Close()

	lis, err := net.Listen("tcp", cfg.RaftAddr)
	if err != nil {
		return err
	}
	grpcServer := transport.StartRaftServer(lis, cluster)
	defer grpcServer.GracefulStop()
	log.Info().Str("addr", cfg.RaftAddr).Msg("raft rpc listening")

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(cluster, kv),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http api failed")
		}
	}()
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http api listening")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go driveTimer(ctx, cluster)
	go driveHeartbeat(ctx, cluster)

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// driveTimer is the external timer collaborator: it calls Tick() (which
// wraps Timeout()) whenever the previously returned delay elapses,
// forever, until ctx is canceled.
func driveTimer(ctx context.Context, cluster *transport.Cluster) {
	delay := raft.HeartbeatMin
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			delay = cluster.Tick(ctx)
			timer.Reset(delay)
		}
	}
}

// driveHeartbeat fires cluster.Heartbeat on a fixed cadence well under
// the election timeout, the external scheduling this leaves to the
// driver for a Leader's own heartbeat cadence.
func driveHeartbeat(ctx context.Context, cluster *transport.Cluster) {
	const heartbeatInterval = raft.HeartbeatMin / 3
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cluster.Heartbeat(ctx)
		}
	}
}
