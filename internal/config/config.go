// Package config assembles a node's configuration from CLI flags and an
// optional YAML cluster-membership file.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/kvald/raftd/internal/raft"
)

// Config holds everything needed to construct and run one replica.
type Config struct {
	Id            raft.NodeId
	RaftAddr      string
	HTTPAddr      string
	DataDir       string
	Peers         []raft.NodeId
	ElectionMinMs int
	ElectionMaxMs int
}

// clusterFile is the YAML shape of the membership file: a flat list of
// "host:port" peer addresses, excluding self.
type clusterFile struct {
	Peers []string `yaml:"peers"`
}

// Parse builds a Config from CLI flags in args (typically os.Args[1:]).
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("raftd", flag.ContinueOnError)
	id := fs.String("id", "", "this node's Raft address (host:port), also its NodeId")
	raftAddr := fs.String("raft-addr", "", "address to bind the Raft gRPC server (defaults to -id)")
	httpAddr := fs.String("http-addr", ":8080", "address to bind the client HTTP API")
	dataDir := fs.String("data-dir", "./data", "directory for term/log persistence")
	clusterPath := fs.String("cluster", "", "path to a YAML file listing peer addresses")
	electionMin := fs.Int("election-min-ms", int(raft.HeartbeatMin/time.Millisecond), "minimum election timeout, ms")
	electionMax := fs.Int("election-max-ms", int(raft.HeartbeatMax/time.Millisecond), "maximum election timeout, ms")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if *id == "" {
		return Config{}, fmt.Errorf("config: -id is required")
	}
	if *raftAddr == "" {
		*raftAddr = *id
	}
	if *electionMin >= *electionMax {
		return Config{}, fmt.Errorf("config: election-min-ms must be < election-max-ms")
	}

	var peers []raft.NodeId
	if *clusterPath != "" {
		raw, err := os.ReadFile(*clusterPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: read cluster file: %w", err)
		}
		var cf clusterFile
		if err := yaml.Unmarshal(raw, &cf); err != nil {
			return Config{}, fmt.Errorf("config: parse cluster file: %w", err)
		}
		for _, p := range cf.Peers {
			if p == *id {
				continue
			}
			peers = append(peers, raft.NodeId(p))
		}
	}

	return Config{
		Id:            raft.NodeId(*id),
		RaftAddr:      *raftAddr,
		HTTPAddr:      *httpAddr,
		DataDir:       *dataDir,
		Peers:         peers,
		ElectionMinMs: *electionMin,
		ElectionMaxMs: *electionMax,
	}, nil
}
