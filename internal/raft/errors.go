package raft

import "errors"

// Invariant-violation errors. These are fatal: the replica cannot
// safely continue and the caller is expected to abort the process
// after logging, not recover in place.
var (
	// ErrUnknownPeer is returned when a handler is invoked with a sender
	// NodeId outside the configured peer set. This is a programming
	// error in the driver, never a normal network condition.
	ErrUnknownPeer = errors.New("raft: sender is not a known peer")

	// ErrTwoLeadersSameTerm is returned when a Leader receives an
	// AppendEntries at its own current term from another peer: Election
	// Safety (at most one leader per term) has been violated somewhere
	// in the cluster.
	ErrTwoLeadersSameTerm = errors.New("raft: received AppendEntries at own term while Leader")

	// ErrStoreWrite is returned when a durable write that must complete
	// before a reply is released fails.
	ErrStoreWrite = errors.New("raft: durable store write failed")

	// ErrStoreRead is returned when a durable read fails. The core
	// trusts the store's read path; a failure here is unrecoverable.
	ErrStoreRead = errors.New("raft: durable store read failed")

	// ErrClusterSizeOverflow is returned at construction time if the
	// peer set plus self overflows the counting type used for quorum.
	ErrClusterSizeOverflow = errors.New("raft: cluster size overflow")

	// ErrNotLeader is returned by PrepareReplication when the replica is
	// not currently Leader. HandleClientRequest does not return it; it
	// reports ClientRequestNotLeader in its response instead.
	ErrNotLeader = errors.New("raft: not the leader")
)
