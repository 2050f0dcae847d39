package raft

// The core consumes decoded request views and fills decoded response
// builders; it never touches wire bytes. internal/transport is
// responsible for decoding raftpb messages into these types and encoding
// them back out. Keeping these types separate from internal/raftpb's
// wire messages is what keeps its transport/serialization
// Non-goal real: swapping the wire format never touches internal/raft.

// AppendEntriesOutcome is the response variant: exactly one of these is
// set on return.
type AppendEntriesOutcome int

const (
	// AppendEntriesOutcomeUnset is the zero value; a handler must never
	// return it.
	AppendEntriesOutcomeUnset AppendEntriesOutcome = iota
	AppendEntriesStaleTerm
	AppendEntriesInconsistentPrevEntry
	AppendEntriesSuccess
)

func (o AppendEntriesOutcome) String() string {
	switch o {
	case AppendEntriesStaleTerm:
		return "StaleTerm"
	case AppendEntriesInconsistentPrevEntry:
		return "InconsistentPrevEntry"
	case AppendEntriesSuccess:
		return "Success"
	default:
		return "Unset"
	}
}

// AppendEntriesRequest is the decoded view of an inbound AppendEntries
// call, and is also reused as the "outbound request builder" that the
// AppendEntries and RequestVote response handlers and PrepareReplication
// fill in when they need to ship a request to a peer.
type AppendEntriesRequest struct {
	Term         Term
	PrevLogIndex LogIndex
	PrevLogTerm  Term
	Entries      []LogEntry
	LeaderCommit LogIndex
}

// AppendEntriesResponse is the decoded response view/builder.
type AppendEntriesResponse struct {
	Term    Term
	Outcome AppendEntriesOutcome
}

// RequestVoteOutcome is the response variant.
type RequestVoteOutcome int

const (
	RequestVoteOutcomeUnset RequestVoteOutcome = iota
	RequestVoteStaleTerm
	RequestVoteInconsistentLog
	RequestVoteGranted
	RequestVoteAlreadyVoted
)

func (o RequestVoteOutcome) String() string {
	switch o {
	case RequestVoteStaleTerm:
		return "StaleTerm"
	case RequestVoteInconsistentLog:
		return "InconsistentLog"
	case RequestVoteGranted:
		return "Granted"
	case RequestVoteAlreadyVoted:
		return "AlreadyVoted"
	default:
		return "Unset"
	}
}

// RequestVoteRequest is the decoded view of an inbound RequestVote call,
// also reused as the outbound builder filled by transition-to-candidate.
type RequestVoteRequest struct {
	Term         Term
	LastLogIndex LogIndex
	LastLogTerm  Term
}

// RequestVoteResponse is the decoded response view/builder.
type RequestVoteResponse struct {
	Term    Term
	Outcome RequestVoteOutcome
}

// ClientRequest carries an opaque command payload submitted by a client
// of the replicated state machine.
type ClientRequest struct {
	Payload []byte
}

// ClientRequestOutcome distinguishes an accepted append from a
// non-Leader redirect.
type ClientRequestOutcome int

const (
	ClientRequestOutcomeUnset ClientRequestOutcome = iota
	ClientRequestAccepted
	ClientRequestNotLeader
)

// ClientResponse is the decoded response view for ClientRequest.
type ClientResponse struct {
	Outcome ClientRequestOutcome
	// Index is the log index the command was appended at, valid only
	// when Outcome == ClientRequestAccepted.
	Index LogIndex
	// Term is the term the command was appended under, valid only when
	// Outcome == ClientRequestAccepted.
	Term Term
}
