package transport

import (
	"github.com/kvald/raftd/internal/raft"
	"github.com/kvald/raftd/internal/raftpb"
)

func wireToAppendRequest(in *raftpb.AppendRequest) *raft.AppendEntriesRequest {
	entries := make([]raft.LogEntry, len(in.Entries))
	for i, e := range in.Entries {
		entries[i] = raft.LogEntry{Term: raft.Term(e.Term), Payload: e.Payload}
	}
	return &raft.AppendEntriesRequest{
		Term:         raft.Term(in.Term),
		PrevLogIndex: raft.LogIndex(in.PrevLogIndex),
		PrevLogTerm:  raft.Term(in.PrevLogTerm),
		Entries:      entries,
		LeaderCommit: raft.LogIndex(in.LeaderCommit),
	}
}

func appendRequestToWire(leaderID raft.NodeId, req *raft.AppendEntriesRequest) *raftpb.AppendRequest {
	entries := make([]*raftpb.LogRecord, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = &raftpb.LogRecord{Term: int64(e.Term), Payload: e.Payload}
	}
	return &raftpb.AppendRequest{
		Term:         int64(req.Term),
		LeaderId:     string(leaderID),
		PrevLogIndex: int64(req.PrevLogIndex),
		PrevLogTerm:  int64(req.PrevLogTerm),
		Entries:      entries,
		LeaderCommit: int64(req.LeaderCommit),
	}
}

func appendReplyToWire(resp *raft.AppendEntriesResponse) *raftpb.AppendReply {
	return &raftpb.AppendReply{Term: int64(resp.Term), Outcome: resp.Outcome.String()}
}

func wireToAppendResponse(in *raftpb.AppendReply) *raft.AppendEntriesResponse {
	return &raft.AppendEntriesResponse{Term: raft.Term(in.Term), Outcome: parseAppendOutcome(in.Outcome)}
}

func parseAppendOutcome(s string) raft.AppendEntriesOutcome {
	switch s {
	case "StaleTerm":
		return raft.AppendEntriesStaleTerm
	case "InconsistentPrevEntry":
		return raft.AppendEntriesInconsistentPrevEntry
	case "Success":
		return raft.AppendEntriesSuccess
	default:
		return raft.AppendEntriesOutcomeUnset
	}
}

func wireToVoteRequest(in *raftpb.VoteRequest) *raft.RequestVoteRequest {
	return &raft.RequestVoteRequest{
		Term:         raft.Term(in.Term),
		LastLogIndex: raft.LogIndex(in.LastLogIndex),
		LastLogTerm:  raft.Term(in.LastLogTerm),
	}
}

func voteRequestToWire(candidateID raft.NodeId, req *raft.RequestVoteRequest) *raftpb.VoteRequest {
	return &raftpb.VoteRequest{
		Term:         int64(req.Term),
		CandidateId:  string(candidateID),
		LastLogIndex: int64(req.LastLogIndex),
		LastLogTerm:  int64(req.LastLogTerm),
	}
}

func voteReplyToWire(resp *raft.RequestVoteResponse) *raftpb.VoteReply {
	return &raftpb.VoteReply{Term: int64(resp.Term), Outcome: resp.Outcome.String()}
}

func wireToVoteResponse(in *raftpb.VoteReply) *raft.RequestVoteResponse {
	return &raft.RequestVoteResponse{Term: raft.Term(in.Term), Outcome: parseVoteOutcome(in.Outcome)}
}

func parseVoteOutcome(s string) raft.RequestVoteOutcome {
	switch s {
	case "StaleTerm":
		return raft.RequestVoteStaleTerm
	case "InconsistentLog":
		return raft.RequestVoteInconsistentLog
	case "Granted":
		return raft.RequestVoteGranted
	case "AlreadyVoted":
		return raft.RequestVoteAlreadyVoted
	default:
		return raft.RequestVoteOutcomeUnset
	}
}
