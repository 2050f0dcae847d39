// Package raftpb holds the wire and durable-storage message types for
// the replica core: the Raft RPC request/reply pairs exchanged over
// gRPC, and the TermRecord/LogStore records persisted to disk. Each
// message is declared by hand in the legacy protoc-gen-go shape -- a
// plain Go struct with `protobuf:` field tags plus
// Reset/String/ProtoMessage -- which github.com/golang/protobuf's
// legacy support continues to marshal via reflection.
package raftpb

import (
	"fmt"

	"github.com/golang/protobuf/proto"
)

// LogAction distinguishes the kind of mutation a LogRecord's payload
// describes. Nothing in this module sets or reads it: the file store and
// the transport copy only Term and Payload, and internal/statemachine
// encodes its own action inside the payload.
type LogAction int32

const (
	LogAction_NOOP LogAction = 0
	LogAction_SET  LogAction = 1
	LogAction_DEL  LogAction = 2
)

// TermRecord is the durable record of current_term/voted_for.
type TermRecord struct {
	Term     int64  `protobuf:"varint,1,opt,name=term,proto3" json:"term,omitempty"`
	VotedFor string `protobuf:"bytes,2,opt,name=voted_for,json=votedFor,proto3" json:"voted_for,omitempty"`
	HasVote  bool   `protobuf:"varint,3,opt,name=has_vote,json=hasVote,proto3" json:"has_vote,omitempty"`
}

func (m *TermRecord) Reset()         { *m = TermRecord{} }
func (m *TermRecord) String() string { return fmt.Sprintf("%+v", *m) }
func (*TermRecord) ProtoMessage()    {}

// LogRecord is one durable log entry.
type LogRecord struct {
	Term    int64     `protobuf:"varint,1,opt,name=term,proto3" json:"term,omitempty"`
	Payload []byte    `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
	Action  LogAction `protobuf:"varint,3,opt,name=action,proto3,enum=raftpb.LogAction" json:"action,omitempty"`
	Key     string    `protobuf:"bytes,4,opt,name=key,proto3" json:"key,omitempty"`
	Value   string    `protobuf:"bytes,5,opt,name=value,proto3" json:"value,omitempty"`
}

func (m *LogRecord) Reset()         { *m = LogRecord{} }
func (m *LogRecord) String() string { return fmt.Sprintf("%+v", *m) }
func (*LogRecord) ProtoMessage()    {}

// LogStore is the whole durable log.
type LogStore struct {
	Entries []*LogRecord `protobuf:"bytes,1,rep,name=entries,proto3" json:"entries,omitempty"`
}

func (m *LogStore) Reset()         { *m = LogStore{} }
func (m *LogStore) String() string { return fmt.Sprintf("%+v", *m) }
func (*LogStore) ProtoMessage()    {}

// VoteRequest is the RequestVote RPC request.
type VoteRequest struct {
	Term         int64  `protobuf:"varint,1,opt,name=term,proto3" json:"term,omitempty"`
	CandidateId  string `protobuf:"bytes,2,opt,name=candidate_id,json=candidateId,proto3" json:"candidate_id,omitempty"`
	LastLogIndex int64  `protobuf:"varint,3,opt,name=last_log_index,json=lastLogIndex,proto3" json:"last_log_index,omitempty"`
	LastLogTerm  int64  `protobuf:"varint,4,opt,name=last_log_term,json=lastLogTerm,proto3" json:"last_log_term,omitempty"`
}

func (m *VoteRequest) Reset()         { *m = VoteRequest{} }
func (m *VoteRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*VoteRequest) ProtoMessage()    {}

// VoteReply is the RequestVote RPC response.
type VoteReply struct {
	Term    int64  `protobuf:"varint,1,opt,name=term,proto3" json:"term,omitempty"`
	Outcome string `protobuf:"bytes,2,opt,name=outcome,proto3" json:"outcome,omitempty"`
}

func (m *VoteReply) Reset()         { *m = VoteReply{} }
func (m *VoteReply) String() string { return fmt.Sprintf("%+v", *m) }
func (*VoteReply) ProtoMessage()    {}

// AppendRequest is the AppendEntries RPC request.
type AppendRequest struct {
	Term         int64        `protobuf:"varint,1,opt,name=term,proto3" json:"term,omitempty"`
	LeaderId     string       `protobuf:"bytes,2,opt,name=leader_id,json=leaderId,proto3" json:"leader_id,omitempty"`
	PrevLogIndex int64        `protobuf:"varint,3,opt,name=prev_log_index,json=prevLogIndex,proto3" json:"prev_log_index,omitempty"`
	PrevLogTerm  int64        `protobuf:"varint,4,opt,name=prev_log_term,json=prevLogTerm,proto3" json:"prev_log_term,omitempty"`
	Entries      []*LogRecord `protobuf:"bytes,5,rep,name=entries,proto3" json:"entries,omitempty"`
	LeaderCommit int64        `protobuf:"varint,6,opt,name=leader_commit,json=leaderCommit,proto3" json:"leader_commit,omitempty"`
}

func (m *AppendRequest) Reset()         { *m = AppendRequest{} }
func (m *AppendRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*AppendRequest) ProtoMessage()    {}

// AppendReply is the AppendEntries RPC response.
type AppendReply struct {
	Term    int64  `protobuf:"varint,1,opt,name=term,proto3" json:"term,omitempty"`
	Outcome string `protobuf:"bytes,2,opt,name=outcome,proto3" json:"outcome,omitempty"`
}

func (m *AppendReply) Reset()         { *m = AppendReply{} }
func (m *AppendReply) String() string { return fmt.Sprintf("%+v", *m) }
func (*AppendReply) ProtoMessage()    {}

// ClientRequest carries a client command to the cluster.
type ClientRequest struct {
	Payload []byte `protobuf:"bytes,1,opt,name=payload,proto3" json:"payload,omitempty"`
}

func (m *ClientRequest) Reset()         { *m = ClientRequest{} }
func (m *ClientRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*ClientRequest) ProtoMessage()    {}

// ClientReply is the client command's response.
type ClientReply struct {
	Outcome     string `protobuf:"bytes,1,opt,name=outcome,proto3" json:"outcome,omitempty"`
	Index       int64  `protobuf:"varint,2,opt,name=index,proto3" json:"index,omitempty"`
	Term        int64  `protobuf:"varint,3,opt,name=term,proto3" json:"term,omitempty"`
	LeaderHint  string `protobuf:"bytes,4,opt,name=leader_hint,json=leaderHint,proto3" json:"leader_hint,omitempty"`
}

func (m *ClientReply) Reset()         { *m = ClientReply{} }
func (m *ClientReply) String() string { return fmt.Sprintf("%+v", *m) }
func (*ClientReply) ProtoMessage()    {}

var (
	_ proto.Message = (*TermRecord)(nil)
	_ proto.Message = (*LogRecord)(nil)
	_ proto.Message = (*LogStore)(nil)
	_ proto.Message = (*VoteRequest)(nil)
	_ proto.Message = (*VoteReply)(nil)
	_ proto.Message = (*AppendRequest)(nil)
	_ proto.Message = (*AppendReply)(nil)
	_ proto.Message = (*ClientRequest)(nil)
	_ proto.Message = (*ClientReply)(nil)
)
