package raft

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/rs/zerolog/log"

	"github.com/kvald/raftd/internal/raftpb"
)

// FileStore is a Store backed by two flat files: current term and
// voted_for are persisted together as a raftpb.TermRecord
// (set_current_term and the voted_for clear must land atomically,
// which this satisfies by writing both fields in a single file
// write), and the log is persisted as a raftpb.LogStore.
//
// Every mutating call rewrites its file synchronously and in full
// before returning: a mutation to current_term, voted_for, or the log
// must be durable before any response that depends on it is released.
type FileStore struct {
	mu sync.Mutex

	termFile string
	logFile  string

	term     Term
	votedFor NodeId
	hasVote  bool

	// entries[i] holds the LogEntry at LogIndex i+1.
	entries []LogEntry
}

// NewFileStore loads (or initializes) term and log state from dataDir.
func NewFileStore(dataDir string) (*FileStore, error) {
	fs := &FileStore{
		termFile: filepath.Join(dataDir, "term"),
		logFile:  filepath.Join(dataDir, "raftlog"),
	}
	if err := fs.loadTerm(); err != nil {
		return nil, err
	}
	if err := fs.loadLog(); err != nil {
		return nil, err
	}
	log.Info().Int64("term", int64(fs.term)).Int("entries", len(fs.entries)).Msg("file store loaded")
	return fs, nil
}

func (fs *FileStore) loadTerm() error {
	record := &raftpb.TermRecord{}
	if _, err := os.Stat(fs.termFile); err == nil {
		raw, err := os.ReadFile(fs.termFile)
		if err != nil {
			return fmt.Errorf("filestore: read term file: %w", err)
		}
		if err := proto.Unmarshal(raw, record); err != nil {
			return fmt.Errorf("filestore: unmarshal term file: %w", err)
		}
	}
	fs.term = Term(record.Term)
	fs.votedFor = NodeId(record.VotedFor)
	fs.hasVote = record.HasVote
	return nil
}

func (fs *FileStore) writeTerm() error {
	record := &raftpb.TermRecord{
		Term:     int64(fs.term),
		VotedFor: string(fs.votedFor),
		HasVote:  fs.hasVote,
	}
	out, err := proto.Marshal(record)
	if err != nil {
		return fmt.Errorf("filestore: marshal term record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(fs.termFile), 0o755); err != nil {
		return fmt.Errorf("filestore: mkdir: %w", err)
	}
	if err := os.WriteFile(fs.termFile, out, 0o644); err != nil {
		return fmt.Errorf("filestore: write term file: %w", err)
	}
	return nil
}

func (fs *FileStore) loadLog() error {
	store := &raftpb.LogStore{}
	if _, err := os.Stat(fs.logFile); err == nil {
		raw, err := os.ReadFile(fs.logFile)
		if err != nil {
			return fmt.Errorf("filestore: read log file: %w", err)
		}
		if err := proto.Unmarshal(raw, store); err != nil {
			return fmt.Errorf("filestore: unmarshal log file: %w", err)
		}
	}
	fs.entries = make([]LogEntry, len(store.Entries))
	for i, rec := range store.Entries {
		fs.entries[i] = LogEntry{Term: Term(rec.Term), Payload: rec.Payload}
	}
	return nil
}

func (fs *FileStore) writeLog() error {
	store := &raftpb.LogStore{Entries: make([]*raftpb.LogRecord, len(fs.entries))}
	for i, e := range fs.entries {
		store.Entries[i] = &raftpb.LogRecord{Term: int64(e.Term), Payload: e.Payload}
	}
	out, err := proto.Marshal(store)
	if err != nil {
		return fmt.Errorf("filestore: marshal log store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(fs.logFile), 0o755); err != nil {
		return fmt.Errorf("filestore: mkdir: %w", err)
	}
	if err := os.WriteFile(fs.logFile, out, 0o644); err != nil {
		return fmt.Errorf("filestore: write log file: %w", err)
	}
	return nil
}

func (fs *FileStore) CurrentTerm() (Term, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.term, nil
}

// SetCurrentTerm persists t and clears VotedFor in the same write.
func (fs *FileStore) SetCurrentTerm(t Term) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.term = t
	fs.hasVote = false
	fs.votedFor = ""
	return fs.writeTerm()
}

func (fs *FileStore) IncCurrentTerm() (Term, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.term++
	fs.hasVote = false
	fs.votedFor = ""
	if err := fs.writeTerm(); err != nil {
		return 0, err
	}
	return fs.term, nil
}

func (fs *FileStore) VotedFor() (NodeId, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.votedFor, fs.hasVote, nil
}

func (fs *FileStore) SetVotedFor(id NodeId) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.votedFor = id
	fs.hasVote = true
	return fs.writeTerm()
}

func (fs *FileStore) LatestIndex() (LogIndex, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return LogIndex(len(fs.entries)), nil
}

func (fs *FileStore) LatestTerm() (Term, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.entries) == 0 {
		return 0, nil
	}
	return fs.entries[len(fs.entries)-1].Term, nil
}

func (fs *FileStore) Entry(i LogIndex) (LogEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if i < 1 || int(i) > len(fs.entries) {
		return LogEntry{}, fmt.Errorf("filestore: index %d out of range (len=%d)", i, len(fs.entries))
	}
	return fs.entries[i-1], nil
}

func (fs *FileStore) AppendEntries(start LogIndex, newEntries []LogEntry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if start < 1 {
		return fmt.Errorf("filestore: append start index must be >= 1, got %d", start)
	}
	end := int(start) - 1 + len(newEntries)
	if end > len(fs.entries) {
		grown := make([]LogEntry, end)
		copy(grown, fs.entries)
		fs.entries = grown
	}
	copy(fs.entries[start-1:], newEntries)
	return fs.writeLog()
}

// TruncateEntries removes all entries at index >= i. Only ever called
// on the Follower path, never by a Leader.
func (fs *FileStore) TruncateEntries(i LogIndex) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if i < 1 {
		fs.entries = nil
		return fs.writeLog()
	}
	if int(i)-1 < len(fs.entries) {
		fs.entries = fs.entries[:i-1]
	}
	return fs.writeLog()
}

var _ Store = (*FileStore)(nil)
