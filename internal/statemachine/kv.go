// Package statemachine provides a concrete, exercised implementation of
// raft.StateMachine: a replicated key/value store built on an immutable
// radix tree, driven by SET/DEL commands over a string key/value pair.
package statemachine

import (
	"encoding/json"
	"fmt"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/rs/zerolog/log"
)

// Action distinguishes a SET from a DEL command payload.
type Action int

const (
	ActionSet Action = iota
	ActionDelete
)

// Command is the decoded form of a committed log entry's payload. The
// replica core treats payloads as opaque bytes; this type is
// the statemachine package's own wire format for those bytes.
type Command struct {
	Action Action `json:"action"`
	Key    string `json:"key"`
	Value  string `json:"value,omitempty"`
}

// Encode serializes a Command to the byte form HandleClientRequest
// forwards through the log.
func Encode(c Command) ([]byte, error) {
	return json.Marshal(c)
}

func decode(payload []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(payload, &c); err != nil {
		return Command{}, fmt.Errorf("statemachine: decode command: %w", err)
	}
	return c, nil
}

// Response is the JSON-encoded reply Apply returns for a SET/DEL.
type Response struct {
	OK       bool   `json:"ok"`
	Key      string `json:"key"`
	Existed  bool   `json:"existed,omitempty"`
	OldValue string `json:"old_value,omitempty"`
}

// KVMachine is a raft.StateMachine backed by an immutable radix tree,
// giving readers a consistent lock-free snapshot concurrent with the
// next Apply.
type KVMachine struct {
	mu   sync.RWMutex
	tree *iradix.Tree
}

// NewKVMachine constructs an empty KVMachine.
func NewKVMachine() *KVMachine {
	return &KVMachine{tree: iradix.New()}
}

// Apply decodes payload as a Command and applies it to the tree,
// returning a JSON-encoded Response. Invoked exactly once per committed
// entry, in index order.
func (m *KVMachine) Apply(payload []byte) ([]byte, error) {
	cmd, err := decode(payload)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var resp Response
	resp.Key = cmd.Key
	switch cmd.Action {
	case ActionSet:
		m.tree, _, _ = m.tree.Insert([]byte(cmd.Key), cmd.Value)
		resp.OK = true
		log.Debug().Str("key", cmd.Key).Str("value", cmd.Value).Msg("state machine: set")
	case ActionDelete:
		newTree, oldVal, existed := m.tree.Delete([]byte(cmd.Key))
		m.tree = newTree
		resp.OK = true
		resp.Existed = existed
		if existed {
			if s, ok := oldVal.(string); ok {
				resp.OldValue = s
			}
		}
		log.Debug().Str("key", cmd.Key).Bool("existed", existed).Msg("state machine: delete")
	default:
		return nil, fmt.Errorf("statemachine: unknown action %d", cmd.Action)
	}
	return json.Marshal(resp)
}

// Get reads the current value for key from a consistent snapshot of the
// tree, for use by read paths outside the replicated log (e.g. the HTTP
// API's GET, which is not linearizable -- read-index reads are an
// explicit Non-goal).
func (m *KVMachine) Get(key string) (value string, ok bool) {
	m.mu.RLock()
	tree := m.tree
	m.mu.RUnlock()

	raw, found := tree.Get([]byte(key))
	if !found {
		return "", false
	}
	s, _ := raw.(string)
	return s, true
}

var _ interface {
	Apply(payload []byte) ([]byte, error)
} = (*KVMachine)(nil)
