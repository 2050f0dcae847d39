package raft

import (
	"testing"
	"time"
)

func TestAwaitReleasedOnApply(t *testing.T) {
	r, store, _ := newReplica(t, "n1", nil)
	if err := store.AppendEntries(1, []LogEntry{
		{Term: 1, Payload: []byte("a")},
		{Term: 1, Payload: []byte("b")},
	}); err != nil {
		t.Fatalf("AppendEntries: %v", err)
	}

	ch := r.Await(2)
	select {
	case <-ch:
		t.Fatal("channel closed before anything was applied")
	default:
	}

	if err := r.applyThrough(2); err != nil {
		t.Fatalf("applyThrough: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("channel never closed after applyThrough reached the awaited index")
	}
}

func TestAwaitReleasesOnlyIndicesReached(t *testing.T) {
	r, store, _ := newReplica(t, "n1", nil)
	if err := store.AppendEntries(1, []LogEntry{
		{Term: 1, Payload: []byte("a")},
		{Term: 1, Payload: []byte("b")},
	}); err != nil {
		t.Fatalf("AppendEntries: %v", err)
	}

	ch := r.Await(2)
	if err := r.applyThrough(1); err != nil {
		t.Fatalf("applyThrough: %v", err)
	}

	select {
	case <-ch:
		t.Fatal("channel closed before its index was applied")
	default:
	}

	if err := r.applyThrough(2); err != nil {
		t.Fatalf("applyThrough: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("channel never closed once its index was applied")
	}
}
