package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestState(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "monitor_state.json")
}

func TestStateRoundtrip(t *testing.T) {
	path := newTestState(t)

	s := NewStateStore(path, zerolog.Nop())
	if !s.IsNewMessage("m1") {
		t.Error("Fresh store must treat every id as new")
	}

	s.MarkProcessed("m1")
	s.MarkProcessed("m2")
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if err := s.MarkReplied("chat-1"); err != nil {
		t.Fatalf("MarkReplied() error: %v", err)
	}

	// A second instance must see the persisted state.
	s2 := NewStateStore(path, zerolog.Nop())
	if s2.IsNewMessage("m1") || s2.IsNewMessage("m2") {
		t.Error("Persisted ids must survive a reload")
	}
	if s2.IsNewMessage("m3") != true {
		t.Error("Unknown id must still be new")
	}
	if !s2.HasReplied("chat-1") {
		t.Error("Replied chat must survive a reload")
	}
	if s2.HasReplied("chat-2") {
		t.Error("Unknown chat must not count as replied")
	}
	if s2.ProcessedCount() != 2 {
		t.Errorf("Expected 2 processed ids, got %d", s2.ProcessedCount())
	}
}

func TestStateMarkRepliedPersistsImmediately(t *testing.T) {
	path := newTestState(t)

	s := NewStateStore(path, zerolog.Nop())
	if err := s.MarkReplied("chat-9"); err != nil {
		t.Fatalf("MarkReplied() error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("State file must exist after MarkReplied: %v", err)
	}
	var state struct {
		SentReplies []string `json:"sent_replies"`
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("Failed to parse state file: %v", err)
	}
	if len(state.SentReplies) != 1 || state.SentReplies[0] != "chat-9" {
		t.Errorf("Expected sent_replies [chat-9], got %v", state.SentReplies)
	}
}

func TestStateCapEvictsOldest(t *testing.T) {
	path := newTestState(t)

	s := NewStateStore(path, zerolog.Nop())
	for i := 0; i < maxProcessedIDs+50; i++ {
		s.MarkProcessed(fmt.Sprintf("m-%04d", i))
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	if s.ProcessedCount() != maxProcessedIDs {
		t.Errorf("Expected cap at %d, got %d", maxProcessedIDs, s.ProcessedCount())
	}
	if !s.IsNewMessage("m-0000") {
		t.Error("Oldest id must be evicted first")
	}
	if s.IsNewMessage(fmt.Sprintf("m-%04d", maxProcessedIDs+49)) {
		t.Error("Newest id must survive the trim")
	}
}

func TestStateReset(t *testing.T) {
	path := newTestState(t)

	s := NewStateStore(path, zerolog.Nop())
	s.MarkProcessed("m1")
	s.MarkReplied("chat-1")

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if s.ProcessedCount() != 0 {
		t.Errorf("Expected 0 processed ids after reset, got %d", s.ProcessedCount())
	}
	if !s.IsNewMessage("m1") {
		t.Error("Reset must forget processed ids")
	}
	if !s.HasReplied("chat-1") {
		t.Error("Reset must not touch the replied set")
	}
}

func TestStateCorruptFileStartsEmpty(t *testing.T) {
	path := newTestState(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewStateStore(path, zerolog.Nop())
	if s.ProcessedCount() != 0 {
		t.Errorf("Corrupt file must start the store empty, got %d ids", s.ProcessedCount())
	}
	if !s.IsNewMessage("anything") {
		t.Error("Empty store must treat every id as new")
	}
}
