package data

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// Cap on the persisted processed-id set; oldest entries are evicted first.
const maxProcessedIDs = 1000

// stateFile is the on-disk dedup state format.
type stateFile struct {
	ProcessedMessageIDs []string `json:"processed_message_ids"`
	SentReplies         []string `json:"sent_replies"`
	LastUpdated         string   `json:"last_updated"`
}

// stateStore implements repo.StateStore backed by a single JSON file. All
// mutation goes through this one instance, so the file has a single writer.
type stateStore struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger

	processed      map[string]struct{}
	processedOrder []string
	replied        map[string]struct{}
	repliedOrder   []string
}

var _ repo.StateStore = (*stateStore)(nil)

// NewStateStore loads the dedup state from path. A missing or unreadable
// file starts the store empty; the error is logged, not returned, since
// in-memory operation must continue regardless.
func NewStateStore(path string, log zerolog.Logger) repo.StateStore {
	s := &stateStore{
		path:      path,
		log:       log.With().Str("component", "state").Logger(),
		processed: make(map[string]struct{}),
		replied:   make(map[string]struct{}),
	}
	s.load()
	return s
}

func (s *stateStore) load() {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("Error loading state file")
		return
	}

	var state stateFile
	if err := json.Unmarshal(raw, &state); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("Error parsing state file")
		return
	}

	for _, id := range state.ProcessedMessageIDs {
		if _, ok := s.processed[id]; !ok {
			s.processed[id] = struct{}{}
			s.processedOrder = append(s.processedOrder, id)
		}
	}
	for _, id := range state.SentReplies {
		if _, ok := s.replied[id]; !ok {
			s.replied[id] = struct{}{}
			s.repliedOrder = append(s.repliedOrder, id)
		}
	}
	s.log.Info().
		Int("processed", len(s.processed)).
		Int("replied", len(s.replied)).
		Msg("Loaded dedup state")
}

func (s *stateStore) IsNewMessage(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, seen := s.processed[id]
	return !seen
}

func (s *stateStore) MarkProcessed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processed[id]; ok {
		return
	}
	s.processed[id] = struct{}{}
	s.processedOrder = append(s.processedOrder, id)
}

func (s *stateStore) HasReplied(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.replied[chatID]
	return ok
}

func (s *stateStore) MarkReplied(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.replied[chatID]; !ok {
		s.replied[chatID] = struct{}{}
		s.repliedOrder = append(s.repliedOrder, chatID)
	}
	return s.flushLocked()
}

func (s *stateStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *stateStore) ProcessedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed)
}

func (s *stateStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = make(map[string]struct{})
	s.processedOrder = nil
	s.log.Info().Msg("Reset all processed message IDs")
	return s.flushLocked()
}

func (s *stateStore) flushLocked() error {
	if len(s.processedOrder) > maxProcessedIDs {
		evicted := s.processedOrder[:len(s.processedOrder)-maxProcessedIDs]
		for _, id := range evicted {
			delete(s.processed, id)
		}
		s.processedOrder = append([]string(nil), s.processedOrder[len(evicted):]...)
		s.log.Info().Int("kept", maxProcessedIDs).Msg("Trimmed processed IDs")
	}

	state := stateFile{
		ProcessedMessageIDs: append([]string(nil), s.processedOrder...),
		SentReplies:         append([]string(nil), s.repliedOrder...),
		LastUpdated:         time.Now().Format(time.RFC3339),
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return &domain.StateError{Path: s.path, Err: err}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("Error saving state file")
		return &domain.StateError{Path: s.path, Err: err}
	}
	return nil
}
