package data

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// snapshotStore writes the chat-cache JSON file consumed by the display
// layer.
type snapshotStore struct {
	mu   sync.Mutex
	path string
}

var _ repo.SnapshotStore = (*snapshotStore)(nil)

// NewSnapshotStore creates the snapshot store, seeding an empty file when
// none exists so readers always find a valid document.
func NewSnapshotStore(path string) (repo.SnapshotStore, error) {
	s := &snapshotStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		now := time.Now()
		empty := &domain.Snapshot{
			Chats:                []map[string]any{},
			RetrievedAt:          now.Format(time.RFC3339),
			RetrievedAtFormatted: now.Format("2006-01-02 15:04:05"),
		}
		if err := s.Write(empty); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *snapshotStore) Write(snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &domain.StateError{Path: s.path, Err: err}
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return &domain.StateError{Path: s.path, Err: err}
	}
	return nil
}

func (s *snapshotStore) Read() (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &domain.Snapshot{Chats: []map[string]any{}, RetrievedAtFormatted: "Never"}, nil
	}
	if err != nil {
		return nil, &domain.StateError{Path: s.path, Err: err}
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &domain.StateError{Path: s.path, Err: err}
	}
	if snap.Chats == nil {
		snap.Chats = []map[string]any{}
	}
	return &snap, nil
}

func (s *snapshotStore) Info() (int64, time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, time.Time{}, err
	}
	return info.Size(), info.ModTime(), nil
}
