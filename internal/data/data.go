package data

import (
	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// Stores bundles all persistence backends.
type Stores struct {
	State         repo.StateStore
	Snapshot      repo.SnapshotStore
	Notifications repo.NotificationRepo
	Credentials   repo.CredentialStore
}

// NewStores creates the file and keyring stores. The notification repo is
// passed in: it must exist before the logger gets its notification hook, and
// every store built here logs through the hooked logger.
func NewStores(statePath, snapshotPath, keyringService string, notifications repo.NotificationRepo, log zerolog.Logger) (*Stores, error) {
	snapshot, err := NewSnapshotStore(snapshotPath)
	if err != nil {
		return nil, err
	}

	return &Stores{
		State:         NewStateStore(statePath, log),
		Snapshot:      snapshot,
		Notifications: notifications,
		Credentials:   NewKeyringStore(keyringService),
	}, nil
}
