package repo

import (
	"time"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
)

// SnapshotStore persists the chat snapshot consumed by the display layer.
// The file is overwritten wholesale each cycle.
type SnapshotStore interface {
	// Write replaces the snapshot file.
	Write(snap *domain.Snapshot) error

	// Read loads the current snapshot. A missing file yields an empty
	// snapshot, not an error.
	Read() (*domain.Snapshot, error)

	// Info returns size and modification time of the snapshot file.
	Info() (size int64, modified time.Time, err error)
}
