package repo

import (
	"context"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
)

// NotificationRepo stores log-derived notifications for the status surface
// (SQLite). Retention is capped; old entries are pruned on insert.
type NotificationRepo interface {
	// Add appends one notification.
	Add(ctx context.Context, level, message string) error

	// Recent returns the most recent notifications, newest first. An empty
	// level returns all levels.
	Recent(ctx context.Context, limit int, level string) ([]*domain.Notification, error)

	Close() error
}
