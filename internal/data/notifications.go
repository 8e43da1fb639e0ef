package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// Notifications kept in the store; older rows are pruned on insert.
const maxNotifications = 100

// notificationRepo implements the notification log store on SQLite.
type notificationRepo struct {
	db *sql.DB
}

var _ repo.NotificationRepo = (*notificationRepo)(nil)

// NewNotificationRepo opens (or creates) the notification database.
func NewNotificationRepo(dbPath string) (repo.NotificationRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications(created_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &notificationRepo{db: db}, nil
}

// Add appends one notification and prunes beyond the retention cap.
func (r *notificationRepo) Add(ctx context.Context, level, message string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (created_at, level, message) VALUES (?, ?, ?)
	`, time.Now().Unix(), level, message)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE id NOT IN (SELECT id FROM notifications ORDER BY id DESC LIMIT ?)
	`, maxNotifications)
	if err != nil {
		return fmt.Errorf("failed to prune notifications: %w", err)
	}
	return nil
}

// Recent returns the newest notifications first, optionally filtered by
// level.
func (r *notificationRepo) Recent(ctx context.Context, limit int, level string) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT created_at, level, message FROM notifications`
	args := []any{}
	if level != "" {
		query += ` WHERE level = ?`
		args = append(args, level)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		var createdAt int64
		if err := rows.Scan(&createdAt, &n.Level, &n.Message); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Timestamp = time.Unix(createdAt, 0)
		out = append(out, &n)
	}
	return out, rows.Err()
}

// Close closes the database connection
func (r *notificationRepo) Close() error {
	return r.db.Close()
}
