package domain

import "time"

// Rolling window of recent user names kept on the statistics.
const RecentUserWindow = 20

// UserActivity is one entry of the recent-user window.
type UserActivity struct {
	Name     string    `json:"name"`
	Time     time.Time `json:"time"`
	IsSystem bool      `json:"is_system"`
}

// Statistics holds the monitor engine counters. Reset only on process
// restart.
type Statistics struct {
	StartTime            time.Time      `json:"start_time"`
	TotalChecks          int            `json:"total_checks"`
	TotalUnreadMessages  int            `json:"total_unread_messages"`
	TotalAutoReplies     int            `json:"total_auto_replies"`
	TotalSystemMessages  int            `json:"total_system_messages"`
	TotalRegularMessages int            `json:"total_regular_messages"`
	LastCheck            time.Time      `json:"last_check"`
	LastUnreadCount      int            `json:"last_unread_count"`
	LastError            string         `json:"last_error,omitempty"`
	RecentUsers          []UserActivity `json:"recent_users"`
}

// Uptime returns elapsed time since the engine was constructed, truncated
// to whole seconds.
func (s *Statistics) Uptime(now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return now.Sub(s.StartTime).Truncate(time.Second)
}

// SendStatus is the outcome of one auto-reply attempt.
type SendStatus string

const (
	SendStatusSent           SendStatus = "sent"
	SendStatusAlreadyReplied SendStatus = "already_replied"
	SendStatusFailed         SendStatus = "failed"
)

// SendResult is returned by the dispatcher for one chat. Failures are
// carried in the result, never raised to the caller.
type SendResult struct {
	Status    SendStatus
	MessageID string
	Err       error
}

// SentReply records one successfully dispatched auto-reply.
type SentReply struct {
	ChatID            string    `json:"chat_id"`
	UserName          string    `json:"user_name"`
	MessageID         string    `json:"message_id"`
	OriginalMessageID string    `json:"original_message_id"`
	Timestamp         time.Time `json:"timestamp"`
}

// FailedReply records one auto-reply that could not be sent.
type FailedReply struct {
	ChatID   string `json:"chat_id"`
	UserName string `json:"user_name"`
	Error    string `json:"error"`
}

// Notification is one log-derived entry surfaced on the status API.
type Notification struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}
