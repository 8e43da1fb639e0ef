package domain

import "fmt"

// AuthError means the credentials were rejected by the token endpoint
// (HTTP 401). Not retryable without operator intervention.
type AuthError struct {
	Status int
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid credentials (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("invalid credentials (status %d)", e.Status)
}

// FetchError is a transient network or HTTP failure on the token or
// chat-listing endpoints. The cycle degrades to an empty result and the
// scheduler continues on the next interval.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SendError is a failure sending a single auto-reply. It never aborts the
// rest of the batch and never reverts the dedup-processed marking.
type SendError struct {
	ChatID string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to chat %s: %v", e.ChatID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// StateError is a persisted-state read/write failure. In-memory state keeps
// operating for the current process lifetime; persistence is best effort.
type StateError struct {
	Path string
	Err  error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state file %s: %v", e.Path, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }
