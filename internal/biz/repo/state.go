package repo

// StateStore persists the dedup state: processed message ids and chats
// already auto-replied to. Loaded once at construction, rewritten after each
// batch of mutations. Persistence is best effort; in-memory state stays
// authoritative for the current process lifetime.
type StateStore interface {
	// IsNewMessage reports whether the message id has never been surfaced.
	IsNewMessage(id string) bool

	// MarkProcessed records a message id in memory. Call Flush to persist
	// the batch.
	MarkProcessed(id string)

	// Flush writes the current state to disk. The processed-id set is capped
	// at the most recent 1000 entries, oldest evicted first.
	Flush() error

	// HasReplied reports whether an auto-reply was ever sent to the chat.
	HasReplied(chatID string) bool

	// MarkReplied records the chat as replied and persists immediately.
	MarkReplied(chatID string) error

	// ProcessedCount returns the number of tracked message ids.
	ProcessedCount() int

	// Reset clears the processed-id set (maintenance/debugging).
	Reset() error
}
