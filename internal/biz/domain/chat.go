package domain

// Message direction values used by the messenger API.
const DirectionIn = "in"

// Participant is one user record attached to a chat.
type Participant struct {
	Name string
}

// LastMessage is the most recent message of a chat as reported by the
// listing endpoint. Only the last message is inspected per cycle; full
// history is never fetched.
type LastMessage struct {
	ID        string
	Read      bool
	Direction string
	Created   int64
	Text      string
}

// Chat is a read-only snapshot of one conversation from the remote API.
type Chat struct {
	ID          string
	Name        string
	Title       string
	ItemTitle   string
	UserName    string
	Users       []Participant
	LastMessage *LastMessage

	// Raw is the full API payload with expanded timestamps. The snapshot
	// file stores Raw, so no field of the original response is lost.
	Raw map[string]any
}

// Message is one qualifying unread inbound message surfaced by a cycle.
// Identity is MessageID (remote-assigned), never the text content.
type Message struct {
	ChatID           string `json:"chat_id"`
	MessageID        string `json:"message_id"`
	Text             string `json:"text"`
	Created          string `json:"created"`
	CreatedTimestamp int64  `json:"created_timestamp"`
	Direction        string `json:"direction"`
	IsUnread         bool   `json:"is_unread"`
	IsSystem         bool   `json:"is_system"`
	UserName         string `json:"user_name"`
}

// Snapshot is the chat-cache file payload consumed by the display layer.
// It is fully overwritten every cycle.
type Snapshot struct {
	Chats                []map[string]any `json:"chats"`
	TotalChats           int              `json:"total_chats"`
	RetrievedAt          string           `json:"retrieved_at"`
	RetrievedAtFormatted string           `json:"retrieved_at_formatted"`
}
