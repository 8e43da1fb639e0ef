package domain

import "strings"

// Classifier routes messages as system-generated vs user-generated based on
// a fixed set of known notice phrases (subscription/paywall notices from the
// platform). Classification only affects reply routing, never dedup tracking.
type Classifier struct {
	phrases []string
}

// NewClassifier creates a classifier from the configured phrase list.
func NewClassifier(phrases []string) *Classifier {
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return &Classifier{phrases: lowered}
}

// IsSystemMessage reports whether the text contains any known system phrase.
func (c *Classifier) IsSystemMessage(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range c.phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ExtractUserName resolves a display name for a chat using an ordered
// fallback chain. It always returns a non-empty string.
func ExtractUserName(chat *Chat) string {
	for _, user := range chat.Users {
		if name := strings.TrimSpace(user.Name); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(chat.Name); name != "" {
		return name
	}
	if title := strings.TrimSpace(chat.Title); title != "" {
		return title
	}
	if item := strings.TrimSpace(chat.ItemTitle); item != "" {
		return "User from: " + item
	}
	if len(chat.ID) > 10 {
		return "User_" + chat.ID[len(chat.ID)-8:]
	}
	return "Unknown User"
}
