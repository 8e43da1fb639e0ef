package repo

import (
	"context"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
)

// ChatPage is one bounded page of the remote chat listing.
type ChatPage struct {
	Chats []*domain.Chat
}

// ChatRepo is the read-side messenger interface.
// Responsible for fetching chat data from the remote API.
type ChatRepo interface {
	// FetchPage requests one bounded page from the listing endpoint.
	FetchPage(ctx context.Context, limit, offset int, unreadOnly bool) (*ChatPage, error)

	// FetchAll pages through the listing until a short page, an empty page,
	// or maxTotal chats, whichever comes first. On a mid-pagination failure
	// it returns the chats accumulated so far together with the error.
	FetchAll(ctx context.Context, maxTotal int) ([]*domain.Chat, error)
}

// MessageSender is the send-side messenger interface. It carries its own
// token lifecycle, independent of the read side.
type MessageSender interface {
	// SendText posts a text message to a chat and returns the remote-assigned
	// message id.
	SendText(ctx context.Context, chatID, text string) (string, error)
}
