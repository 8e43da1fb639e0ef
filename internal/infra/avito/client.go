package avito

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

var errEmptyToken = errors.New("empty access_token in response")

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body != "" {
		return fmt.Sprintf("status %d: %s", e.status, e.body)
	}
	return fmt.Sprintf("status %d", e.status)
}

var (
	_ repo.ChatRepo      = (*Client)(nil)
	_ repo.MessageSender = (*Client)(nil)
)

// Client talks to the Avito messenger API for one account. It implements
// both repo.ChatRepo and repo.MessageSender; the wiring constructs two
// instances so the read and send paths never share a token cache.
type Client struct {
	baseURL    string
	userID     string
	tokens     *TokenProvider
	httpClient *http.Client
	batchSize  int
	log        zerolog.Logger
}

// NewClient creates a messenger API client backed by the given token
// provider.
func NewClient(baseURL, userID string, tokens *TokenProvider, batchSize int, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		batchSize:  batchSize,
		log:        log.With().Str("component", "avito").Logger(),
	}
}

// FetchPage requests one bounded page from the chat listing endpoint. A 401
// response forces one token refresh and a single retry.
func (c *Client) FetchPage(ctx context.Context, limit, offset int, unreadOnly bool) (*repo.ChatPage, error) {
	if limit <= 0 {
		limit = c.batchSize
	}

	body, err := c.getChats(ctx, limit, offset, unreadOnly, false)
	if err != nil {
		var authErr *domain.AuthError
		var statusErr *statusError
		if errors.As(err, &statusErr) && statusErr.status == http.StatusUnauthorized {
			body, err = c.getChats(ctx, limit, offset, unreadOnly, true)
		} else if errors.As(err, &authErr) {
			return nil, err
		}
		if err != nil {
			return nil, err
		}
	}

	var listing struct {
		Chats []json.RawMessage `json:"chats"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, &domain.FetchError{Op: "chat listing decode", Err: err}
	}

	page := &repo.ChatPage{Chats: make([]*domain.Chat, 0, len(listing.Chats))}
	for _, raw := range listing.Chats {
		chat, err := parseChat(raw)
		if err != nil {
			c.log.Warn().Err(err).Msg("Skipping unparsable chat entry")
			continue
		}
		page.Chats = append(page.Chats, chat)
	}

	c.log.Debug().Int("count", len(page.Chats)).Int("offset", offset).Msg("Retrieved chat page")
	return page, nil
}

func (c *Client) getChats(ctx context.Context, limit, offset int, unreadOnly, forceToken bool) ([]byte, error) {
	token, err := c.tokens.Token(ctx, forceToken)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/messenger/v2/accounts/%s/chats", c.baseURL, c.userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &domain.FetchError{Op: "chat listing request", Err: err}
	}
	q := req.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if unreadOnly {
		q.Set("unread_only", "true")
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Op: "chat listing", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &domain.FetchError{
			Op:  "chat listing",
			Err: &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))},
		}
	}

	return io.ReadAll(resp.Body)
}

// FetchAll pages through the listing in batchSize steps until a short page,
// an empty page, or maxTotal chats. On a mid-pagination failure the chats
// accumulated so far are returned together with the error so the cycle can
// degrade instead of crash.
func (c *Client) FetchAll(ctx context.Context, maxTotal int) ([]*domain.Chat, error) {
	var all []*domain.Chat
	offset := 0

	for {
		page, err := c.FetchPage(ctx, c.batchSize, offset, false)
		if err != nil {
			c.log.Error().Err(err).Int("offset", offset).Msg("Error getting chats")
			return all, err
		}

		if len(page.Chats) == 0 {
			break
		}
		all = append(all, page.Chats...)

		if maxTotal > 0 && len(all) >= maxTotal {
			all = all[:maxTotal]
			break
		}
		if len(page.Chats) < c.batchSize {
			break
		}
		offset += c.batchSize
	}

	c.log.Debug().Int("total", len(all)).Msg("Retrieved all chats")
	return all, nil
}

// SendText posts a text message to a chat and returns the remote-assigned
// message id. All failures come back as *domain.SendError.
func (c *Client) SendText(ctx context.Context, chatID, text string) (string, error) {
	token, err := c.tokens.Token(ctx, false)
	if err != nil {
		return "", &domain.SendError{ChatID: chatID, Err: err}
	}

	payload := map[string]any{
		"message": map[string]string{"text": text},
		"type":    "text",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &domain.SendError{ChatID: chatID, Err: err}
	}

	endpoint := fmt.Sprintf("%s/messenger/v1/accounts/%s/chats/%s/messages", c.baseURL, c.userID, chatID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &domain.SendError{ChatID: chatID, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.SendError{ChatID: chatID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &domain.SendError{
			ChatID: chatID,
			Err:    &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(respBody))},
		}
	}

	var sent struct {
		ID flexID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		// The message went out; a malformed response only costs the id.
		c.log.Warn().Err(err).Str("chat_id", chatID).Msg("Could not decode send response")
		return "", nil
	}
	return string(sent.ID), nil
}
