package avito

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
)

// flexID tolerates remote ids arriving as either strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// chatPayload mirrors the subset of the listing schema the monitor acts on.
// Everything else survives untouched in the raw map.
type chatPayload struct {
	ID    flexID `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Users []struct {
		Name string `json:"name"`
	} `json:"users"`
	Context struct {
		ItemTitle string `json:"item_title"`
	} `json:"context"`
	LastMessage *struct {
		ID        flexID `json:"id"`
		Read      bool   `json:"read"`
		Direction string `json:"direction"`
		Created   int64  `json:"created"`
		Content   struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"last_message"`
}

var errMissingChatID = errors.New("chat has no id")

// parseChat decodes one raw chat entry into its typed form and keeps the
// full payload, timestamp-expanded, for the snapshot.
func parseChat(raw json.RawMessage) (*domain.Chat, error) {
	var payload chatPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload.ID == "" {
		return nil, errMissingChatID
	}

	var rawMap map[string]any
	if err := json.Unmarshal(raw, &rawMap); err != nil {
		return nil, err
	}

	chat := &domain.Chat{
		ID:        string(payload.ID),
		Name:      payload.Name,
		Title:     payload.Title,
		ItemTitle: payload.Context.ItemTitle,
		Raw:       ExpandTimestamps(rawMap).(map[string]any),
	}
	for _, u := range payload.Users {
		chat.Users = append(chat.Users, domain.Participant{Name: u.Name})
	}
	if payload.LastMessage != nil {
		chat.LastMessage = &domain.LastMessage{
			ID:        string(payload.LastMessage.ID),
			Read:      payload.LastMessage.Read,
			Direction: payload.LastMessage.Direction,
			Created:   payload.LastMessage.Created,
			Text:      payload.LastMessage.Content.Text,
		}
	}
	return chat, nil
}
