package usecase

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// fakeCredStore implements repo.CredentialStore in memory.
type fakeCredStore struct {
	values  map[string]string
	deleted []string
}

func newFakeCredStore() *fakeCredStore {
	return &fakeCredStore{values: make(map[string]string)}
}

func (f *fakeCredStore) Get(key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", repo.ErrCredentialNotFound
	}
	return v, nil
}

func (f *fakeCredStore) Set(key, value string) error {
	f.values[key] = value
	return nil
}

func (f *fakeCredStore) Delete(key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.values, key)
	return nil
}

// scriptedPrompter returns canned answers keyed by label.
type scriptedPrompter struct {
	answers map[string]string
	secrets []string
}

func (p *scriptedPrompter) Prompt(label string, secret bool) (string, error) {
	if secret {
		p.secrets = append(p.secrets, label)
	}
	answer, ok := p.answers[label]
	if !ok {
		return "", errors.New("unexpected prompt: " + label)
	}
	return answer, nil
}

func TestLoadCredentialsAllStored(t *testing.T) {
	store := newFakeCredStore()
	store.values[repo.CredentialClientID] = "cid"
	store.values[repo.CredentialClientSecret] = "secret"
	store.values[repo.CredentialUserID] = "12345"

	creds, err := LoadCredentials(store, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadCredentials() error: %v", err)
	}
	if creds.ClientID != "cid" || creds.ClientSecret != "secret" || creds.UserID != "12345" {
		t.Errorf("Unexpected credentials: %+v", creds)
	}
}

func TestLoadCredentialsPromptsForMissing(t *testing.T) {
	store := newFakeCredStore()
	store.values[repo.CredentialClientID] = "cid"

	prompter := &scriptedPrompter{answers: map[string]string{
		"Enter Client Secret": "typed-secret",
		"Enter User ID":       " 98765 ",
	}}

	creds, err := LoadCredentials(store, prompter, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadCredentials() error: %v", err)
	}
	if creds.ClientSecret != "typed-secret" {
		t.Errorf("Expected prompted secret, got %q", creds.ClientSecret)
	}
	if creds.UserID != "98765" {
		t.Errorf("Expected trimmed user id, got %q", creds.UserID)
	}

	// Prompted values must be saved for next time.
	if store.values[repo.CredentialClientSecret] != "typed-secret" {
		t.Error("Prompted secret must be persisted")
	}
	// The secret is the only no-echo prompt.
	if len(prompter.secrets) != 1 || prompter.secrets[0] != "Enter Client Secret" {
		t.Errorf("Expected only the client secret prompted as secret, got %v", prompter.secrets)
	}
}

func TestLoadCredentialsNoPrompterFails(t *testing.T) {
	if _, err := LoadCredentials(newFakeCredStore(), nil, zerolog.Nop()); err == nil {
		t.Error("Expected an error when credentials are missing and no prompt is available")
	}
}

func TestLoadCredentialsEmptyAnswerFails(t *testing.T) {
	prompter := &scriptedPrompter{answers: map[string]string{"Enter Client ID": "   "}}
	if _, err := LoadCredentials(newFakeCredStore(), prompter, zerolog.Nop()); err == nil {
		t.Error("Expected an error for a blank prompted value")
	}
}

func TestClearCredentials(t *testing.T) {
	store := newFakeCredStore()
	store.values[repo.CredentialClientID] = "cid"

	if err := ClearCredentials(store, zerolog.Nop()); err != nil {
		t.Fatalf("ClearCredentials() error: %v", err)
	}
	if len(store.deleted) != 3 {
		t.Errorf("Expected all 3 keys deleted, got %v", store.deleted)
	}
}
