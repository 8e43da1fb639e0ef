package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// Prompter asks the operator for a missing credential value. The secret
// flag requests no-echo input.
type Prompter interface {
	Prompt(label string, secret bool) (string, error)
}

// LoadCredentials returns the stored credentials, prompting for and saving
// any that are absent. Credentials are loaded once per process lifetime.
func LoadCredentials(store repo.CredentialStore, prompter Prompter, log zerolog.Logger) (repo.Credentials, error) {
	clientID, err := loadOne(store, prompter, log, repo.CredentialClientID, "Enter Client ID", false)
	if err != nil {
		return repo.Credentials{}, err
	}
	clientSecret, err := loadOne(store, prompter, log, repo.CredentialClientSecret, "Enter Client Secret", true)
	if err != nil {
		return repo.Credentials{}, err
	}
	userID, err := loadOne(store, prompter, log, repo.CredentialUserID, "Enter User ID", false)
	if err != nil {
		return repo.Credentials{}, err
	}

	return repo.Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		UserID:       userID,
	}, nil
}

func loadOne(store repo.CredentialStore, prompter Prompter, log zerolog.Logger, key, label string, secret bool) (string, error) {
	value, err := store.Get(key)
	if err == nil && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), nil
	}
	if err != nil && !errors.Is(err, repo.ErrCredentialNotFound) {
		return "", fmt.Errorf("read %s: %w", key, err)
	}

	if prompter == nil {
		return "", fmt.Errorf("%s is not stored and no prompt is available", key)
	}
	value, err = prompter.Prompt(label, secret)
	if err != nil {
		return "", fmt.Errorf("prompt %s: %w", key, err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}

	if err := store.Set(key, value); err != nil {
		return "", fmt.Errorf("save %s: %w", key, err)
	}
	log.Info().Str("key", key).Msg("Credential saved to secret store")
	return value, nil
}

// ClearCredentials deletes all stored credentials.
func ClearCredentials(store repo.CredentialStore, log zerolog.Logger) error {
	var errs []error
	for _, key := range []string{repo.CredentialClientID, repo.CredentialClientSecret, repo.CredentialUserID} {
		if err := store.Delete(key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	log.Warn().Msg("Credentials deleted from secret store")
	return nil
}
