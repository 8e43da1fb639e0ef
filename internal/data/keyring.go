package data

import (
	"errors"

	"github.com/zalando/go-keyring"

	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// keyringStore backs repo.CredentialStore with the OS keyring.
type keyringStore struct {
	service string
}

var _ repo.CredentialStore = (*keyringStore)(nil)

// NewKeyringStore creates a credential store scoped to one keyring service
// name.
func NewKeyringStore(service string) repo.CredentialStore {
	return &keyringStore{service: service}
}

func (s *keyringStore) Get(key string) (string, error) {
	value, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", repo.ErrCredentialNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *keyringStore) Set(key, value string) error {
	return keyring.Set(s.service, key, value)
}

func (s *keyringStore) Delete(key string) error {
	err := keyring.Delete(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
