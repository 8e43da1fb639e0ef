package repo

import "errors"

// Keys stored in the credential backend.
const (
	CredentialClientID     = "client_id"
	CredentialClientSecret = "client_secret"
	CredentialUserID       = "user_id"
)

// ErrCredentialNotFound is returned by Get when the key is absent.
var ErrCredentialNotFound = errors.New("credential not found")

// Credentials holds the client-credentials grant inputs. Loaded once per
// process lifetime and immutable after load.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserID       string
}

// CredentialStore is the opaque secret backend (system keyring in
// production, in-memory fake in tests).
type CredentialStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}
