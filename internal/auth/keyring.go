package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keyring service name tokens are stored under.
const DefaultKeyringService = "gmailwrapper"

// KeyringTokenStore persists the token in the OS keyring
// (macOS Keychain, Windows Credential Manager, or Linux Secret Service),
// using the same JSON layout as token.json.
type KeyringTokenStore struct {
	Service string
	User    string
}

// NewKeyringTokenStore returns a KeyringTokenStore for user under the default service.
func NewKeyringTokenStore(user string) *KeyringTokenStore {
	return &KeyringTokenStore{Service: DefaultKeyringService, User: user}
}

func (k *KeyringTokenStore) Load() (*StoredToken, error) {
	data, err := keyring.Get(k.Service, k.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to load token from keyring: %w", err)
	}
	st, err := decodeToken([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse keyring token: %w", err)
	}
	return st, nil
}

func (k *KeyringTokenStore) Save(st *StoredToken) error {
	data, err := encodeToken(st)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := keyring.Set(k.Service, k.User, string(data)); err != nil {
		return fmt.Errorf("failed to save token to keyring: %w", err)
	}
	return nil
}

func (k *KeyringTokenStore) Delete() error {
	if err := keyring.Delete(k.Service, k.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}
