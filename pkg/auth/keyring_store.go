package auth

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "tgarchive"
	keyringPrefix  = "token_"
)

// KeyringStore implements CredentialStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a new keyring-based credential store
func NewKeyringStore() (*KeyringStore, error) {
	// Test if keyring is available
	testKey := "test_availability"
	err := keyring.Set(keyringService, testKey, "test")
	if err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves a credential to the system keychain
func (k *KeyringStore) Store(cred *Credential) error {
	if cred == nil || cred.Label == "" {
		return ErrInvalidCredential
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	key := keyringPrefix + cred.Label
	if err := keyring.Set(keyringService, key, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	return nil
}

// Retrieve gets a credential from the system keychain
func (k *KeyringStore) Retrieve(label string) (*Credential, error) {
	if label == "" {
		return nil, ErrInvalidCredential
	}

	key := keyringPrefix + label
	data, err := keyring.Get(keyringService, key)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	return &cred, nil
}

// List returns all stored credentials from the keychain
func (k *KeyringStore) List() ([]*Credential, error) {
	// go-keyring cannot enumerate keys, a limitation of the underlying
	// platform APIs, so the keychain contributes nothing to listings.
	return []*Credential{}, nil
}

// Delete removes a credential from the system keychain
func (k *KeyringStore) Delete(label string) error {
	if label == "" {
		return ErrInvalidCredential
	}

	key := keyringPrefix + label
	err := keyring.Delete(keyringService, key)
	if err != nil {
		if err == keyring.ErrNotFound {
			return ErrCredentialNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	return nil
}

// Exists checks if a credential exists in the keychain
func (k *KeyringStore) Exists(label string) bool {
	if label == "" {
		return false
	}

	key := keyringPrefix + label
	_, err := keyring.Get(keyringService, key)
	return err == nil
}

// IsKeyringAvailable checks if the keyring is available on this system
func IsKeyringAvailable() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux":
		_, err := NewKeyringStore()
		return err == nil
	default:
		return false
	}
}
