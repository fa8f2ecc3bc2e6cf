package auth

import (
	"errors"
	"os"
)

// EnvironmentStore reads the token from TGARCHIVE_API_TOKEN. It is
// read-only: Store and Delete report the store as unavailable so the
// manager falls through to a writable backend.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(*Credential) error {
	return errors.New("environment store is read-only")
}

// Retrieve returns the environment token under any label; the environment
// can only hold one.
func (e *EnvironmentStore) Retrieve(label string) (*Credential, error) {
	token := os.Getenv("TGARCHIVE_API_TOKEN")
	if token == "" {
		return nil, ErrCredentialNotFound
	}
	return &Credential{Label: DefaultLabel, Token: token}, nil
}

func (e *EnvironmentStore) List() ([]*Credential, error) {
	if cred, err := e.Retrieve(DefaultLabel); err == nil {
		return []*Credential{cred}, nil
	}
	return []*Credential{}, nil
}

func (e *EnvironmentStore) Delete(string) error {
	return errors.New("environment store is read-only")
}

func (e *EnvironmentStore) Exists(string) bool {
	return os.Getenv("TGARCHIVE_API_TOKEN") != ""
}
