package auth

import (
	"sync"
	"time"
)

// MockStore is an in-memory CredentialStore for tests.
type MockStore struct {
	mu    sync.RWMutex
	creds map[string]*Credential
}

func NewMockStore() *MockStore {
	return &MockStore{creds: make(map[string]*Credential)}
}

func (m *MockStore) Store(cred *Credential) error {
	if cred == nil || cred.Label == "" {
		return ErrInvalidCredential
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *cred
	if c.LastModified.IsZero() {
		c.LastModified = time.Now()
	}
	m.creds[c.Label] = &c
	return nil
}

func (m *MockStore) Retrieve(label string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.creds[label]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	c := *cred
	return &c, nil
}

func (m *MockStore) List() ([]*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Credential
	for _, cred := range m.creds {
		c := *cred
		result = append(result, &c)
	}
	return result, nil
}

func (m *MockStore) Delete(label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.creds[label]; !ok {
		return ErrCredentialNotFound
	}
	delete(m.creds, label)
	return nil
}

func (m *MockStore) Exists(label string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.creds[label]
	return ok
}

func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.creds)
}

// NewMockManager returns a Manager backed only by a fresh MockStore,
// alongside the store itself for assertions.
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return &Manager{stores: []CredentialStore{store}}, store
}

// NewMockManagerWithStores builds a Manager over an explicit store chain.
func NewMockManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}
