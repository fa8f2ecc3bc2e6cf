package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCredentialManager(t *testing.T) {
	manager, store := NewMockManager()

	t.Run("Store and retrieve", func(t *testing.T) {
		cred := &Credential{
			Label: "staging",
			Token: "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11",
		}
		if err := manager.Store(cred); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		if cred.LastModified.IsZero() {
			t.Error("Store should set LastModified")
		}

		got, err := manager.Retrieve("staging")
		if err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}
		if got.Token != cred.Token {
			t.Errorf("Token = %q, want %q", got.Token, cred.Token)
		}
	})

	t.Run("Empty label becomes default", func(t *testing.T) {
		if err := manager.Store(&Credential{Token: "999:token"}); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
		if !store.Exists(DefaultLabel) {
			t.Errorf("credential should be stored under %q", DefaultLabel)
		}
	})

	t.Run("Missing token rejected", func(t *testing.T) {
		if err := manager.Store(&Credential{Label: "empty"}); err == nil {
			t.Error("Store should reject an empty token")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := manager.Delete("staging"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := manager.Retrieve("staging"); err == nil {
			t.Error("Retrieve should fail after Delete")
		}
	})
}

func TestEncryptedFileStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TGARCHIVE_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatalf("NewEncryptedFileStore failed: %v", err)
	}

	cred := &Credential{Label: DefaultLabel, Token: "123456:secret-token-value"}
	if err := store.Store(cred); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// The token must not appear in the file as plaintext.
	raw, err := os.ReadFile(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatalf("reading store file: %v", err)
	}
	if contains(raw, []byte("secret-token-value")) {
		t.Error("token stored in plaintext")
	}

	got, err := store.Retrieve(DefaultLabel)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got.Token != cred.Token {
		t.Errorf("Token = %q, want %q", got.Token, cred.Token)
	}

	// Deleting the last credential removes the file.
	if err := store.Delete(DefaultLabel); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "credentials.enc")); !os.IsNotExist(err) {
		t.Error("store file should be removed once empty")
	}
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv("TGARCHIVE_API_TOKEN", "")
	if _, err := store.Retrieve(DefaultLabel); err == nil {
		t.Error("Retrieve should fail when the variable is unset")
	}

	t.Setenv("TGARCHIVE_API_TOKEN", "env-token")
	cred, err := store.Retrieve(DefaultLabel)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if cred.Token != "env-token" {
		t.Errorf("Token = %q, want env-token", cred.Token)
	}

	if err := store.Store(cred); err == nil {
		t.Error("Store should fail: environment store is read-only")
	}
	if err := store.Delete(DefaultLabel); err == nil {
		t.Error("Delete should fail: environment store is read-only")
	}
}

func TestManagerFallbackChain(t *testing.T) {
	t.Setenv("TGARCHIVE_API_TOKEN", "env-token")

	primary := NewMockStore()
	manager := NewMockManagerWithStores(primary, NewEnvironmentStore())

	// With nothing in the primary store, the environment provides the default.
	cred, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("RetrieveDefault failed: %v", err)
	}
	if cred.Token != "env-token" {
		t.Errorf("Token = %q, want env-token", cred.Token)
	}
}

func TestSanitize(t *testing.T) {
	cred := &Credential{Label: DefaultLabel, Token: "123456:ABCDEF-verylongtoken"}
	safe := Sanitize(cred)
	if safe.Token == cred.Token {
		t.Error("Sanitize should mask the token")
	}
	if safe.Token != "1234...oken" {
		t.Errorf("masked token = %q", safe.Token)
	}
	if Sanitize(nil) != nil {
		t.Error("Sanitize(nil) should be nil")
	}
}

func contains(data []byte, substr []byte) bool {
	for i := 0; i+len(substr) <= len(data); i++ {
		match := true
		for j := range substr {
			if data[i+j] != substr[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
