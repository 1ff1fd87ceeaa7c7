package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTokenGeneratedAndPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "auth.token")

	m, err := New(Config{TokenPath: path, RequireAuth: true})
	if err != nil {
		t.Fatal(err)
	}
	token := m.Token()
	if len(token) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(token))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}

	// A second manager must reuse the same token.
	m2, err := New(Config{TokenPath: path, RequireAuth: true})
	if err != nil {
		t.Fatal(err)
	}
	if m2.Token() != token {
		t.Error("token must survive restarts")
	}
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.token")
	m, err := New(Config{TokenPath: path, RequireAuth: true})
	if err != nil {
		t.Fatal(err)
	}

	if !m.Validate(m.Token()) {
		t.Error("correct token must validate")
	}
	if m.Validate("wrong") {
		t.Error("wrong token must not validate")
	}
	if m.Validate("") {
		t.Error("empty token must not validate when auth is required")
	}
}

func TestAuthDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.token")
	m, err := New(Config{TokenPath: path, RequireAuth: false})
	if err != nil {
		t.Fatal(err)
	}
	if !m.Validate("") || !m.Validate("anything") {
		t.Error("validation must always pass with auth disabled")
	}
	if m.Token() != "" {
		t.Error("no token should exist with auth disabled")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no token file should be written with auth disabled")
	}
}
