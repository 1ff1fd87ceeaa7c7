// Package auth manages the bearer token the RPC server requires. The token
// is generated once, persisted with owner-only permissions, and reused
// across restarts so configured clients keep working.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const tokenBytes = 32

// Config tunes a Manager.
type Config struct {
	// TokenPath is where the token file lives. Empty selects the default.
	TokenPath string
	// RequireAuth disables all validation when false.
	RequireAuth bool
}

// DefaultTokenPath returns ~/.clipstage/auth.token, falling back to the
// working directory when the home directory is unknown.
func DefaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".clipstage", "auth.token")
}

// Manager holds the loaded token.
type Manager struct {
	cfg Config

	mu    sync.RWMutex
	token string
}

// New loads or generates the token per cfg. With RequireAuth false no token
// is touched and every validation succeeds.
func New(cfg Config) (*Manager, error) {
	if cfg.TokenPath == "" {
		cfg.TokenPath = DefaultTokenPath()
	}
	m := &Manager{cfg: cfg}
	if !cfg.RequireAuth {
		return m, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.TokenPath), 0o700); err != nil {
		return nil, fmt.Errorf("token dir: %w", err)
	}

	raw, err := os.ReadFile(cfg.TokenPath)
	switch {
	case err == nil:
		m.token = strings.TrimSpace(string(raw))
	case os.IsNotExist(err):
		token, err := generateToken()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(cfg.TokenPath, []byte(token), 0o600); err != nil {
			return nil, fmt.Errorf("save token: %w", err)
		}
		m.token = token
	default:
		return nil, fmt.Errorf("read token: %w", err)
	}

	return m, nil
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Token returns the active token, or "" when auth is disabled.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Validate reports whether provided matches the stored token. Always true
// when auth is disabled.
func (m *Manager) Validate(provided string) bool {
	if !m.cfg.RequireAuth {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return provided != "" && provided == m.token
}
