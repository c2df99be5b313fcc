// Package session holds the operator's authentication state for one
// dashboard run. The session is the single writer of the token:
// login establishes it, logout or a 401 clears it, and every outgoing
// request reads it through the TokenSource interface. The token is
// persisted to a file in the state dir so a restart does not force a
// re-login while the token is still valid.
package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenFile = "session-token"

// Session is the explicit session context: created at login,
// destroyed at logout or expiry.
type Session struct {
	mu        sync.RWMutex
	path      string
	token     string
	expiresAt time.Time // zero means no expiry claim
	logger    *slog.Logger
}

// New creates a session bound to stateDir and restores a previously
// persisted token if one exists and has not expired.
func New(stateDir string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		path:   filepath.Join(stateDir, tokenFile),
		logger: logger,
	}
	s.restore()
	return s
}

// Establish stores a freshly issued token and persists it.
func (s *Session) Establish(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("session: empty token")
	}
	exp := tokenExpiry(token)

	s.mu.Lock()
	s.token = token
	s.expiresAt = exp
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: state dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("session: persist token: %w", err)
	}
	return nil
}

// Token returns the current bearer token, or "" when logged out or
// expired.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expired() {
		return ""
	}
	return s.token
}

// Authenticated reports whether a usable token is held. This is the
// switch between the login view and the dashboard.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// ExpiresAt returns the token's expiry, or a zero time when the token
// carries no exp claim or no token is held.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Clear drops the token and removes the persisted copy. Safe to call
// when already logged out.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("session: failed to remove token file", "path", s.path, "error", err)
	}
}

func (s *Session) restore() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return
	}
	exp := tokenExpiry(token)
	if !exp.IsZero() && time.Now().After(exp) {
		s.logger.Info("persisted session expired, discarding")
		os.Remove(s.path)
		return
	}
	s.token = token
	s.expiresAt = exp
}

func (s *Session) expired() bool {
	return !s.expiresAt.IsZero() && time.Now().After(s.expiresAt)
}

// tokenExpiry extracts the exp claim without verifying the signature.
// Verification is the server's job; the client only needs to know
// when to stop presenting the token.
func tokenExpiry(token string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
