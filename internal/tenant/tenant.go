// Package tenant resolves the authenticated tenant (businessId) for every
// repository operation.
//
// The tenant id is never accepted from the caller: repositories ask this
// package instead, so a buggy or malicious caller-supplied businessId can
// never widen a query or a write beyond the signed-in business.
package tenant

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAuthenticated indicates no valid session exists. Fatal to any entity
// operation; never retried automatically.
var ErrNotAuthenticated = errors.New("tenant: not authenticated")

// Context supplies the current tenant identity to repositories.
type Context interface {
	// CurrentTenantID returns the authenticated businessId, or
	// ErrNotAuthenticated when no session exists.
	CurrentTenantID() (string, error)

	// Token returns the raw session token for remote calls, or "" when
	// signed out.
	Token() string
}

// Claims are the session token claims salondesk cares about.
type Claims struct {
	BusinessID string `json:"businessId"`
	jwt.RegisteredClaims
}

// Session is a file-backed tenant Context. The session token is an HS256 JWT
// carrying the businessId claim, written by the sign-in flow and loaded here.
type Session struct {
	path   string
	secret []byte

	mu         sync.RWMutex
	token      string
	businessID string
	expiresAt  time.Time
}

// NewSession creates a session backed by the credentials file at path,
// verified with secret. The file may not exist yet; the session is then
// unauthenticated until Load or SignIn succeeds.
func NewSession(path string, secret []byte) *Session {
	return &Session{path: path, secret: secret}
}

// Load reads and verifies the stored credentials file. A missing file leaves
// the session unauthenticated without error.
func (s *Session) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}
	return s.SignIn(strings.TrimSpace(string(raw)))
}

// SignIn verifies token and adopts it as the current session. The token is
// persisted so the session survives restarts.
func (s *Session) SignIn(token string) error {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	if !parsed.Valid || claims.BusinessID == "" {
		return fmt.Errorf("%w: token missing businessId", ErrNotAuthenticated)
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	if err := os.WriteFile(s.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.businessID = claims.BusinessID
	s.expiresAt = expires
	s.mu.Unlock()
	return nil
}

// CurrentTenantID implements Context.
func (s *Session) CurrentTenantID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.businessID == "" {
		return "", ErrNotAuthenticated
	}
	if !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) {
		return "", fmt.Errorf("%w: session expired", ErrNotAuthenticated)
	}
	return s.businessID, nil
}

// Token implements Context.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SignOut revokes the session: the credentials file is removed and the
// in-memory state cleared. Called directly by the user and by the
// full-account purge after all tenant data is deleted.
func (s *Session) SignOut() error {
	s.mu.Lock()
	s.token = ""
	s.businessID = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// Static is a fixed-tenant Context for tests and tooling.
type Static struct {
	BusinessID   string
	SessionToken string
}

// CurrentTenantID implements Context.
func (s Static) CurrentTenantID() (string, error) {
	if s.BusinessID == "" {
		return "", ErrNotAuthenticated
	}
	return s.BusinessID, nil
}

// Token implements Context.
func (s Static) Token() string { return s.SessionToken }
