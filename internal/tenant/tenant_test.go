package tenant

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func makeToken(t *testing.T, businessID string, expires time.Time) string {
	t.Helper()
	claims := Claims{BusinessID: businessID}
	if !expires.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expires)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func TestSession_SignInAndResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	s := NewSession(path, testSecret)

	_, err := s.CurrentTenantID()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	token := makeToken(t, "biz-a", time.Now().Add(time.Hour))
	require.NoError(t, s.SignIn(token))

	tid, err := s.CurrentTenantID()
	require.NoError(t, err)
	assert.Equal(t, "biz-a", tid)
	assert.Equal(t, token, s.Token())

	// Token persisted for the next process
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, token, string(raw))
}

func TestSession_LoadPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	token := makeToken(t, "biz-a", time.Now().Add(time.Hour))
	require.NoError(t, os.WriteFile(path, []byte(token+"\n"), 0600))

	s := NewSession(path, testSecret)
	require.NoError(t, s.Load())

	tid, err := s.CurrentTenantID()
	require.NoError(t, err)
	assert.Equal(t, "biz-a", tid)
}

func TestSession_LoadMissingFile(t *testing.T) {
	s := NewSession(filepath.Join(t.TempDir(), "credentials"), testSecret)
	require.NoError(t, s.Load())

	_, err := s.CurrentTenantID()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSession_RejectsBadSignature(t *testing.T) {
	s := NewSession(filepath.Join(t.TempDir(), "credentials"), testSecret)

	claims := Claims{BusinessID: "biz-a"}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	assert.ErrorIs(t, s.SignIn(forged), ErrNotAuthenticated)
}

func TestSession_RejectsMissingBusinessID(t *testing.T) {
	s := NewSession(filepath.Join(t.TempDir(), "credentials"), testSecret)
	token := makeToken(t, "", time.Now().Add(time.Hour))
	assert.ErrorIs(t, s.SignIn(token), ErrNotAuthenticated)
}

func TestSession_Expiry(t *testing.T) {
	s := NewSession(filepath.Join(t.TempDir(), "credentials"), testSecret)

	// An already expired token is rejected at sign-in by the parser.
	expired := makeToken(t, "biz-a", time.Now().Add(-time.Hour))
	assert.ErrorIs(t, s.SignIn(expired), ErrNotAuthenticated)
}

func TestSession_SignOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	s := NewSession(path, testSecret)
	require.NoError(t, s.SignIn(makeToken(t, "biz-a", time.Now().Add(time.Hour))))

	require.NoError(t, s.SignOut())

	_, err := s.CurrentTenantID()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, s.Token())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// Signing out twice is fine
	require.NoError(t, s.SignOut())
}

func TestStatic(t *testing.T) {
	tid, err := Static{BusinessID: "biz-a"}.CurrentTenantID()
	require.NoError(t, err)
	assert.Equal(t, "biz-a", tid)

	_, err = Static{}.CurrentTenantID()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
