package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fawrybook/auth-service/internal/tokens"
)

type fakeLedger struct {
	revoked map[string]bool
}

func (f *fakeLedger) IsRevoked(_ context.Context, token string) (bool, error) {
	return f.revoked[token], nil
}

func newGateEnv() (*AuthGate, *tokens.Codec, *fakeLedger) {
	codec := tokens.NewCodec([]byte("test-jwt-secret"), 24*time.Hour)
	ledger := &fakeLedger{revoked: map[string]bool{}}
	return NewAuthGate(codec, ledger), codec, ledger
}

func doGated(t *testing.T, gate *AuthGate, authHeader string) (echo.Context, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/check-token", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	return c, gate.RequireAuth(next)(c)
}

func requireRejected(t *testing.T, err error, message string) {
	t.Helper()

	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	assert.Equal(t, http.StatusUnauthorized, he.Code)
	assert.Equal(t, message, he.Message)
}

func TestAuthGate_NoToken(t *testing.T) {
	t.Parallel()

	gate, _, _ := newGateEnv()

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwdw=="},
		{name: "bare token", header: "some-token"},
		{name: "empty bearer", header: "Bearer "},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := doGated(t, gate, tt.header)
			requireRejected(t, err, "no token provided")
		})
	}
}

func TestAuthGate_InvalidToken(t *testing.T) {
	t.Parallel()

	gate, _, _ := newGateEnv()

	_, err := doGated(t, gate, "Bearer not-a-valid-jwt")
	requireRejected(t, err, "invalid token")
}

func TestAuthGate_ExpiredToken(t *testing.T) {
	t.Parallel()

	gate, codec, _ := newGateEnv()

	token, err := codec.Issue("alice", 1, nil, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)

	_, gerr := doGated(t, gate, "Bearer "+token)
	requireRejected(t, gerr, "token expired")
}

// Revocation overrides an otherwise valid token.
func TestAuthGate_RevokedToken(t *testing.T) {
	t.Parallel()

	gate, codec, ledger := newGateEnv()

	token, err := codec.Issue("alice", 1, nil, time.Now())
	require.NoError(t, err)
	ledger.revoked[token] = true

	_, gerr := doGated(t, gate, "Bearer "+token)
	requireRejected(t, gerr, "token revoked")
}

func TestAuthGate_Authenticated(t *testing.T) {
	t.Parallel()

	gate, codec, _ := newGateEnv()

	token, err := codec.Issue("alice", 42, []string{"USER"}, time.Now())
	require.NoError(t, err)

	c, gerr := doGated(t, gate, "Bearer "+token)
	require.NoError(t, gerr)

	assert.Equal(t, uint(42), c.Get(CtxUserID))
	assert.Equal(t, "alice", c.Get(CtxUsername))
	assert.Equal(t, []string{"USER"}, c.Get(CtxRoles))
}

func TestAuthGate_FixedClock(t *testing.T) {
	t.Parallel()

	gate, codec, _ := newGateEnv()
	issued := time.Now()

	token, err := codec.Issue("alice", 1, nil, issued)
	require.NoError(t, err)

	gate.Now = func() time.Time { return issued.Add(codec.TTL) }
	_, gerr := doGated(t, gate, "Bearer "+token)
	requireRejected(t, gerr, "token expired")

	gate.Now = func() time.Time { return issued.Add(codec.TTL - time.Minute) }
	_, gerr = doGated(t, gate, "Bearer "+token)
	require.NoError(t, gerr)
}
