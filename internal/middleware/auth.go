package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fawrybook/auth-service/internal/tokens"
)

const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRoles    = "roles"
)

type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthGate authenticates each request from its bearer token: decode,
// expiry against Now, then the ledger. Revocation is checked last but
// unconditionally; a well-signed unexpired token that was logged out
// must still be rejected.
type AuthGate struct {
	Codec  *tokens.Codec
	Ledger RevocationChecker
	Now    func() time.Time
}

func NewAuthGate(codec *tokens.Codec, ledger RevocationChecker) *AuthGate {
	return &AuthGate{Codec: codec, Ledger: ledger, Now: time.Now}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func (g *AuthGate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := BearerToken(c.Request())
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "no token provided")
		}

		claims, err := g.Codec.Decode(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		if g.Codec.IsExpired(claims, g.Now()) {
			return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
		}

		revoked, err := g.Ledger.IsRevoked(c.Request().Context(), token)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		if revoked {
			return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Subject)
		c.Set(CtxRoles, claims.Roles)

		return next(c)
	}
}
