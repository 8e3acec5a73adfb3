package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed covers every decode failure: unparseable string, unknown
// signing method, bad signature. Callers are not told which.
var ErrMalformed = errors.New("malformed token")

type Claims struct {
	UserID uint     `json:"uid"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and decodes self-contained HS256 tokens. It never looks
// at a clock on decode: expiry is checked separately with IsExpired so
// tests and the gate supply their own now.
type Codec struct {
	Secret []byte
	TTL    time.Duration
}

func NewCodec(secret []byte, ttl time.Duration) *Codec {
	return &Codec{Secret: secret, TTL: ttl}
}

func (c *Codec) Issue(username string, userID uint, roles []string, now time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Secret)
}

func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return c.Secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !tkn.Valid {
		return nil, ErrMalformed
	}
	return &claims, nil
}

// IsExpired reports claims.exp <= now. Missing exp counts as expired.
func (c *Codec) IsExpired(claims *Claims, now time.Time) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return !claims.ExpiresAt.Time.After(now)
}
