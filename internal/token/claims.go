// Package token parses access tokens issued by the fleet API.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/code-ga/container-dashboard/internal/shared"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the identity payload embedded in fleet API access tokens.
type Claims struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	EmailVerified bool     `json:"email_verified"`
	Picture       string   `json:"picture,omitempty"`
	RoleIDs       []string `json:"roles"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens against the shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse verifies the token signature and expiry and returns its claims.
func (v *Verifier) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Identity converts token claims into the session identity record.
func (c *Claims) Identity() *shared.Identity {
	id := &shared.Identity{
		ID:            c.Subject,
		Name:          c.Name,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Image:         c.Picture,
		RoleIDs:       append([]string(nil), c.RoleIDs...),
	}
	if c.IssuedAt != nil {
		id.CreatedAt = c.IssuedAt.Time
	}
	return id
}

// Issue signs a token for the given identity. The gateway only issues
// tokens in tests and local tooling; production tokens come from the
// fleet API.
func (v *Verifier) Issue(identity *shared.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:          identity.Name,
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		Picture:       identity.Image,
		RoleIDs:       identity.RoleIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "container-dashboard",
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(v.secret)
}
