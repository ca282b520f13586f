// internal/identity/jwt.go
package identity

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"student-portal/internal/common/config"
)

// Provider resolves a bearer token into a Caller.
type Provider interface {
	CallerFromToken(token string) (*Caller, error)
}

// JWTProvider verifies HMAC-signed bearer tokens issued by the auth
// frontend. An empty token resolves to the anonymous caller rather than
// an error, since draft autosave works unauthenticated.
type JWTProvider struct {
	secret []byte
	issuer string
}

func NewJWTProvider(cfg config.AuthConfig) *JWTProvider {
	return &JWTProvider{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
	}
}

type portalClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

func (p *JWTProvider) CallerFromToken(token string) (*Caller, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return AnonymousCaller(), nil
	}

	var claims portalClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if p.issuer != "" && claims.Issuer != p.issuer {
		return nil, fmt.Errorf("unexpected token issuer: %s", claims.Issuer)
	}

	return &Caller{
		ID:            claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Anonymous:     claims.Subject == "",
	}, nil
}
