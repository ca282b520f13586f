// internal/identity/identity_test.go
package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student-portal/internal/common/config"
	"student-portal/internal/common/errors"
)

func TestRequireVerified(t *testing.T) {
	tests := []struct {
		name     string
		caller   *Caller
		wantCode errors.ErrorCode
	}{
		{
			name:     "anonymous caller",
			caller:   AnonymousCaller(),
			wantCode: errors.ErrCodeAuthRequired,
		},
		{
			name:     "authenticated without email",
			caller:   &Caller{ID: "u1"},
			wantCode: errors.ErrCodeAuthRequired,
		},
		{
			name:     "unverified email",
			caller:   &Caller{ID: "u1", Email: "a@x.com"},
			wantCode: errors.ErrCodeEmailNotVerified,
		},
		{
			name:   "verified caller",
			caller: &Caller{ID: "u1", Email: "a@x.com", EmailVerified: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireVerified(tt.caller)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsCode(err, tt.wantCode))
		})
	}
}

func signTestToken(t *testing.T, secret, subject, email string, verified bool) string {
	claims := portalClaims{
		Email:         email,
		EmailVerified: verified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "portal-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestCallerFromToken(t *testing.T) {
	provider := NewJWTProvider(config.AuthConfig{JWTSecret: "test-secret", Issuer: "portal-auth"})

	t.Run("empty token is anonymous", func(t *testing.T) {
		caller, err := provider.CallerFromToken("")
		require.NoError(t, err)
		assert.True(t, caller.Anonymous)
		assert.False(t, caller.Authenticated())
	})

	t.Run("valid bearer token", func(t *testing.T) {
		token := signTestToken(t, "test-secret", "user-1", "A@X.com", true)
		caller, err := provider.CallerFromToken("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", caller.ID)
		assert.Equal(t, "a@x.com", caller.NormalizedEmail())
		assert.True(t, caller.EmailVerified)
		assert.True(t, caller.Authenticated())
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token := signTestToken(t, "other-secret", "user-1", "a@x.com", true)
		_, err := provider.CallerFromToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer rejected", func(t *testing.T) {
		claims := portalClaims{
			Email: "a@x.com",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = provider.CallerFromToken(token)
		assert.Error(t, err)
	})
}
