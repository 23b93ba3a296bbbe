package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miratalk/relay/internal/domain"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	v := NewJWTVerifier(testSecret, "")
	token := signToken(t, testSecret, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		DisplayName: "Alice",
	})

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.UserID)
	assert.Equal(t, "Alice", identity.DisplayName)
}

func TestVerifyEmptyToken(t *testing.T) {
	v := NewJWTVerifier(testSecret, "")
	_, err := v.Verify("")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewJWTVerifier(testSecret, "")
	token := signToken(t, "other-secret", &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewJWTVerifier(testSecret, "")
	token := signToken(t, testSecret, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestVerifyMissingSubject(t *testing.T) {
	v := NewJWTVerifier(testSecret, "")
	token := signToken(t, testSecret, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestVerifyIssuerMismatch(t *testing.T) {
	v := NewJWTVerifier(testSecret, "miratalk")
	token := signToken(t, testSecret, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := v.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
