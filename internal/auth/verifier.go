package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/miratalk/relay/internal/domain"
)

// Claims are the token claims the relay cares about.
type Claims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"name,omitempty"`
}

// Verifier resolves bearer credentials to user identities.
type Verifier interface {
	Verify(token string) (domain.Identity, error)
}

// JWTVerifier validates HMAC-signed bearer tokens. Token issuance is
// an external concern; the relay only verifies.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) Verify(tokenString string) (domain.Identity, error) {
	if tokenString == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	return domain.Identity{
		UserID:      claims.Subject,
		DisplayName: claims.DisplayName,
	}, nil
}
