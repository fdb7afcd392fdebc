// Package auth resolves the caller identity from the hosted auth provider's
// bearer token. The token is an HS256 JWT whose subject is the stable user
// id; that id namespaces storage keys and gates search access.
//
// Absence of a token is not an error — anonymous callers resolve to the
// empty identity. A token that is present but invalid is rejected.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for a present-but-unverifiable bearer token.
var ErrInvalidToken = errors.New("invalid bearer token")

// Verifier validates bearer tokens against the auth provider's JWT secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// UserID resolves the stable user id from the request's Authorization
// header. Returns "" with no error when the header is absent.
func (v *Verifier) UserID(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", fmt.Errorf("%w: unsupported authorization scheme", ErrInvalidToken)
	}

	return v.Parse(raw)
}

// Parse validates the raw JWT and returns its subject.
func (v *Verifier) Parse(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
