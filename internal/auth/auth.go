// Package auth resolves bearer tokens to user identities.
package auth

import (
	"context"
	"errors"
)

// AnonymousUser is the identity assigned when no token is presented and the
// verifier permits anonymous access.
const AnonymousUser = "anonymous"

// ErrInvalidToken is returned for unknown or missing tokens.
var ErrInvalidToken = errors.New("invalid token")

// Verifier maps a bearer token to a user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// StaticVerifier checks tokens against a fixed table. Suitable for small
// deployments; swap in a real identity provider behind the same interface.
type StaticVerifier struct {
	tokens         map[string]string
	allowAnonymous bool
}

// NewStaticVerifier builds a verifier from a token-to-user table. With
// allowAnonymous set, an empty token resolves to AnonymousUser instead of
// failing.
func NewStaticVerifier(tokens map[string]string, allowAnonymous bool) *StaticVerifier {
	return &StaticVerifier{tokens: tokens, allowAnonymous: allowAnonymous}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (string, error) {
	if token == "" {
		if v.allowAnonymous {
			return AnonymousUser, nil
		}
		return "", ErrInvalidToken
	}
	user, ok := v.tokens[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return user, nil
}
