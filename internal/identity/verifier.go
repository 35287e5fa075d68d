// Package identity turns bearer credentials into verified user ids.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/auth"
)

var (
	// ErrMissingCredential is returned when no credential was presented.
	ErrMissingCredential = errors.New("identity: missing credential")
	// ErrInvalidCredential wraps every verification failure.
	ErrInvalidCredential = errors.New("identity: invalid credential")
)

// tokenVerifier is the subset of *auth.Client used here.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier validates Firebase ID tokens.
type FirebaseVerifier struct {
	tokens tokenVerifier
}

// NewFirebaseVerifier wraps a Firebase auth client.
func NewFirebaseVerifier(client *auth.Client) (*FirebaseVerifier, error) {
	if client == nil {
		return nil, errors.New("identity: auth client must not be nil")
	}
	return &FirebaseVerifier{tokens: client}, nil
}

// Verify returns the token subject. It performs no side effect besides the
// verification call itself.
func (v *FirebaseVerifier) Verify(ctx context.Context, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", ErrMissingCredential
	}
	tok, err := v.tokens.VerifyIDToken(ctx, credential)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if tok == nil || strings.TrimSpace(tok.UID) == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidCredential)
	}
	return tok.UID, nil
}

// CredentialFromHeader extracts the token from an Authorization header value.
// Both a bare token and "Bearer <token>" are accepted.
func CredentialFromHeader(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return value
}
