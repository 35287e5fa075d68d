package identity

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	tok   *auth.Token
	err   error
	calls int
	seen  string
}

func (f *fakeTokens) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	f.calls++
	f.seen = idToken
	return f.tok, f.err
}

func TestNewFirebaseVerifier_NilClient(t *testing.T) {
	_, err := NewFirebaseVerifier(nil)
	require.Error(t, err)
}

func TestVerify_HappyPath(t *testing.T) {
	tokens := &fakeTokens{tok: &auth.Token{UID: "u1"}}
	v := &FirebaseVerifier{tokens: tokens}

	uid, err := v.Verify(context.Background(), " tok-123 ")
	require.NoError(t, err)
	require.Equal(t, "u1", uid)
	require.Equal(t, "tok-123", tokens.seen)
}

func TestVerify_MissingCredential(t *testing.T) {
	tokens := &fakeTokens{}
	v := &FirebaseVerifier{tokens: tokens}

	_, err := v.Verify(context.Background(), "   ")
	require.ErrorIs(t, err, ErrMissingCredential)
	require.Zero(t, tokens.calls)
}

func TestVerify_InvalidCredential(t *testing.T) {
	v := &FirebaseVerifier{tokens: &fakeTokens{err: errors.New("ID token has expired")}}
	_, err := v.Verify(context.Background(), "expired")
	require.ErrorIs(t, err, ErrInvalidCredential)
	require.Contains(t, err.Error(), "expired")
}

func TestVerify_TokenWithoutSubject(t *testing.T) {
	v := &FirebaseVerifier{tokens: &fakeTokens{tok: &auth.Token{}}}
	_, err := v.Verify(context.Background(), "tok")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestCredentialFromHeader(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"tok-1":            "tok-1",
		"Bearer tok-2":     "tok-2",
		"bearer   tok-3  ": "tok-3",
		"Bearer":           "Bearer",
	}
	for in, want := range cases {
		require.Equal(t, want, CredentialFromHeader(in), "header=%q", in)
	}
}
