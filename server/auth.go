package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnknownCredential indicates a credential outside the verifier's set.
var ErrUnknownCredential = errors.New("server: unknown credential")

// Verifier checks a bearer credential. The transport treats credentials as
// opaque; issuance and refresh live elsewhere.
type Verifier interface {
	Verify(ctx context.Context, credential string) error
}

// Interface compliance check.
var _ Verifier = (*StaticVerifier)(nil)

// StaticVerifier accepts a fixed token set.
type StaticVerifier struct {
	tokens map[string]struct{}
}

// NewStaticVerifier creates a StaticVerifier over tokens.
func NewStaticVerifier(tokens ...string) *StaticVerifier {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return &StaticVerifier{tokens: set}
}

// Verify implements Verifier.
func (v *StaticVerifier) Verify(_ context.Context, credential string) error {
	if _, ok := v.tokens[credential]; !ok {
		return ErrUnknownCredential
	}
	return nil
}

// credentialFrom extracts the request credential: Authorization bearer
// header first, then the "token" query parameter fallback for channels
// that cannot set headers.
func credentialFrom(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if cred, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return cred
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
