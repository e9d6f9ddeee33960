package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// codeVerifierBytes is the amount of randomness behind the code verifier.
// 64 bytes encode to 86 url-safe characters, inside the 43-128 window of
// RFC 7636 Section 4.1.
const codeVerifierBytes = 64

// GeneratePKCE generates a fresh PKCE verifier/challenge pair per
// RFC 7636. A pair is used for exactly one flow attempt.
func GeneratePKCE() (*PKCEPair, error) {
	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	return &PKCEPair{
		CodeVerifier:  verifier,
		CodeChallenge: ComputeCodeChallenge(verifier),
	}, nil
}

// generateCodeVerifier creates a cryptographically random code verifier.
// Base64url without padding keeps every character in the unreserved set
// [A-Za-z0-9-._~] required by RFC 7636 Section 4.1.
func generateCodeVerifier() (string, error) {
	b := make([]byte, codeVerifierBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ComputeCodeChallenge computes the S256 code challenge from a code verifier
// per RFC 7636 Section 4.2: BASE64URL(SHA256(code_verifier))
func ComputeCodeChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
