// Package auth verifies the static bearer token that guards the management API.
//
// The token can be configured in plain text (API_TOKEN) or, preferably, as an
// Argon2id hash (API_TOKEN_HASH) produced by the hash-api-token command.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"sync"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/publishq/internal/errors"
)

// TokenVerifier reports whether a presented bearer token is valid.
type TokenVerifier interface {
	Verify(token string) bool
}

// NewTokenVerifier returns a verifier for the configured token. The hash wins
// when both are set. Returns nil when neither is set.
func NewTokenVerifier(plainToken, tokenHash string) TokenVerifier {
	switch {
	case tokenHash != "":
		return NewHashedTokenVerifier(tokenHash)
	case plainToken != "":
		return NewStaticTokenVerifier(plainToken)
	default:
		return nil
	}
}

// StaticTokenVerifier compares against a plain token in constant time.
type StaticTokenVerifier struct {
	expected []byte
}

// NewStaticTokenVerifier creates a StaticTokenVerifier.
func NewStaticTokenVerifier(token string) *StaticTokenVerifier {
	return &StaticTokenVerifier{expected: []byte(token)}
}

// Verify implements TokenVerifier.
func (v *StaticTokenVerifier) Verify(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), v.expected) == 1
}

// HashedTokenVerifier checks tokens against an Argon2id hash.
//
// Argon2id is deliberately slow, so the SHA-256 digest of the last accepted
// token is remembered and later requests carrying it skip the hash.
type HashedTokenVerifier struct {
	hasher *pwdhash.PasswordHasher
	hash   string

	mu       sync.RWMutex
	accepted []byte
}

// NewHashedTokenVerifier creates a HashedTokenVerifier for hash.
func NewHashedTokenVerifier(hash string) *HashedTokenVerifier {
	return &HashedTokenVerifier{hasher: newHasher(), hash: hash}
}

// Verify implements TokenVerifier.
func (v *HashedTokenVerifier) Verify(token string) bool {
	digest := sha256.Sum256([]byte(token))

	v.mu.RLock()
	accepted := v.accepted
	v.mu.RUnlock()
	if accepted != nil && subtle.ConstantTimeCompare(digest[:], accepted) == 1 {
		return true
	}

	ok, err := v.hasher.Verify([]byte(token), v.hash)
	if err != nil || !ok {
		return false
	}

	v.mu.Lock()
	v.accepted = digest[:]
	v.mu.Unlock()
	return true
}

// HashToken hashes token with Argon2id for use as API_TOKEN_HASH.
func HashToken(token string) (string, error) {
	hash, err := newHasher().Hash([]byte(token))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash token")
	}
	return hash, nil
}

// GenerateToken returns a new random 32-byte token, base64url encoded.
func GenerateToken() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", apperrors.Wrap(err, "failed to generate random token")
	}
	return base64.URLEncoding.EncodeToString(randomBytes), nil
}

func newHasher() *pwdhash.PasswordHasher {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		// Only reachable with an invalid built-in policy.
		panic(err)
	}
	return hasher
}
