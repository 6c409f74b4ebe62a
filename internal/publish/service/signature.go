package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/allisson/publishq/internal/publish/domain"
)

// SignaturePrefix precedes the hex digest in the signature header.
const SignaturePrefix = "sha256="

type hmacSignatureVerifier struct {
	secret []byte
}

// NewSignatureVerifier creates a verifier for HMAC-SHA256 callback signatures.
// Each platform signs with its own key derived from secret with HKDF-SHA256.
func NewSignatureVerifier(secret []byte) SignatureVerifier {
	return &hmacSignatureVerifier{secret: secret}
}

func (v *hmacSignatureVerifier) deriveKey(platform string) ([]byte, error) {
	info := []byte("publishq-callback-v1:" + normalizePlatform(platform))
	reader := hkdf.New(sha256.New, v.secret, nil, info)

	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (v *hmacSignatureVerifier) mac(platform string, body []byte) ([]byte, error) {
	key, err := v.deriveKey(platform)
	if err != nil {
		return nil, fmt.Errorf("failed to derive callback key: %w", err)
	}
	defer clear(key)

	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return mac.Sum(nil), nil
}

// Sign returns "sha256=<hex>" for body.
func (v *hmacSignatureVerifier) Sign(platform string, body []byte) (string, error) {
	sum, err := v.mac(platform, body)
	if err != nil {
		return "", err
	}
	return SignaturePrefix + hex.EncodeToString(sum), nil
}

// Verify compares in constant time.
func (v *hmacSignatureVerifier) Verify(platform string, body []byte, signature string) error {
	digest, ok := strings.CutPrefix(strings.TrimSpace(signature), SignaturePrefix)
	if !ok {
		return domain.ErrInvalidSignature
	}
	given, err := hex.DecodeString(digest)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	expected, err := v.mac(platform, body)
	if err != nil {
		return err
	}
	if !hmac.Equal(given, expected) {
		return domain.ErrInvalidSignature
	}
	return nil
}
