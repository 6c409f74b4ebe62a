package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/allisson/publishq/internal/publish/domain"
)

// StaticAccountResolver serves credentials from configuration. Keys are either
// "account" or "platform:account"; the platform-scoped key wins.
type StaticAccountResolver struct {
	tokens map[string]string
}

// NewStaticAccountResolver parses "key=token" pairs separated by commas.
func NewStaticAccountResolver(pairs string) (*StaticAccountResolver, error) {
	tokens := make(map[string]string)
	for _, pair := range ParseList(pairs) {
		key, token, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		token = strings.TrimSpace(token)
		if !ok || key == "" || token == "" {
			return nil, fmt.Errorf("invalid account token pair %q: expected key=token", pair)
		}
		tokens[key] = token
	}
	return &StaticAccountResolver{tokens: tokens}, nil
}

// Resolve returns the credentials for accountRef on platform.
func (r *StaticAccountResolver) Resolve(ctx context.Context, platform, accountRef string) (*Credentials, error) {
	if token, ok := r.tokens[normalizePlatform(platform)+":"+accountRef]; ok {
		return &Credentials{AccountRef: accountRef, AccessToken: token}, nil
	}
	if token, ok := r.tokens[accountRef]; ok {
		return &Credentials{AccountRef: accountRef, AccessToken: token}, nil
	}
	return nil, domain.ErrAccountNotFound
}
