package service

import (
	"sort"
	"strings"
	"sync"

	"github.com/allisson/publishq/internal/publish/domain"
)

// PlatformRegistry maps platform names to clients.
type PlatformRegistry struct {
	mu      sync.RWMutex
	clients map[string]PlatformClient
}

// NewPlatformRegistry creates an empty registry.
func NewPlatformRegistry() *PlatformRegistry {
	return &PlatformRegistry{clients: make(map[string]PlatformClient)}
}

// Register sets the client for platform, replacing any previous one.
func (r *PlatformRegistry) Register(platform string, client PlatformClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[normalizePlatform(platform)] = client
}

// Get returns the client for platform or domain.ErrUnsupportedPlatform.
func (r *PlatformRegistry) Get(platform string) (PlatformClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[normalizePlatform(platform)]
	if !ok {
		return nil, domain.ErrUnsupportedPlatform
	}
	return client, nil
}

// Supports reports whether platform has a client.
func (r *PlatformRegistry) Supports(platform string) bool {
	_, err := r.Get(platform)
	return err == nil
}

// Platforms returns the registered platform names in sorted order.
func (r *PlatformRegistry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// ParseList splits a comma-separated config value, dropping blanks.
func ParseList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
