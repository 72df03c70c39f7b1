// File: internal/auth/blocklist.go
package auth

import (
	"context"
	"time"

	"barter_backend/internal/config"

	"github.com/patrickmn/go-cache"
)

// TokenBlocklistService defines the interface for a JWT blocklist.
type TokenBlocklistService interface {
	// AddToBlocklist adds a token's JTI (JWT ID) to the blocklist until expiresAt.
	AddToBlocklist(ctx context.Context, jti string, expiresAt time.Time) error
	// IsBlocklisted checks if a token's JTI is in the blocklist.
	IsBlocklisted(ctx context.Context, jti string) (bool, error)
}

// InMemoryBlocklistService keeps revoked JTIs in a go-cache. Entries expire
// together with the token they revoke.
type InMemoryBlocklistService struct {
	cache *cache.Cache
}

// NewInMemoryBlocklistService creates a new in-memory blocklist service.
func NewInMemoryBlocklistService(cfg *config.Config) *InMemoryBlocklistService {
	return &InMemoryBlocklistService{
		cache: cache.New(cfg.JWTAccessTokenExpiry, 10*time.Minute),
	}
}

func (s *InMemoryBlocklistService) AddToBlocklist(_ context.Context, jti string, expiresAt time.Time) error {
	duration := time.Until(expiresAt)
	// Already expired tokens are rejected by validation anyway.
	if duration <= 0 || jti == "" {
		return nil
	}
	s.cache.Set(jti, struct{}{}, duration)
	return nil
}

func (s *InMemoryBlocklistService) IsBlocklisted(_ context.Context, jti string) (bool, error) {
	_, found := s.cache.Get(jti)
	return found, nil
}
