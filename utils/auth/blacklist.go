package auth

import (
	"context"
	"time"

	"github.com/sahilchouksey/course-market-api/utils/cache"
)

const blacklistKeyPrefix = "token_blacklist:"

// BlacklistService handles JWT token revocation. Entries expire together
// with the token they revoke, so the store never grows past live tokens.
type BlacklistService struct {
	store cache.Store
	now   func() time.Time
}

// NewBlacklistService creates a new blacklist service
func NewBlacklistService(store cache.Store) *BlacklistService {
	return &BlacklistService{store: store, now: time.Now}
}

// RevokeToken adds a token to the blacklist until it would have expired anyway
func (s *BlacklistService) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.store.Set(ctx, blacklistKeyPrefix+jti, "revoked", ttl)
}

// IsTokenRevoked checks if a token is in the blacklist
func (s *BlacklistService) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.store.Exists(ctx, blacklistKeyPrefix+jti)
}

// CleanupExpiredTokens drops expired entries from stores that do not expire
// keys on their own. Redis handles this itself and reports 0.
func (s *BlacklistService) CleanupExpiredTokens(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	purger, ok := s.store.(interface{ Purge() int })
	if !ok {
		return 0, nil
	}
	return purger.Purge(), nil
}
