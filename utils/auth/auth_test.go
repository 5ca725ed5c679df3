package auth

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/utils/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPasswordWithCost("correct-horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, IsHashed(hash))

	assert.NoError(t, VerifyPassword(hash, "correct-horse"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong-horse"), ErrPasswordMismatch)

	_, err = HashPasswordWithCost("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestEnsureHashedKeepsExistingHash(t *testing.T) {
	hash, err := HashPasswordWithCost("correct-horse", bcrypt.MinCost)
	require.NoError(t, err)

	again, err := EnsureHashed(hash, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	fresh, err := EnsureHashed("another-password", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "another-password", fresh)
	assert.True(t, IsHashed(fresh))
}

func TestIsHashedRejectsLookalikes(t *testing.T) {
	assert.False(t, IsHashed("plain-password"))
	assert.False(t, IsHashed("$2a$not-a-real-hash"))
}

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager(JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "test"})

	issued, err := manager.GenerateToken(model.UserID("42"), model.RoleInstructor)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.JTI)

	claims, err := manager.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, model.UserID("42"), claims.UserID)
	assert.Equal(t, model.RoleInstructor, claims.Role)
	assert.Equal(t, issued.JTI, claims.ID)
}

func TestJWTRejectsExpiredAndForeignTokens(t *testing.T) {
	manager := NewJWTManager(JWTConfig{Secret: "test-secret", Expiry: time.Hour})
	issued, err := manager.GenerateToken(model.UserID("42"), model.RoleStudent)
	require.NoError(t, err)

	manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = manager.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other := NewJWTManager(JWTConfig{Secret: "other-secret", Expiry: time.Hour})
	_, err = other.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = other.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBlacklistRevokesUntilExpiry(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryCache()
	blacklist := NewBlacklistService(store)

	revoked, err := blacklist.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, blacklist.RevokeToken(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = blacklist.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// already expired tokens need no entry
	require.NoError(t, blacklist.RevokeToken(ctx, "jti-2", time.Now().Add(-time.Minute)))
	revoked, _ = blacklist.IsTokenRevoked(ctx, "jti-2")
	assert.False(t, revoked)

	removed, err := blacklist.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
