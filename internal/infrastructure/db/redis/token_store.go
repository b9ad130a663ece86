package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// TokenStore keeps the auth service's short-lived bookkeeping in Redis:
// revoked token ids, password recovery tokens, and the cached principal
// identity. All entries expire on their own.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore wraps the given Redis client.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// RevokeToken records the token id as revoked until ttl elapses.
func (t *TokenStore) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	return t.client.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err()
}

// IsTokenRevoked reports whether the token id has been revoked.
func (t *TokenStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := t.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

// PutRecoveryToken stores a recovery token mapped to the user it was issued
// for.
func (t *TokenStore) PutRecoveryToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	return t.client.Set(ctx, recoveryPrefix+token, userID, ttl).Err()
}

// TakeRecoveryToken atomically consumes the token and returns the user id it
// was issued for. Missing or expired tokens report ErrRecoveryInvalid.
func (t *TokenStore) TakeRecoveryToken(ctx context.Context, token string) (string, error) {
	userID, err := t.client.GetDel(ctx, recoveryPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrRecoveryInvalid
		}
		return "", fmt.Errorf("recovery token: %w", err)
	}
	return userID, nil
}

// CacheUser stores the principal snapshot under its own key.
func (t *TokenStore) CacheUser(ctx context.Context, user *domain.User, ttl time.Duration) error {
	blob, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("principal encode: %w", err)
	}
	return t.client.Set(ctx, userCachePrefix+user.ID, blob, ttl).Err()
}

// CachedUser returns the cached principal snapshot, if present. A stale or
// undecodable entry is reported as absent.
func (t *TokenStore) CachedUser(ctx context.Context, userID string) (*domain.User, bool, error) {
	raw, err := t.client.Get(ctx, userCachePrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("principal cache: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, false, nil
	}
	return &user, true, nil
}
