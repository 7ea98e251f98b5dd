package redis

// Package redis provides the Redis-backed token store used by kiosk and
// shared-terminal deployments where several processes serve one device
// session.

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
	"github.com/openhrms/fieldlink/internal/ports"
)

// TokenStore persists the token set as three string keys under a namespace:
// access token, refresh token, and absolute expiry in epoch milliseconds.
type TokenStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates a Redis-based token store with the given namespace.
func NewTokenStore(client redis.UniversalClient, namespace string) *TokenStore {
	if namespace == "" {
		namespace = "fieldlink"
	}
	return &TokenStore{
		client: client,
		prefix: namespace + ":",
		now:    time.Now,
	}
}

func (s *TokenStore) accessKey() string  { return s.prefix + "access_token" }
func (s *TokenStore) refreshKey() string { return s.prefix + "refresh_token" }
func (s *TokenStore) expiryKey() string  { return s.prefix + "expires_at" }

// Save writes access token and expiry unconditionally, and the refresh token
// only when present. The writes are pipelined as one logical unit; a failed
// pipeline is reported without rolling back keys that were already written.
func (s *TokenStore) Save(ctx context.Context, tokens domainsession.TokenSet) error {
	if tokens.AccessToken == "" {
		return apperrors.Validation("access token is required")
	}
	tokens = tokens.WithDefaultExpiry(s.now())

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.accessKey(), tokens.AccessToken, 0)
	pipe.Set(ctx, s.expiryKey(), strconv.FormatInt(tokens.ExpiresAt.UnixMilli(), 10), 0)
	if tokens.RefreshToken != "" {
		pipe.Set(ctx, s.refreshKey(), tokens.RefreshToken, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Storage(err, "write tokens")
	}
	return nil
}

// Load reads the three keys independently; each may be absent.
func (s *TokenStore) Load(ctx context.Context) (domainsession.TokenSet, error) {
	vals, err := s.client.MGet(ctx, s.accessKey(), s.refreshKey(), s.expiryKey()).Result()
	if err != nil {
		return domainsession.TokenSet{}, apperrors.Storage(err, "load tokens")
	}

	var tokens domainsession.TokenSet
	if v, ok := vals[0].(string); ok {
		tokens.AccessToken = v
	}
	if v, ok := vals[1].(string); ok {
		tokens.RefreshToken = v
	}
	if v, ok := vals[2].(string); ok {
		if ms, parseErr := strconv.ParseInt(v, 10, 64); parseErr == nil {
			tokens.ExpiresAt = time.UnixMilli(ms)
		}
	}
	return tokens, nil
}

// Clear deletes all three keys; already-absent keys are not an error.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.accessKey(), s.refreshKey(), s.expiryKey()).Err(); err != nil {
		return apperrors.Storage(err, "clear tokens")
	}
	return nil
}
