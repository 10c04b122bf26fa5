package checkin

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const noncePrefix = "qr:nonce:"

// NonceStore remembers QR token nonces so each code is accepted once.
type NonceStore interface {
	// Claim records nonce for ttl. It reports false when the nonce was
	// already claimed.
	Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}

type RedisNonceStore struct {
	redis *redis.Client
}

func NewRedisNonceStore(rdb *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{redis: rdb}
}

func (s *RedisNonceStore) Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	if ttl < time.Second {
		ttl = time.Second
	}
	return s.redis.SetNX(ctx, noncePrefix+nonce, 1, ttl).Result()
}
