package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Redis-backed limiter with a sliding failure window and lockout.
type Redis struct {
	rdb      *redis.Client
	window   time.Duration
	maxFails int
	blockFor time.Duration
}

var _ Limiter = (*Redis)(nil)

// NewRedis constructs a Redis-backed limiter.
func NewRedis(rdb *redis.Client, window time.Duration, maxFails int, blockFor time.Duration) *Redis {
	return &Redis{rdb: rdb, window: window, maxFails: maxFails, blockFor: blockFor}
}

func (l *Redis) failKey(username, ipHash string) string {
	return fmt.Sprintf("login:fail:%s:%s", username, ipHash)
}

func (l *Redis) blockKey(username, ipHash string) string {
	return fmt.Sprintf("login:block:%s:%s", username, ipHash)
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *Redis) Allow(ctx context.Context, username, ipHash string) (bool, time.Duration, error) {
	ttl, err := l.rdb.TTL(ctx, l.blockKey(username, ipHash)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, 0, err
	}
	if ttl > 0 {
		return false, ttl, nil
	}
	return true, 0, nil
}

// Success resets counters for (username, ip).
func (l *Redis) Success(ctx context.Context, username, ipHash string) error {
	return l.rdb.Del(ctx, l.failKey(username, ipHash), l.blockKey(username, ipHash)).Err()
}

// Failure records a failed attempt; once the threshold is reached within the
// window, a temporary block is placed.
func (l *Redis) Failure(ctx context.Context, username, ipHash string) (bool, time.Duration, error) {
	key := l.failKey(username, ipHash)
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		_ = l.rdb.Expire(ctx, key, l.window).Err()
	}
	if int(n) < l.maxFails {
		return false, 0, nil
	}
	if err := l.rdb.Set(ctx, l.blockKey(username, ipHash), "1", l.blockFor).Err(); err != nil {
		return false, 0, err
	}
	_ = l.rdb.Del(ctx, key).Err()
	return true, l.blockFor, nil
}
