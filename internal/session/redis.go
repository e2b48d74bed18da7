package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPointer stores the pointer in Redis and publishes a change event on
// every write, giving other processes a push primitive instead of polling.
type RedisPointer struct {
	rdb     *redis.Client
	key     string
	channel string
}

var _ PointerStore = (*RedisPointer)(nil)

// NewRedisPointer constructs a pointer store on the given key. Change events
// are published on "<key>:events".
func NewRedisPointer(rdb *redis.Client, key string) *RedisPointer {
	if key == "" {
		key = "identity:current"
	}
	return &RedisPointer{rdb: rdb, key: key, channel: key + ":events"}
}

func (p *RedisPointer) Load(ctx context.Context) (string, error) {
	tok, err := p.rdb.Get(ctx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: load pointer: %w", err)
	}
	return tok, nil
}

func (p *RedisPointer) Save(ctx context.Context, token string) error {
	if err := p.rdb.Set(ctx, p.key, token, 0).Err(); err != nil {
		return fmt.Errorf("session: save pointer: %w", err)
	}
	// Notification is best-effort; pollers catch what subscribers miss.
	_ = p.rdb.Publish(ctx, p.channel, "changed").Err()
	return nil
}

func (p *RedisPointer) Clear(ctx context.Context) error {
	if err := p.rdb.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("session: clear pointer: %w", err)
	}
	_ = p.rdb.Publish(ctx, p.channel, "cleared").Err()
	return nil
}

// Watch subscribes to the change channel and forwards events until ctx ends.
func (p *RedisPointer) Watch(ctx context.Context) <-chan struct{} {
	sub := p.rdb.Subscribe(ctx, p.channel)
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default: // a pending tick already covers this change
				}
			}
		}
	}()
	return out
}
