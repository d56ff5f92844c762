package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisPingTimeout = 2 * time.Second

// Redis stores values as plain string keys without expiry.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to addr (host:port) and pings it.
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("slot: redis backend needs an address")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("slot: redis ping %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

// Get implements Slot.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("slot: redis get %s: %w", key, err)
	}
	return data, nil
}

// Put implements Slot.
func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("slot: redis set %s: %w", key, err)
	}
	return nil
}

// Close implements Slot.
func (r *Redis) Close() error {
	return r.client.Close()
}
