package lobby

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultReservationTTL outlives several sweeps; Keep refreshes live codes.
	DefaultReservationTTL = 30 * time.Minute

	reserveKeyPrefix = "relay:room:"
)

// RedisReserver claims codes with SETNX so relays sharing a Redis never
// issue the same code twice.
type RedisReserver struct {
	rdb   *redis.Client
	ttl   time.Duration
	owner string
}

func NewRedisReserver(rdb *redis.Client, ttl time.Duration, owner string) *RedisReserver {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	if strings.TrimSpace(owner) == "" {
		owner = "relay"
	}
	return &RedisReserver{rdb: rdb, ttl: ttl, owner: owner}
}

// OpenRedisReserver dials redisURL and verifies the connection.
func OpenRedisReserver(ctx context.Context, redisURL string, ttl time.Duration, owner string) (*RedisReserver, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for code reservation")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisReserver(rdb, ttl, owner), nil
}

func (r *RedisReserver) key(code string) string { return reserveKeyPrefix + strings.TrimSpace(code) }

func (r *RedisReserver) Reserve(ctx context.Context, code string) (bool, error) {
	return r.rdb.SetNX(ctx, r.key(code), r.owner, r.ttl).Result()
}

func (r *RedisReserver) Release(ctx context.Context, code string) error {
	return r.rdb.Del(ctx, r.key(code)).Err()
}

// Keep extends the reservation of codes that are still in use.
func (r *RedisReserver) Keep(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	pipe := r.rdb.Pipeline()
	for _, c := range codes {
		pipe.Expire(ctx, r.key(c), r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisReserver) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
