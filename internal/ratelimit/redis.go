package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// Compile-time check: Redis implements Limiter.
var _ Limiter = (*Redis)(nil)

// Redis is the fixed-window limiter backed by Redis, for deployments with
// more than one instance. Counters live in keys expiring with the window.
type Redis struct {
	client rueidis.Client
	window time.Duration
	max    int
	prefix string
}

// RedisConfig holds Redis limiter connection settings.
type RedisConfig struct {
	Addrs    []string
	Username string
	Password string
	// KeyPrefix namespaces limiter keys, default "birthdex:rl:".
	KeyPrefix string
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(cfg RedisConfig, window time.Duration, max int) (*Redis, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "birthdex:rl:"
	}
	return &Redis{client: client, window: window, max: max, prefix: prefix}, nil
}

// Close shuts down the client.
func (r *Redis) Close() {
	r.client.Close()
}

// Allow implements Limiter. INCR starts or advances the window counter; the
// expiry is attached once (NX) so the window boundary is fixed by the first
// request.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	k := r.prefix + key

	count, err := r.client.Do(ctx, r.client.B().Incr().Key(k).Build()).AsInt64()
	if err != nil {
		return Decision{}, fmt.Errorf("incr %s: %w", k, err)
	}

	expireCmd := r.client.B().Pexpire().Key(k).Milliseconds(r.window.Milliseconds()).Nx().Build()
	if err := r.client.Do(ctx, expireCmd).Error(); err != nil {
		return Decision{}, fmt.Errorf("pexpire %s: %w", k, err)
	}

	ttl, err := r.client.Do(ctx, r.client.B().Pttl().Key(k).Build()).AsInt64()
	if err != nil {
		return Decision{}, fmt.Errorf("pttl %s: %w", k, err)
	}
	if ttl < 0 {
		ttl = r.window.Milliseconds()
	}
	reset := time.Now().Add(time.Duration(ttl) * time.Millisecond)

	remaining := r.max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{OK: count <= int64(r.max), Remaining: remaining, Reset: reset}, nil
}
