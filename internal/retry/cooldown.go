package retry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownWindow is how long a 429 keeps slowing down new calls.
const CooldownWindow = 60 * time.Second

// Cooldown tracks the most recent rate-limit response across all calls.
type Cooldown interface {
	MarkRateLimited(ctx context.Context, at time.Time) error
	LastRateLimited(ctx context.Context) (time.Time, bool, error)
}

// MemoryCooldown is a process-local Cooldown.
type MemoryCooldown struct {
	mu   sync.Mutex
	last time.Time
}

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{}
}

func (m *MemoryCooldown) MarkRateLimited(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if at.After(m.last) {
		m.last = at
	}
	return nil
}

func (m *MemoryCooldown) LastRateLimited(_ context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, !m.last.IsZero(), nil
}

const cooldownKey = "subtrans:last_rate_limit"

// RedisCooldown shares the last rate-limit timestamp between processes.
// The key expires with the window so stale marks disappear on their own.
type RedisCooldown struct {
	client *redis.Client
	key    string
}

// NewRedisCooldown connects to addr and verifies the connection.
func NewRedisCooldown(addr string) (*RedisCooldown, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCooldown{client: client, key: cooldownKey}, nil
}

// NewRedisCooldownClient wraps an existing client.
func NewRedisCooldownClient(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{client: client, key: cooldownKey}
}

func (r *RedisCooldown) Close() error {
	return r.client.Close()
}

func (r *RedisCooldown) MarkRateLimited(ctx context.Context, at time.Time) error {
	if err := r.client.Set(ctx, r.key, at.UnixMilli(), CooldownWindow).Err(); err != nil {
		return fmt.Errorf("mark rate limit: %w", err)
	}
	return nil
}

func (r *RedisCooldown) LastRateLimited(ctx context.Context) (time.Time, bool, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read rate limit: %w", err)
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read rate limit: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}
