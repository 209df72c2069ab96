package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownTracker remembers when a non-critical alert was last sent for a
// check id, so repeats inside the cooldown window can be suppressed.
type CooldownTracker interface {
	InCooldown(ctx context.Context, checkID string, window time.Duration) (bool, error)
	MarkSent(ctx context.Context, checkID string, window time.Duration) error
}

// MemoryCooldown is the default process-local tracker. State lives for the
// life of the service, matching a single-scheduler deployment.
type MemoryCooldown struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (m *MemoryCooldown) InCooldown(_ context.Context, checkID string, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastSent[checkID]
	if !ok {
		return false, nil
	}
	return m.now().Sub(last) < window, nil
}

func (m *MemoryCooldown) MarkSent(_ context.Context, checkID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSent[checkID] = m.now()
	return nil
}

// RedisCooldown shares cooldown state across processes. Each sent alert sets
// a key with TTL equal to the cooldown window; the key existing means the
// check id is still cooling down.
type RedisCooldown struct {
	rdb *redis.Client
}

func NewRedisCooldown(addr, password string, db int) (*RedisCooldown, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCooldown{rdb: rdb}, nil
}

func (r *RedisCooldown) InCooldown(ctx context.Context, checkID string, _ time.Duration) (bool, error) {
	n, err := r.rdb.Exists(ctx, cooldownKey(checkID)).Result()
	if err != nil {
		return false, fmt.Errorf("check cooldown: %w", err)
	}
	return n > 0, nil
}

func (r *RedisCooldown) MarkSent(ctx context.Context, checkID string, window time.Duration) error {
	if err := r.rdb.Set(ctx, cooldownKey(checkID), time.Now().UTC().Format(time.RFC3339), window).Err(); err != nil {
		return fmt.Errorf("mark cooldown: %w", err)
	}
	return nil
}

func (r *RedisCooldown) Close() error {
	return r.rdb.Close()
}

func cooldownKey(checkID string) string {
	return "cooldown:" + checkID
}
