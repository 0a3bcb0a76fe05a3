// Package cache is a small time-boxed cache keyed by string. Entries are
// JSON-encoded into a Backend together with their expiry, so a persistent
// backend survives restarts.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/timex"
)

// Backend stores raw bytes. The metadata repository satisfies it.
// Get returns (nil, nil) for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type envelope[V any] struct {
	ExpiresAt time.Time `json:"expiresAt"`
	Value     V         `json:"value"`
}

// TTL caches values of type V for a fixed duration.
type TTL[V any] struct {
	backend Backend
	prefix  string
	ttl     time.Duration
	clock   timex.Clock
}

// New returns a cache storing under prefix+key with the given lifetime.
func New[V any](backend Backend, prefix string, ttl time.Duration, clock timex.Clock) *TTL[V] {
	if clock == nil {
		clock = timex.RealClock{}
	}
	return &TTL[V]{backend: backend, prefix: prefix, ttl: ttl, clock: clock}
}

// Get returns the cached value when present and fresh. Undecodable
// entries count as misses.
func (c *TTL[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, err := c.backend.Get(ctx, c.prefix+key)
	if err != nil {
		return zero, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if raw == nil {
		return zero, false, nil
	}
	var env envelope[V]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, false, nil
	}
	if !c.clock.Now().Before(env.ExpiresAt) {
		return zero, false, nil
	}
	return env.Value, true, nil
}

func (c *TTL[V]) Set(ctx context.Context, key string, v V) error {
	raw, err := json.Marshal(envelope[V]{ExpiresAt: c.clock.Now().Add(c.ttl), Value: v})
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.backend.Set(ctx, c.prefix+key, raw); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Load errors are returned as is and nothing is cached.
func (c *TTL[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok, err := c.Get(ctx, key); err == nil && ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	// A failed write only costs a refetch later.
	_ = c.Set(ctx, key, v)
	return v, nil
}

// Memory is an in-process Backend.
type Memory struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[key], nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = value
	return nil
}
