// Package cache remembers revoked session tokens until they would have
// expired anyway.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const keyPrefix = "jotter:revoked:"

type Redis struct {
	RDB *redis.Client
}

func NewRedis(addr, pass string, db int) *Redis {
	return &Redis{
		RDB: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
	}
}

func (r *Redis) Ping(ctx context.Context) error { return r.RDB.Ping(ctx).Err() }

func (r *Redis) Close() error { return r.RDB.Close() }

func (r *Redis) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.RDB.Set(ctx, keyPrefix+tokenID, 1, ttl).Err()
}

func (r *Redis) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := r.RDB.Get(ctx, keyPrefix+tokenID).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	}
	return false, err
}

// Memory is the single-process Revoker used when no Redis is configured.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	revoked map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now, revoked: map[string]time.Time{}}
}

func (m *Memory) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, until := range m.revoked {
		if !now.Before(until) {
			delete(m.revoked, id)
		}
	}
	m.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[tokenID]
	return ok && m.now().Before(until), nil
}
