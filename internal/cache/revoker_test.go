package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_RevokeExpires(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Revoke(ctx, "jti-1", time.Minute))
	revoked, err := m.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, _ = m.IsRevoked(ctx, "jti-2")
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = m.IsRevoked(ctx, "jti-1")
	assert.False(t, revoked)

	require.NoError(t, m.Revoke(ctx, "jti-3", time.Minute))
	assert.NotContains(t, m.revoked, "jti-1")
}

func TestMemory_NonPositiveTTL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Revoke(ctx, "jti", 0))
	revoked, _ := m.IsRevoked(ctx, "jti")
	assert.False(t, revoked)
}
