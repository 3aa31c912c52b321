package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_ReturnsResult(t *testing.T) {
	v, err := Call(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCall_TimeoutCancelsAndDropsLateResult(t *testing.T) {
	cancelled := make(chan struct{})
	v, err := Call(context.Background(), 20*time.Millisecond, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		close(cancelled)
		return "late", nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsTimeout(err))
	assert.Empty(t, v)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("call context was not cancelled")
	}
}

func TestCall_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Call(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCall_NoDeadline(t *testing.T) {
	_, err := Call(context.Background(), 0, func(ctx context.Context) (int, error) {
		return 0, ErrNotFound
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClassifiers(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", ErrSessionExpired)
	assert.True(t, IsSessionExpired(wrapped))
	assert.False(t, IsSessionExpired(errors.New("x")))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.False(t, IsTimeout(nil))

	assert.Contains(t, UserMessage(ErrTimeout), "check your connection")
	assert.Contains(t, UserMessage(wrapped), "sign in again")
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}
