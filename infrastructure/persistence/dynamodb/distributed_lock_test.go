package dynamodb

import (
	"context"
	"testing"
	"time"

	pkgerrors "mindmap-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDistributedLockAcquireRelease(t *testing.T) {
	// Arrange
	ctx := context.Background()
	api := newFakeAPI()
	locker := NewDistributedLock(api, "mindmaps", "proc-1", zap.NewNop())

	// Act
	lock, err := locker.Acquire(ctx, "alice/m1", time.Minute)
	require.NoError(t, err)

	// Assert
	item := api.items["LOCK#alice/m1|LOCK"]
	require.NotNil(t, item)
	assert.Equal(t, "proc-1", stringAttr(item, "Owner"))

	require.NoError(t, lock.Release(ctx))
	assert.Empty(t, api.items)
	require.NoError(t, lock.Release(ctx))
}

func TestDistributedLockContention(t *testing.T) {
	api := newFakeAPI()
	first := NewDistributedLock(api, "mindmaps", "proc-1", zap.NewNop())
	second := NewDistributedLock(api, "mindmaps", "proc-2", zap.NewNop())

	held, err := first.Acquire(context.Background(), "alice/m1", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	_, err = second.Acquire(ctx, "alice/m1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, api.putItemCount(), 2)

	// other resources are independent
	other, err := second.Acquire(context.Background(), "alice/m2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(context.Background()))

	require.NoError(t, held.Release(context.Background()))
	lock, err := second.Acquire(context.Background(), "alice/m1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, lock.Release(context.Background()))
}

func TestDistributedLockTakesOverExpiredLock(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	stale := NewDistributedLock(api, "mindmaps", "proc-1", zap.NewNop())
	stale.now = func() time.Time { return now }
	abandoned, err := stale.Acquire(ctx, "alice/m1", time.Second)
	require.NoError(t, err)

	fresh := NewDistributedLock(api, "mindmaps", "proc-2", zap.NewNop())
	fresh.now = func() time.Time { return now.Add(5 * time.Second) }
	lock, err := fresh.Acquire(ctx, "alice/m1", time.Minute)
	require.NoError(t, err)

	stale.now = func() time.Time { return now.Add(5 * time.Second) }
	assert.True(t, abandoned.(*Lock).IsExpired())
	assert.False(t, lock.(*Lock).IsExpired())

	// releasing the abandoned lock must not remove the new owner's lock
	require.NoError(t, abandoned.Release(ctx))
	assert.Equal(t, "proc-2", stringAttr(api.items["LOCK#alice/m1|LOCK"], "Owner"))
}

func TestDistributedLockRemoteFailure(t *testing.T) {
	api := newFakeAPI()
	api.failWith = errThrottled
	locker := NewDistributedLock(api, "mindmaps", "", nil)

	_, err := locker.Acquire(context.Background(), "alice/m1", time.Minute)

	assert.True(t, pkgerrors.IsRemoteUnavailable(err))
}
