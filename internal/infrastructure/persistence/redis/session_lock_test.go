package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return Wrap(rdb), mr
}

func TestSessionLocker_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	locker := NewSessionLocker(client, "lock:test:", time.Minute)

	unlock, ok, err := locker.TryLock(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	// 不同会话互不影响
	unlockOther, ok, err := locker.TryLock(ctx, "s2")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, unlockOther(ctx))

	require.NoError(t, unlock(ctx))

	unlock, ok, err = locker.TryLock(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, unlock(ctx))
}

func TestSessionLocker_ExpiredLockIsNotStolenBack(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	locker := NewSessionLocker(client, "lock:test:", time.Second)

	staleUnlock, ok, err := locker.TryLock(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	// 过期持有者释放时不得删除新持有者的锁
	require.NoError(t, staleUnlock(ctx))
	assert.True(t, mr.Exists("lock:test:s1"))
}

func TestClient_HealthCheck(t *testing.T) {
	client, mr := newTestClient(t)
	require.NoError(t, client.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, client.HealthCheck(context.Background()))
}
